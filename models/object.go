// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// ObjectType is the closed set of synced object variants.
type ObjectType string

const (
	ObjectSetting    ObjectType = "setting"
	ObjectCollection ObjectType = "collection"
	ObjectSearch     ObjectType = "search"
	ObjectItem       ObjectType = "item"
)

// DataObjectTypes lists the object types that have manifests, in download
// order. Settings are handled separately.
var DataObjectTypes = []ObjectType{ObjectCollection, ObjectSearch, ObjectItem}

// ObjectData is the decoded "data" member of an object's JSON representation.
type ObjectData map[string]any

// Clone returns a shallow copy of d. Nested values are shared.
func (d ObjectData) Clone() ObjectData {
	if d == nil {
		return nil
	}
	out := make(ObjectData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the string value of field, or "" when it is missing or not a
// string.
func (d ObjectData) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Object is a locally stored synced object.
type Object struct {
	// ID is the local row identifier; it reflects creation order.
	ID int64 `json:"-"`

	Type      ObjectType `json:"type"`
	LibraryID int64      `json:"library_id"`
	Key       string     `json:"key"`

	// Version is the server-assigned version, 0 for never-uploaded objects.
	Version int64 `json:"version"`

	// Synced is true when Data matches the cache entry at Version.
	Synced bool `json:"synced"`

	// ParentKey is the key of the parent collection or parent item, if any.
	ParentKey string `json:"parent_key,omitempty"`

	// Data holds the object's fields without key and version.
	Data ObjectData `json:"data"`

	DateAdded          time.Time `json:"date_added"`
	ClientDateModified time.Time `json:"client_date_modified"`
}

// RemoteObject is one element of a "format=json" response or of the
// "successful" map of a write response.
type RemoteObject struct {
	Key     string          `json:"key" validate:"required,min=1,max=255"`
	Version int64           `json:"version" validate:"gte=0"`
	Data    json.RawMessage `json:"data" validate:"required"`
}

// CacheEntry is the last applied JSON of an object at a given version. It
// serves as the common ancestor in three-way diffs.
type CacheEntry struct {
	Type      ObjectType `json:"type"`
	LibraryID int64      `json:"library_id"`
	Key       string     `json:"key"`
	Version   int64      `json:"version"`
	Data      ObjectData `json:"data"`
}

// SyncQueueEntry is an object deferred by a validation or dependency failure.
type SyncQueueEntry struct {
	Type      ObjectType `json:"type"`
	LibraryID int64      `json:"library_id"`
	Key       string     `json:"key"`
	LastCheck time.Time  `json:"last_check"`
	Tries     int        `json:"tries"`
}

// DeletionLogEntry is a local erasure pending upload.
type DeletionLogEntry struct {
	Type        ObjectType `json:"type"`
	LibraryID   int64      `json:"library_id"`
	Key         string     `json:"key"`
	DateDeleted time.Time  `json:"date_deleted"`
}

// ChangeAction is the kind of a store change notification.
type ChangeAction string

const (
	ChangeAdd    ChangeAction = "add"
	ChangeModify ChangeAction = "modify"
	ChangeDelete ChangeAction = "delete"
)

// ChangeEvent is published by the local store after a committed write.
type ChangeEvent struct {
	Action    ChangeAction
	Type      ObjectType
	LibraryID int64
	Keys      []string
}

// Plural returns the API path segment of the type, e.g. "collections".
func (t ObjectType) Plural() string {
	switch t {
	case ObjectSearch:
		return "searches"
	case ObjectSetting:
		return "settings"
	default:
		return string(t) + "s"
	}
}

// KeyParam returns the query parameter that selects objects by key.
func (t ObjectType) KeyParam() string {
	return string(t) + "Key"
}

// ParentField returns the data field that references a parent object of the
// same type, or "" when the type has no dependency.
func (t ObjectType) ParentField() string {
	switch t {
	case ObjectCollection:
		return "parentCollection"
	case ObjectItem:
		return "parentItem"
	default:
		return ""
	}
}

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectSetting, ObjectCollection, ObjectSearch, ObjectItem:
		return true
	}
	return false
}

// ParentKeyOf extracts the parent key from data. A false or empty value means
// "no parent".
func ParentKeyOf(t ObjectType, data ObjectData) string {
	field := t.ParentField()
	if field == "" {
		return ""
	}
	return data.String(field)
}
