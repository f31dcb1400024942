// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// LibraryType distinguishes personal libraries from group libraries. It
// selects the REST root used for every request of the library.
type LibraryType string

const (
	LibraryUser  LibraryType = "user"
	LibraryGroup LibraryType = "group"
)

// StorageMode describes how attachment files of a library are stored. The sync
// engine does not transfer files, but the mode decides which attachment
// metadata fields are negotiated with the server.
type StorageMode string

const (
	StorageZFS    StorageMode = "zfs"
	StorageWebDAV StorageMode = "webdav"
)

// UnknownLibraryVersion marks a library whose watermark cannot be trusted. A
// library in this state is reconciled with a full sync.
const UnknownLibraryVersion int64 = -1

// Library is a locally known remote library together with its sync watermark.
type Library struct {
	// ID is the local identifier of the library.
	ID int64 `json:"id"`

	// Type is either LibraryUser or LibraryGroup.
	Type LibraryType `json:"type"`

	// RemoteID is the user or group identifier on the server.
	RemoteID int64 `json:"remote_id"`

	// Version is the last Last-Modified-Version accepted from the server.
	// It is advanced only from response headers.
	Version int64 `json:"version"`

	// Editable is false for read-only group libraries. Read-only libraries
	// never upload and always accept remote state.
	Editable bool `json:"editable"`

	// FilesEditable reports whether attachment files may be changed.
	FilesEditable bool `json:"files_editable"`

	// StorageMode is the attachment storage backend of the library.
	StorageMode StorageMode `json:"storage_mode"`

	// LegacyLastSync is the last sync time recorded by the classic sync
	// protocol. A non-nil value on a library at version 0 triggers the
	// upgrade routine.
	LegacyLastSync *time.Time `json:"legacy_last_sync,omitempty"`

	// LastSync is the time of the last completed sync pass.
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// Prefix returns the REST root of the library, e.g. "users/1" or "groups/5".
func (l Library) Prefix() string {
	if l.Type == LibraryGroup {
		return fmt.Sprintf("groups/%d", l.RemoteID)
	}
	return fmt.Sprintf("users/%d", l.RemoteID)
}
