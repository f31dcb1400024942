// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// RemoteSetting is one entry of a settings response.
type RemoteSetting struct {
	Value   json.RawMessage `json:"value"`
	Version int64           `json:"version"`
}

// SettingsResult is a decoded settings response.
type SettingsResult struct {
	LibraryVersion int64
	Settings       map[string]RemoteSetting
}

// DeletedResult is a decoded "deleted?since=" response.
type DeletedResult struct {
	LibraryVersion int64               `json:"-"`
	Settings       []string            `json:"settings"`
	Collections    []string            `json:"collections"`
	Searches       []string            `json:"searches"`
	Items          []string            `json:"items"`
	Extra          map[string][]string `json:"-"`
}

// Keys returns the deleted keys of the given type.
func (d DeletedResult) Keys(t ObjectType) []string {
	switch t {
	case ObjectSetting:
		return d.Settings
	case ObjectCollection:
		return d.Collections
	case ObjectSearch:
		return d.Searches
	case ObjectItem:
		return d.Items
	}
	return nil
}

// WriteFailure is one entry of the "failed" map of a write response.
type WriteFailure struct {
	Key     string `json:"key,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteResponse is the body returned by a multi-object POST.
type WriteResponse struct {
	Successful map[string]RemoteObject    `json:"successful"`
	Unchanged  map[string]json.RawMessage `json:"unchanged"`
	Failed     map[string]WriteFailure    `json:"failed"`

	LibraryVersion int64 `json:"-"`
}
