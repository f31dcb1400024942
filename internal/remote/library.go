// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package remote is an in-memory implementation of the server side of the
// sync protocol: versioned libraries of settings, collections, searches and
// items with optimistic concurrency and deletion tracking.
//
// It backs the reference API server used for local development and for the
// end-to-end tests of the sync engine.
package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

type record struct {
	version  int64
	data     models.ObjectData
	modified time.Time
}

type settingRecord struct {
	value   any
	version int64
}

// Library is one remote library. All methods are safe for concurrent use.
type Library struct {
	mu sync.Mutex

	libType  models.LibraryType
	remoteID int64
	readOnly bool
	now      func() time.Time

	version  int64
	settings map[string]*settingRecord
	objects  map[models.ObjectType]map[string]*record
	deleted  map[models.ObjectType]map[string]int64
}

func newLibrary(libType models.LibraryType, remoteID int64, now func() time.Time) *Library {
	l := &Library{
		libType:  libType,
		remoteID: remoteID,
		now:      now,
		settings: make(map[string]*settingRecord),
		objects:  make(map[models.ObjectType]map[string]*record),
		deleted:  make(map[models.ObjectType]map[string]int64),
	}
	for _, t := range models.DataObjectTypes {
		l.objects[t] = make(map[string]*record)
	}
	for _, t := range []models.ObjectType{models.ObjectSetting, models.ObjectCollection, models.ObjectSearch, models.ObjectItem} {
		l.deleted[t] = make(map[string]int64)
	}
	return l
}

// Version returns the library version.
func (l *Library) Version() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// SetReadOnly makes every write fail with ErrReadOnly.
func (l *Library) SetReadOnly(readOnly bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readOnly = readOnly
}

// Reset drops all content and sets the library version, simulating a
// server side restore.
func (l *Library) Reset(version int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fresh := newLibrary(l.libType, l.remoteID, l.now)
	l.settings, l.objects, l.deleted = fresh.settings, fresh.objects, fresh.deleted
	l.version = version
}

// CheckModified returns ErrNotModified when the library is still at since.
// A version lower than since is a reset library and counts as modified.
func (l *Library) CheckModified(since int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.version == since {
		return ErrNotModified
	}
	return nil
}

// Settings returns the settings modified after since.
func (l *Library) Settings(since int64) (map[string]models.RemoteSetting, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]models.RemoteSetting)
	for name, s := range l.settings {
		if s.version <= since {
			continue
		}
		raw, err := json.Marshal(s.value)
		if err != nil {
			return nil, 0, err
		}
		out[name] = models.RemoteSetting{Value: raw, Version: s.version}
	}
	return out, l.version, nil
}

// VersionsQuery selects a manifest.
type VersionsQuery struct {
	Since          int64
	SinceTime      *time.Time
	TopOnly        bool
	IncludeTrashed bool
}

// Versions returns the key→version manifest of t.
func (l *Library) Versions(t models.ObjectType, q VersionsQuery) (map[string]int64, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	objects, ok := l.objects[t]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	out := make(map[string]int64)
	for key, r := range objects {
		if r.version <= q.Since {
			continue
		}
		if q.SinceTime != nil && !r.modified.After(*q.SinceTime) {
			continue
		}
		if q.TopOnly && models.ParentKeyOf(t, r.data) != "" {
			continue
		}
		if !q.IncludeTrashed && isTrashed(r.data) {
			continue
		}
		out[key] = r.version
	}
	return out, l.version, nil
}

// Objects returns the full JSON of the existing keys, in key order.
func (l *Library) Objects(t models.ObjectType, keys []string) ([]models.RemoteObject, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	objects, ok := l.objects[t]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	out := make([]models.RemoteObject, 0, len(sorted))
	for _, key := range sorted {
		r, ok := objects[key]
		if !ok {
			continue
		}
		obj, err := remoteObject(key, r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, obj)
	}
	return out, l.version, nil
}

// Deleted returns the keys deleted after since.
func (l *Library) Deleted(since int64) (models.DeletedResult, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pick := func(t models.ObjectType) []string {
		keys := make([]string, 0)
		for key, v := range l.deleted[t] {
			if v > since {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		return keys
	}
	return models.DeletedResult{
		Settings:    pick(models.ObjectSetting),
		Collections: pick(models.ObjectCollection),
		Searches:    pick(models.ObjectSearch),
		Items:       pick(models.ObjectItem),
	}, l.version
}

// WriteSettings stores settings given as {name: {"value": v}}.
func (l *Library) WriteSettings(ifUnmodifiedSince int64, settings map[string]models.ObjectData) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkWrite(ifUnmodifiedSince); err != nil {
		return l.version, err
	}
	if len(settings) == 0 {
		return l.version, nil
	}

	l.version++
	for name, s := range settings {
		value, ok := s["value"]
		if !ok {
			return l.version, fmt.Errorf("%w: setting %q has no value", ErrInvalidObject, name)
		}
		l.settings[name] = &settingRecord{value: value, version: l.version}
		delete(l.deleted[models.ObjectSetting], name)
	}
	return l.version, nil
}

// WriteObjects creates or updates objects. Objects carrying a version are
// patched; fields sent with an empty value are removed.
func (l *Library) WriteObjects(t models.ObjectType, ifUnmodifiedSince int64, objects []models.ObjectData) (models.WriteResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	resp := models.WriteResponse{
		Successful: make(map[string]models.RemoteObject),
		Unchanged:  make(map[string]json.RawMessage),
		Failed:     make(map[string]models.WriteFailure),
	}

	stored, ok := l.objects[t]
	if !ok {
		return resp, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	if err := l.checkWrite(ifUnmodifiedSince); err != nil {
		resp.LibraryVersion = l.version
		return resp, err
	}

	next := l.version + 1
	now := l.now().UTC()
	written := false

	for i, obj := range objects {
		idx := strconv.Itoa(i)
		key, _ := obj["key"].(string)
		if key == "" {
			key = utils.NewObjectKey()
		}
		if !utils.IsValidObjectKey(key) {
			resp.Failed[idx] = models.WriteFailure{Key: key, Code: http.StatusBadRequest, Message: "invalid key"}
			continue
		}

		existing := stored[key]
		version, hasVersion := versionOf(obj)
		switch {
		case existing != nil && hasVersion && version != existing.version:
			resp.Failed[idx] = models.WriteFailure{Key: key, Code: http.StatusPreconditionFailed,
				Message: fmt.Sprintf("%s has been modified since version %d", t, version)}
			continue
		case existing == nil && hasVersion && version > 0:
			resp.Failed[idx] = models.WriteFailure{Key: key, Code: http.StatusNotFound,
				Message: fmt.Sprintf("%s %s not found", t, key)}
			continue
		}

		data := make(models.ObjectData)
		if existing != nil {
			data = existing.data.Clone()
		}
		for f, v := range obj {
			if f == "key" || f == "version" {
				continue
			}
			if isEmpty(v) {
				delete(data, f)
				continue
			}
			data[f] = v
		}

		if t == models.ObjectItem && data.String("itemType") == "" {
			resp.Failed[idx] = models.WriteFailure{Key: key, Code: http.StatusBadRequest, Message: "itemType is required"}
			continue
		}
		if parent := models.ParentKeyOf(t, data); parent != "" {
			if _, ok := stored[parent]; !ok && !l.pendingIn(objects[:i], parent) {
				resp.Failed[idx] = models.WriteFailure{Key: key, Code: http.StatusConflict,
					Message: fmt.Sprintf("parent %s %s not found", t, parent)}
				continue
			}
		}

		if existing != nil && reflect.DeepEqual(existing.data, data) {
			resp.Unchanged[idx] = json.RawMessage(strconv.Quote(key))
			continue
		}

		stored[key] = &record{version: next, data: data, modified: now}
		delete(l.deleted[t], key)
		written = true

		remoteObj, err := remoteObject(key, stored[key])
		if err != nil {
			return resp, err
		}
		resp.Successful[idx] = remoteObj
	}

	if written {
		l.version = next
	}
	resp.LibraryVersion = l.version
	return resp, nil
}

// DeleteObjects deletes keys of t, including settings.
func (l *Library) DeleteObjects(t models.ObjectType, ifUnmodifiedSince int64, keys []string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.deleted[t]; !ok {
		return l.version, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	if err := l.checkWrite(ifUnmodifiedSince); err != nil {
		return l.version, err
	}

	next := l.version + 1
	removed := false
	for _, key := range keys {
		if t == models.ObjectSetting {
			if _, ok := l.settings[key]; ok {
				delete(l.settings, key)
				l.deleted[t][key] = next
				removed = true
			}
			continue
		}
		if _, ok := l.objects[t][key]; ok {
			delete(l.objects[t], key)
			l.deleted[t][key] = next
			removed = true
		}
	}
	if removed {
		l.version = next
	}
	return l.version, nil
}

// Put stores data as a server side edit and returns the new version. It is
// the way tests and seed data change the library behind the client's back.
func (l *Library) Put(t models.ObjectType, key string, data models.ObjectData) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.version++
	if t == models.ObjectSetting {
		l.settings[key] = &settingRecord{value: data["value"], version: l.version}
	} else {
		l.objects[t][key] = &record{version: l.version, data: data.Clone(), modified: l.now().UTC()}
	}
	delete(l.deleted[t], key)
	return l.version
}

// Remove deletes key as a server side edit and returns the new version.
func (l *Library) Remove(t models.ObjectType, key string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.version++
	if t == models.ObjectSetting {
		delete(l.settings, key)
	} else {
		delete(l.objects[t], key)
	}
	l.deleted[t][key] = l.version
	return l.version
}

// Get returns the stored data and version of key.
func (l *Library) Get(t models.ObjectType, key string) (models.ObjectData, int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t == models.ObjectSetting {
		s, ok := l.settings[key]
		if !ok {
			return nil, 0, false
		}
		return models.ObjectData{"value": s.value}, s.version, true
	}
	r, ok := l.objects[t][key]
	if !ok {
		return nil, 0, false
	}
	return r.data.Clone(), r.version, true
}

func (l *Library) checkWrite(ifUnmodifiedSince int64) error {
	if l.readOnly {
		return ErrReadOnly
	}
	if ifUnmodifiedSince < l.version {
		return ErrPreconditionFailed
	}
	return nil
}

// pendingIn reports whether key is written earlier in the same request.
func (l *Library) pendingIn(objects []models.ObjectData, key string) bool {
	for _, obj := range objects {
		if k, _ := obj["key"].(string); k == key {
			return true
		}
	}
	return false
}

func remoteObject(key string, r *record) (models.RemoteObject, error) {
	data := r.data.Clone()
	data["key"] = key
	data["version"] = r.version
	raw, err := json.Marshal(data)
	if err != nil {
		return models.RemoteObject{}, err
	}
	return models.RemoteObject{Key: key, Version: r.version, Data: raw}, nil
}

func versionOf(obj models.ObjectData) (int64, bool) {
	switch v := obj["version"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func isTrashed(data models.ObjectData) bool {
	switch v := data["deleted"].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	default:
		return false
	}
}
