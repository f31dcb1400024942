// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-refsync/internal/app"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/remote"
	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/internal/validators"
	"github.com/MKhiriev/go-refsync/models"
	"github.com/go-chi/chi/v5"
)

const (
	headerIfModifiedSince   = "If-Modified-Since-Version"
	headerIfUnmodifiedSince = "If-Unmodified-Since-Version"
)

type libraryCtxKey struct{}

// withLibrary resolves the library named by the route and stores it in the
// request context.
func (h *Handler) withLibrary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		libType := models.LibraryUser
		if chi.URLParam(r, "libraryType") == "groups" {
			libType = models.LibraryGroup
		}

		remoteID, err := strconv.ParseInt(chi.URLParam(r, "libraryID"), 10, 64)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: libraryID", errInvalidParameter), 0)
			return
		}

		lib, err := h.registry.Library(libType, remoteID)
		if err != nil {
			h.writeError(w, r, err, 0)
			return
		}

		ctx := context.WithValue(r.Context(), libraryCtxKey{}, lib)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func libraryFromRequest(r *http.Request) *remote.Library {
	lib, _ := r.Context().Value(libraryCtxKey{}).(*remote.Library)
	return lib
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	lib := libraryFromRequest(r)

	if since, ok := headerVersion(r, headerIfModifiedSince); ok {
		if err := lib.CheckModified(since); err != nil {
			h.writeError(w, r, err, lib.Version())
			return
		}
	}

	since, err := queryVersion(r, "since")
	if err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}

	settings, version, err := lib.Settings(since)
	if err != nil {
		h.writeError(w, r, err, version)
		return
	}

	h.writeJSON(w, r, settings, http.StatusOK, version)
}

func (h *Handler) postSettings(w http.ResponseWriter, r *http.Request) {
	lib := libraryFromRequest(r)

	var settings map[string]models.ObjectData
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", remote.ErrInvalidObject, err), lib.Version())
		return
	}

	for name, data := range settings {
		if err := h.validator.Validate(r.Context(), validators.SettingWrite{Name: name, Data: data}); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %w", remote.ErrInvalidObject, err), lib.Version())
			return
		}
	}

	ifUnmodified, err := requiredVersion(r)
	if err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}

	version, err := lib.WriteSettings(ifUnmodified, settings)
	if err != nil {
		h.writeError(w, r, err, version)
		return
	}

	utils.WriteVersion(w, http.StatusNoContent, version)
}

func (h *Handler) deleteSettings(w http.ResponseWriter, r *http.Request) {
	h.deleteKeys(w, r, models.ObjectSetting)
}

func (h *Handler) getDeleted(w http.ResponseWriter, r *http.Request) {
	lib := libraryFromRequest(r)

	since, err := queryVersion(r, "since")
	if err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}

	deleted, version := lib.Deleted(since)
	h.writeJSON(w, r, deleted, http.StatusOK, version)
}

func (h *Handler) getTopItems(w http.ResponseWriter, r *http.Request) {
	h.getManifest(w, r, models.ObjectItem, true)
}

func (h *Handler) getObjects(w http.ResponseWriter, r *http.Request) {
	t := objectTypeFromRequest(r)

	switch r.URL.Query().Get("format") {
	case "versions":
		h.getManifest(w, r, t, false)
	case "", "json":
		h.getObjectsJSON(w, r, t)
	default:
		h.writeError(w, r, fmt.Errorf("%w: format", errInvalidParameter), libraryFromRequest(r).Version())
	}
}

func (h *Handler) getManifest(w http.ResponseWriter, r *http.Request, t models.ObjectType, topOnly bool) {
	lib := libraryFromRequest(r)

	if since, ok := headerVersion(r, headerIfModifiedSince); ok {
		if err := lib.CheckModified(since); err != nil {
			h.writeError(w, r, err, lib.Version())
			return
		}
	}

	q := remote.VersionsQuery{
		TopOnly:        topOnly,
		IncludeTrashed: r.URL.Query().Get("includeTrashed") == "1",
	}

	var err error
	if q.Since, err = queryVersion(r, "since"); err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}
	if raw := r.URL.Query().Get("sincetime"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: sincetime", errInvalidParameter), lib.Version())
			return
		}
		sinceTime := time.Unix(secs, 0).UTC()
		q.SinceTime = &sinceTime
	}

	versions, version, err := lib.Versions(t, q)
	if err != nil {
		h.writeError(w, r, err, version)
		return
	}

	h.writeJSON(w, r, versions, http.StatusOK, version)
}

func (h *Handler) getObjectsJSON(w http.ResponseWriter, r *http.Request, t models.ObjectType) {
	lib := libraryFromRequest(r)

	keys := splitKeys(r.URL.Query().Get(t.KeyParam()))
	if len(keys) > maxObjectsPerRequest {
		h.writeError(w, r, errTooManyObjects, lib.Version())
		return
	}

	objects, version, err := lib.Objects(t, keys)
	if err != nil {
		h.writeError(w, r, err, version)
		return
	}

	h.writeJSON(w, r, objects, http.StatusOK, version)
}

func (h *Handler) postObjects(w http.ResponseWriter, r *http.Request) {
	lib := libraryFromRequest(r)
	t := objectTypeFromRequest(r)

	var objects []models.ObjectData
	if err := json.NewDecoder(r.Body).Decode(&objects); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", remote.ErrInvalidObject, err), lib.Version())
		return
	}
	if len(objects) > maxObjectsPerRequest {
		h.writeError(w, r, errTooManyObjects, lib.Version())
		return
	}

	ifUnmodified, err := requiredVersion(r)
	if err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}

	valid, indices, failed := h.validateObjects(r.Context(), t, objects)

	resp, err := lib.WriteObjects(t, ifUnmodified, valid)
	if err != nil {
		h.writeError(w, r, err, resp.LibraryVersion)
		return
	}

	h.writeJSON(w, r, remapWriteResponse(resp, indices, failed), http.StatusOK, resp.LibraryVersion)
}

// validateObjects splits objects into the ones passed to the library and
// the failures of the rejected ones. indices maps positions in valid back to
// positions in objects.
func (h *Handler) validateObjects(ctx context.Context, t models.ObjectType, objects []models.ObjectData) (valid []models.ObjectData, indices []int, failed map[string]models.WriteFailure) {
	failed = make(map[string]models.WriteFailure)
	for i, obj := range objects {
		if err := h.validator.Validate(ctx, validators.ObjectWrite{Type: t, Data: obj}); err != nil {
			key, _ := obj["key"].(string)
			failed[strconv.Itoa(i)] = models.WriteFailure{Key: key, Code: http.StatusBadRequest, Message: err.Error()}
			continue
		}
		valid = append(valid, obj)
		indices = append(indices, i)
	}
	return valid, indices, failed
}

func remapWriteResponse(resp models.WriteResponse, indices []int, failed map[string]models.WriteFailure) models.WriteResponse {
	original := func(idx string) string {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(indices) {
			return idx
		}
		return strconv.Itoa(indices[i])
	}

	out := models.WriteResponse{
		Successful:     make(map[string]models.RemoteObject, len(resp.Successful)),
		Unchanged:      make(map[string]json.RawMessage, len(resp.Unchanged)),
		Failed:         failed,
		LibraryVersion: resp.LibraryVersion,
	}
	for idx, obj := range resp.Successful {
		out.Successful[original(idx)] = obj
	}
	for idx, key := range resp.Unchanged {
		out.Unchanged[original(idx)] = key
	}
	for idx, failure := range resp.Failed {
		out.Failed[original(idx)] = failure
	}
	return out
}

func (h *Handler) deleteObjects(w http.ResponseWriter, r *http.Request) {
	h.deleteKeys(w, r, objectTypeFromRequest(r))
}

func (h *Handler) deleteKeys(w http.ResponseWriter, r *http.Request, t models.ObjectType) {
	lib := libraryFromRequest(r)

	keys := splitKeys(r.URL.Query().Get(t.KeyParam()))
	if len(keys) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: %s", errInvalidParameter, t.KeyParam()), lib.Version())
		return
	}
	if len(keys) > maxObjectsPerRequest {
		h.writeError(w, r, errTooManyObjects, lib.Version())
		return
	}

	ifUnmodified, err := requiredVersion(r)
	if err != nil {
		h.writeError(w, r, err, lib.Version())
		return
	}

	version, err := lib.DeleteObjects(t, ifUnmodified, keys)
	if err != nil {
		h.writeError(w, r, err, version)
		return
	}

	utils.WriteVersion(w, http.StatusNoContent, version)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, data any, status int, version int64) {
	if _, err := utils.WriteJSON(w, data, status, version); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.writeJSON").Msg("error writing response")
	}
}

// writeError maps err to a status code. The library version header is sent
// with every status except 404 for an unknown library.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, version int64) {
	status := statusFromError(err)
	log := logger.FromRequest(r)

	if status >= http.StatusInternalServerError {
		log.Err(err).Str("func", "Handler.writeError").Msg("request failed")
	} else {
		log.Debug().Err(err).Str("func", "Handler.writeError").Int("status", status).Msg("request rejected")
	}

	if libraryFromRequest(r) != nil {
		w.Header().Set(utils.LastModifiedVersionHeader, strconv.FormatInt(version, 10))
	}
	if status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}
	if status >= http.StatusInternalServerError {
		http.Error(w, app.MsgInternalServerError, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func objectTypeFromRequest(r *http.Request) models.ObjectType {
	switch chi.URLParam(r, "objects") {
	case "collections":
		return models.ObjectCollection
	case "searches":
		return models.ObjectSearch
	default:
		return models.ObjectItem
	}
}

func headerVersion(r *http.Request, name string) (int64, bool) {
	raw := r.Header.Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// requiredVersion reads If-Unmodified-Since-Version, which every write must carry.
func requiredVersion(r *http.Request) (int64, error) {
	v, ok := headerVersion(r, headerIfUnmodifiedSince)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errInvalidParameter, headerIfUnmodifiedSince)
	}
	return v, nil
}

func queryVersion(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidParameter, name)
	}
	return v, nil
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
