// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport client of the sync engine: one
// method per REST endpoint of a library root ("users/<id>/..." or
// "groups/<id>/...").
//
// Every method returns the Last-Modified-Version header of the response as
// the watermark candidate. Error values defined in errors.go are mapped from
// HTTP status codes by mapHTTPError so that callers can use [errors.Is] and
// [errors.As] (e.g. [ErrPreconditionFailed] for 412, [*TransientError] for
// 429 and 5xx).
package adapter

import (
	"context"
	"time"

	"github.com/MKhiriev/go-refsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/api_client_mock.go -package=mock

// VersionsOptions selects the manifest requested by APIClient.GetVersions.
type VersionsOptions struct {
	// Since limits the manifest to objects modified after this library
	// version. Zero requests the full manifest.
	Since int64

	// SinceTime limits the manifest to objects modified after this time.
	SinceTime *time.Time

	// TopOnly requests the top-level manifest (items/top).
	TopOnly bool

	// IncludeTrashed adds trashed objects to the manifest.
	IncludeTrashed bool
}

// APIClient is the REST surface consumed by the sync engine.
type APIClient interface {
	// GetSettings fetches settings modified after since. When since is
	// positive the request is conditional and returns [ErrNotModified] if the
	// library has not changed.
	GetSettings(ctx context.Context, lib models.Library, since int64) (models.SettingsResult, error)

	// GetVersions fetches a key→version manifest of objectType.
	GetVersions(ctx context.Context, lib models.Library, objectType models.ObjectType, opts VersionsOptions) (models.VersionsResult, error)

	// GetObjects fetches the full JSON of the given keys. Keys unknown to the
	// server are missing from the result.
	GetObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, keys []string) ([]models.RemoteObject, int64, error)

	// GetDeleted fetches the keys deleted after since, per type.
	GetDeleted(ctx context.Context, lib models.Library, since int64) (models.DeletedResult, error)

	// UploadSettings writes settings as {name: {value}}. It returns the new
	// library version.
	UploadSettings(ctx context.Context, lib models.Library, settings map[string]models.ObjectData, ifUnmodifiedSince int64) (int64, error)

	// UploadObjects writes a batch of full or patch objects.
	UploadObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, objects []models.ObjectData, ifUnmodifiedSince int64) (models.WriteResponse, error)

	// DeleteObjects deletes keys of objectType. It returns the new library
	// version.
	DeleteObjects(ctx context.Context, lib models.Library, objectType models.ObjectType, keys []string, ifUnmodifiedSince int64) (int64, error)
}
