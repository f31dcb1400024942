// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/models"
)

// Syncer runs sync passes of one library. *engine.Engine implements it.
type Syncer interface {
	Start(ctx context.Context) (models.PassResult, error)
	FullSync(ctx context.Context) (models.PassResult, error)
}

// SyncService runs passes over the locally known libraries.
type SyncService interface {
	// SyncAll runs one pass of every library. Results are returned in the
	// order of the libraries; failures of single libraries are joined.
	SyncAll(ctx context.Context) ([]models.PassResult, error)
	SyncLibrary(ctx context.Context, libraryID int64) (models.PassResult, error)
	FullSyncLibrary(ctx context.Context, libraryID int64) (models.PassResult, error)
}

// LibraryService provisions the local libraries listed in the configuration.
type LibraryService interface {
	EnsureLibraries(ctx context.Context, cfg config.App) ([]models.Library, error)
}

// SyncJob runs SyncService.SyncAll periodically. It satisfies workers.Worker.
type SyncJob interface {
	Start(ctx context.Context)
	Stop()
}
