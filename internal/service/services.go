package service

import (
	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/store"
)

type Services struct {
	LibraryService LibraryService
	SyncService    SyncService
	SyncJob        SyncJob
}

func NewServices(st store.Store, newEngine EngineFactory, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	syncService := NewSyncService(st, newEngine, logger)
	return &Services{
		LibraryService: NewLibraryService(st, logger),
		SyncService:    syncService,
		SyncJob:        NewSyncJob(syncService, cfg.Workers.SyncInterval, logger),
	}
}
