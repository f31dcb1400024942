package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

type libraryService struct {
	libraries store.LibraryRepository
	logger    *logger.Logger
}

func NewLibraryService(libraries store.LibraryRepository, log *logger.Logger) LibraryService {
	return &libraryService{libraries: libraries, logger: log}
}

// EnsureLibraries returns the personal library of cfg.UserID followed by the
// group libraries of cfg.Groups, creating the missing ones at version 0.
func (s *libraryService) EnsureLibraries(ctx context.Context, cfg config.App) ([]models.Library, error) {
	type wanted struct {
		libType  models.LibraryType
		remoteID int64
	}

	var list []wanted
	if cfg.UserID > 0 {
		list = append(list, wanted{models.LibraryUser, cfg.UserID})
	}
	for _, groupID := range cfg.Groups {
		list = append(list, wanted{models.LibraryGroup, groupID})
	}
	if len(list) == 0 {
		return nil, ErrNoLibraries
	}

	libs := make([]models.Library, 0, len(list))
	for _, w := range list {
		lib, err := s.libraries.FindLibrary(ctx, w.libType, w.remoteID)
		if errors.Is(err, store.ErrLibraryNotFound) {
			lib, err = s.libraries.CreateLibrary(ctx, models.Library{
				Type:          w.libType,
				RemoteID:      w.remoteID,
				Editable:      true,
				FilesEditable: true,
				StorageMode:   models.StorageZFS,
			})
			if err == nil {
				s.logger.Info().
					Str("func", "libraryService.EnsureLibraries").
					Str("prefix", lib.Prefix()).
					Int64("library_id", lib.ID).
					Msg("library created")
			}
		}
		if err != nil {
			return nil, fmt.Errorf("library %s/%d: %w", w.libType, w.remoteID, err)
		}
		libs = append(libs, lib)
	}
	return libs, nil
}
