package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/models"
)

// CreateLibrary registers a library. A library registered with version 0 and
// a legacy sync time will be upgraded on its first pass.
func (r *repository) CreateLibrary(ctx context.Context, lib models.Library) (models.Library, error) {
	log := logger.FromContext(ctx)

	if _, err := r.FindLibrary(ctx, lib.Type, lib.RemoteID); err == nil {
		return models.Library{}, ErrLibraryExists
	} else if !errors.Is(err, ErrLibraryNotFound) {
		return models.Library{}, err
	}

	if lib.StorageMode == "" {
		lib.StorageMode = models.StorageZFS
	}

	query, args, err := builder.Insert(tableLibraries).
		Columns(libraryColumns[1:]...).
		Values(string(lib.Type), lib.RemoteID, lib.Version, lib.Editable, lib.FilesEditable,
			string(lib.StorageMode), nullTime(lib.LegacyLastSync), nullTime(lib.LastSync)).
		ToSql()
	if err != nil {
		return models.Library{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "repository.CreateLibrary").
			Str("library_type", string(lib.Type)).
			Int64("remote_id", lib.RemoteID).
			Msg("failed to insert library")
		return models.Library{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	lib.ID, err = res.LastInsertId()
	if err != nil {
		return models.Library{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return lib, nil
}

func (r *repository) GetLibrary(ctx context.Context, libraryID int64) (models.Library, error) {
	return r.getLibrary(ctx, sq.Eq{"library_id": libraryID})
}

func (r *repository) FindLibrary(ctx context.Context, libType models.LibraryType, remoteID int64) (models.Library, error) {
	return r.getLibrary(ctx, sq.Eq{"library_type": string(libType), "remote_id": remoteID})
}

func (r *repository) getLibrary(ctx context.Context, where sq.Eq) (models.Library, error) {
	libs, err := r.queryLibraries(ctx, selectLibraries().Where(where))
	if err != nil {
		return models.Library{}, err
	}
	if len(libs) == 0 {
		return models.Library{}, ErrLibraryNotFound
	}
	return libs[0], nil
}

func (r *repository) ListLibraries(ctx context.Context) ([]models.Library, error) {
	return r.queryLibraries(ctx, selectLibraries().OrderBy("library_id"))
}

func (r *repository) queryLibraries(ctx context.Context, sb sq.SelectBuilder) ([]models.Library, error) {
	log := logger.FromContext(ctx)

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "repository.queryLibraries").Msg("failed to query libraries")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var libs []models.Library
	for rows.Next() {
		var (
			lib                  models.Library
			libType, storageMode string
			legacy, lastSync     sql.NullTime
		)
		if err = rows.Scan(&lib.ID, &libType, &lib.RemoteID, &lib.Version, &lib.Editable,
			&lib.FilesEditable, &storageMode, &legacy, &lastSync); err != nil {
			log.Err(err).Str("func", "repository.queryLibraries").Msg("failed to scan library row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		lib.Type = models.LibraryType(libType)
		lib.StorageMode = models.StorageMode(storageMode)
		lib.LegacyLastSync = timePtr(legacy)
		lib.LastSync = timePtr(lastSync)
		libs = append(libs, lib)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return libs, nil
}

// UpdateLibrary stores every attribute of lib except its version.
func (r *repository) UpdateLibrary(ctx context.Context, lib models.Library) error {
	return r.updateLibrary(ctx, lib.ID, map[string]any{
		"editable":         lib.Editable,
		"files_editable":   lib.FilesEditable,
		"storage_mode":     string(lib.StorageMode),
		"legacy_last_sync": nullTime(lib.LegacyLastSync),
		"last_sync":        nullTime(lib.LastSync),
	})
}

func (r *repository) SetLibraryVersion(ctx context.Context, libraryID, version int64) error {
	return r.updateLibrary(ctx, libraryID, map[string]any{"version": version})
}

func (r *repository) updateLibrary(ctx context.Context, libraryID int64, set map[string]any) error {
	log := logger.FromContext(ctx)

	query, args, err := builder.Update(tableLibraries).
		SetMap(set).
		Where(sq.Eq{"library_id": libraryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "repository.updateLibrary").
			Int64("library_id", libraryID).
			Msg("failed to update library")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLibraryNotFound
	}

	return nil
}
