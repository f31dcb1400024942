package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/models"
)

// ── cache ───────────────────────────────────────────────────────────────────

func (r *repository) GetCache(ctx context.Context, libraryID int64, objectType models.ObjectType, key string, version int64) (models.CacheEntry, error) {
	return r.getCache(ctx, builder.Select("version", "data").
		From(tableCache).
		Where(scopeKeys(libraryID, objectType, []string{key})).
		Where(sq.Eq{"version": version}), libraryID, objectType, key)
}

func (r *repository) GetLatestCache(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) (models.CacheEntry, error) {
	return r.getCache(ctx, builder.Select("version", "data").
		From(tableCache).
		Where(scopeKeys(libraryID, objectType, []string{key})).
		OrderBy("version DESC").
		Limit(1), libraryID, objectType, key)
}

func (r *repository) getCache(ctx context.Context, sb sq.SelectBuilder, libraryID int64, objectType models.ObjectType, key string) (models.CacheEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := sb.ToSql()
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "repository.getCache").
			Str("object_key", key).
			Msg("failed to query cache")
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		return models.CacheEntry{}, ErrCacheNotFound
	}

	entry := models.CacheEntry{Type: objectType, LibraryID: libraryID, Key: key}
	var data string
	if err = rows.Scan(&entry.Version, &data); err != nil {
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	if entry.Data, err = decodeData(data); err != nil {
		return models.CacheEntry{}, err
	}

	return entry, nil
}

func (r *repository) SaveCache(ctx context.Context, entry models.CacheEntry) error {
	log := logger.FromContext(ctx)

	data, err := encodeData(entry.Data)
	if err != nil {
		return err
	}

	query, args, err := builder.Insert(tableCache).
		Columns("library_id", "object_type", "object_key", "version", "data").
		Values(entry.LibraryID, string(entry.Type), entry.Key, entry.Version, data).
		Suffix("ON CONFLICT (library_id, object_type, object_key, version) DO UPDATE SET data = excluded.data").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "repository.SaveCache").
			Str("object_key", entry.Key).
			Int64("version", entry.Version).
			Msg("failed to save cache entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	// only the last applied version is a merge ancestor
	query, args, err = builder.Delete(tableCache).
		Where(scopeKeys(entry.LibraryID, entry.Type, []string{entry.Key})).
		Where(sq.NotEq{"version": entry.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "repository.SaveCache").Msg("failed to prune cache entries")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *repository) DeleteCache(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.deleteScoped(ctx, tableCache, libraryID, objectType, keys)
}

// ── sync queue ──────────────────────────────────────────────────────────────

func (r *repository) QueueObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	log := logger.FromContext(ctx)
	if len(keys) == 0 {
		return nil
	}

	now := r.now().UTC()
	ib := builder.Insert(tableQueue).
		Columns("library_id", "object_type", "object_key", "last_check", "tries")
	for _, key := range keys {
		ib = ib.Values(libraryID, string(objectType), key, now, 1)
	}

	query, args, err := ib.
		Suffix("ON CONFLICT (library_id, object_type, object_key) DO UPDATE SET last_check = excluded.last_check, tries = tries + 1").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "repository.QueueObjects").
			Int64("library_id", libraryID).
			Str("object_type", string(objectType)).
			Strs("keys", keys).
			Msg("failed to queue objects")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *repository) ListQueue(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.SyncQueueEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.Select("object_key", "last_check", "tries").
		From(tableQueue).
		Where(scope(libraryID, objectType)).
		OrderBy("object_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "repository.ListQueue").Msg("failed to query sync queue")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.SyncQueueEntry
	for rows.Next() {
		entry := models.SyncQueueEntry{Type: objectType, LibraryID: libraryID}
		if err = rows.Scan(&entry.Key, &entry.LastCheck, &entry.Tries); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func (r *repository) RemoveFromQueue(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.deleteScoped(ctx, tableQueue, libraryID, objectType, keys)
}

// ── deletion log ────────────────────────────────────────────────────────────

func (r *repository) LogDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	log := logger.FromContext(ctx)
	if len(keys) == 0 {
		return nil
	}

	now := r.now().UTC()
	ib := builder.Insert(tableDeleteLog).
		Columns("library_id", "object_type", "object_key", "date_deleted")
	for _, key := range keys {
		ib = ib.Values(libraryID, string(objectType), key, now)
	}

	query, args, err := ib.
		Suffix("ON CONFLICT (library_id, object_type, object_key) DO UPDATE SET date_deleted = excluded.date_deleted").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "repository.LogDeletions").
			Int64("library_id", libraryID).
			Str("object_type", string(objectType)).
			Msg("failed to write deletion log")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *repository) ListDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.DeletionLogEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.Select("object_key", "date_deleted").
		From(tableDeleteLog).
		Where(scope(libraryID, objectType)).
		OrderBy("date_deleted", "object_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "repository.ListDeletions").Msg("failed to query deletion log")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.DeletionLogEntry
	for rows.Next() {
		entry := models.DeletionLogEntry{Type: objectType, LibraryID: libraryID}
		if err = rows.Scan(&entry.Key, &entry.DateDeleted); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func (r *repository) RemoveDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.deleteScoped(ctx, tableDeleteLog, libraryID, objectType, keys)
}
