package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/models"
)

func (r *repository) GetObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) (models.Object, error) {
	objects, err := r.GetObjects(ctx, libraryID, objectType, []string{key})
	if err != nil {
		return models.Object{}, err
	}
	if len(objects) == 0 {
		return models.Object{}, ErrObjectNotFound
	}
	return objects[0], nil
}

func (r *repository) GetObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) ([]models.Object, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.queryObjects(ctx, selectObjects(libraryID, objectType).Where(sq.Eq{"object_key": keys}))
}

func (r *repository) ListObjects(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.Object, error) {
	return r.queryObjects(ctx, selectObjects(libraryID, objectType))
}

func (r *repository) ListUnsynced(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.Object, error) {
	return r.queryObjects(ctx, selectObjects(libraryID, objectType).Where(sq.Eq{"synced": false}))
}

func (r *repository) GetVersions(ctx context.Context, libraryID int64, objectType models.ObjectType) (map[string]int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.Select("object_key", "version").
		From(tableObjects).
		Where(scope(libraryID, objectType)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "repository.GetVersions").
			Int64("library_id", libraryID).
			Str("object_type", string(objectType)).
			Msg("failed to query object versions")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	versions := make(map[string]int64)
	for rows.Next() {
		var (
			key     string
			version int64
		)
		if err = rows.Scan(&key, &version); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		versions[key] = version
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return versions, nil
}

func (r *repository) queryObjects(ctx context.Context, sb sq.SelectBuilder) ([]models.Object, error) {
	log := logger.FromContext(ctx)

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "repository.queryObjects").Msg("failed to query objects")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	results := make([]models.Object, 0, 16)
	for rows.Next() {
		var (
			obj        models.Object
			objectType string
			data       string
		)
		scanErr := rows.Scan(
			&obj.ID,
			&obj.LibraryID,
			&objectType,
			&obj.Key,
			&obj.Version,
			&obj.Synced,
			&obj.ParentKey,
			&data,
			&obj.DateAdded,
			&obj.ClientDateModified,
		)
		if scanErr != nil {
			log.Err(scanErr).Str("func", "repository.queryObjects").Msg("failed to scan object row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		obj.Type = models.ObjectType(objectType)
		if obj.Data, err = decodeData(data); err != nil {
			log.Err(err).
				Str("func", "repository.queryObjects").
				Str("object_key", obj.Key).
				Msg("stored object data is not valid JSON")
			return nil, err
		}
		results = append(results, obj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return results, nil
}

func (r *repository) SaveObject(ctx context.Context, obj models.Object) (models.Object, error) {
	log := logger.FromContext(ctx).With().
		Str("func", "repository.SaveObject").
		Int64("library_id", obj.LibraryID).
		Str("object_type", string(obj.Type)).
		Str("object_key", obj.Key).
		Logger()

	data, err := encodeData(obj.Data)
	if err != nil {
		return models.Object{}, err
	}
	if obj.ClientDateModified.IsZero() {
		obj.ClientDateModified = r.now()
	}

	existing, err := r.GetObject(ctx, obj.LibraryID, obj.Type, obj.Key)
	switch {
	case err == nil:
		obj.ID = existing.ID
		obj.DateAdded = existing.DateAdded

		query, args, buildErr := builder.Update(tableObjects).
			Set("version", obj.Version).
			Set("synced", obj.Synced).
			Set("parent_key", obj.ParentKey).
			Set("data", data).
			Set("client_date_modified", obj.ClientDateModified.UTC()).
			Where(sq.Eq{"object_id": obj.ID}).
			ToSql()
		if buildErr != nil {
			return models.Object{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).Msg("failed to update object")
			return models.Object{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		r.emit(models.ChangeModify, obj.LibraryID, obj.Type, obj.Key)

	case errors.Is(err, ErrObjectNotFound):
		if obj.DateAdded.IsZero() {
			obj.DateAdded = r.now()
		}

		query, args, buildErr := builder.Insert(tableObjects).
			Columns(objectColumns[1:]...).
			Values(obj.LibraryID, string(obj.Type), obj.Key, obj.Version, obj.Synced,
				obj.ParentKey, data, obj.DateAdded.UTC(), obj.ClientDateModified.UTC()).
			ToSql()
		if buildErr != nil {
			return models.Object{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		res, execErr := r.q.ExecContext(ctx, query, args...)
		if execErr != nil {
			log.Err(execErr).Msg("failed to insert object")
			return models.Object{}, fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
		}
		if obj.ID, err = res.LastInsertId(); err != nil {
			return models.Object{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		r.emit(models.ChangeAdd, obj.LibraryID, obj.Type, obj.Key)

	default:
		return models.Object{}, err
	}

	return obj, nil
}

func (r *repository) DeleteObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.deleteScoped(ctx, tableObjects, libraryID, objectType, keys); err != nil {
		return err
	}
	r.emit(models.ChangeDelete, libraryID, objectType, keys...)
	return nil
}

// deleteScoped removes rows with the given keys from a per-library,
// per-type table.
func (r *repository) deleteScoped(ctx context.Context, table string, libraryID int64, objectType models.ObjectType, keys []string) error {
	log := logger.FromContext(ctx)

	query, args, err := builder.Delete(table).
		Where(scopeKeys(libraryID, objectType, keys)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "repository.deleteScoped").
			Str("table", table).
			Int64("library_id", libraryID).
			Str("object_type", string(objectType)).
			Int("keys", len(keys)).
			Msg("failed to delete rows")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func encodeData(data models.ObjectData) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecodingData, err)
	}
	return string(b), nil
}

func decodeData(raw string) (models.ObjectData, error) {
	data := make(models.ObjectData)
	if raw == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodingData, err)
	}
	return data, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
