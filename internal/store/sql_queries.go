package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-refsync/models"
)

const (
	tableLibraries = "libraries"
	tableObjects   = "objects"
	tableCache     = "sync_cache"
	tableQueue     = "sync_queue"
	tableDeleteLog = "sync_delete_log"
)

var (
	builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

	libraryColumns = []string{
		"library_id", "library_type", "remote_id", "version", "editable",
		"files_editable", "storage_mode", "legacy_last_sync", "last_sync",
	}

	objectColumns = []string{
		"object_id", "library_id", "object_type", "object_key", "version", "synced",
		"parent_key", "data", "date_added", "client_date_modified",
	}
)

// scope is the WHERE clause shared by every per-library, per-type table.
func scope(libraryID int64, objectType models.ObjectType) sq.Eq {
	return sq.Eq{"library_id": libraryID, "object_type": string(objectType)}
}

// scopeKeys narrows scope to keys. squirrel renders a slice as an IN list.
func scopeKeys(libraryID int64, objectType models.ObjectType, keys []string) sq.And {
	return sq.And{scope(libraryID, objectType), sq.Eq{"object_key": keys}}
}

func selectLibraries() sq.SelectBuilder {
	return builder.Select(libraryColumns...).From(tableLibraries)
}

func selectObjects(libraryID int64, objectType models.ObjectType) sq.SelectBuilder {
	return builder.Select(objectColumns...).
		From(tableObjects).
		Where(scope(libraryID, objectType)).
		OrderBy("object_id")
}
