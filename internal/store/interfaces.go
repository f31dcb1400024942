package store

import (
	"context"

	"github.com/MKhiriev/go-refsync/models"
)

// LibraryRepository manages libraries and their watermarks.
type LibraryRepository interface {
	CreateLibrary(ctx context.Context, lib models.Library) (models.Library, error)
	GetLibrary(ctx context.Context, libraryID int64) (models.Library, error)
	FindLibrary(ctx context.Context, libType models.LibraryType, remoteID int64) (models.Library, error)
	ListLibraries(ctx context.Context) ([]models.Library, error)
	UpdateLibrary(ctx context.Context, lib models.Library) error
	SetLibraryVersion(ctx context.Context, libraryID, version int64) error
}

// ObjectRepository is the typed CRUD over synced objects. Every method is
// scoped by library and type.
type ObjectRepository interface {
	GetObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) (models.Object, error)
	// GetObjects returns the existing objects among keys in creation order.
	GetObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) ([]models.Object, error)
	ListObjects(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.Object, error)
	ListUnsynced(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.Object, error)
	GetVersions(ctx context.Context, libraryID int64, objectType models.ObjectType) (map[string]int64, error)
	// SaveObject inserts obj or replaces the stored object with the same key.
	// Creation order and DateAdded of an existing object are preserved.
	SaveObject(ctx context.Context, obj models.Object) (models.Object, error)
	// DeleteObjects removes objects without writing the deletion log.
	DeleteObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error
}

// SyncStateRepository holds the cache, the sync queue and the deletion log.
type SyncStateRepository interface {
	GetCache(ctx context.Context, libraryID int64, objectType models.ObjectType, key string, version int64) (models.CacheEntry, error)
	GetLatestCache(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) (models.CacheEntry, error)
	// SaveCache stores entry and drops the entries of other versions of the
	// same object.
	SaveCache(ctx context.Context, entry models.CacheEntry) error
	DeleteCache(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error

	// QueueObjects adds keys to the sync queue or bumps their try counter.
	QueueObjects(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error
	ListQueue(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.SyncQueueEntry, error)
	RemoveFromQueue(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error

	LogDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error
	ListDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType) ([]models.DeletionLogEntry, error)
	RemoveDeletions(ctx context.Context, libraryID int64, objectType models.ObjectType, keys []string) error
}

// LocalChanges are the mutations made by the user of the library, as opposed
// to the ones applied by the sync engine.
type LocalChanges interface {
	// CreateLocalObject creates an unsynced object at version 0 under a newly
	// generated key.
	CreateLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, data models.ObjectData) (models.Object, error)
	// UpdateLocalObject replaces the data of an object and clears its synced
	// flag. Items get a fresh dateModified.
	UpdateLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string, data models.ObjectData) (models.Object, error)
	// EraseLocalObject deletes an object and records the deletion for upload
	// when the server knows the object.
	EraseLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) error
	// SetSetting stores a setting value and marks it unsynced.
	SetSetting(ctx context.Context, libraryID int64, name string, value any) (models.Object, error)
}

// Repository is the full typed access to the local sync state.
type Repository interface {
	LibraryRepository
	ObjectRepository
	SyncStateRepository
	LocalChanges
}

// Notifier delivers change events after the write that caused them has been
// committed.
type Notifier interface {
	Subscribe(fn func(models.ChangeEvent)) (unsubscribe func())
}

// Store is the local store: a Repository bound to the database connection,
// transactions and change notifications.
type Store interface {
	Repository
	Notifier

	// InTx runs fn inside one transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise. Change events produced inside
	// fn are delivered after commit.
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	Migrate() error
	Close() error
}
