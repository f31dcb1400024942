package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewConnectSQLite(context.Background(), config.Storage{DSN: filepath.Join(t.TempDir(), "data", "sync.db")}, logger.Nop())
	require.NoError(t, err)

	st := NewStore(db, WithClock(func() time.Time { return testNow }))
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestLibrary(t *testing.T, st Store) models.Library {
	t.Helper()
	lib, err := st.CreateLibrary(context.Background(), models.Library{
		Type:     models.LibraryUser,
		RemoteID: 1,
		Editable: true,
	})
	require.NoError(t, err)
	return lib
}

func TestLibraries(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := newTestLibrary(t, st)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.StorageZFS, user.StorageMode)

	_, err := st.CreateLibrary(ctx, models.Library{Type: models.LibraryUser, RemoteID: 1})
	assert.ErrorIs(t, err, ErrLibraryExists)

	group, err := st.CreateLibrary(ctx, models.Library{Type: models.LibraryGroup, RemoteID: 1, StorageMode: models.StorageWebDAV})
	require.NoError(t, err)

	found, err := st.FindLibrary(ctx, models.LibraryGroup, 1)
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)
	assert.Equal(t, models.StorageWebDAV, found.StorageMode)
	assert.False(t, found.Editable)
	assert.Nil(t, found.LastSync)

	_, err = st.GetLibrary(ctx, 999)
	assert.ErrorIs(t, err, ErrLibraryNotFound)

	require.NoError(t, st.SetLibraryVersion(ctx, user.ID, 42))

	lastSync := testNow.Add(time.Hour)
	user.LastSync = &lastSync
	user.Version = 7 // UpdateLibrary не трогает версию
	require.NoError(t, st.UpdateLibrary(ctx, user))

	got, err := st.GetLibrary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Version)
	require.NotNil(t, got.LastSync)
	assert.True(t, got.LastSync.Equal(lastSync))

	libs, err := st.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, libs, 2)
	assert.Equal(t, user.ID, libs[0].ID)
	assert.Equal(t, group.ID, libs[1].ID)

	assert.ErrorIs(t, st.SetLibraryVersion(ctx, 999, 1), ErrLibraryNotFound)
}

func TestObjects_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	first, err := st.SaveObject(ctx, models.Object{
		Type:      models.ObjectCollection,
		LibraryID: lib.ID,
		Key:       "BBBBBBBB",
		Version:   3,
		Synced:    true,
		Data:      models.ObjectData{"name": "B"},
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.True(t, first.DateAdded.Equal(testNow))

	_, err = st.SaveObject(ctx, models.Object{
		Type:      models.ObjectCollection,
		LibraryID: lib.ID,
		Key:       "AAAAAAAA",
		Version:   0,
		ParentKey: "BBBBBBBB",
		Data:      models.ObjectData{"name": "A", "parentCollection": "BBBBBBBB"},
	})
	require.NoError(t, err)

	// замена сохраняет порядок создания и dateAdded
	first.Version = 5
	first.Data = models.ObjectData{"name": "B2"}
	first.DateAdded = time.Time{}
	updated, err := st.SaveObject(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.True(t, updated.DateAdded.Equal(testNow))

	objects, err := st.GetObjects(ctx, lib.ID, models.ObjectCollection, []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"})
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "BBBBBBBB", objects[0].Key)
	assert.Equal(t, "B2", objects[0].Data["name"])
	assert.Equal(t, "AAAAAAAA", objects[1].Key)
	assert.Equal(t, "BBBBBBBB", objects[1].ParentKey)

	versions, err := st.GetVersions(ctx, lib.ID, models.ObjectCollection)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AAAAAAAA": 0, "BBBBBBBB": 5}, versions)

	unsynced, err := st.ListUnsynced(ctx, lib.ID, models.ObjectCollection)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "AAAAAAAA", unsynced[0].Key)

	// другой тип в той же библиотеке не виден
	searches, err := st.ListObjects(ctx, lib.ID, models.ObjectSearch)
	require.NoError(t, err)
	assert.Empty(t, searches)

	require.NoError(t, st.DeleteObjects(ctx, lib.ID, models.ObjectCollection, []string{"AAAAAAAA"}))
	_, err = st.GetObject(ctx, lib.ID, models.ObjectCollection, "AAAAAAAA")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	none, err := st.GetObjects(ctx, lib.ID, models.ObjectCollection, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	entry := models.CacheEntry{Type: models.ObjectItem, LibraryID: lib.ID, Key: "AAAAAAAA", Version: 1, Data: models.ObjectData{"title": "v1"}}
	require.NoError(t, st.SaveCache(ctx, entry))

	entry.Version = 2
	entry.Data = models.ObjectData{"title": "v2"}
	require.NoError(t, st.SaveCache(ctx, entry))

	_, err := st.GetCache(ctx, lib.ID, models.ObjectItem, "AAAAAAAA", 1)
	assert.ErrorIs(t, err, ErrCacheNotFound)

	got, err := st.GetCache(ctx, lib.ID, models.ObjectItem, "AAAAAAAA", 2)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Data["title"])

	latest, err := st.GetLatestCache(ctx, lib.ID, models.ObjectItem, "AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Version)

	// повторное сохранение той же версии перезаписывает данные
	entry.Data = models.ObjectData{"title": "v2b"}
	require.NoError(t, st.SaveCache(ctx, entry))
	latest, err = st.GetLatestCache(ctx, lib.ID, models.ObjectItem, "AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "v2b", latest.Data["title"])

	require.NoError(t, st.DeleteCache(ctx, lib.ID, models.ObjectItem, []string{"AAAAAAAA"}))
	_, err = st.GetLatestCache(ctx, lib.ID, models.ObjectItem, "AAAAAAAA")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	require.NoError(t, st.QueueObjects(ctx, lib.ID, models.ObjectItem, []string{"BBBBBBBB", "AAAAAAAA"}))
	require.NoError(t, st.QueueObjects(ctx, lib.ID, models.ObjectItem, []string{"AAAAAAAA"}))
	require.NoError(t, st.QueueObjects(ctx, lib.ID, models.ObjectItem, nil))

	queue, err := st.ListQueue(ctx, lib.ID, models.ObjectItem)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "AAAAAAAA", queue[0].Key)
	assert.Equal(t, 2, queue[0].Tries)
	assert.Equal(t, 1, queue[1].Tries)
	assert.True(t, queue[0].LastCheck.Equal(testNow))

	require.NoError(t, st.RemoveFromQueue(ctx, lib.ID, models.ObjectItem, []string{"AAAAAAAA"}))
	queue, err = st.ListQueue(ctx, lib.ID, models.ObjectItem)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "BBBBBBBB", queue[0].Key)
}

func TestDeletionLog(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	require.NoError(t, st.LogDeletions(ctx, lib.ID, models.ObjectSearch, []string{"BBBBBBBB", "AAAAAAAA"}))
	require.NoError(t, st.LogDeletions(ctx, lib.ID, models.ObjectSearch, []string{"AAAAAAAA"}))

	entries, err := st.ListDeletions(ctx, lib.ID, models.ObjectSearch)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAAAAAAA", entries[0].Key)
	assert.True(t, entries[0].DateDeleted.Equal(testNow))

	require.NoError(t, st.RemoveDeletions(ctx, lib.ID, models.ObjectSearch, []string{"AAAAAAAA", "BBBBBBBB"}))
	entries, err = st.ListDeletions(ctx, lib.ID, models.ObjectSearch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalChanges(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	t.Run("create item", func(t *testing.T) {
		obj, err := st.CreateLocalObject(ctx, lib.ID, models.ObjectItem, models.ObjectData{"itemType": "book", "parentItem": false})
		require.NoError(t, err)
		assert.True(t, utils.IsValidObjectKey(obj.Key))
		assert.Zero(t, obj.Version)
		assert.False(t, obj.Synced)
		assert.Empty(t, obj.ParentKey)
		assert.Equal(t, "2026-01-02T03:04:05Z", obj.Data["dateAdded"])
		assert.Equal(t, "2026-01-02T03:04:05Z", obj.Data["dateModified"])
	})

	t.Run("settings are not created as objects", func(t *testing.T) {
		_, err := st.CreateLocalObject(ctx, lib.ID, models.ObjectSetting, nil)
		assert.ErrorIs(t, err, ErrInvalidObjectType)
	})

	t.Run("update clears synced", func(t *testing.T) {
		saved, err := st.SaveObject(ctx, models.Object{
			Type:      models.ObjectCollection,
			LibraryID: lib.ID,
			Key:       "CCCCCCCC",
			Version:   4,
			Synced:    true,
			Data:      models.ObjectData{"name": "C"},
		})
		require.NoError(t, err)

		obj, err := st.UpdateLocalObject(ctx, lib.ID, models.ObjectCollection, saved.Key, models.ObjectData{"name": "C", "parentCollection": "DDDDDDDD"})
		require.NoError(t, err)
		assert.False(t, obj.Synced)
		assert.Equal(t, int64(4), obj.Version)
		assert.Equal(t, "DDDDDDDD", obj.ParentKey)

		_, err = st.UpdateLocalObject(ctx, lib.ID, models.ObjectCollection, "ZZZZZZZZ", nil)
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("erase known object logs deletion", func(t *testing.T) {
		_, err := st.SaveObject(ctx, models.Object{Type: models.ObjectSearch, LibraryID: lib.ID, Key: "EEEEEEEE", Version: 2, Synced: true})
		require.NoError(t, err)
		require.NoError(t, st.QueueObjects(ctx, lib.ID, models.ObjectSearch, []string{"EEEEEEEE"}))

		require.NoError(t, st.EraseLocalObject(ctx, lib.ID, models.ObjectSearch, "EEEEEEEE"))

		_, err = st.GetObject(ctx, lib.ID, models.ObjectSearch, "EEEEEEEE")
		assert.ErrorIs(t, err, ErrObjectNotFound)
		queue, err := st.ListQueue(ctx, lib.ID, models.ObjectSearch)
		require.NoError(t, err)
		assert.Empty(t, queue)
		deletions, err := st.ListDeletions(ctx, lib.ID, models.ObjectSearch)
		require.NoError(t, err)
		require.Len(t, deletions, 1)
		assert.Equal(t, "EEEEEEEE", deletions[0].Key)
	})

	t.Run("erase new object leaves no trace", func(t *testing.T) {
		obj, err := st.CreateLocalObject(ctx, lib.ID, models.ObjectCollection, models.ObjectData{"name": "N"})
		require.NoError(t, err)

		require.NoError(t, st.EraseLocalObject(ctx, lib.ID, models.ObjectCollection, obj.Key))
		deletions, err := st.ListDeletions(ctx, lib.ID, models.ObjectCollection)
		require.NoError(t, err)
		assert.Empty(t, deletions)
	})

	t.Run("set setting", func(t *testing.T) {
		obj, err := st.SetSetting(ctx, lib.ID, "tagColors", []any{"red"})
		require.NoError(t, err)
		assert.Equal(t, "tagColors", obj.Key)
		assert.False(t, obj.Synced)

		obj, err = st.SetSetting(ctx, lib.ID, "tagColors", []any{"blue"})
		require.NoError(t, err)

		settings, err := st.ListObjects(ctx, lib.ID, models.ObjectSetting)
		require.NoError(t, err)
		require.Len(t, settings, 1)
		assert.Equal(t, obj.ID, settings[0].ID)
		assert.Equal(t, []any{"blue"}, settings[0].Data["value"])
	})
}

func TestInTx_EventsAfterCommit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	var events []models.ChangeEvent
	unsubscribe := st.Subscribe(func(ev models.ChangeEvent) { events = append(events, ev) })

	err := st.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.SaveObject(ctx, models.Object{Type: models.ObjectItem, LibraryID: lib.ID, Key: "AAAAAAAA", Data: models.ObjectData{"itemType": "book"}}); err != nil {
			return err
		}
		if err := repo.DeleteObjects(ctx, lib.ID, models.ObjectItem, []string{"BBBBBBBB"}); err != nil {
			return err
		}
		// до коммита событий нет
		assert.Empty(t, events)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, models.ChangeEvent{Action: models.ChangeAdd, Type: models.ObjectItem, LibraryID: lib.ID, Keys: []string{"AAAAAAAA"}}, events[0])
	assert.Equal(t, models.ChangeDelete, events[1].Action)

	// вне транзакции событие публикуется сразу
	_, err = st.SaveObject(ctx, models.Object{Type: models.ObjectItem, LibraryID: lib.ID, Key: "AAAAAAAA", Data: models.ObjectData{"itemType": "book"}})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.ChangeModify, events[2].Action)

	unsubscribe()
	require.NoError(t, st.DeleteObjects(ctx, lib.ID, models.ObjectItem, []string{"AAAAAAAA"}))
	assert.Len(t, events, 3)
}

func TestInTx_Rollback(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := newTestLibrary(t, st)

	var events []models.ChangeEvent
	st.Subscribe(func(ev models.ChangeEvent) { events = append(events, ev) })

	boom := errors.New("boom")
	err := st.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.SaveObject(ctx, models.Object{Type: models.ObjectSearch, LibraryID: lib.ID, Key: "AAAAAAAA"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, events)

	_, err = st.GetObject(ctx, lib.ID, models.ObjectSearch, "AAAAAAAA")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestCreateLocalDBFileIfNotExists(t *testing.T) {
	assert.NoError(t, createLocalDBFileIfNotExists(""))
	assert.NoError(t, createLocalDBFileIfNotExists(":memory:"))
	assert.NoError(t, createLocalDBFileIfNotExists("file:test.db?mode=memory"))

	path := filepath.Join(t.TempDir(), "nested", "dir", "sync.db")
	require.NoError(t, createLocalDBFileIfNotExists(path))
	assert.FileExists(t, path)
	// существующий файл не пересоздаётся
	require.NoError(t, createLocalDBFileIfNotExists(path))
}
