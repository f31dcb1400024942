package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/engine"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := store.NewConnectSQLite(context.Background(), config.Storage{DSN: filepath.Join(t.TempDir(), "sync.db")}, logger.Nop())
	require.NoError(t, err)
	st := store.NewStore(db)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })
	return st
}

func createLibrary(t *testing.T, st store.Store, libType models.LibraryType, remoteID int64) models.Library {
	t.Helper()
	lib, err := st.CreateLibrary(context.Background(), models.Library{Type: libType, RemoteID: remoteID, Editable: true})
	require.NoError(t, err)
	return lib
}

// fakeSyncer возвращает заданный результат; block задерживает проход.
type fakeSyncer struct {
	libraryID int64
	err       error
	block     chan struct{}
	started   chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeSyncer) pass(ctx context.Context, kind string) (models.PassResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.PassResult{}, ctx.Err()
		}
	}
	return models.PassResult{LibraryID: f.libraryID, Downloaded: 1, FullSync: kind == "full"}, f.err
}

func (f *fakeSyncer) Start(ctx context.Context) (models.PassResult, error) {
	return f.pass(ctx, "start")
}

func (f *fakeSyncer) FullSync(ctx context.Context) (models.PassResult, error) {
	return f.pass(ctx, "full")
}

func (f *fakeSyncer) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeEngines struct {
	mu      sync.Mutex
	syncers map[int64]*fakeSyncer
	built   int
}

func (f *fakeEngines) factory(libraryID int64) Syncer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built++
	if s, ok := f.syncers[libraryID]; ok {
		return s
	}
	s := &fakeSyncer{libraryID: libraryID}
	if f.syncers == nil {
		f.syncers = make(map[int64]*fakeSyncer)
	}
	f.syncers[libraryID] = s
	return s
}

func TestSyncService_SyncLibrary(t *testing.T) {
	st := newTestStore(t)
	lib := createLibrary(t, st, models.LibraryUser, 1)

	engines := &fakeEngines{}
	svc := NewSyncService(st, engines.factory, logger.Nop()).(*syncService)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.SyncLibrary(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.ID, result.LibraryID)
	assert.False(t, result.FullSync)

	result, err = svc.FullSyncLibrary(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.True(t, result.FullSync)

	// движок создаётся один раз на библиотеку
	assert.Equal(t, 1, engines.built)
	assert.Equal(t, []string{"start", "full"}, engines.syncers[lib.ID].kinds())

	stored, err := st.GetLibrary(context.Background(), lib.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSync)
	assert.True(t, now.Equal(*stored.LastSync))
}

func TestSyncService_FailedPassKeepsLastSync(t *testing.T) {
	st := newTestStore(t)
	lib := createLibrary(t, st, models.LibraryUser, 1)

	engines := &fakeEngines{syncers: map[int64]*fakeSyncer{lib.ID: {libraryID: lib.ID, err: assert.AnError}}}
	svc := NewSyncService(st, engines.factory, logger.Nop())

	_, err := svc.SyncLibrary(context.Background(), lib.ID)
	assert.ErrorIs(t, err, assert.AnError)

	stored, err := st.GetLibrary(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastSync)
}

func TestSyncService_CancelledResolutionCompletesPass(t *testing.T) {
	st := newTestStore(t)
	lib := createLibrary(t, st, models.LibraryUser, 1)

	cancelled := fmt.Errorf("resolve: %w", engine.ErrUserCancelled)
	engines := &fakeEngines{syncers: map[int64]*fakeSyncer{lib.ID: {libraryID: lib.ID, err: cancelled}}}
	svc := NewSyncService(st, engines.factory, logger.Nop())

	_, err := svc.SyncLibrary(context.Background(), lib.ID)
	assert.ErrorIs(t, err, engine.ErrUserCancelled)

	stored, err := st.GetLibrary(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastSync)
}

func TestSyncService_SyncInProgress(t *testing.T) {
	st := newTestStore(t)
	lib := createLibrary(t, st, models.LibraryUser, 1)

	syncer := &fakeSyncer{libraryID: lib.ID, block: make(chan struct{}), started: make(chan struct{})}
	engines := &fakeEngines{syncers: map[int64]*fakeSyncer{lib.ID: syncer}}
	svc := NewSyncService(st, engines.factory, logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncLibrary(context.Background(), lib.ID)
		done <- err
	}()
	<-syncer.started

	_, err := svc.SyncLibrary(context.Background(), lib.ID)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(syncer.block)
	require.NoError(t, <-done)
}

func TestSyncService_SyncAll(t *testing.T) {
	st := newTestStore(t)
	user := createLibrary(t, st, models.LibraryUser, 1)
	group := createLibrary(t, st, models.LibraryGroup, 5)
	broken := createLibrary(t, st, models.LibraryGroup, 6)

	engines := &fakeEngines{syncers: map[int64]*fakeSyncer{broken.ID: {libraryID: broken.ID, err: assert.AnError}}}
	svc := NewSyncService(st, engines.factory, logger.Nop())

	results, err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), fmt.Sprintf("library %d", broken.ID))

	// результаты в порядке библиотек, сбой одной не мешает остальным
	require.Len(t, results, 3)
	assert.Equal(t, user.ID, results[0].LibraryID)
	assert.Equal(t, group.ID, results[1].LibraryID)
	assert.Equal(t, broken.ID, results[2].LibraryID)
	assert.Equal(t, []string{"start"}, engines.syncers[user.ID].kinds())
	assert.Equal(t, []string{"start"}, engines.syncers[group.ID].kinds())
}

func TestSyncService_SyncAll_NoLibraries(t *testing.T) {
	svc := NewSyncService(newTestStore(t), (&fakeEngines{}).factory, logger.Nop())

	_, err := svc.SyncAll(context.Background())
	assert.True(t, errors.Is(err, ErrNoLibraries))
}

func TestSyncService_UnknownLibrary(t *testing.T) {
	svc := NewSyncService(newTestStore(t), (&fakeEngines{}).factory, logger.Nop())

	_, err := svc.SyncLibrary(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrLibraryNotFound)
}
