package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-refsync/internal/config"
	apihttp "github.com/MKhiriev/go-refsync/internal/handler/http"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/mock"
	"github.com/MKhiriev/go-refsync/internal/remote"
	"github.com/MKhiriev/go-refsync/models"
)

const testAPIKey = "client-test-key"

type testEnv struct {
	registry *remote.Registry
	cfg      *config.StructuredConfig
	out      *bytes.Buffer
	resolver *mock.MockResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry := remote.NewRegistry()
	srv := httptest.NewServer(apihttp.NewHandler(registry, testAPIKey, "test", logger.Nop()).Init())
	t.Cleanup(srv.Close)

	cfg := &config.StructuredConfig{
		App:     config.App{APIKey: testAPIKey, UserID: 1, Groups: []int64{5}},
		Adapter: config.Adapter{BaseURL: srv.URL, APIVersion: 3, RequestTimeout: 5 * time.Second},
		Storage: config.Storage{DSN: filepath.Join(t.TempDir(), "sync.db")},
		Workers: config.Workers{Concurrency: 2, MaxRetries: 1, SyncInterval: time.Hour},
	}

	return &testEnv{
		registry: registry,
		cfg:      cfg,
		out:      &bytes.Buffer{},
		resolver: mock.NewMockResolver(gomock.NewController(t)),
	}
}

func (e *testEnv) newApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(context.Background(), e.cfg, logger.Nop(), WithResolver(e.resolver), WithOutput(e.out))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestApp_SyncOnce(t *testing.T) {
	env := newTestEnv(t)
	env.registry.AddLibrary(models.LibraryUser, 1).Put(models.ObjectCollection, "AAAAAAAA", models.ObjectData{"name": "Papers"})
	group := env.registry.AddLibrary(models.LibraryGroup, 5)
	group.Put(models.ObjectItem, "BBBBBBBB", models.ObjectData{"itemType": "book", "title": "Book"})
	group.Put(models.ObjectItem, "CCCCCCCC", models.ObjectData{"itemType": "book", "title": "Other"})

	app := env.newApp(t)
	require.NoError(t, app.Run(context.Background(), ModeSync))

	out := env.out.String()
	assert.Contains(t, out, "library 1: version 1, downloaded 1, uploaded 0")
	assert.Contains(t, out, "library 2: version 2, downloaded 2, uploaded 0")
	assert.NotContains(t, out, "sync warning")

	ctx := context.Background()
	collection, err := app.store.GetObject(ctx, 1, models.ObjectCollection, "AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "Papers", collection.Data["name"])
	assert.True(t, collection.Synced)

	lib, err := app.store.GetLibrary(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.LibraryGroup, lib.Type)
	assert.NotNil(t, lib.LastSync)
}

func TestApp_FullSync(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.App.Groups = nil
	env.registry.AddLibrary(models.LibraryUser, 1).Put(models.ObjectCollection, "AAAAAAAA", models.ObjectData{"name": "Papers"})

	app := env.newApp(t)
	require.NoError(t, app.Run(context.Background(), ModeFullSync))
	assert.Contains(t, env.out.String(), "library 1: version 1, downloaded 1")
}

func TestApp_ReportsFailedLibrary(t *testing.T) {
	env := newTestEnv(t)
	// группа 5 не существует на сервере
	env.registry.AddLibrary(models.LibraryUser, 1)

	app := env.newApp(t)
	err := app.Run(context.Background(), ModeSync)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library 2")
	assert.Contains(t, env.out.String(), "sync warning")
	assert.Contains(t, env.out.String(), "library 1: version 0")
}

func TestApp_Watch(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.App.Groups = nil
	env.cfg.Workers.SyncInterval = 10 * time.Millisecond
	remoteLib := env.registry.AddLibrary(models.LibraryUser, 1)

	app := env.newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, ModeWatch) }()

	remoteLib.Put(models.ObjectCollection, "AAAAAAAA", models.ObjectData{"name": "Later"})

	// периодический проход забирает изменение
	assert.Eventually(t, func() bool {
		obj, err := app.store.GetObject(context.Background(), 1, models.ObjectCollection, "AAAAAAAA")
		return err == nil && obj.Data["name"] == "Later"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch не завершился после отмены контекста")
	}
}

func TestApp_StoreLocked(t *testing.T) {
	env := newTestEnv(t)
	env.registry.AddLibrary(models.LibraryUser, 1)
	env.registry.AddLibrary(models.LibraryGroup, 5)

	first := env.newApp(t)

	_, err := NewApp(context.Background(), env.cfg, logger.Nop(), WithResolver(env.resolver))
	assert.ErrorIs(t, err, ErrStoreLocked)

	// после Close хранилище снова доступно
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	second := env.newApp(t)
	assert.NotNil(t, second)
}

func TestApp_NoLibraries(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.App = config.App{APIKey: testAPIKey}

	_, err := NewApp(context.Background(), env.cfg, logger.Nop(), WithResolver(env.resolver))
	assert.Error(t, err)

	// неудачный запуск освобождает lock-файл
	env.cfg.App.UserID = 1
	assert.NotNil(t, env.newApp(t))
}

func TestApp_UnknownMode(t *testing.T) {
	env := newTestEnv(t)
	app := env.newApp(t)
	assert.ErrorIs(t, app.Run(context.Background(), Mode("rewind")), ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{"": ModeWatch, "watch": ModeWatch, "sync": ModeSync, "full": ModeFullSync} {
		got, err := ParseMode(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("rewind")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
