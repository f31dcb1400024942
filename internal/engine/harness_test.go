package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/config"
	apihttp "github.com/MKhiriev/go-refsync/internal/handler/http"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/mock"
	"github.com/MKhiriev/go-refsync/internal/remote"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/internal/workers"
	"github.com/MKhiriev/go-refsync/models"
)

const testAPIKey = "engine-test-key"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// faultInjector sits in front of the reference API. It records every request
// and lets a test answer or delay requests before they reach the handlers.
type faultInjector struct {
	mu        sync.Mutex
	intercept func(w http.ResponseWriter, r *http.Request) bool
	requests  []recordedRequest
}

func (f *faultInjector) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		intercept := f.intercept
		f.mu.Unlock()

		if intercept != nil && intercept(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *faultInjector) setIntercept(fn func(w http.ResponseWriter, r *http.Request) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intercept = fn
}

// failTimes answers the next n requests with status.
func (f *faultInjector) failTimes(n int, status int) {
	var mu sync.Mutex
	left := n
	f.setIntercept(func(w http.ResponseWriter, r *http.Request) bool {
		mu.Lock()
		defer mu.Unlock()
		if left == 0 {
			return false
		}
		left--
		http.Error(w, http.StatusText(status), status)
		return true
	})
}

// beforeWrite runs fn before write requests with the given method reach the
// server: once, or before every one of them when always is set.
func (f *faultInjector) beforeWrite(method string, always bool, fn func()) {
	var once sync.Once
	f.setIntercept(func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != method {
			return false
		}
		if always {
			fn()
		} else {
			once.Do(fn)
		}
		return false
	})
}

func (f *faultInjector) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
	f.intercept = nil
}

// matching returns the recorded requests with method and path.
func (f *faultInjector) matching(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// objectFetches counts the full-object requests.
func (f *faultInjector) objectFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == http.MethodGet && bytes.Contains([]byte(r.Query), []byte("format=json")) {
			n++
		}
	}
	return n
}

// testClock is a settable time source shared by a store or a remote registry.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		return time.Now()
	}
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// harness runs an engine against the reference API over HTTP and a SQLite
// store in a temporary directory.
type harness struct {
	t   *testing.T
	ctx context.Context

	remote      *remote.Library
	faults      *faultInjector
	remoteClock *testClock

	store      store.Store
	localClock *testClock
	lib        models.Library

	api      adapter.APIClient
	caller   *workers.Caller
	ctrl     *gomock.Controller
	resolver *mock.MockResolver
	opts     Options
}

type harnessOption func(lib *models.Library)

func readOnly() harnessOption {
	return func(lib *models.Library) { lib.Editable = false }
}

func legacy(lastSync time.Time) harnessOption {
	return func(lib *models.Library) { lib.LegacyLastSync = &lastSync }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	remoteClock := &testClock{}
	registry := remote.NewRegistry(remote.WithClock(remoteClock.Now))
	remoteLib := registry.AddLibrary(models.LibraryUser, 1)

	faults := &faultInjector{}
	handler := apihttp.NewHandler(registry, testAPIKey, "test", logger.Nop())
	srv := httptest.NewServer(faults.wrap(handler.Init()))
	t.Cleanup(srv.Close)

	api, err := adapter.NewHTTPAPIClient(
		config.Adapter{BaseURL: srv.URL, APIVersion: 3, RequestTimeout: 5 * time.Second},
		config.App{APIKey: testAPIKey},
		logger.Nop(),
	)
	require.NoError(t, err)

	db, err := store.NewConnectSQLite(ctx, config.Storage{DSN: filepath.Join(t.TempDir(), "sync.db")}, logger.Nop())
	require.NoError(t, err)
	localClock := &testClock{}
	st := store.NewStore(db, store.WithClock(localClock.Now))
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	lib := models.Library{Type: models.LibraryUser, RemoteID: 1, Editable: true, FilesEditable: true}
	for _, opt := range opts {
		opt(&lib)
	}
	lib, err = st.CreateLibrary(ctx, lib)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)

	return &harness{
		t:           t,
		ctx:         ctx,
		remote:      remoteLib,
		faults:      faults,
		remoteClock: remoteClock,
		store:       st,
		localClock:  localClock,
		lib:         lib,
		api:         api,
		caller:      workers.NewCaller(config.Workers{Concurrency: 2, MaxRetries: 3}, workers.WithIntervals(time.Millisecond, 5*time.Millisecond)),
		ctrl:        ctrl,
		resolver:    mock.NewMockResolver(ctrl),
		opts:        Options{},
	}
}

func (h *harness) engine() *Engine {
	return New(h.lib.ID, h.api, h.store, h.caller, h.resolver, logger.Nop(), h.opts)
}

// sync runs one pass and requires it to succeed.
func (h *harness) sync() models.PassResult {
	h.t.Helper()
	res, err := h.engine().Start(h.ctx)
	require.NoError(h.t, err)
	return res
}

func (h *harness) local(t models.ObjectType, key string) models.Object {
	h.t.Helper()
	obj, err := h.store.GetObject(h.ctx, h.lib.ID, t, key)
	require.NoError(h.t, err)
	return obj
}

func (h *harness) absent(t models.ObjectType, key string) bool {
	h.t.Helper()
	_, err := h.store.GetObject(h.ctx, h.lib.ID, t, key)
	if err == nil {
		return false
	}
	require.ErrorIs(h.t, err, store.ErrObjectNotFound)
	return true
}

func (h *harness) version() int64 {
	h.t.Helper()
	lib, err := h.store.GetLibrary(h.ctx, h.lib.ID)
	require.NoError(h.t, err)
	return lib.Version
}

func (h *harness) queued(t models.ObjectType) []string {
	h.t.Helper()
	entries, err := h.store.ListQueue(h.ctx, h.lib.ID, t)
	require.NoError(h.t, err)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (h *harness) deletions(t models.ObjectType) []string {
	h.t.Helper()
	entries, err := h.store.ListDeletions(h.ctx, h.lib.ID, t)
	require.NoError(h.t, err)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (h *harness) create(t models.ObjectType, data models.ObjectData) models.Object {
	h.t.Helper()
	obj, err := h.store.CreateLocalObject(h.ctx, h.lib.ID, t, data)
	require.NoError(h.t, err)
	return obj
}

func (h *harness) update(t models.ObjectType, key string, data models.ObjectData) models.Object {
	h.t.Helper()
	obj, err := h.store.UpdateLocalObject(h.ctx, h.lib.ID, t, key, data)
	require.NoError(h.t, err)
	return obj
}

func (h *harness) erase(t models.ObjectType, key string) {
	h.t.Helper()
	require.NoError(h.t, h.store.EraseLocalObject(h.ctx, h.lib.ID, t, key))
}

// remoteData returns the server copy of key.
func (h *harness) remoteData(t models.ObjectType, key string) (models.ObjectData, int64) {
	h.t.Helper()
	data, version, ok := h.remote.Get(t, key)
	require.True(h.t, ok, "%s %s is missing remotely", t, key)
	return data, version
}

// decodeBody decodes a recorded JSON request body.
func decodeBody[T any](t *testing.T, r recordedRequest) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Body, &v))
	return v
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
