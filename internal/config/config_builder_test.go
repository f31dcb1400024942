package config

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

// ── newConfigBuilder ──────────────────────────────────────────────────────────

// TestNewConfigBuilder_InitialState verifies that a freshly created builder
// has no error and an empty configs slice.
func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

// ── build ─────────────────────────────────────────────────────────────────────

// TestBuild_EmptyBuilder verifies that building with no configs yields only
// the defaults.
func TestBuild_EmptyBuilder(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Adapter.BaseURL)
	assert.Equal(t, DefaultConcurrency, cfg.Workers.Concurrency)
	assert.Equal(t, DefaultDownloadBatchSize, cfg.Sync.DownloadBatchSize)
	assert.Equal(t, DefaultUploadBatchSize, cfg.Sync.UploadBatchSize)
	assert.Equal(t, DefaultMaxRestarts, cfg.Sync.MaxRestarts)
	assert.Equal(t, DefaultSyncInterval, cfg.Workers.SyncInterval)
}

// TestBuild_PropagatesBuilderError verifies that a pre-set b.err is wrapped
// and returned, with nil config.
func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = errors.New("boom")

	cfg, err := b.build()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "boom")
}

// TestBuild_LaterSourceWins verifies the merge order of sources.
func TestBuild_LaterSourceWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Storage: Storage{DSN: "env.db"}, App: App{UserID: 1}},
		&StructuredConfig{Storage: Storage{DSN: "flags.db"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "flags.db", cfg.Storage.DSN)
	assert.Equal(t, int64(1), cfg.App.UserID)
}

// ── withJSON ──────────────────────────────────────────────────────────────────

// TestWithJSON_MergesFile verifies that the JSON file named by an earlier
// source is loaded and wins over it.
func TestWithJSON_MergesFile(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"storage": map[string]any{"dsn": "json.db"},
		"workers": map[string]any{"sync_interval": "90s"},
	})

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path, Storage: Storage{DSN: "env.db"}})

	cfg, err := b.withJSON().build()
	require.NoError(t, err)
	assert.Equal(t, "json.db", cfg.Storage.DSN)
	assert.Equal(t, 90*time.Second, cfg.Workers.SyncInterval)
}

// TestWithJSON_MissingFile verifies that an unreadable file is reported.
func TestWithJSON_MissingFile(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/definitely/missing.json"})

	_, err := b.withJSON().build()
	require.Error(t, err)
}

// ── validation ────────────────────────────────────────────────────────────────

func validClientConfig(t *testing.T) *StructuredConfig {
	t.Helper()
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{App: App{UserID: 1}})
	cfg, err := b.build()
	require.NoError(t, err)
	return cfg
}

func TestValidateClient_Defaults(t *testing.T) {
	assert.NoError(t, validClientConfig(t).validateClient())
}

func TestValidateClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *StructuredConfig)
		want   error
	}{
		{"no libraries", func(cfg *StructuredConfig) { cfg.App.UserID = 0 }, ErrInvalidAppConfigs},
		{"bad group", func(cfg *StructuredConfig) { cfg.App.Groups = []int64{-1} }, ErrInvalidAppConfigs},
		{"bad url", func(cfg *StructuredConfig) { cfg.Adapter.BaseURL = "not a url" }, ErrInvalidAdapterConfigs},
		{"empty dsn", func(cfg *StructuredConfig) { cfg.Storage.DSN = "" }, ErrInvalidStorageConfigs},
		{"zero concurrency", func(cfg *StructuredConfig) { cfg.Workers.Concurrency = 0 }, ErrInvalidWorkerConfigs},
		{"batch above limit", func(cfg *StructuredConfig) { cfg.Sync.UploadBatchSize = 51 }, ErrInvalidSyncConfigs},
		{"unknown policy", func(cfg *StructuredConfig) { cfg.Sync.ItemDeletions = "merge" }, ErrInvalidSyncConfigs},
		{"bad metrics address", func(cfg *StructuredConfig) { cfg.Metrics.Address = "nope" }, ErrInvalidMetricsConfigs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClientConfig(t)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.validateClient(), tt.want)
		})
	}
}

func TestValidateAPIServer(t *testing.T) {
	cfg := validClientConfig(t)
	assert.NoError(t, cfg.validateAPIServer())

	cfg.APIServer.Address = ""
	assert.ErrorIs(t, cfg.validateAPIServer(), ErrInvalidAPIServerConfigs)
}

func TestGetClientConfig_FromFlags(t *testing.T) {
	dsn := t.TempDir() + "/refsync.db"
	cfg, err := GetClientConfig([]string{"-u", "1", "-d", dsn})
	require.NoError(t, err)
	assert.Equal(t, dsn, cfg.Storage.DSN)
	assert.Equal(t, int64(1), cfg.App.UserID)
}
