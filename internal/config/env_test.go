// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestParseEnv_AllFields(t *testing.T) {
	// Arrange
	setEnvVars(t, map[string]string{
		"REFSYNC_CONFIG": "/path/to/config.json",

		"REFSYNC_APP_API_KEY": "secret",
		"REFSYNC_APP_USER_ID": "1",
		"REFSYNC_APP_GROUPS":  "5,7",

		"REFSYNC_ADAPTER_BASE_URL":        "http://localhost:8090",
		"REFSYNC_ADAPTER_API_VERSION":     "3",
		"REFSYNC_ADAPTER_REQUEST_TIMEOUT": "30s",

		"REFSYNC_STORAGE_DSN": "/tmp/refsync.db",

		"REFSYNC_WORKERS_CONCURRENCY":   "2",
		"REFSYNC_WORKERS_MAX_RETRIES":   "4",
		"REFSYNC_WORKERS_SYNC_INTERVAL": "10m",

		"REFSYNC_SYNC_STOP_ON_ERROR":        "true",
		"REFSYNC_SYNC_DOWNLOAD_BATCH_SIZE":  "10",
		"REFSYNC_SYNC_UPLOAD_BATCH_SIZE":    "20",
		"REFSYNC_SYNC_MAX_RESTARTS":         "2",
		"REFSYNC_SYNC_COLLECTION_DELETIONS": "prompt",

		"REFSYNC_METRICS_ADDRESS":   "localhost:9100",
		"REFSYNC_APISERVER_ADDRESS": "localhost:8090",
	})

	// Act
	cfg := &StructuredConfig{}
	err := parseEnv(cfg)

	// Assert
	require.NoError(t, err)

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
	assert.Equal(t, "secret", cfg.App.APIKey)
	assert.Equal(t, int64(1), cfg.App.UserID)
	assert.Equal(t, []int64{5, 7}, cfg.App.Groups)

	assert.Equal(t, "http://localhost:8090", cfg.Adapter.BaseURL)
	assert.Equal(t, 3, cfg.Adapter.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.Adapter.RequestTimeout)

	assert.Equal(t, "/tmp/refsync.db", cfg.Storage.DSN)

	assert.Equal(t, 2, cfg.Workers.Concurrency)
	assert.Equal(t, 4, cfg.Workers.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Workers.SyncInterval)

	assert.True(t, cfg.Sync.StopOnError)
	assert.Equal(t, 10, cfg.Sync.DownloadBatchSize)
	assert.Equal(t, 20, cfg.Sync.UploadBatchSize)
	assert.Equal(t, 2, cfg.Sync.MaxRestarts)
	assert.Equal(t, "prompt", cfg.Sync.CollectionDeletions)

	assert.Equal(t, "localhost:9100", cfg.Metrics.Address)
	assert.Equal(t, "localhost:8090", cfg.APIServer.Address)
}

func TestParseEnv_InvalidDuration(t *testing.T) {
	setEnvVars(t, map[string]string{"REFSYNC_WORKERS_SYNC_INTERVAL": "soon"})

	err := parseEnv(&StructuredConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error getting env configs")
}

func TestParseEnv_InvalidGroups(t *testing.T) {
	setEnvVars(t, map[string]string{"REFSYNC_APP_GROUPS": "5,x"})

	err := parseEnv(&StructuredConfig{})
	require.Error(t, err)
}

func TestParseEnv_IgnoresUnprefixed(t *testing.T) {
	setEnvVars(t, map[string]string{"STORAGE_DSN": "/tmp/other.db"})

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))
	assert.Empty(t, cfg.Storage.DSN)
}
