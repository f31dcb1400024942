// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-refsync applications. It aggregates all sub-configurations and is
// populated by merging values from environment variables, command-line flags,
// and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
//   - validate: rules checked by go-playground/validator after merging.
type StructuredConfig struct {
	// App holds the account settings: credentials and the libraries to sync.
	App App `envPrefix:"APP_"`

	// Adapter holds the settings of the REST API client.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage holds the local SQLite store settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Workers holds the bounded caller and the periodic sync job settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds the tuning knobs of the sync engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Metrics holds the Prometheus endpoint settings.
	Metrics Metrics `envPrefix:"METRICS_"`

	// APIServer holds the settings of the reference API server.
	APIServer APIServer `envPrefix:"APISERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the REFSYNC_CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds account-level configuration.
type App struct {
	// APIKey is sent with every request in the Zotero-API-Key header.
	// Env: REFSYNC_APP_API_KEY
	APIKey string `env:"API_KEY"`

	// UserID is the id of the personal library. Zero disables it.
	// Env: REFSYNC_APP_USER_ID
	UserID int64 `env:"USER_ID" validate:"gte=0"`

	// Groups lists group library ids to sync.
	// Env: REFSYNC_APP_GROUPS (comma separated)
	Groups []int64 `env:"GROUPS" envSeparator:"," validate:"dive,gt=0"`

	// Version is the version string of the running application.
	// Env: REFSYNC_APP_VERSION
	Version string `env:"VERSION"`
}

// Adapter holds the REST client configuration.
type Adapter struct {
	// BaseURL is the root of the API (e.g. "https://api.zotero.org").
	// Env: REFSYNC_ADAPTER_BASE_URL
	BaseURL string `env:"BASE_URL" validate:"required,url"`

	// APIVersion is sent in the Zotero-API-Version header.
	// Env: REFSYNC_ADAPTER_API_VERSION
	APIVersion int `env:"API_VERSION" validate:"gte=1"`

	// RequestTimeout is the maximum duration of one outbound request.
	// Env: REFSYNC_ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// Storage holds the local database settings.
type Storage struct {
	// DSN is the SQLite data source name, usually a file path.
	// Env: REFSYNC_STORAGE_DSN
	DSN string `env:"DSN" validate:"required"`
}

// Workers holds the configuration of background processing.
type Workers struct {
	// Concurrency is the number of in-flight requests of the bounded caller.
	// Env: REFSYNC_WORKERS_CONCURRENCY
	Concurrency int `env:"CONCURRENCY" validate:"gte=1,lte=64"`

	// MaxRetries bounds the attempts of one request on transient errors.
	// Env: REFSYNC_WORKERS_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES" validate:"gte=1"`

	// SyncInterval is the period of the background sync job.
	// Env: REFSYNC_WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL" validate:"gt=0"`
}

// Sync holds the sync engine configuration.
type Sync struct {
	// StopOnError aborts a pass on the first per-object failure.
	// Env: REFSYNC_SYNC_STOP_ON_ERROR
	StopOnError bool `env:"STOP_ON_ERROR"`

	// DownloadBatchSize is the maximum number of keys per object request.
	// Env: REFSYNC_SYNC_DOWNLOAD_BATCH_SIZE
	DownloadBatchSize int `env:"DOWNLOAD_BATCH_SIZE" validate:"gte=1,lte=50"`

	// UploadBatchSize is the maximum number of objects per write request.
	// Env: REFSYNC_SYNC_UPLOAD_BATCH_SIZE
	UploadBatchSize int `env:"UPLOAD_BATCH_SIZE" validate:"gte=1,lte=50"`

	// UploadBatchBytes bounds the encoded size of one write request.
	// Env: REFSYNC_SYNC_UPLOAD_BATCH_BYTES
	UploadBatchBytes int `env:"UPLOAD_BATCH_BYTES" validate:"gte=1024"`

	// MaxRestarts bounds download/upload rounds after precondition failures.
	// Env: REFSYNC_SYNC_MAX_RESTARTS
	MaxRestarts int `env:"MAX_RESTARTS" validate:"gte=1"`

	// Remote deletion policies per object type: "prompt", "keep-local" or
	// "accept-remote".
	// Env: REFSYNC_SYNC_ITEM_DELETIONS, REFSYNC_SYNC_COLLECTION_DELETIONS,
	// REFSYNC_SYNC_SEARCH_DELETIONS, REFSYNC_SYNC_SETTING_DELETIONS
	ItemDeletions       string `env:"ITEM_DELETIONS" validate:"omitempty,oneof=prompt keep-local accept-remote"`
	CollectionDeletions string `env:"COLLECTION_DELETIONS" validate:"omitempty,oneof=prompt keep-local accept-remote"`
	SearchDeletions     string `env:"SEARCH_DELETIONS" validate:"omitempty,oneof=prompt keep-local accept-remote"`
	SettingDeletions    string `env:"SETTING_DELETIONS" validate:"omitempty,oneof=prompt keep-local accept-remote"`
}

// Metrics holds the Prometheus endpoint configuration.
type Metrics struct {
	// Address is the listen address of /metrics. Empty disables the endpoint.
	// Env: REFSYNC_METRICS_ADDRESS
	Address string `env:"ADDRESS" validate:"omitempty,hostname_port"`
}

// APIServer holds the reference API server configuration.
type APIServer struct {
	// Address is the listen address, in "host:port" format.
	// Env: REFSYNC_APISERVER_ADDRESS
	Address string `env:"ADDRESS" validate:"required,hostname_port"`

	// UserID is the personal library served at users/<id>.
	// Env: REFSYNC_APISERVER_USER_ID
	UserID int64 `env:"USER_ID" validate:"gt=0"`
}

// GetStructuredConfig loads and merges the configuration from all available
// sources in the following priority order (last source wins for non-zero
// fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Defaults are applied to the fields left empty. The result is not validated;
// use [GetClientConfig] or [GetAPIServerConfig].
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}

// GetClientConfig loads the configuration and validates the groups used by
// the sync client.
func GetClientConfig(args []string) (*StructuredConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}
	return cfg, cfg.validateClient()
}

// GetAPIServerConfig loads the configuration and validates the groups used by
// the reference API server.
func GetAPIServerConfig(args []string) (*StructuredConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}
	return cfg, cfg.validateAPIServer()
}
