package config

import "time"

// Default values applied to fields no source has set.
const (
	DefaultBaseURL           = "https://api.zotero.org"
	DefaultAPIVersion        = 3
	DefaultRequestTimeout    = 30 * time.Second
	DefaultDSN               = "refsync.db"
	DefaultConcurrency       = 4
	DefaultMaxRetries        = 5
	DefaultSyncInterval      = 5 * time.Minute
	DefaultDownloadBatchSize = 50
	DefaultUploadBatchSize   = 50
	DefaultUploadBatchBytes  = 1 << 20
	DefaultMaxRestarts       = 3
	DefaultAPIServerAddress  = "localhost:8090"
	DefaultAPIServerUserID   = 1
)

func (cfg *StructuredConfig) applyDefaults() {
	setDefault(&cfg.Adapter.BaseURL, DefaultBaseURL)
	setDefault(&cfg.Adapter.APIVersion, DefaultAPIVersion)
	setDefault(&cfg.Adapter.RequestTimeout, DefaultRequestTimeout)
	setDefault(&cfg.Storage.DSN, DefaultDSN)
	setDefault(&cfg.Workers.Concurrency, DefaultConcurrency)
	setDefault(&cfg.Workers.MaxRetries, DefaultMaxRetries)
	setDefault(&cfg.Workers.SyncInterval, DefaultSyncInterval)
	setDefault(&cfg.Sync.DownloadBatchSize, DefaultDownloadBatchSize)
	setDefault(&cfg.Sync.UploadBatchSize, DefaultUploadBatchSize)
	setDefault(&cfg.Sync.UploadBatchBytes, DefaultUploadBatchBytes)
	setDefault(&cfg.Sync.MaxRestarts, DefaultMaxRestarts)
	setDefault(&cfg.APIServer.Address, DefaultAPIServerAddress)
	setDefault(&cfg.APIServer.UserID, DefaultAPIServerUserID)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
