package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid API client settings
	// (for example, a malformed base URL or a zero request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAppConfigs indicates invalid account settings
	// (for example, no library to sync).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero sync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidSyncConfigs indicates invalid engine settings
	// (for example, a batch size above the server limit).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidMetricsConfigs indicates an invalid metrics listen address.
	ErrInvalidMetricsConfigs = errors.New("invalid metrics configuration")
	// ErrInvalidAPIServerConfigs indicates invalid reference server settings.
	ErrInvalidAPIServerConfigs = errors.New("invalid api server configuration")
)
