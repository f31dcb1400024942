package http

import (
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/remote"
	"github.com/MKhiriev/go-refsync/internal/validators"
)

// Handler serves the libraries of a registry.
type Handler struct {
	registry *remote.Registry

	// apiKey is the key every request must carry. Empty disables the check.
	apiKey  string
	version string

	validator validators.Validator

	logger *logger.Logger
}

func NewHandler(registry *remote.Registry, apiKey, version string, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		registry: registry,
		apiKey:   apiKey,
		version:  version,
		logger:   logger,

		validator: validators.NewObjectValidator(),
	}
}
