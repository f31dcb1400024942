package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/server"
)

// NewServer returns the HTTP server exposing /metrics on address, or nil
// when address is empty.
func NewServer(m *Metrics, address string, log *logger.Logger) *server.HTTPServer {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", m.Handler())
	return server.NewHTTPServer("metrics", address, router, log)
}
