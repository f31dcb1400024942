package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/internal/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// HTTPServer serves one handler on one address.
type HTTPServer struct {
	name   string
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}

	logger *logger.Logger
}

// NewHTTPServer returns a server for handler. It returns nil when address is
// empty, which disables it.
func NewHTTPServer(name, address string, handler http.Handler, logger *logger.Logger) *HTTPServer {
	if address == "" {
		return nil
	}
	return &HTTPServer{
		name: name,
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Listen binds the address. Start calls it when it has not been called.
func (h *HTTPServer) Listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return err
	}
	h.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (h *HTTPServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.server.Addr
}

// Start serves in the background until Stop is called.
func (h *HTTPServer) Start(ctx context.Context) {
	if err := h.Listen(); err != nil {
		h.logger.Err(err).Str("server", h.name).Msg("listen failed")
		return
	}

	h.mu.Lock()
	ln := h.listener
	h.done = make(chan struct{})
	done := h.done
	h.server.BaseContext = func(net.Listener) context.Context { return ctx }
	h.mu.Unlock()

	h.logger.Info().Str("server", h.name).Str("address", ln.Addr().String()).Msg("launching HTTP server")
	go func() {
		defer close(done)
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Err(err).Str("server", h.name).Msg("HTTP server Serve")
		}
	}()
}

// Stop shuts the server down gracefully and waits for Serve to return.
func (h *HTTPServer) Stop() {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		// ошибки закрытия Listener
		h.logger.Err(err).Str("server", h.name).Msg("HTTP server Shutdown")
	}
	if done != nil {
		<-done
	}
	h.logger.Info().Str("server", h.name).Msg("HTTP server stopped")
}
