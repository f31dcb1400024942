package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/workers"
)

type server struct {
	servers *workers.Workers
	logger  *logger.Logger

	// stop makes RunServer return without a signal.
	stop chan struct{}
}

// NewServer groups servers; nil entries are disabled servers and skipped.
func NewServer(logger *logger.Logger, servers ...*HTTPServer) (Server, error) {
	logger.Info().Msg("creating new server...")

	var enabled []workers.Worker
	for _, s := range servers {
		if s != nil {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		return nil, errNoServersEnabled
	}

	return &server{
		servers: workers.New(enabled...),
		logger:  logger,
		stop:    make(chan struct{}),
	}, nil
}

func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	s.servers.Start(ctx)

	select {
	case <-ctx.Done():
	case <-s.stop:
	}

	s.servers.Stop()
	s.logger.Info().Msg("server Shutdown gracefully")
}

// Shutdown makes a running RunServer stop the servers and return.
func (s *server) Shutdown() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}
