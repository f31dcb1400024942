package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/internal/logger"
)

const defaultSyncInterval = 5 * time.Minute

type syncJob struct {
	syncService SyncService
	interval    time.Duration
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a job that calls syncService.SyncAll every interval. If
// interval is zero or negative it defaults to 5 minutes. The job is idle
// until Start is called.
func NewSyncJob(syncService SyncService, interval time.Duration, log *logger.Logger) SyncJob {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &syncJob{syncService: syncService, interval: interval, logger: log}
}

// Start stops any previously running job, then launches a background
// goroutine ticking every interval. The goroutine exits when ctx is cancelled
// or Stop is called.
func (j *syncJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(j.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *syncJob) tick(ctx context.Context) {
	results, err := j.syncService.SyncAll(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		j.logger.Err(err).
			Str("func", "syncJob.tick").
			Int("libraries", len(results)).
			Msg("periodic sync finished with errors")
		return
	}
	j.logger.Debug().
		Str("func", "syncJob.tick").
		Int("libraries", len(results)).
		Msg("periodic sync finished")
}

// Stop cancels the background goroutine's context and blocks until the
// goroutine has fully exited. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
