// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 30 * time.Second
)

// Caller runs functions with a fixed number of in-flight slots and retries
// transient failures with exponential backoff.
//
// An error is retried when it implements Retryable() bool returning true. A
// RetryAfter() time.Duration on the error raises the next delay to at least
// that value. A slot is held only while fn runs, never during the wait
// between attempts.
type Caller struct {
	slots    *semaphore.Weighted
	maxTries uint

	initialInterval time.Duration
	maxInterval     time.Duration

	onRetry func(err error, next time.Duration)
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithIntervals overrides the backoff intervals. Tests use millisecond values.
func WithIntervals(initial, max time.Duration) CallerOption {
	return func(c *Caller) {
		c.initialInterval = initial
		c.maxInterval = max
	}
}

// WithRetryObserver registers fn to be called before every retry.
func WithRetryObserver(fn func(err error, next time.Duration)) CallerOption {
	return func(c *Caller) {
		c.onRetry = fn
	}
}

// NewCaller creates a Caller with cfg.Concurrency slots and cfg.MaxRetries
// attempts per call.
func NewCaller(cfg config.Workers, opts ...CallerOption) *Caller {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	maxTries := cfg.MaxRetries
	if maxTries < 1 {
		maxTries = 1
	}

	c := &Caller{
		slots:           semaphore.NewWeighted(int64(concurrency)),
		maxTries:        uint(maxTries),
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run calls fn until it succeeds, fails with a non-retryable error, the
// attempts are exhausted or ctx is done. The last error is returned as is.
func (c *Caller) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	eb.MaxInterval = c.maxInterval
	b := &serverDelayBackOff{inner: eb}

	op := func() (struct{}, error) {
		if err := c.slots.Acquire(ctx, 1); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		err := fn(ctx)
		c.slots.Release(1)

		if err == nil {
			return struct{}{}, nil
		}
		if !isRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		b.requested = 0
		var d delayed
		if errors.As(err, &d) {
			b.requested = d.RetryAfter()
		}
		return struct{}{}, err
	}

	notify := func(err error, next time.Duration) {
		log.Warn().
			Err(err).
			Str("func", "Caller.Run").
			Dur("next", next).
			Msg("transient failure, retrying")
		if c.onRetry != nil {
			c.onRetry(err, next)
		}
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	return err
}

// RunAll runs every fn through Run concurrently. The first error cancels the
// context of the remaining calls and is returned.
func (c *Caller) RunAll(ctx context.Context, fns ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error {
			return c.Run(gctx, fn)
		})
	}
	return g.Wait()
}

func isRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.Retryable()
}

// serverDelayBackOff is an exponential backoff that never waits less than the
// delay requested by the server for the last failure.
type serverDelayBackOff struct {
	inner     backoff.BackOff
	requested time.Duration
}

func (b *serverDelayBackOff) NextBackOff() time.Duration {
	next := b.inner.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.requested > next {
		return b.requested
	}
	return next
}

func (b *serverDelayBackOff) Reset() {
	b.inner.Reset()
	b.requested = 0
}
