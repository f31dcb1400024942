package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-refsync/internal/config"
)

// testTransient имитирует временную ошибку адаптера.
type testTransient struct {
	delay time.Duration
}

func (e *testTransient) Error() string             { return "transient" }
func (e *testTransient) Retryable() bool           { return true }
func (e *testTransient) RetryAfter() time.Duration { return e.delay }

func newTestCaller(concurrency, retries int, opts ...CallerOption) *Caller {
	opts = append([]CallerOption{WithIntervals(time.Millisecond, 5*time.Millisecond)}, opts...)
	return NewCaller(config.Workers{Concurrency: concurrency, MaxRetries: retries}, opts...)
}

func TestCaller_Run_Success(t *testing.T) {
	c := newTestCaller(1, 3)
	var calls int
	err := c.Run(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCaller_Run_RetriesTransient(t *testing.T) {
	var retries atomic.Int32
	c := newTestCaller(1, 5, WithRetryObserver(func(error, time.Duration) { retries.Add(1) }))

	var calls int
	err := c.Run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &testTransient{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int32(2), retries.Load())
}

func TestCaller_Run_PermanentNotRetried(t *testing.T) {
	c := newTestCaller(1, 5)
	permanent := errors.New("bad request")

	var calls int
	err := c.Run(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestCaller_Run_ExhaustsAttempts(t *testing.T) {
	c := newTestCaller(1, 3)

	var calls int
	err := c.Run(context.Background(), func(context.Context) error {
		calls++
		return &testTransient{}
	})
	var te *testTransient
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 3, calls)
}

func TestCaller_Run_HonorsServerDelay(t *testing.T) {
	c := newTestCaller(1, 2)

	var first time.Time
	var gap time.Duration
	err := c.Run(context.Background(), func(context.Context) error {
		if first.IsZero() {
			first = time.Now()
			return &testTransient{delay: 50 * time.Millisecond}
		}
		gap = time.Since(first)
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, gap, 50*time.Millisecond)
}

func TestCaller_Run_ContextCancelled(t *testing.T) {
	c := newTestCaller(1, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := c.Run(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestCaller_RunAll_BoundsConcurrency(t *testing.T) {
	const limit = 2
	c := newTestCaller(limit, 1)

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	fn := func(context.Context) error {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	fns := make([]func(context.Context) error, 8)
	for i := range fns {
		fns[i] = fn
	}
	require.NoError(t, c.RunAll(context.Background(), fns...))
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Equal(t, int32(limit), peak.Load())
}

func TestCaller_RunAll_ReturnsFirstError(t *testing.T) {
	c := newTestCaller(4, 1)
	boom := errors.New("boom")

	err := c.RunAll(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
	)
	assert.ErrorIs(t, err, boom)
}

func TestNewCaller_ClampsConfig(t *testing.T) {
	c := NewCaller(config.Workers{})
	assert.Equal(t, uint(1), c.maxTries)
}
