// Package workers provides the bounded-concurrency caller used for every
// outbound request of a sync pass, and the lifecycle of long-running
// background workers (periodic sync, metrics endpoint).
package workers

import (
	"context"
	"time"
)

// Worker is the interface that must be implemented by any background worker.
//
// Start must not block: implementations spawn their own goroutine and keep
// running until ctx is cancelled or Stop is called. Stop blocks until the
// worker has exited and is safe to call on a stopped worker.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// retryable is implemented by errors that may succeed on another attempt.
type retryable interface {
	Retryable() bool
}

// delayed is implemented by errors carrying a server requested retry delay.
type delayed interface {
	RetryAfter() time.Duration
}
