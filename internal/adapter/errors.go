package adapter

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors mapped from HTTP responses.
var (
	// ErrNotModified is returned for 304 on a conditional read: nothing in the
	// library changed since the given version.
	ErrNotModified = errors.New("library not modified")

	// ErrPreconditionFailed is returned for 412: the library version has
	// advanced since the version sent in If-Unmodified-Since-Version.
	ErrPreconditionFailed = errors.New("library version precondition failed")

	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("client unauthorized")
	ErrForbidden    = errors.New("access forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("library locked")
	ErrTooLarge     = errors.New("request entity too large")

	// ErrMalformedResponse is returned when a response body or header cannot
	// be decoded or fails validation.
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrUnsupportedType is returned when an endpoint is called with an
	// object type it does not serve.
	ErrUnsupportedType = errors.New("unsupported object type")
)

// TransientError is a failure that may succeed when retried: a network error,
// a 5xx status or 429.
type TransientError struct {
	// StatusCode is zero for network errors.
	StatusCode int

	// Delay is the server requested wait before retrying, from Retry-After
	// or Backoff. Zero means "use the caller's backoff".
	Delay time.Duration

	Err error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transient network error: %v", e.Err)
	}
	return fmt.Sprintf("transient http %d: %v", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Retryable reports that the request may be attempted again.
func (e *TransientError) Retryable() bool {
	return true
}

// RetryAfter returns the server requested delay.
func (e *TransientError) RetryAfter() time.Duration {
	return e.Delay
}
