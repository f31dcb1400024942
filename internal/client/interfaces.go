// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run executes mode and blocks until it is done or ctx is cancelled.
	Run(ctx context.Context, mode Mode) error

	// Close releases the store and the lock file.
	Close() error
}
