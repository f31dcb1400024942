// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package engine implements the sync pass of one library: download of
// remote changes, three-way conflict resolution, dependency-ordered upload
// of local changes and the full-sync and legacy upgrade routines.
//
// An Engine is bound to one local library. Several engines may run
// concurrently when they share the same Caller and store.
package engine

import (
	"context"
	"time"

	"github.com/MKhiriev/go-refsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/resolver_mock.go -package=mock

// Resolver is the interactive merge step. It receives one set of conflicts
// and returns one Resolution per conflict, or ErrUserCancelled.
type Resolver interface {
	Resolve(ctx context.Context, conflicts []models.Conflict) ([]models.Resolution, error)
}

// Caller runs outbound requests with a concurrency cap and retries.
// *workers.Caller implements it.
type Caller interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
	RunAll(ctx context.Context, fns ...func(ctx context.Context) error) error
}

// Observer receives the summary of every finished pass.
type Observer interface {
	ObservePass(result models.PassResult, elapsed time.Duration, err error)
}
