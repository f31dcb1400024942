// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/models"
)

const (
	beginAttempts = 3
	beginDelay    = 50 * time.Millisecond
)

// Option configures a store created by NewStore.
type Option func(*sqlStore)

// WithClock replaces time.Now as the source of local timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *sqlStore) {
		s.now = now
	}
}

// sqlStore is the SQLite-backed [Store].
type sqlStore struct {
	*repository
	db  *DB
	now func() time.Time

	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(models.ChangeEvent)
}

// repository implements [Repository] over either the connection or an open
// transaction.
type repository struct {
	q    querier
	now  func() time.Time
	emit func(action models.ChangeAction, libraryID int64, objectType models.ObjectType, keys ...string)
}

// NewStore constructs a [Store] over an already connected database.
func NewStore(db *DB, opts ...Option) Store {
	s := &sqlStore{
		db:          db,
		now:         time.Now,
		subscribers: make(map[int]func(models.ChangeEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repository = &repository{
		q:   db.DB,
		now: s.now,
		emit: func(action models.ChangeAction, libraryID int64, objectType models.ObjectType, keys ...string) {
			s.publish([]models.ChangeEvent{newEvent(action, libraryID, objectType, keys)})
		},
	}
	return s
}

func (s *sqlStore) Migrate() error {
	return s.db.Migrate()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	log := logger.FromContext(ctx)

	tx, err := s.begin(ctx)
	if err != nil {
		log.Err(err).Str("func", "sqlStore.InTx").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}

	var pending []models.ChangeEvent
	txRepo := &repository{
		q:   tx,
		now: s.now,
		emit: func(action models.ChangeAction, libraryID int64, objectType models.ObjectType, keys ...string) {
			pending = append(pending, newEvent(action, libraryID, objectType, keys))
		},
	}

	if err = fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Err(rbErr).Str("func", "sqlStore.InTx").Msg("failed to rollback transaction")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", "sqlStore.InTx").Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	s.publish(pending)
	return nil
}

// begin starts a transaction, retrying while the database file is locked by
// another connection. Nothing has been written at that point.
func (s *sqlStore) begin(ctx context.Context) (*sql.Tx, error) {
	var (
		tx  *sql.Tx
		err error
	)
	for attempt := 1; attempt <= beginAttempts; attempt++ {
		tx, err = s.db.BeginTx(ctx, nil)
		if err == nil || s.db.errorClassificator == nil || s.db.errorClassificator.Classify(err) != Retryable {
			return tx, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * beginDelay):
		}
	}
	return nil, err
}

func (s *sqlStore) Subscribe(fn func(models.ChangeEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *sqlStore) publish(events []models.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	s.mu.RLock()
	subs := make([]func(models.ChangeEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func newEvent(action models.ChangeAction, libraryID int64, objectType models.ObjectType, keys []string) models.ChangeEvent {
	return models.ChangeEvent{
		Action:    action,
		Type:      objectType,
		LibraryID: libraryID,
		Keys:      append([]string(nil), keys...),
	}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
