package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/engine"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

// defaultParallelLibraries bounds SyncAll. Requests of all libraries still
// share one Caller.
const defaultParallelLibraries = 4

// EngineFactory builds the Syncer of a local library.
type EngineFactory func(libraryID int64) Syncer

// NewEngineFactory returns a factory of engines sharing api, st and caller.
func NewEngineFactory(api adapter.APIClient, st store.Store, caller engine.Caller, resolver engine.Resolver, opts engine.Options, log *logger.Logger) EngineFactory {
	return func(libraryID int64) Syncer {
		return engine.New(libraryID, api, st, caller, resolver, log, opts)
	}
}

type syncService struct {
	libraries store.LibraryRepository
	newEngine EngineFactory
	logger    *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	engines map[int64]*libraryEngine
}

// libraryEngine serializes the passes of one library.
type libraryEngine struct {
	mu     sync.Mutex
	syncer Syncer
}

func NewSyncService(libraries store.LibraryRepository, newEngine EngineFactory, log *logger.Logger) SyncService {
	return &syncService{
		libraries: libraries,
		newEngine: newEngine,
		logger:    log,
		now:       time.Now,
		engines:   make(map[int64]*libraryEngine),
	}
}

func (s *syncService) SyncAll(ctx context.Context) ([]models.PassResult, error) {
	libs, err := s.libraries.ListLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	if len(libs) == 0 {
		return nil, ErrNoLibraries
	}

	results := make([]models.PassResult, len(libs))
	errs := make([]error, len(libs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(defaultParallelLibraries)
	for i, lib := range libs {
		g.Go(func() error {
			results[i], errs[i] = s.SyncLibrary(gCtx, lib.ID)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("library %d: %w", lib.ID, errs[i])
			}
			// ошибка одной библиотеки не отменяет остальные
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func (s *syncService) SyncLibrary(ctx context.Context, libraryID int64) (models.PassResult, error) {
	return s.run(ctx, libraryID, Syncer.Start)
}

func (s *syncService) FullSyncLibrary(ctx context.Context, libraryID int64) (models.PassResult, error) {
	return s.run(ctx, libraryID, Syncer.FullSync)
}

func (s *syncService) run(ctx context.Context, libraryID int64, pass func(Syncer, context.Context) (models.PassResult, error)) (models.PassResult, error) {
	le := s.engine(libraryID)
	if !le.mu.TryLock() {
		return models.PassResult{LibraryID: libraryID}, ErrSyncInProgress
	}
	defer le.mu.Unlock()

	result, err := pass(le.syncer, ctx)
	if err != nil && !errors.Is(err, engine.ErrUserCancelled) {
		return result, err
	}

	if markErr := s.markSynced(ctx, libraryID); markErr != nil {
		return result, errors.Join(err, markErr)
	}
	return result, err
}

func (s *syncService) engine(libraryID int64) *libraryEngine {
	s.mu.Lock()
	defer s.mu.Unlock()

	le, ok := s.engines[libraryID]
	if !ok {
		le = &libraryEngine{syncer: s.newEngine(libraryID)}
		s.engines[libraryID] = le
	}
	return le
}

// markSynced records the time of the completed pass. The library is reloaded
// because the pass advanced its version.
func (s *syncService) markSynced(ctx context.Context, libraryID int64) error {
	lib, err := s.libraries.GetLibrary(ctx, libraryID)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	now := s.now().UTC()
	lib.LastSync = &now
	if err = s.libraries.UpdateLibrary(ctx, lib); err != nil {
		s.logger.Err(err).
			Str("func", "syncService.markSynced").
			Int64("library_id", libraryID).
			Msg("failed to record last sync time")
		return fmt.Errorf("update library: %w", err)
	}
	return nil
}
