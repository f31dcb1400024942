package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

// Engine syncs one local library with its remote counterpart.
type Engine struct {
	libraryID int64

	api      adapter.APIClient
	store    store.Store
	caller   Caller
	resolver Resolver

	opts   Options
	logger *logger.Logger
}

// New creates an Engine for the local library libraryID. A nil resolver
// resolves every conflict in favor of the remote side.
func New(libraryID int64, api adapter.APIClient, st store.Store, caller Caller, resolver Resolver, log *logger.Logger, opts Options) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		libraryID: libraryID,
		api:       api,
		store:     st,
		caller:    caller,
		resolver:  resolver,
		opts:      opts.withDefaults(),
		logger:    log,
	}
}

// LibraryID returns the local library the engine syncs.
func (e *Engine) LibraryID() int64 {
	return e.libraryID
}

// Start runs one sync pass: download, then upload, repeating both while the
// upload reports that the remote library advanced. A full sync is run
// instead of the incremental download when the library version is unknown
// or the remote library was reset.
//
// Per-object failures do not abort the pass unless StopOnError is set; they
// are returned joined with any fatal error.
func (e *Engine) Start(ctx context.Context) (models.PassResult, error) {
	return e.run(ctx, false)
}

// FullSync runs a pass that starts with a full sync regardless of the
// library version.
func (e *Engine) FullSync(ctx context.Context) (models.PassResult, error) {
	return e.run(ctx, true)
}

// Upgrade converts a library synced by the timestamp based legacy protocol.
// It returns the full manifests read per type and leaves the library at the
// unknown version, so that the next pass is a full sync.
func (e *Engine) Upgrade(ctx context.Context) (map[models.ObjectType]models.VersionsResult, error) {
	ctx, p := e.newPass(ctx)
	if err := p.reload(ctx); err != nil {
		return nil, err
	}
	return p.upgrade(ctx)
}

func (e *Engine) run(ctx context.Context, full bool) (models.PassResult, error) {
	started := time.Now()
	ctx, p := e.newPass(ctx)

	err := p.run(ctx, full)
	if len(p.errs) > 0 {
		err = errors.Join(append([]error{err}, p.errs...)...)
	}
	p.result.Version = p.lib.Version

	elapsed := time.Since(started)
	event := p.log.Info()
	if err != nil {
		event = p.log.Err(err)
	}
	event.
		Str("func", "Engine.run").
		Int("downloaded", p.result.Downloaded).
		Int("uploaded", p.result.Uploaded).
		Int("deleted", p.result.Deleted).
		Int("conflicts", p.result.Conflicts).
		Int("queued", p.result.Queued).
		Str("upload", p.result.Upload.String()).
		Int64("version", p.result.Version).
		Dur("elapsed", elapsed).
		Msg("sync pass finished")

	if e.opts.Observer != nil {
		e.opts.Observer.ObservePass(*p.result, elapsed, err)
	}
	return *p.result, err
}

func (e *Engine) newPass(ctx context.Context) (context.Context, *pass) {
	passID := newPassID()
	log := e.logger.ForPass(e.libraryID, passID)

	ctx = log.WithContext(ctx)
	ctx = utils.WithLibraryID(ctx, e.libraryID)
	ctx = utils.WithPassID(ctx, passID)

	return ctx, &pass{
		Engine: e,
		log:    log,
		result: &models.PassResult{LibraryID: e.libraryID},
	}
}

var passIDs = utils.NewUUIDGenerator()

func newPassID() string {
	return passIDs.Generate()
}

// pass is the state of one sync pass.
type pass struct {
	*Engine

	lib    models.Library
	log    *logger.Logger
	result *models.PassResult

	mu sync.Mutex
	// seen is the highest Last-Modified-Version read during the pass.
	seen int64

	// applyAll is set once the user chose to resolve every remaining
	// conflict of the pass with one side.
	applyAll *models.Side

	errs []error
}

func (p *pass) run(ctx context.Context, full bool) error {
	if err := p.reload(ctx); err != nil {
		return err
	}

	if p.lib.LegacyLastSync != nil && p.lib.Version == 0 {
		if _, err := p.upgrade(ctx); err != nil {
			return err
		}
		full = true
	}

	for {
		if full || p.lib.Version == models.UnknownLibraryVersion {
			if err := p.fullSync(ctx); err != nil {
				return err
			}
			full = false
		} else if err := p.download(ctx); err != nil {
			if !errors.Is(err, errRemoteReset) {
				return err
			}
			p.log.Warn().
				Str("func", "pass.run").
				Int64("local_version", p.lib.Version).
				Msg("remote library was reset, running full sync")
			if err = p.fullSync(ctx); err != nil {
				return err
			}
		}

		result, err := p.upload(ctx)
		p.result.Upload = result
		if err != nil {
			return err
		}
		if result != models.UploadRestart {
			return nil
		}

		p.result.Restarts++
		if p.result.Restarts > p.opts.MaxRestarts {
			return ErrRestartLimit
		}
		p.log.Info().
			Str("func", "pass.run").
			Int("restart", p.result.Restarts).
			Msg("remote library advanced during upload, downloading again")
		if err = p.reload(ctx); err != nil {
			return err
		}
	}
}

func (p *pass) reload(ctx context.Context) error {
	lib, err := p.store.GetLibrary(ctx, p.libraryID)
	if err != nil {
		return fmt.Errorf("load library %d: %w", p.libraryID, err)
	}
	p.lib = lib
	p.seen = lib.Version
	return nil
}

// observe records a Last-Modified-Version read from a response.
func (p *pass) observe(version int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version > p.seen {
		p.seen = version
	}
}

func (p *pass) highest() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen
}

// commitVersion persists the highest version seen by the download.
func (p *pass) commitVersion(ctx context.Context, version int64) error {
	if err := p.store.SetLibraryVersion(ctx, p.libraryID, version); err != nil {
		return fmt.Errorf("save library version: %w", err)
	}
	p.lib.Version = version
	return nil
}

// objectError reports a per-object failure. It returns err when the pass
// must stop.
func (p *pass) objectError(oe *ObjectError) error {
	p.result.ObjectErrors++
	if oe.Queue {
		p.result.Queued++
	}
	p.log.Warn().
		Err(oe.Err).
		Str("func", "pass.objectError").
		Str("object_type", string(oe.Type)).
		Str("object_key", oe.Key).
		Bool("queued", oe.Queue).
		Msg("object not applied")

	if p.opts.StopOnError {
		return oe
	}
	if p.opts.OnError != nil {
		p.opts.OnError(oe)
	}
	p.errs = append(p.errs, oe)
	return nil
}

// queueObject adds key to the sync queue and reports the failure.
func (p *pass) queueObject(ctx context.Context, repo store.Repository, t models.ObjectType, key string, cause error) error {
	if err := repo.QueueObjects(ctx, p.libraryID, t, []string{key}); err != nil {
		return err
	}
	return p.objectError(&ObjectError{Type: t, LibraryID: p.libraryID, Key: key, Queue: true, Err: cause})
}

// queueAborted queues the object that stopped the pass. Its queue entry was
// rolled back together with the rest of the batch.
func (p *pass) queueAborted(ctx context.Context, err error) error {
	var oe *ObjectError
	if !errors.As(err, &oe) || !oe.Queue {
		return err
	}
	if qerr := p.store.QueueObjects(ctx, p.libraryID, oe.Type, []string{oe.Key}); qerr != nil {
		return errors.Join(err, qerr)
	}
	return err
}

func chunk[T any](values []T, size int) [][]T {
	var chunks [][]T
	for size < len(values) {
		values, chunks = values[size:], append(chunks, values[:size:size])
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}
