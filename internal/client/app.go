package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/engine"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/metrics"
	"github.com/MKhiriev/go-refsync/internal/service"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/internal/tui"
	"github.com/MKhiriev/go-refsync/internal/workers"
	"github.com/MKhiriev/go-refsync/models"
)

// Mode selects what Run does.
type Mode string

const (
	// ModeWatch syncs once, then keeps syncing every interval until the
	// context is cancelled.
	ModeWatch Mode = "watch"
	// ModeSync runs one pass of every library.
	ModeSync Mode = "sync"
	// ModeFullSync runs one full sync pass of every library.
	ModeFullSync Mode = "full"
)

// ParseMode returns the mode named by s. An empty s is ModeWatch.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeWatch:
		return ModeWatch, nil
	case ModeSync, ModeFullSync:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type App struct {
	cfg *config.StructuredConfig

	lock        *flock.Flock
	store       store.Store
	unsubscribe func()

	services   *service.Services
	background *workers.Workers
	metrics    *metrics.Metrics

	out    io.Writer
	logger *logger.Logger
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	resolver engine.Resolver
	out      io.Writer
}

// WithResolver replaces the terminal conflict prompt.
func WithResolver(resolver engine.Resolver) Option {
	return func(o *appOptions) {
		o.resolver = resolver
	}
}

// WithOutput sets where pass summaries are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.out = w
	}
}

// NewApp locks and opens the store, provisions the configured libraries and
// wires the sync services.
func NewApp(ctx context.Context, cfg *config.StructuredConfig, log *logger.Logger, opts ...Option) (*App, error) {
	o := appOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = tui.NewResolver(log)
	}

	lock := flock.New(cfg.Storage.DSN + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, cfg.Storage.DSN)
	}

	app := &App{cfg: cfg, lock: lock, out: o.out, logger: log}
	if err = app.init(ctx, o.resolver); err != nil {
		return nil, errors.Join(err, app.Close())
	}
	return app, nil
}

func (a *App) init(ctx context.Context, resolver engine.Resolver) error {
	db, err := store.NewConnectSQLite(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store.NewStore(db)
	if err = a.store.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	a.metrics = metrics.New()
	a.unsubscribe = a.store.Subscribe(func(event models.ChangeEvent) {
		a.metrics.ObserveChange(event)
		a.logger.Debug().
			Str("func", "App.onChange").
			Str("action", string(event.Action)).
			Str("object_type", string(event.Type)).
			Int64("library_id", event.LibraryID).
			Strs("keys", event.Keys).
			Msg("local store changed")
	})

	api, err := adapter.NewHTTPAPIClient(a.cfg.Adapter, a.cfg.App, a.logger)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	caller := workers.NewCaller(a.cfg.Workers, workers.WithRetryObserver(func(err error, next time.Duration) {
		a.metrics.ObserveRetry(err, next)
		a.logger.Warn().Err(err).Str("func", "App.onRetry").Dur("next", next).Msg("request will be retried")
	}))

	engineOpts := engine.OptionsFromConfig(a.cfg.Sync)
	engineOpts.Observer = a.metrics
	engineOpts.OnError = func(err error) {
		a.logger.Warn().Err(err).Str("func", "App.onObjectError").Msg("object was not synced")
	}

	newEngine := service.NewEngineFactory(api, a.store, caller, resolver, engineOpts, a.logger)
	a.services = service.NewServices(a.store, newEngine, *a.cfg, a.logger)

	libs, err := a.services.LibraryService.EnsureLibraries(ctx, a.cfg.App)
	if err != nil {
		return fmt.Errorf("provision libraries: %w", err)
	}
	for _, lib := range libs {
		a.logger.Info().
			Str("func", "App.init").
			Int64("library_id", lib.ID).
			Str("prefix", lib.Prefix()).
			Int64("version", lib.Version).
			Msg("library ready")
	}

	background := []workers.Worker{a.services.SyncJob}
	if srv := metrics.NewServer(a.metrics, a.cfg.Metrics.Address, a.logger); srv != nil {
		background = append(background, srv)
	}
	a.background = workers.New(background...)
	return nil
}

// Run executes mode. Pass summaries are printed for every library; failed
// libraries do not stop the others.
func (a *App) Run(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeSync:
		return a.syncOnce(ctx, false)
	case ModeFullSync:
		return a.syncOnce(ctx, true)
	case ModeWatch:
		return a.watch(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func (a *App) syncOnce(ctx context.Context, full bool) error {
	if !full {
		results, err := a.services.SyncService.SyncAll(ctx)
		a.report(results, err)
		return err
	}

	libs, err := a.store.ListLibraries(ctx)
	if err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}
	results := make([]models.PassResult, 0, len(libs))
	var errs []error
	for _, lib := range libs {
		result, err := a.services.SyncService.FullSyncLibrary(ctx, lib.ID)
		results = append(results, result)
		if err != nil {
			errs = append(errs, fmt.Errorf("library %d: %w", lib.ID, err))
		}
	}
	err = errors.Join(errs...)
	a.report(results, err)
	return err
}

func (a *App) watch(ctx context.Context) error {
	if err := a.syncOnce(ctx, false); err != nil {
		a.logger.Err(err).Str("func", "App.watch").Msg("initial sync finished with errors")
	}

	a.background.Start(ctx)
	defer a.background.Stop()

	<-ctx.Done()
	a.logger.Info().Str("func", "App.watch").Msg("stopping sync client")
	return nil
}

func (a *App) report(results []models.PassResult, err error) {
	for _, r := range results {
		fmt.Fprintf(a.out, "library %d: version %d, downloaded %d, uploaded %d, deleted %d, conflicts %d, queued %d\n",
			r.LibraryID, r.Version, r.Downloaded, r.Uploaded, r.Deleted, r.Conflicts, r.Queued)
	}
	if err != nil {
		fmt.Fprintf(a.out, "sync warning: %s\n", tui.HumanizeError(err))
	}
}

// Close releases the store and the lock file. It is safe to call more than
// once.
func (a *App) Close() error {
	var errs []error
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
		a.lock = nil
	}
	return errors.Join(errs...)
}
