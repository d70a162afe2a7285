// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/common/aws"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/database"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/notify"
	"hosting-assessment/internal/render"
	"hosting-assessment/internal/scoring"
	"hosting-assessment/internal/search"
	"hosting-assessment/internal/store/cache"
	"hosting-assessment/internal/store/filestore"
	"hosting-assessment/internal/store/memory"
	"hosting-assessment/internal/store/sqlstore"
	"hosting-assessment/pkg/catalog"
)

// App holds the wired assessment components shared by the worker manager and the CLI.
type App struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Engine   *scoring.Engine
	Renderer *render.Renderer
	Store    assessment.Store
	Notifier assessment.Notifier
	Indexer  *search.Indexer
	Service  *assessment.Service

	logger  logger.Logger
	checks  map[string]func(ctx context.Context) error
	closers []func() error
}

type options struct {
	recorder       assessment.Recorder
	tracer         trace.Tracer
	notifier       assessment.Notifier
	connectRetries uint64
	connectDelay   time.Duration
}

type Option func(*options)

// WithRecorder forwards lifecycle outcomes to the given recorder.
func WithRecorder(recorder assessment.Recorder) Option {
	return func(o *options) { o.recorder = recorder }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithNotifier replaces the notifier selected from configuration.
func WithNotifier(notifier assessment.Notifier) Option {
	return func(o *options) { o.notifier = notifier }
}

// WithConnectRetry bounds the startup retries for external dependencies.
func WithConnectRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(o *options) {
		if maxRetries >= 0 {
			o.connectRetries = uint64(maxRetries)
		}
		o.connectDelay = initialDelay
	}
}

// Build wires the catalog, store, notifier, indexer and lifecycle service from cfg.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (app *App, err error) {
	o := &options{connectRetries: 10, connectDelay: 2 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	app = &App{
		Config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "bootstrap"}),
		checks: make(map[string]func(ctx context.Context) error),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	app.Catalog, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	app.Engine, err = scoring.NewEngine(app.Catalog)
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}
	app.Renderer = render.New(app.Catalog)

	if app.Store, err = app.openStore(ctx, o); err != nil {
		return nil, err
	}
	if cfg.Cache.Enabled {
		if err = app.wrapCache(ctx, o); err != nil {
			return nil, err
		}
	}

	app.Notifier = o.notifier
	if app.Notifier == nil {
		if app.Notifier, err = app.openNotifier(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		if err = app.openIndexer(ctx, o); err != nil {
			return nil, err
		}
	}

	svcOpts := []assessment.Option{}
	if app.Indexer != nil {
		svcOpts = append(svcOpts, assessment.WithIndexer(app.Indexer))
	}
	if o.recorder != nil {
		svcOpts = append(svcOpts, assessment.WithRecorder(o.recorder))
	}
	if o.tracer != nil {
		svcOpts = append(svcOpts, assessment.WithTracer(o.tracer))
	}
	app.Service = assessment.NewService(assessment.Config{
		ReviewBaseURL: cfg.Notifications.ReviewBaseURL,
	}, app.Store, app.Notifier, app.Engine, log, svcOpts...)

	app.logger.Info("assessment components ready", map[string]interface{}{
		"storage":        cfg.Storage.Backend,
		"cache":          cfg.Cache.Enabled,
		"search":         app.Indexer != nil,
		"notifications":  cfg.Notifications.Enabled,
		"catalogVersion": app.Catalog.Version,
	})
	return app, nil
}

func (a *App) openStore(ctx context.Context, o *options) (assessment.Store, error) {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendFile:
		return filestore.New(cfg.Storage.File.DataDir, a.logger)

	case config.BackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := a.connect(ctx, o, "postgres", pg.Ping); err != nil {
			return nil, err
		}
		a.checks["postgres"] = pg.Ping
		return a.migrated(ctx, sqlstore.New(pg.DB, sqlstore.Postgres, a.logger))

	case config.BackendSQLite:
		lite, err := database.NewSQLite(cfg.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, lite.Close)
		a.checks["sqlite"] = lite.Ping
		return a.migrated(ctx, sqlstore.New(lite.DB, sqlstore.SQLite, a.logger))
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func (a *App) migrated(ctx context.Context, store *sqlstore.Store) (*sqlstore.Store, error) {
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate assessment schema: %w", err)
	}
	return store, nil
}

func (a *App) wrapCache(ctx context.Context, o *options) error {
	rdb, err := database.NewRedis(a.Config.Database.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, rdb.Close)
	if err := a.connect(ctx, o, "redis", rdb.Ping); err != nil {
		return err
	}
	a.checks["redis"] = rdb.Ping

	ttl := time.Duration(a.Config.Cache.TTLSeconds) * time.Second
	a.Store = cache.New(a.Store, rdb.Client, ttl, a.Config.Cache.KeyPrefix, a.logger)
	return nil
}

func (a *App) openNotifier(ctx context.Context) (assessment.Notifier, error) {
	ncfg := a.Config.Notifications
	logNotifier := notify.NewLogNotifier(ncfg.ReviewerEmail, a.logger)
	if !ncfg.Enabled {
		return logNotifier, nil
	}

	clients, err := aws.NewClients(ctx, ncfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	email := notify.NewEmailNotifier(notify.Config{
		FromEmail:     ncfg.FromEmail,
		ReviewerEmail: ncfg.ReviewerEmail,
		SNSTopicARN:   ncfg.SNSTopicARN,
		MaxRetries:    ncfg.MaxRetries,
		Timeout:       time.Duration(ncfg.Timeout) * time.Millisecond,
	}, clients.SES, clients.SNS, a.Renderer, a.logger)
	return notify.Multi{email, logNotifier}, nil
}

func (a *App) openIndexer(ctx context.Context, o *options) error {
	escfg := a.Config.Database.Elasticsearch
	es, err := database.NewElasticsearch(escfg, nil)
	if err != nil {
		return err
	}
	if err := a.connect(ctx, o, "elasticsearch", es.Ping); err != nil {
		return err
	}
	a.checks["elasticsearch"] = es.Ping

	a.Indexer = search.New(es.Client, escfg.Index, a.logger)
	if err := a.Indexer.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure search index: %w", err)
	}
	return nil
}

// connect pings a dependency until it answers or the retry budget runs out.
func (a *App) connect(ctx context.Context, o *options, name string, ping func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.connectDelay
	policy.MaxElapsedTime = 0

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return ping(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, o.connectRetries), ctx),
		func(err error, next time.Duration) {
			a.logger.Warn(name+" not ready, retrying", map[string]interface{}{
				"attempt":     attempts,
				"nextRetryIn": next.String(),
				"error":       err,
			})
		})
	if err != nil {
		return fmt.Errorf("%s connection failed after %d attempts: %w", name, attempts, err)
	}
	a.logger.Info(name+" connected successfully", nil)
	return nil
}

// Ping runs every dependency check and returns the failures by name.
func (a *App) Ping(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Dependencies lists the names of the checked dependencies.
func (a *App) Dependencies() []string {
	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
