package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/catfeed/internal/core/config"
	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/worker"
	"github.com/vietddude/catfeed/internal/feed"
	"github.com/vietddude/catfeed/internal/feed/health"
	"github.com/vietddude/catfeed/internal/feed/journal"
	"github.com/vietddude/catfeed/internal/feed/metrics"
	"github.com/vietddude/catfeed/internal/infra/local"
	redisclient "github.com/vietddude/catfeed/internal/infra/redis"
	"github.com/vietddude/catfeed/internal/infra/remote"
	"github.com/vietddude/catfeed/internal/infra/storage"
	"github.com/vietddude/catfeed/internal/infra/storage/memory"
	"github.com/vietddude/catfeed/internal/infra/storage/postgres"
)

// App owns the feed controller and everything that serves or records it.
type App struct {
	cfg        *config.AppConfig
	controller *feed.Controller
	generator  *local.Generator
	pool       *remote.Pool
	journal    storage.JournalRepository
	recorder   *journal.Recorder
	httpServer *health.Server
	grpcServer *health.GRPCServer
	db         *postgres.DB
	redis      *redisclient.Client
	log        *slog.Logger

	cancel  context.CancelFunc
	group   *errgroup.Group
	done    <-chan struct{}
	httpLis net.Listener
}

// NewApp builds every component. The feed starts ticking immediately.
func NewApp(cfg *config.AppConfig) (*App, error) {
	log := slog.Default().With("component", "app")

	// 1. Local generator
	facts := local.DefaultFacts()
	if cfg.Feed.FactsFile != "" {
		loaded, err := local.LoadFacts(cfg.Feed.FactsFile)
		if err != nil {
			return nil, err
		}
		facts = loaded
	}
	generator, err := local.NewGenerator(facts, cfg.Feed.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to init local generator: %w", err)
	}

	// 2. Remote sources
	pool, err := NewRemotePool(cfg.Remote)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		generator: generator,
		pool:      pool,
		log:       log,
	}

	// 3. Journal
	if err := app.initJournal(); err != nil {
		app.closeBackends()
		return nil, err
	}

	// 4. Feed controller
	app.controller = feed.NewController(
		pool,
		generator,
		domain.MessageRef(cfg.Feed.DefaultError),
		feed.WithObserver(metrics.NewObserver(pool.Name())),
	)

	if app.journal != nil {
		app.recorder = journal.NewRecorder(app.journal, cfg.Journal.Backend, app.controller.ID())
	}

	// 5. Servers
	app.httpServer = health.NewServer(app.controller, pool.Sources(), app.journal, cfg.Server.Port)
	if cfg.Server.GRPCPort > 0 {
		app.grpcServer = health.NewGRPCServer()
	}

	return app, nil
}

// NewRemotePool builds the failover pool from configuration.
func NewRemotePool(cfg config.RemoteConfig) (*remote.Pool, error) {
	sources := make([]remote.Source, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		s, err := remote.NewHTTPSource(e.Name, e.URL, cfg.Timeout, cfg.MaxLength)
		if err != nil {
			return nil, fmt.Errorf("failed to create remote source %s: %w", e.Name, err)
		}
		sources = append(sources, s)
	}
	return remote.NewPool(cfg.Retry, sources...), nil
}

func (a *App) initJournal() error {
	switch a.cfg.Journal.Backend {
	case config.JournalMemory:
		a.journal = memory.NewJournal(a.cfg.Journal.Capacity)
		a.log.Info("Using memory journal", "capacity", a.cfg.Journal.Capacity)

	case config.JournalRedis:
		client, err := redisclient.NewClient(a.cfg.Redis, a.cfg.Journal.Capacity)
		if err != nil {
			return fmt.Errorf("failed to init redis journal: %w", err)
		}
		a.redis = client
		a.journal = client
		a.log.Info("Using redis journal", "key", a.cfg.Redis.Key)

	case config.JournalPostgres:
		db, err := postgres.NewDB(context.Background(), a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		a.journal = postgres.NewJournalRepo(db)
		a.log.Info("Using PostgreSQL journal", "driver", a.cfg.Database.Driver)

	case config.JournalNone:
		a.log.Info("Journal disabled")
	}
	return nil
}

// Controller returns the feed controller.
func (a *App) Controller() *feed.Controller {
	return a.controller
}

// Journal returns the journal, or nil when disabled.
func (a *App) Journal() storage.JournalRepository {
	return a.journal
}

// Start runs the servers and the recorder in the background.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.group = g
	a.done = gctx.Done()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		a.cancel()
		return fmt.Errorf("failed to listen on port %d: %w", a.cfg.Server.Port, err)
	}
	a.httpLis = lis
	a.log.Info("HTTP server listening", "addr", lis.Addr().String())
	g.Go(func() error {
		return a.httpServer.Serve(lis)
	})

	if a.grpcServer != nil {
		glis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.GRPCPort))
		if err != nil {
			a.cancel()
			_ = a.httpServer.Stop(context.Background())
			return fmt.Errorf("failed to listen on grpc port %d: %w", a.cfg.Server.GRPCPort, err)
		}
		a.log.Info("gRPC health server listening", "addr", glis.Addr().String())
		g.Go(func() error {
			return a.grpcServer.Serve(glis)
		})
		g.Go(func() error {
			a.grpcServer.Follow(gctx, a.controller.State())
			return nil
		})
	}

	if a.recorder != nil {
		g.Go(func() error {
			return a.recorder.Run(gctx, a.controller.State())
		})
	}

	if a.db != nil {
		a.db.StartMetricsCollector(gctx)
	}

	if prunable, ok := a.journal.(storage.PrunableJournal); ok && a.cfg.Journal.Retention > 0 {
		pruner := worker.NewPruner(a.cfg.Journal.Retention, prunable)
		g.Go(func() error {
			pruner.Start(gctx)
			return nil
		})
	}

	return nil
}

// Done is closed when a background component fails or Stop is called.
// Stop returns the failure. Nil before Start.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Stop disposes the feed, then shuts the servers down and closes backends.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping catfeed...")

	a.controller.Dispose()
	a.generator.Stop()

	var errs []error
	if a.group != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if a.grpcServer != nil {
			a.grpcServer.Stop()
		}
		a.cancel()
		if err := a.group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}

	a.closeBackends()
	return errors.Join(errs...)
}

func (a *App) closeBackends() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	if err := a.pool.Close(); err != nil {
		a.log.Warn("Failed to close remote sources", "error", err)
	}
}
