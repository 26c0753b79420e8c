// Package app wires the playground hub: storage, caches, the progress
// engine, the ranking aggregator and the application handlers. Both the HTTP
// server and the operator CLI start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qaplayground/playground-hub/config"
	"github.com/qaplayground/playground-hub/internal/application/command"
	"github.com/qaplayground/playground-hub/internal/application/query"
	"github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	catalogloader "github.com/qaplayground/playground-hub/internal/infrastructure/catalog"
	"github.com/qaplayground/playground-hub/internal/infrastructure/identity"
	"github.com/qaplayground/playground-hub/internal/infrastructure/metrics"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/memory"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/postgres"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/redis"
	"github.com/qaplayground/playground-hub/internal/interface/http/handlers"
	"github.com/qaplayground/playground-hub/pkg/circuitbreaker"
	"github.com/qaplayground/playground-hub/pkg/logger"
	"github.com/qaplayground/playground-hub/pkg/retry"
)

// Store is what the engine and the aggregator need from persistence.
type Store interface {
	progress.Repository
	ranking.StandingsSource
}

// App holds the wired components.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Metrics

	Catalog    *catalog.Catalog
	Store      Store
	Engine     *progress.Engine
	Aggregator *ranking.Aggregator
	Directory  *identity.Directory

	// DB is nil when progress lives in memory.
	DB *postgres.Connection
	// Cache is nil when Redis is disabled or unreachable.
	Cache        *redis.Cache
	RankingCache *redis.RankingCache

	CompleteScenario *command.CompleteScenarioHandler
	ResetProgress    *command.ResetProgressHandler
	SaveProfile      *command.SaveProfileHandler
	GetProgress      *query.GetProgressHandler
	GetProfile       *query.GetProfileHandler
	GetRanking       *query.GetRankingHandler
	ListScenarios    *query.ListScenariosHandler

	closers []func()
}

// Options tweak New.
type Options struct {
	// Now replaces the wall clock of the reset policy.
	Now progress.Clock

	// SkipCache never dials Redis.
	SkipCache bool

	// SkipMigrations leaves the schema alone even when AutoMigrate is set.
	SkipMigrations bool
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	if cfg.Observability.LogFormat == string(logger.FormatConsole) {
		opts.Format = logger.FormatConsole
	}
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// New wires every component. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	if err := a.setup(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup(ctx context.Context, opts Options) error {
	cfg := a.Config

	// ─────────────────────────────────────────────────────────────────────────
	// 1. CATALOG
	// ─────────────────────────────────────────────────────────────────────────
	cat, err := catalogloader.Load(cfg.Progress.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.Catalog = cat
	a.Log.Info("catalog loaded",
		logger.Int("scenarios", cat.Len()),
		logger.Int("total_possible_xp", cat.TotalPossibleXP()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. PROGRESS STORE
	// ─────────────────────────────────────────────────────────────────────────
	var overlay identity.ProfileStore
	if cfg.UsesDatabase() {
		if err := a.openDatabase(ctx, opts); err != nil {
			return err
		}
		if cfg.Progress.ProfileOverlay {
			overlay = postgres.NewProfileRepository(a.DB)
		}
	} else {
		a.Log.Warn("DATABASE_URL not set, progress is kept in memory")
		a.Store = memory.NewProgressStore()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. RANKING CACHE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Redis.Disabled && !opts.SkipCache {
		a.openCache(ctx)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	a.Directory, err = identity.NewDirectory(identity.SeedUsers(), overlay, a.Log)
	if err != nil {
		return fmt.Errorf("failed to build identity directory: %w", err)
	}

	policy := progress.NewResetPolicy(cfg.Progress.Location, opts.Now)
	a.Engine = progress.NewEngine(a.Store, cat.XPTable(), policy)
	a.Aggregator = ranking.NewAggregator(a.Store)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	retrier := retry.New(
		retry.WithMaxAttempts(cfg.Progress.RetryMaxAttempts),
		retry.WithInitialDelay(cfg.Progress.RetryInitialDelay),
		retry.WithMaxDelay(cfg.Progress.RetryMaxDelay),
		retry.WithRetryIf(shared.IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			a.Log.Warn("retrying progress store operation",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)

	cmdOpts := []command.Option{
		command.WithRetrier(retrier),
		command.WithRecorder(a.Metrics),
		command.WithLogger(a.Log),
	}
	queryOpts := []query.Option{
		query.WithRecorder(a.Metrics),
		query.WithLogger(a.Log),
	}
	var rankingCache query.RankingCache
	if a.RankingCache != nil {
		cmdOpts = append(cmdOpts, command.WithInvalidator(a.RankingCache))
		queryOpts = append(queryOpts, query.WithInvalidator(a.RankingCache))
		rankingCache = a.RankingCache
	}

	a.CompleteScenario = command.NewCompleteScenarioHandler(a.Engine, cat, cmdOpts...)
	a.ResetProgress = command.NewResetProgressHandler(a.Engine, cmdOpts...)
	a.SaveProfile = command.NewSaveProfileHandler(a.Directory, cmdOpts...)
	a.GetProgress = query.NewGetProgressHandler(a.Engine, queryOpts...)
	a.GetProfile = query.NewGetProfileHandler(a.Directory, queryOpts...)
	a.GetRanking = query.NewGetRankingHandler(a.Aggregator, a.Directory, rankingCache, queryOpts...)
	a.ListScenarios = query.NewListScenariosHandler(cat)

	return nil
}

func (a *App) openDatabase(ctx context.Context, opts Options) error {
	cfg := a.Config

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	a.Log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = conn
	a.closers = append(a.closers, conn.Close)

	if cfg.Database.AutoMigrate && !opts.SkipMigrations {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.Log.Info("migrations completed", logger.Int("applied", len(applied)))
	}

	breaker := circuitbreaker.New("progress-store",
		circuitbreaker.WithFailureThreshold(cfg.Progress.BreakerThreshold),
		circuitbreaker.WithSuccessThreshold(1),
		circuitbreaker.WithCooldown(cfg.Progress.BreakerCooldown),
		circuitbreaker.WithMaxProbes(1),
		circuitbreaker.WithIsFailure(postgres.IsStoreFailure),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			a.Log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			a.Metrics.SetBreakerState(name, int(to))
		}),
	)
	a.Store = postgres.NewProgressStore(conn, breaker)
	a.Log.Info("database connection established")
	return nil
}

// openCache connects to Redis. Failure leaves the ranking uncached.
func (a *App) openCache(ctx context.Context) {
	cfg := a.Config.Redis

	rcfg := redis.DefaultConfig()
	rcfg.URL = cfg.URL
	rcfg.Addr = cfg.Addr()
	rcfg.Password = cfg.Password
	rcfg.DB = cfg.DB
	rcfg.PoolSize = cfg.PoolSize
	rcfg.MinIdleConns = cfg.MinIdleConns
	rcfg.DialTimeout = cfg.DialTimeout
	rcfg.ReadTimeout = cfg.ReadTimeout
	rcfg.WriteTimeout = cfg.WriteTimeout

	cache, err := redis.NewCache(ctx, rcfg)
	if err != nil {
		a.Log.Warn("failed to connect to Redis, ranking cache disabled", logger.Err(err))
		return
	}
	a.Cache = cache
	a.RankingCache = redis.NewRankingCache(cache, cfg.RankingTTL)
	a.closers = append(a.closers, func() { _ = cache.Close() })
	a.Log.Info("Redis connection established")
}

// HealthChecker returns readiness checks for the opened backends.
func (a *App) HealthChecker() handlers.HealthChecker {
	hc := handlers.NewCompositeHealthChecker(a.Config.App.Version)
	if a.DB != nil {
		hc.AddCheck("database", handlers.NewDatabaseCheck(a.DB))
	}
	if a.Cache != nil {
		hc.AddCheck("cache", handlers.NewCacheCheck(a.Cache))
	}
	return hc
}

// Migrate applies pending migrations on the configured database.
func (a *App) Migrate(ctx context.Context) ([]int, error) {
	if a.DB == nil {
		return nil, errors.New("no database configured")
	}
	return postgres.NewMigrator(a.DB).Migrate(ctx)
}

// MigrationStatus lists known migrations with their applied state.
func (a *App) MigrationStatus(ctx context.Context) ([]postgres.Migration, error) {
	if a.DB == nil {
		return nil, errors.New("no database configured")
	}
	return postgres.NewMigrator(a.DB).Status(ctx)
}

// RollbackMigration reverts the latest applied migration.
func (a *App) RollbackMigration(ctx context.Context) (int, error) {
	if a.DB == nil {
		return 0, errors.New("no database configured")
	}
	return postgres.NewMigrator(a.DB).Rollback(ctx)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
