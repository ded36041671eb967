// Package main is the KopiO background worker.
//
// The worker keeps derived data honest and fast:
//   - reconcile_totals rebuilds per-game tallies and total points from the
//     score record log and invalidates the leaderboard cache on drift;
//   - warm_leaderboard pre-loads the first leaderboard pages into Redis.
//
// Several workers may run side by side; a Redis lock keeps each job on one
// instance per tick. Run with -once to execute every job a single time and exit.
//
// Schema maintenance:
//
//	worker -migrate-status   list migrations and when they were applied
//	worker -rollback         revert the last applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/config"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/application/query"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/postgres"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/redis"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/scheduler"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/scheduler/jobs"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

// options are the command line flags.
type options struct {
	once          bool
	migrateStatus bool
	rollback      bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.once, "once", false, "run every job once and exit")
	flag.BoolVar(&opts.migrateStatus, "migrate-status", false, "print the migration status and exit")
	flag.BoolVar(&opts.rollback, "rollback", false, "revert the last applied migration and exit")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required: the worker shares state with the API through PostgreSQL")
	}

	logOpts := logger.DefaultOptions()
	logOpts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	logOpts.Format = cfg.Observability.LogFormat
	log := logger.New(logOpts).With(logger.String("service", cfg.App.Name+"-worker"))
	defer func() { _ = log.Sync() }()

	timeutil.SetLocation(cfg.App.Location)
	log.Info("starting KopiO worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		conn.Close()
	}()

	migrator := postgres.NewMigrator(conn)
	switch {
	case opts.migrateStatus:
		return printMigrationStatus(ctx, migrator, log)
	case opts.rollback:
		return rollbackMigration(ctx, migrator, log)
	}

	if cfg.Database.AutoMigrate {
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	statsStore := postgres.NewStatsStore(conn)
	ranking := postgres.NewLeaderboardRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (cache and job locks, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		pageCache leaderboard.PageCache
		locker    scheduler.Locker
	)
	if cfg.Redis.Enabled() {
		rc := redis.DefaultConfig()
		rc.URL = cfg.Redis.URL
		if cfg.Redis.Host != "" {
			rc.Host = cfg.Redis.Host
		}
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.KeyPrefix = cfg.Redis.KeyPrefix

		cache, err := redis.NewCache(rc)
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache and locks", logger.Err(err))
		} else {
			defer func() { _ = cache.Close() }()
			pageCache = redis.NewLeaderboardCache(cache, cfg.Redis.LeaderboardTTL)
			host, _ := os.Hostname()
			locker = redis.NewLocker(cache, host+"-"+uuid.NewString()[:8])
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:     log,
		Location:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
		Locker:     locker,
		LockTTL:    cfg.Scheduler.LockTTL,
	})

	reconcileCfg := jobs.DefaultReconcileTotalsConfig()
	reconcileCfg.MaxAttempts = cfg.Scheduler.ReconcileMaxAttempts
	reconcile := jobs.NewReconcileTotalsJob(statsStore, pageCache, log, reconcileCfg)
	if err := sched.Register(reconcile, cfg.Scheduler.ReconcileSpec); err != nil {
		return fmt.Errorf("failed to register %s: %w", reconcile.Name(), err)
	}

	// Warming only pays off with a cache to warm.
	if pageCache != nil {
		warmCfg := jobs.DefaultWarmLeaderboardConfig()
		warmCfg.Pages = cfg.Scheduler.WarmPages
		pages := query.NewGetLeaderboardHandler(ranking, pageCache, log.Named("query"))
		warm := jobs.NewWarmLeaderboardJob(pages, log, warmCfg)
		if err := sched.Register(warm, cfg.Scheduler.WarmSpec); err != nil {
			return fmt.Errorf("failed to register %s: %w", warm.Name(), err)
		}
	}

	if opts.once {
		var failed error
		for _, info := range sched.ListJobs() {
			result, err := sched.RunNow(ctx, info.Name)
			switch {
			case err != nil:
				failed = errors.Join(failed, err)
			case result.Skipped:
				log.Info("job skipped, another instance holds the lock", logger.String("job", info.Name))
			}
		}
		return failed
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled (SCHEDULER_ENABLED=false), nothing to do")
		return nil
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("KopiO worker is running", logger.Int("jobs", len(sched.ListJobs())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", logger.Err(err))
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEMA COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func printMigrationStatus(ctx context.Context, m *postgres.Migrator, log *logger.Logger) error {
	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, mig := range status {
		fields := []logger.Field{
			logger.Int("version", mig.Version),
			logger.String("name", mig.Name),
			logger.Bool("applied", mig.IsApplied),
		}
		if mig.IsApplied {
			fields = append(fields, logger.Time("applied_at", mig.AppliedAt))
		}
		log.Info("migration", fields...)
	}
	return nil
}

func rollbackMigration(ctx context.Context, m *postgres.Migrator, log *logger.Logger) error {
	mig, err := m.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	if mig == nil {
		log.Info("no applied migrations, nothing to roll back")
		return nil
	}
	log.Warn("migration rolled back", logger.Int("version", mig.Version), logger.String("name", mig.Name))
	return nil
}
