// Package main is the KopiO API server: game submission, statistics and the
// leaderboard over REST.
//
// Without DATABASE_URL the server runs on the in-memory store and also runs
// the background jobs itself. With PostgreSQL the jobs belong to cmd/worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/config"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/application/command"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/application/query"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/messaging"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/scheduler"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/KynKind/KopiO-Sustainable-Society-Project/internal/interface/http"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	timeutil.SetLocation(cfg.App.Location)
	log.Info("starting KopiO API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE, CACHE, BROKER
	// ─────────────────────────────────────────────────────────────────────────
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(log)
	defer func() { _ = bus.Close() }()

	eventLog := log.Named("events")
	if err := bus.SubscribeAll(func(_ context.Context, e shared.Event) error {
		eventLog.Debug("domain event",
			logger.String("event_type", string(e.EventType())),
			logger.String("aggregate_id", e.AggregateID()),
		)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to subscribe event log: %w", err)
	}

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(), log, b.publishers(bus, log)...)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	hooks := command.Hooks{
		Publisher: dispatcher,
		Cache:     b.cache,
		Logger:    log.Named("command"),
		Now:       timeutil.Now,
	}
	engine := scoring.NewEngine(cfg.Scoring, b.bank)
	record := command.NewRecordScoreHandler(b.stats, hooks)
	pages := query.NewGetLeaderboardHandler(b.ranking, b.cache, log.Named("query"))
	profiles := query.NewGetProfileHandler(b.users, b.stats, b.ranking)

	deps := httpserver.Dependencies{
		RegisterUser:      command.NewRegisterUserHandler(b.users, cfg.App.BcryptCost, hooks),
		SubmitGameResult:  command.NewSubmitGameResultHandler(engine, record, log.Named("submit")),
		ClaimChallenge:    command.NewClaimChallengeHandler(b.stats, hooks),
		UpdateUserRole:    command.NewUpdateUserRoleHandler(b.users, hooks),
		DeleteUser:        command.NewDeleteUserHandler(b.users, hooks),
		ResetUserPassword: command.NewResetUserPasswordHandler(b.users, cfg.App.BcryptCost, hooks),

		GetLeaderboard:    pages,
		GetTop:            query.NewGetTopHandler(pages),
		SearchLeaderboard: query.NewSearchLeaderboardHandler(b.ranking),
		GetUserRank:       query.NewGetUserRankHandler(b.ranking),
		GetUserStats:      query.NewGetUserStatsHandler(b.stats),
		GetProfile:        profiles,
		GetChallenges:     query.NewGetChallengesHandler(b.stats),
		GetQuizQuestions:  query.NewGetQuizQuestionsHandler(b.bank, cfg.Scoring),
		ListUsers:         query.NewListUsersHandler(b.users),
		GetUserDetails:    query.NewGetUserDetailsHandler(b.users, profiles),
		GetPlatformStats:  query.NewGetPlatformStatsHandler(b.stats),

		Logger:        log,
		HealthChecker: b.health,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. IN-PROCESS JOBS (in-memory store only)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if b.inMemory && cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:     log,
			Location:   cfg.App.Location,
			JobTimeout: cfg.Scheduler.JobTimeout,
		})
		reconcile := jobs.DefaultReconcileTotalsConfig()
		reconcile.MaxAttempts = cfg.Scheduler.ReconcileMaxAttempts
		if err := sched.Register(jobs.NewReconcileTotalsJob(b.stats, b.cache, log, reconcile), cfg.Scheduler.ReconcileSpec); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpConfig(cfg), deps)
	errCh := server.StartAsync()

	log.Info("KopiO API is running", logger.String("http_address", httpConfig(cfg).Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		shutdownErr = err
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", logger.Err(err))
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
		return nil
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func newLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	opts.Format = cfg.Observability.LogFormat
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

func httpConfig(cfg *config.Config) httpserver.Config {
	hc := httpserver.DefaultConfig()
	hc.Host = cfg.HTTP.Host
	hc.Port = cfg.HTTP.Port
	hc.ReadTimeout = cfg.HTTP.ReadTimeout
	hc.WriteTimeout = cfg.HTTP.WriteTimeout
	hc.IdleTimeout = cfg.HTTP.IdleTimeout
	hc.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	hc.AllowedOrigins = cfg.HTTP.AllowedOrigins
	hc.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	hc.RetryAfter = cfg.HTTP.RetryAfter
	hc.Version = cfg.App.Version
	return hc
}
