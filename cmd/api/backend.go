package main

import (
	"context"
	"fmt"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/config"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/messaging"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/memory"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/postgres"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/redis"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/seed"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/interface/http/handlers"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/circuitbreaker"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// backend holds the storage, cache and broker adapters behind the
// application handlers. Optional parts stay nil interfaces when disabled.
type backend struct {
	users   user.Repository
	stats   stats.Store
	ranking leaderboard.Repository
	bank    scoring.QuestionBank

	// inMemory is true when no DATABASE_URL is configured.
	inMemory bool

	cache  leaderboard.PageCache
	broker *messaging.NATSPublisher

	health  *handlers.CompositeHealthChecker
	closers []func()
}

// openBackend connects everything the API needs. Redis and NATS failures
// are logged and the feature is disabled; a database failure is fatal.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	b := &backend{health: handlers.NewCompositeHealthChecker(cfg.App.Version)}

	if err := b.openStore(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	b.openCache(cfg, log)
	b.openBroker(cfg, log)
	return b, nil
}

func (b *backend) openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL is not set, using the in-memory store")
		store := memory.NewStore(memory.WithQuestions(seed.Questions))
		b.users, b.stats, b.ranking, b.bank = store, store, store, store
		b.inMemory = true
		b.health.AddCritical("store", handlers.PingCheck(store))
		return nil
	}

	log.Info("connecting to database...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	b.closers = append(b.closers, func() {
		log.Info("closing database connection...")
		conn.Close()
	})

	bank := postgres.NewQuestionBank(conn)
	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		seeded, err := bank.Seed(ctx, seed.Questions)
		if err != nil {
			return fmt.Errorf("failed to seed quiz questions: %w", err)
		}
		log.Info("database schema is up to date",
			logger.Int("migrations_applied", applied),
			logger.Int("questions_seeded", seeded),
		)
	}

	b.users = postgres.NewUserRepository(conn)
	b.stats = postgres.NewStatsStore(conn)
	b.ranking = postgres.NewLeaderboardRepository(conn)
	b.bank = bank
	b.health.AddCritical("store", handlers.PingCheck(conn))
	log.Info("database connection established")
	return nil
}

func (b *backend) openCache(cfg *config.Config, log *logger.Logger) {
	if !cfg.Redis.Enabled() {
		log.Info("redis is not configured, leaderboard caching disabled")
		return
	}

	log.Info("connecting to Redis...")
	cache, err := redis.NewCache(redisConfig(cfg.Redis))
	if err != nil {
		log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		return
	}
	b.closers = append(b.closers, func() { _ = cache.Close() })

	breaker := circuitbreaker.CacheBreaker(logStateChange(log))
	b.cache = redis.NewGuardedLeaderboardCache(redis.NewLeaderboardCache(cache, cfg.Redis.LeaderboardTTL), breaker)
	b.health.AddOptional("cache", handlers.PingCheck(cache))
	log.Info("Redis connection established")
}

func (b *backend) openBroker(cfg *config.Config, log *logger.Logger) {
	if !cfg.NATS.Enabled() {
		return
	}
	natsCfg := messaging.DefaultNATSConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	natsCfg.Name = cfg.App.Name
	natsCfg.ConnectTimeout = cfg.NATS.ConnectTimeout

	pub, err := messaging.NewNATSPublisher(natsCfg, log)
	if err != nil {
		log.Warn("failed to connect to NATS, event publishing disabled", logger.Err(err))
		return
	}
	b.broker = pub
	b.closers = append(b.closers, func() { _ = pub.Close() })
	b.health.AddOptional("broker", handlers.PingCheck(pub))
	log.Info("NATS connection established", logger.String("url", cfg.NATS.URL))
}

// publishers returns the dispatch targets: the in-process bus always, NATS
// behind a breaker when connected.
func (b *backend) publishers(bus *messaging.InMemoryEventBus, log *logger.Logger) []shared.EventPublisher {
	targets := []shared.EventPublisher{bus}
	if b.broker != nil {
		targets = append(targets, messaging.NewGuardedPublisher(b.broker, circuitbreaker.BrokerBreaker(logStateChange(log))))
	}
	return targets
}

// close releases connections in reverse order of opening.
func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	if c.Host != "" {
		rc.Host = c.Host
	}
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	rc.KeyPrefix = c.KeyPrefix
	rc.PoolSize = c.PoolSize
	rc.DialTimeout = c.DialTimeout
	rc.ReadTimeout = c.ReadTimeout
	rc.WriteTimeout = c.WriteTimeout
	return rc
}

func logStateChange(log *logger.Logger) func(name string, from, to circuitbreaker.State) {
	return func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
}
