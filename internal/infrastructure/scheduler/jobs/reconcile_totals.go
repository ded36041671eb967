// Package jobs contains the scheduled maintenance jobs of KopiO.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE TOTALS JOB
// ══════════════════════════════════════════════════════════════════════════════

// Reconciler rebuilds rollups from the score record log.
type Reconciler interface {
	ReconcileTotals(ctx context.Context) (int, error)
}

// CacheInvalidator drops cached leaderboard pages.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ReconcileTotalsJob recomputes every user's per-game tallies and total
// points from the record log and repairs drifted rows. When anything was
// corrected the leaderboard cache is invalidated.
type ReconcileTotalsJob struct {
	store  Reconciler
	cache  CacheInvalidator
	logger *logger.Logger
	config ReconcileTotalsConfig

	lastStats atomic.Pointer[ReconcileStats]
}

// ReconcileTotalsConfig contains configuration for the reconcile job.
type ReconcileTotalsConfig struct {
	// MaxAttempts is how often a StoreUnavailable failure is retried.
	MaxAttempts int

	// InitialDelay is the first backoff delay.
	InitialDelay time.Duration
}

// DefaultReconcileTotalsConfig returns sensible defaults.
func DefaultReconcileTotalsConfig() ReconcileTotalsConfig {
	return ReconcileTotalsConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
	}
}

// ReconcileStats contains statistics from a reconcile run.
type ReconcileStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Attempts    int
	Corrected   int
}

// NewReconcileTotalsJob creates a new reconcile job. cache may be nil.
func NewReconcileTotalsJob(store Reconciler, cache CacheInvalidator, log *logger.Logger, config ReconcileTotalsConfig) *ReconcileTotalsJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultReconcileTotalsConfig().MaxAttempts
	}
	return &ReconcileTotalsJob{
		store:  store,
		cache:  cache,
		logger: log.Named("reconcile_totals"),
		config: config,
	}
}

// Name returns the job name.
func (j *ReconcileTotalsJob) Name() string {
	return "reconcile_totals"
}

// Description returns a human-readable description.
func (j *ReconcileTotalsJob) Description() string {
	return "Rebuilds per-game tallies and total points from score records"
}

// Run executes the reconcile job.
func (j *ReconcileTotalsJob) Run(ctx context.Context) error {
	stats := &ReconcileStats{StartedAt: time.Now()}

	corrected, err := retry.DoWithData(ctx, func(ctx context.Context) (int, error) {
		stats.Attempts++
		return j.store.ReconcileTotals(ctx)
	},
		retry.WithMaxAttempts(j.config.MaxAttempts),
		retry.WithInitialDelay(j.config.InitialDelay),
		retry.WithRetryIf(shared.IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			j.logger.Warn("reconcile attempt failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("reconcile totals: %w", err)
	}
	stats.Corrected = corrected

	if corrected > 0 && j.cache != nil {
		if err := j.cache.Invalidate(ctx); err != nil {
			j.logger.Warn("leaderboard cache invalidation failed", logger.Err(err))
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("reconcile_totals job completed",
		logger.Int("corrected", corrected),
		logger.Int("attempts", stats.Attempts),
		logger.Duration("duration", stats.Duration),
	)
	return nil
}

// LastStats returns statistics of the last successful run, or nil.
func (j *ReconcileTotalsJob) LastStats() *ReconcileStats {
	return j.lastStats.Load()
}
