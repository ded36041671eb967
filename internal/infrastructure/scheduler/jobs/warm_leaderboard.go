package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// PageLoader loads a leaderboard page through the read-through cache.
type PageLoader interface {
	Page(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error)
}

// WarmLeaderboardJob pre-loads the first pages of the global and faculty
// leaderboards so that requests after an invalidation hit a warm cache.
type WarmLeaderboardJob struct {
	pages  PageLoader
	logger *logger.Logger
	config WarmLeaderboardConfig
}

// WarmLeaderboardConfig contains configuration for the warm-up job.
type WarmLeaderboardConfig struct {
	// Pages is the number of leading pages to load per scope.
	Pages int

	// PageSize is the page size clients request most.
	PageSize int

	// IncludeFaculties also warms the per-faculty leaderboards.
	IncludeFaculties bool
}

// DefaultWarmLeaderboardConfig returns sensible defaults.
func DefaultWarmLeaderboardConfig() WarmLeaderboardConfig {
	return WarmLeaderboardConfig{
		Pages:            1,
		PageSize:         leaderboard.DefaultPageSize,
		IncludeFaculties: true,
	}
}

// NewWarmLeaderboardJob creates a new warm-up job.
func NewWarmLeaderboardJob(pages PageLoader, log *logger.Logger, config WarmLeaderboardConfig) *WarmLeaderboardJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.Pages <= 0 {
		config.Pages = 1
	}
	return &WarmLeaderboardJob{
		pages:  pages,
		logger: log.Named("warm_leaderboard"),
		config: config,
	}
}

// Name returns the job name.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description returns a human-readable description.
func (j *WarmLeaderboardJob) Description() string {
	return "Loads the leading leaderboard pages into the cache"
}

// Queries returns the page queries the job loads.
func (j *WarmLeaderboardJob) Queries() []leaderboard.Query {
	scopes := []string{""}
	if j.config.IncludeFaculties {
		for _, f := range user.AllFaculties() {
			scopes = append(scopes, string(f))
		}
	}

	out := make([]leaderboard.Query, 0, len(scopes)*j.config.Pages)
	for _, scope := range scopes {
		for page := 1; page <= j.config.Pages; page++ {
			q, err := leaderboard.NewQuery(page, j.config.PageSize, scope)
			if err != nil {
				continue
			}
			out = append(out, q)
		}
	}
	return out
}

// Run executes the warm-up job. A failing page does not stop the others.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	warmed, failed := 0, 0

	for _, q := range j.Queries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := j.pages.Page(ctx, q); err != nil {
			failed++
			j.logger.Warn("failed to warm leaderboard page",
				logger.String("faculty", string(q.Faculty)),
				logger.Int("page", q.Page),
				logger.Err(err),
			)
			continue
		}
		warmed++
	}

	j.logger.Info("warm_leaderboard job completed",
		logger.Int("warmed", warmed),
		logger.Int("failed", failed),
		logger.Duration("duration", time.Since(startedAt)),
	)
	if failed > 0 {
		return fmt.Errorf("warm completed with %d errors", failed)
	}
	return nil
}
