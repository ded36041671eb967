package redis

import (
	"context"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/circuitbreaker"
)

// GuardedLeaderboardCache puts a circuit breaker in front of a page cache.
// While it is open, reads miss with an error and the caller falls back to
// the store. Invalidations rejected while open are bounded by the page TTL.
type GuardedLeaderboardCache struct {
	next    leaderboard.PageCache
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedLeaderboardCache wraps next with breaker.
func NewGuardedLeaderboardCache(next leaderboard.PageCache, breaker *circuitbreaker.CircuitBreaker) *GuardedLeaderboardCache {
	return &GuardedLeaderboardCache{next: next, breaker: breaker}
}

// GetPage implements leaderboard.PageCache.
func (g *GuardedLeaderboardCache) GetPage(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, leaderboard.Generation, error) {
	var (
		page *leaderboard.Page
		gen  leaderboard.Generation
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		page, gen, err = g.next.GetPage(ctx, q)
		return err
	})
	return page, gen, err
}

// SetPage implements leaderboard.PageCache.
func (g *GuardedLeaderboardCache) SetPage(ctx context.Context, q leaderboard.Query, gen leaderboard.Generation, p *leaderboard.Page) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.SetPage(ctx, q, gen, p)
	})
}

// Invalidate implements leaderboard.PageCache.
func (g *GuardedLeaderboardCache) Invalidate(ctx context.Context) error {
	return g.breaker.Execute(ctx, g.next.Invalidate)
}

var _ leaderboard.PageCache = (*GuardedLeaderboardCache)(nil)
