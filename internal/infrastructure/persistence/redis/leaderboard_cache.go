package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.PageCache.
//
// Pages are stored under keys that embed a generation counter. Invalidate
// bumps the counter with INCR, so every previously cached page becomes
// unreachable in O(1) and simply expires with its TTL. SetPage writes into
// the generation the caller read, so a page computed before an Invalidate
// lands in a generation nobody reads any more.
type LeaderboardCache struct {
	cache counterStore
	ttl   time.Duration
}

// counterStore is the subset of *Cache the leaderboard cache needs.
type counterStore interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetInt64(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// NewLeaderboardCache creates a new LeaderboardCache. ttl <= 0 uses
// TTLLeaderboardCache.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cached representation
// ─────────────────────────────────────────────────────────────────────────────

// cachedEntry keeps the registration time that leaderboard.Entry hides
// from its public JSON. The streak is stored as committed; readers
// recompute it from LastPlayedDate.
type cachedEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Faculty        string    `json:"faculty"`
	TotalPoints    int       `json:"total_points"`
	CurrentStreak  int       `json:"current_streak"`
	LastPlayedDate string    `json:"last_played_date,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type cachedPage struct {
	Entries  []cachedEntry `json:"entries"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func toCachedPage(p *leaderboard.Page) cachedPage {
	out := cachedPage{
		Entries:  make([]cachedEntry, 0, len(p.Entries)),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for _, e := range p.Entries {
		out.Entries = append(out.Entries, cachedEntry{
			Rank:           int(e.Rank),
			UserID:         e.UserID,
			FirstName:      e.FirstName,
			LastName:       e.LastName,
			Faculty:        string(e.Faculty),
			TotalPoints:    e.TotalPoints,
			CurrentStreak:  e.CurrentStreak,
			LastPlayedDate: e.LastPlayedDate,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}

func (c cachedPage) toDomain() *leaderboard.Page {
	p := &leaderboard.Page{
		Entries:  make([]leaderboard.Entry, 0, len(c.Entries)),
		Total:    c.Total,
		Page:     c.Page,
		PageSize: c.PageSize,
	}
	for _, e := range c.Entries {
		p.Entries = append(p.Entries, leaderboard.Entry{
			Rank:           leaderboard.Rank(e.Rank),
			UserID:         e.UserID,
			FirstName:      e.FirstName,
			LastName:       e.LastName,
			Faculty:        user.Faculty(e.Faculty),
			TotalPoints:    e.TotalPoints,
			CurrentStreak:  e.CurrentStreak,
			LastPlayedDate: e.LastPlayedDate,
			CreatedAt:      e.CreatedAt,
		})
	}
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// Keys
// ─────────────────────────────────────────────────────────────────────────────

// generationKey returns the key of the invalidation counter.
func (l *LeaderboardCache) generationKey() string {
	return l.cache.Key(PrefixLeaderboard + "generation")
}

// pageKey returns the key of one page in one generation, e.g.
// "kopio:leaderboard:g7:FCI:2:20".
func (l *LeaderboardCache) pageKey(generation leaderboard.Generation, q leaderboard.Query) string {
	scope := "all"
	if q.Faculty != "" {
		scope = string(q.Faculty)
	}
	return l.cache.Key(PrefixLeaderboard+"g"+strconv.FormatInt(int64(generation), 10), scope,
		strconv.Itoa(q.Page), strconv.Itoa(q.PageSize))
}

// ─────────────────────────────────────────────────────────────────────────────
// leaderboard.PageCache
// ─────────────────────────────────────────────────────────────────────────────

// GetPage returns the cached page for q in the current generation and the
// generation itself.
func (l *LeaderboardCache) GetPage(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, leaderboard.Generation, error) {
	n, err := l.cache.GetInt64(ctx, l.generationKey())
	if err != nil {
		return nil, 0, err
	}
	gen := leaderboard.Generation(n)

	var cp cachedPage
	if err := l.cache.Get(ctx, l.pageKey(gen, q), &cp); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, gen, nil
		}
		return nil, gen, err
	}
	return cp.toDomain(), gen, nil
}

// SetPage stores p for q in generation gen.
func (l *LeaderboardCache) SetPage(ctx context.Context, q leaderboard.Query, gen leaderboard.Generation, p *leaderboard.Page) error {
	if p == nil {
		return ErrCacheNilValue
	}
	return l.cache.Set(ctx, l.pageKey(gen, q), toCachedPage(p), l.ttl)
}

// Invalidate makes every cached page stale.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	_, err := l.cache.Incr(ctx, l.generationKey())
	return err
}

var _ leaderboard.PageCache = (*LeaderboardCache)(nil)
