package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/memory"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/infrastructure/persistence/seed"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

var (
	joined = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	today  = time.Date(2025, time.March, 10, 15, 0, 0, 0, timeutil.Location())
)

func addUser(t *testing.T, s *memory.Store, id, first string, role user.Role, f user.Faculty, order int) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &user.User{
		ID:        id,
		Email:     id + "@student.mmu.edu.my",
		FirstName: first,
		LastName:  "Tan",
		StudentID: "S-" + id,
		Faculty:   f,
		Role:      role,
		CreatedAt: joined.Add(time.Duration(order) * time.Hour),
	}))
}

func play(t *testing.T, s *memory.Store, userID string, c stats.Category, points int, at time.Time) {
	t.Helper()
	key := fmt.Sprintf("%s-%s-%d-%d", userID, c, points, at.UnixNano())
	_, err := s.RecordScore(context.Background(), stats.ScoreRecord{
		ID: key, UserID: userID, Category: c, Points: points, PlayedAt: at, IdempotencyKey: key,
	})
	require.NoError(t, err)
}

// seedCampus creates three students in two faculties and one admin.
//
//	alice FCI 300, bob FOE 300 (registered later), carol FCI 100, admin 999,
//	each plus the first game bonus
func seedCampus(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore(memory.WithQuestions(seed.Questions))
	addUser(t, s, "alice", "Alice", user.RoleStudent, user.FacultyComputing, 0)
	addUser(t, s, "bob", "Bob", user.RoleStudent, user.FacultyEngineering, 1)
	addUser(t, s, "carol", "Carol", user.RoleStudent, user.FacultyComputing, 2)
	addUser(t, s, "root", "Admin", user.RoleAdmin, user.FacultyLaw, 3)

	play(t, s, "alice", stats.CategoryQuiz, 300, today.Add(-2*time.Hour))
	play(t, s, "bob", stats.CategoryMemory, 300, today.Add(-3*time.Hour))
	play(t, s, "carol", stats.CategorySorting, 100, today.Add(-4*time.Hour))
	play(t, s, "root", stats.CategoryPuzzle, 999, today.Add(-5*time.Hour))
	return s
}

type genKey struct {
	gen leaderboard.Generation
	q   leaderboard.Query
}

type mapCache struct {
	pages  map[genKey]*leaderboard.Page
	gen    leaderboard.Generation
	hits   int
	failOn bool
}

func newMapCache() *mapCache {
	return &mapCache{pages: make(map[genKey]*leaderboard.Page)}
}

func (c *mapCache) GetPage(_ context.Context, q leaderboard.Query) (*leaderboard.Page, leaderboard.Generation, error) {
	if c.failOn {
		return nil, 0, errors.New("cache down")
	}
	p, ok := c.pages[genKey{c.gen, q}]
	if ok {
		c.hits++
	}
	return p, c.gen, nil
}

func (c *mapCache) SetPage(_ context.Context, q leaderboard.Query, gen leaderboard.Generation, p *leaderboard.Page) error {
	if c.failOn {
		return errors.New("cache down")
	}
	c.pages[genKey{gen, q}] = p
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

// writeDuringRead plays a score and invalidates the cache right after the
// first store read, the way a concurrent submission would.
type writeDuringRead struct {
	*memory.Store
	t     *testing.T
	cache *mapCache
	done  bool
}

func (w *writeDuringRead) Page(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error) {
	page, err := w.Store.Page(ctx, q)
	if err == nil && !w.done {
		w.done = true
		play(w.t, w.Store, "carol", stats.CategoryQuiz, 500, today)
		require.NoError(w.t, w.cache.Invalidate(ctx))
	}
	return page, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard
// ─────────────────────────────────────────────────────────────────────────────

func TestGetLeaderboard_GlobalOrderAndTieBreak(t *testing.T) {
	s := seedCampus(t)
	h := NewGetLeaderboardHandler(s, nil, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3, "admins are not ranked")
	assert.Equal(t, "alice", res.Entries[0].UserID)
	assert.Equal(t, "bob", res.Entries[1].UserID)
	assert.Equal(t, "carol", res.Entries[2].UserID)
	assert.Equal(t, leaderboard.Rank(2), res.Entries[1].Rank)
	assert.Equal(t, 3, res.Total)
	assert.False(t, res.HasMore)
	assert.Equal(t, leaderboard.DefaultPageSize, res.PageSize)
}

func TestGetLeaderboard_FacultyAndPaging(t *testing.T) {
	s := seedCampus(t)
	h := NewGetLeaderboardHandler(s, nil, nil)
	ctx := context.Background()

	res, err := h.Handle(ctx, GetLeaderboardQuery{Faculty: "FCI", PageSize: "1", Page: "2"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "carol", res.Entries[0].UserID)
	assert.Equal(t, leaderboard.Rank(2), res.Entries[0].Rank, "faculty pages rank within the faculty")
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "FCI", res.Faculty)

	res, err = h.Handle(ctx, GetLeaderboardQuery{Faculty: "Underwater Basket Weaving"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.NotNil(t, res.Entries)

	res, err = h.Handle(ctx, GetLeaderboardQuery{PageSize: "1000"})
	require.NoError(t, err)
	assert.Equal(t, leaderboard.MaxPageSize, res.PageSize)

	_, err = h.Handle(ctx, GetLeaderboardQuery{Page: "0"})
	assert.True(t, shared.IsInvalidQuery(err))
	_, err = h.Handle(ctx, GetLeaderboardQuery{Page: "two"})
	assert.True(t, shared.IsInvalidQuery(err))
}

func TestGetLeaderboard_ReadThroughCache(t *testing.T) {
	s := seedCampus(t)
	cache := newMapCache()
	h := NewGetLeaderboardHandler(s, cache, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	second, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)

	// A write followed by invalidation is visible on the next read.
	play(t, s, "carol", stats.CategoryQuiz, 500, today)
	require.NoError(t, cache.Invalidate(ctx))
	third, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, "carol", third.Entries[0].UserID)
}

func TestGetLeaderboard_PageReadBeforeWriteIsNotCachedAsCurrent(t *testing.T) {
	s := seedCampus(t)
	cache := newMapCache()
	repo := &writeDuringRead{Store: s, t: t, cache: cache}
	h := NewGetLeaderboardHandler(repo, cache, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Entries[0].UserID, "read before the write committed")

	second, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, "carol", second.Entries[0].UserID)
	assert.Zero(t, cache.hits)
}

func TestGetLeaderboard_CacheFailureFallsBackToStore(t *testing.T) {
	s := seedCampus(t)
	cache := newMapCache()
	cache.failOn = true
	h := NewGetLeaderboardHandler(s, cache, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
}

func TestGetTop(t *testing.T) {
	s := seedCampus(t)
	h := NewGetTopHandler(NewGetLeaderboardHandler(s, nil, nil))

	top, err := h.Handle(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, top, leaderboard.DefaultTopN)

	top, err = h.Handle(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].UserID)
}

func TestSearchLeaderboard(t *testing.T) {
	s := seedCampus(t)
	h := NewSearchLeaderboardHandler(s)
	ctx := context.Background()

	res, err := h.Handle(ctx, "  CAROL ")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, leaderboard.Rank(3), res[0].Rank)

	res, err = h.Handle(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = h.Handle(ctx, "   ")
	assert.True(t, shared.IsInvalidQuery(err))
}

func TestGetUserRank(t *testing.T) {
	s := seedCampus(t)
	h := NewGetUserRankHandler(s)
	ctx := context.Background()

	pos, err := h.Handle(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.Rank(3), pos.GlobalRank)
	assert.Equal(t, leaderboard.Rank(2), pos.FacultyRank)
	assert.Equal(t, 3, pos.Total)

	_, err = h.Handle(ctx, "root")
	assert.ErrorIs(t, err, shared.ErrNotRanked)
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestLeaderboard_StreakBrokenByMissedDay(t *testing.T) {
	s := seedCampus(t)
	addUser(t, s, "dave", "Dave", user.RoleStudent, user.FacultyComputing, 4)
	play(t, s, "dave", stats.CategoryQuiz, 400, today.Add(-48*time.Hour))
	play(t, s, "dave", stats.CategoryQuiz, 400, today.Add(-24*time.Hour))
	ctx := context.Background()

	clock := today
	now := func() time.Time { return clock }
	cache := newMapCache()
	pages := NewGetLeaderboardHandler(s, cache, nil)
	pages.now = now
	search := NewSearchLeaderboardHandler(s)
	search.now = now
	rank := NewGetUserRankHandler(s)
	rank.now = now

	res, err := pages.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	require.Equal(t, "dave", res.Entries[0].UserID)
	assert.Equal(t, 2, res.Entries[0].CurrentStreak, "played yesterday")
	assert.Equal(t, "2025-03-09", res.Entries[0].LastPlayedDate)

	clock = today.Add(24 * time.Hour)

	res, err = pages.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "served from the page cached yesterday")
	assert.Zero(t, res.Entries[0].CurrentStreak)

	top, err := NewGetTopHandler(pages).Handle(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, top[0].CurrentStreak)

	found, err := search.Handle(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Zero(t, found[0].CurrentStreak)

	pos, err := rank.Handle(ctx, "dave")
	require.NoError(t, err)
	assert.Zero(t, pos.Entry.CurrentStreak)
}

func TestUserStats_StreakBrokenByMissedDay(t *testing.T) {
	s := seedCampus(t)
	play(t, s, "carol", stats.CategorySorting, 50, today.Add(24*time.Hour))

	h := NewGetUserStatsHandler(s)
	h.now = func() time.Time { return today.Add(24 * time.Hour) }
	dto, err := h.Handle(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, dto.CurrentStreak)

	h.now = func() time.Time { return today.Add(72 * time.Hour) }
	dto, err = h.Handle(context.Background(), "carol")
	require.NoError(t, err)
	assert.Zero(t, dto.CurrentStreak)

	p := NewGetProfileHandler(s, s, s)
	p.now = h.now
	profile, err := p.Handle(context.Background(), "carol")
	require.NoError(t, err)
	assert.Zero(t, profile.Stats.CurrentStreak)
	assert.Zero(t, profile.User.Streak)
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats, profile, challenges
// ─────────────────────────────────────────────────────────────────────────────

func TestGetUserStats(t *testing.T) {
	s := seedCampus(t)
	play(t, s, "alice", stats.CategoryMemory, 80, today.Add(-time.Hour))

	dto, err := NewGetUserStatsHandler(s).Handle(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 300+80+stats.FirstGameReward, dto.TotalPoints)
	assert.Equal(t, 2, dto.GamesPlayed)
	assert.Equal(t, stats.Tally{Count: 1, Points: 300}, dto.Quiz)
	assert.Equal(t, "2025-03-10", dto.LastPlayedDate)

	_, err = NewGetUserStatsHandler(s).Handle(context.Background(), "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestGetProfile(t *testing.T) {
	s := seedCampus(t)
	play(t, s, "carol", stats.CategorySorting, 50, today.Add(-24*time.Hour))
	play(t, s, "carol", stats.CategorySorting, 30, today.Add(-9*24*time.Hour))

	h := NewGetProfileHandler(s, s, s)
	h.now = func() time.Time { return today }

	p, err := h.Handle(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, "Faculty of Computing & Informatics (FCI)", p.User.FacultyName)
	require.NotNil(t, p.GlobalRank)
	assert.Equal(t, leaderboard.Rank(3), *p.GlobalRank)
	assert.Equal(t, leaderboard.Rank(2), *p.FacultyRank)

	require.Len(t, p.Activity, ActivityDays)
	assert.Equal(t, "2025-03-10", p.Activity[6].Date)
	assert.Equal(t, 100+stats.FirstGameReward, p.Activity[6].Points)
	assert.Equal(t, 50+stats.FirstGameReward, p.Activity[5].Points)

	assert.Len(t, p.RecentGames, 6, "three games and their first game bonuses")
	assert.Equal(t, stats.GameSummary{Count: 3, Best: 100, Average: 60}, p.GameSummary[stats.CategorySorting])
	require.Len(t, p.Achievements, 5)
	assert.Len(t, stats.Unlocked(p.Achievements), 1, "only First Steps")
}

func TestGetProfile_AdminHasNoRank(t *testing.T) {
	s := seedCampus(t)
	p, err := NewGetProfileHandler(s, s, s).Handle(context.Background(), "root")
	require.NoError(t, err)
	assert.Nil(t, p.GlobalRank)
	assert.Equal(t, "admin", p.User.Role)
}

func TestGetChallenges(t *testing.T) {
	s := seedCampus(t)
	h := NewGetChallengesHandler(s)
	h.now = func() time.Time { return today }
	ctx := context.Background()

	board, err := h.Handle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", board.Date)
	require.Len(t, board.Challenges, 3)
	assert.True(t, board.Challenges[0].Available)
	assert.False(t, board.Challenges[2].Available)

	_, err = s.ClaimChallenge(ctx, "b1", "alice", stats.ChallengeDailyLogin, today)
	require.NoError(t, err)
	board, err = h.Handle(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, board.Challenges[0].Completed)
	assert.False(t, board.Challenges[0].Available)
}

// ─────────────────────────────────────────────────────────────────────────────
// Quiz
// ─────────────────────────────────────────────────────────────────────────────

func TestGetQuizQuestions(t *testing.T) {
	s := memory.NewStore(memory.WithQuestions(seed.Questions))
	h := NewGetQuizQuestionsHandler(s, scoring.DefaultConfig())

	round, err := h.Handle(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, round.Questions, 5)
	assert.Equal(t, 60, round.TimeLimitSeconds)

	seen := make(map[int64]bool)
	for _, q := range round.Questions {
		assert.False(t, seen[q.ID], "questions are distinct")
		seen[q.ID] = true
	}

	round, err = h.Handle(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, round.Questions, len(seed.Questions))
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin
// ─────────────────────────────────────────────────────────────────────────────

func TestListUsers(t *testing.T) {
	s := seedCampus(t)
	h := NewListUsersHandler(s)
	ctx := context.Background()

	list, err := h.Handle(ctx, ListUsersQuery{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, list.Total)
	require.Len(t, list.Users, 2)
	assert.Equal(t, "root", list.Users[0].ID, "newest first")

	list, err = h.Handle(ctx, ListUsersQuery{Role: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	_, err = h.Handle(ctx, ListUsersQuery{Role: "teacher"})
	assert.True(t, shared.IsInvalidQuery(err))
}

func TestGetUserDetails(t *testing.T) {
	s := seedCampus(t)
	for i := 0; i < 25; i++ {
		play(t, s, "bob", stats.CategoryQuiz, 10, today.Add(-time.Duration(i+10)*time.Minute))
	}
	h := NewGetUserDetailsHandler(s, NewGetProfileHandler(s, s, s))

	d, err := h.Handle(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, d.RecentGames, DetailRecordsLimit)

	_, err = h.Handle(context.Background(), "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestGetPlatformStats(t *testing.T) {
	s := seedCampus(t)
	h := NewGetPlatformStatsHandler(s)
	h.now = func() time.Time { return today }

	dto, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, dto.TotalStudents)
	assert.Equal(t, 1, dto.TotalAdmins)
	assert.Equal(t, 760, dto.TotalPoints)
	assert.Equal(t, 4, dto.TotalGames)
	assert.Equal(t, 1, dto.GamesByType[stats.CategoryPuzzle])
	assert.InDelta(t, 253.333, dto.AveragePointsPerStudent, 0.001)
	assert.Equal(t, 4, dto.ActiveUsers, "admin activity counts too")
	assert.Equal(t, 0, dto.RecentSignups)

	require.Len(t, dto.TopFaculties, 2)
	assert.Equal(t, "FCI", dto.TopFaculties[0].Faculty)
	assert.Equal(t, 440, dto.TopFaculties[0].Points)
}
