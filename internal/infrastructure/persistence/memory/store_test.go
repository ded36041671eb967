package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

var joined = time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)

func addUser(t *testing.T, s *Store, id string, role user.Role, f user.Faculty, offset time.Duration) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &user.User{
		ID:        id,
		Email:     id + "@student.mmu.edu.my",
		FirstName: "Student",
		LastName:  id,
		StudentID: "S-" + id,
		Faculty:   f,
		Role:      role,
		CreatedAt: joined.Add(offset),
	}))
}

func record(userID, key string, c stats.Category, points int, at time.Time) stats.ScoreRecord {
	return stats.ScoreRecord{ID: key, UserID: userID, Category: c, Points: points, PlayedAt: at, IdempotencyKey: key}
}

func TestStore_RecordScore_UpdatesRollups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)

	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, timeutil.Location())
	out, err := s.RecordScore(ctx, record("u1", "k1", stats.CategoryMemory, 80, at))
	require.NoError(t, err)
	assert.Equal(t, 80+stats.FirstGameReward, out.TotalPoints)
	assert.True(t, out.FirstGameToday)
	require.NotNil(t, out.Bonus)
	assert.Equal(t, "k1:first_game", out.Bonus.ID)
	assert.Equal(t, 1, out.Stats.CurrentStreak)

	out, err = s.RecordScore(ctx, record("u1", "k2", stats.CategoryQuiz, 40, at.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, out.FirstGameToday)
	assert.Nil(t, out.Bonus)

	st, err := s.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stats.Tally{Count: 1, Points: 80}, st.Memory)
	assert.Equal(t, stats.Tally{Count: 1, Points: 20}, st.Bonus)

	dc, err := s.GetDailyChallenge(ctx, "u1", at)
	require.NoError(t, err)
	assert.True(t, dc.FirstGameClaimed)

	u, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 140, u.TotalPoints)
	assert.Equal(t, st.TotalPoints(), u.TotalPoints)
}

func TestStore_RecordScore_Rejects(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)
	at := time.Now()

	_, err := s.RecordScore(ctx, record("u1", "k1", stats.CategoryQuiz, 10, at))
	require.NoError(t, err)

	_, err = s.RecordScore(ctx, record("u1", "k1", stats.CategoryQuiz, 10, at))
	assert.ErrorIs(t, err, shared.ErrDuplicateSubmission)
	assert.True(t, shared.IsInvalidSubmission(err))

	_, err = s.RecordScore(ctx, record("ghost", "k1", stats.CategoryQuiz, 10, at))
	assert.True(t, shared.IsNotFound(err))

	u, _ := s.GetByID(ctx, "u1")
	assert.Equal(t, 10+stats.FirstGameReward, u.TotalPoints, "rejected submissions leave totals untouched")
}

func TestStore_ConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every key is sent twice; only one of each pair may be credited.
			key := fmt.Sprintf("k%d", i%25)
			_, _ = s.RecordScore(ctx, record("u1", key, stats.CategorySorting, 20, time.Now()))
		}(i)
	}
	wg.Wait()

	u, _ := s.GetByID(ctx, "u1")
	assert.Equal(t, 25*20+stats.FirstGameReward, u.TotalPoints)
}

func TestStore_ClaimChallenge(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)
	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, timeutil.Location())

	out, err := s.ClaimChallenge(ctx, "b1", "u1", stats.ChallengeDailyLogin, now)
	require.NoError(t, err)
	assert.Equal(t, stats.DailyLoginReward, out.TotalPoints)
	assert.Equal(t, 0, out.Stats.CurrentStreak, "bonus never starts a streak")

	_, err = s.ClaimChallenge(ctx, "b2", "u1", stats.ChallengeDailyLogin, now.Add(time.Hour))
	assert.True(t, shared.IsInvalidSubmission(err))

	_, err = s.ClaimChallenge(ctx, "b3", "u1", stats.ChallengeFirstGame, now)
	assert.True(t, shared.IsInvalidSubmission(err), "requires a game first")

	out, err = s.RecordScore(ctx, record("u1", "g1", stats.CategoryQuiz, 30, now))
	require.NoError(t, err)
	assert.Equal(t, 60, out.TotalPoints, "the game credits the first game bonus itself")
	_, err = s.ClaimChallenge(ctx, "b4", "u1", stats.ChallengeFirstGame, now)
	assert.True(t, shared.IsInvalidSubmission(err), "already credited")

	dc, err := s.GetDailyChallenge(ctx, "u1", now)
	require.NoError(t, err)
	assert.True(t, dc.DailyLoginClaimed)
	assert.True(t, dc.GamePlayed)
	assert.True(t, dc.FirstGameClaimed)
	assert.False(t, dc.WeeklyStreakClaimed)

	st, _ := s.GetStats(ctx, "u1")
	assert.Equal(t, stats.Tally{Count: 2, Points: 30}, st.Bonus)
}

func TestStore_ReconcileTotals(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)
	addUser(t, s, "u2", user.RoleStudent, user.FacultyLaw, time.Minute)
	_, err := s.RecordScore(ctx, record("u1", "k1", stats.CategoryQuiz, 40, time.Now()))
	require.NoError(t, err)

	s.users["u1"].TotalPoints = 999
	s.stats["u1"].Quiz.Points = 7

	fixed, err := s.ReconcileTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	u, _ := s.GetByID(ctx, "u1")
	assert.Equal(t, 40+stats.FirstGameReward, u.TotalPoints)

	fixed, err = s.ReconcileTotals(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestStore_Leaderboard(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "early", user.RoleStudent, user.FacultyComputing, 0)
	addUser(t, s, "late", user.RoleStudent, user.FacultyLaw, time.Hour)
	addUser(t, s, "boss", user.RoleAdmin, user.FacultyLaw, 2*time.Hour)
	addUser(t, s, "top", user.RoleStudent, user.FacultyLaw, 3*time.Hour)

	_, err := s.RecordScore(ctx, record("early", "a", stats.CategoryQuiz, 50, time.Now()))
	require.NoError(t, err)
	_, err = s.RecordScore(ctx, record("late", "a", stats.CategoryQuiz, 50, time.Now()))
	require.NoError(t, err)
	_, err = s.RecordScore(ctx, record("top", "a", stats.CategoryMemory, 80, time.Now()))
	require.NoError(t, err)
	_, err = s.RecordScore(ctx, record("boss", "a", stats.CategoryMemory, 500, time.Now()))
	require.NoError(t, err)

	q, _ := leaderboard.NewQuery(1, 10, "")
	page, err := s.Page(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3, "admins are not ranked")
	assert.Equal(t, []string{"top", "early", "late"},
		[]string{page.Entries[0].UserID, page.Entries[1].UserID, page.Entries[2].UserID})

	again, err := s.Page(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, page, again)

	pos, err := s.Position(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.Rank(3), pos.GlobalRank)
	assert.Equal(t, leaderboard.Rank(2), pos.FacultyRank)

	_, err = s.Position(ctx, "boss")
	assert.ErrorIs(t, err, shared.ErrNotRanked)
	_, err = s.Position(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	found, err := s.Search(ctx, "LATE@student", leaderboard.SearchLimit)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, leaderboard.Rank(3), found[0].Rank)
}

func TestStore_UsersAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "a", user.RoleStudent, user.FacultyComputing, 0)
	addUser(t, s, "b", user.RoleAdmin, user.FacultyLaw, time.Hour)

	err := s.Create(ctx, &user.User{ID: "c", Email: "A@STUDENT.MMU.EDU.MY", StudentID: "S-x"})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)
	err = s.Create(ctx, &user.User{ID: "c", Email: "c@mmu.edu.my", StudentID: "S-a"})
	assert.ErrorIs(t, err, shared.ErrStudentIDTaken)

	users, total, err := s.List(ctx, user.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "b", users[0].ID, "newest first")

	_, total, err = s.List(ctx, user.ListOptions{Limit: 10, Role: user.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.NoError(t, s.UpdateRole(ctx, "a", user.RoleAdmin))
	u, _ := s.GetByEmail(ctx, "a@student.mmu.edu.my")
	assert.Equal(t, user.RoleAdmin, u.Role)

	_, err = s.RecordScore(ctx, record("a", "k", stats.CategoryQuiz, 10, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.GetStats(ctx, "a")
	assert.True(t, shared.IsNotFound(err))
	recs, err := s.RecentRecords(ctx, "a", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.True(t, shared.IsNotFound(s.Delete(ctx, "a")))
}

func TestStore_QuestionBank(t *testing.T) {
	ctx := context.Background()
	bank := []scoring.Question{{ID: 1, CorrectOption: 2}, {ID: 2}, {ID: 3}}
	s := NewStore(WithQuestions(bank))

	key, err := s.AnswerKey(ctx, []int64{1, 3, 42})
	require.NoError(t, err)
	assert.Len(t, key, 2)
	assert.Equal(t, 2, key[1].CorrectOption)

	sample, err := s.Sample(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, sample, 3)

	sample, err = s.Sample(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
}

func TestStore_ProfileReads(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addUser(t, s, "u1", user.RoleStudent, user.FacultyComputing, 0)
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, timeutil.Location())

	for i, p := range []int{30, 50, 40} {
		_, err := s.RecordScore(ctx, record("u1", fmt.Sprintf("q%d", i), stats.CategoryQuiz, p, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := s.ClaimChallenge(ctx, "b", "u1", stats.ChallengeDailyLogin, base)
	require.NoError(t, err)

	summaries, err := s.GameSummaries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stats.GameSummary{Count: 3, Best: 50, Average: 40}, summaries[stats.CategoryQuiz])
	_, hasBonus := summaries[stats.CategoryBonus]
	assert.False(t, hasBonus)

	recent, err := s.RecentRecords(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 40, recent[0].Points)

	since, err := s.RecordsSince(ctx, "u1", base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, since, 1)

	totals, err := s.PlatformTotals(ctx, base.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Students)
	assert.Equal(t, 150, totals.TotalPoints)
	assert.Equal(t, 3, totals.TotalGames)
	assert.Equal(t, 1, totals.ActiveUsers)
	assert.Equal(t, 150, totals.FacultyPoints["FCI"])
}
