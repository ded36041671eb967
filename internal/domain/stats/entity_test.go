package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// day returns noon campus time on the given day of March 2025.
func day(d int) time.Time {
	return time.Date(2025, time.March, d, 12, 0, 0, 0, timeutil.Location())
}

func game(c Category, points int, at time.Time) ScoreRecord {
	return ScoreRecord{ID: "r", UserID: "u1", Category: c, Points: points, PlayedAt: at, IdempotencyKey: "k"}
}

func TestApply_StreakLaw(t *testing.T) {
	s := NewUserStats("u1")

	require.NoError(t, s.Apply(game(CategoryQuiz, 30, day(1))))
	assert.Equal(t, 1, s.CurrentStreak)

	require.NoError(t, s.Apply(game(CategoryMemory, 80, day(1).Add(3*time.Hour))))
	assert.Equal(t, 1, s.CurrentStreak, "same day leaves the streak unchanged")

	require.NoError(t, s.Apply(game(CategorySorting, 20, day(2))))
	assert.Equal(t, 2, s.CurrentStreak, "consecutive day increments by one")

	require.NoError(t, s.Apply(game(CategoryPuzzle, 55, day(5))))
	assert.Equal(t, 1, s.CurrentStreak, "gap resets to one")
	assert.Equal(t, timeutil.DateOf(day(5)), s.LastPlayedDate)
}

func TestApply_LocalMidnightBoundary(t *testing.T) {
	s := NewUserStats("u1")
	late := time.Date(2025, time.March, 1, 23, 59, 0, 0, timeutil.Location())

	require.NoError(t, s.Apply(game(CategoryQuiz, 10, late)))
	require.NoError(t, s.Apply(game(CategoryQuiz, 10, late.Add(2*time.Minute))))

	assert.Equal(t, 2, s.CurrentStreak)
}

func TestApply_BonusDoesNotTouchStreak(t *testing.T) {
	s := NewUserStats("u1")
	require.NoError(t, s.Apply(game(CategoryQuiz, 10, day(1))))
	require.NoError(t, s.Apply(game(CategoryBonus, 10, day(2))))

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, timeutil.DateOf(day(1)), s.LastPlayedDate)
	assert.Equal(t, Tally{Count: 1, Points: 10}, s.Bonus)
	assert.Equal(t, 1, s.GamesPlayed())
}

func TestApply_TotalsMatchRecordSum(t *testing.T) {
	records := []ScoreRecord{
		game(CategoryQuiz, 40, day(1)),
		game(CategoryMemory, 80, day(1)),
		game(CategoryBonus, 20, day(1)),
		game(CategorySorting, 0, day(2)),
		game(CategoryPuzzle, 55, day(3)),
	}
	s := NewUserStats("u1")
	sum := 0
	for _, r := range records {
		require.NoError(t, s.Apply(r))
		sum += r.Points
	}

	assert.Equal(t, sum, s.TotalPoints())
	assert.True(t, SameTallies(s, Rebuild("u1", records)))
	assert.Equal(t, Tally{Count: 1, Points: 0}, s.Sorting)
}

func TestApply_UnknownCategory(t *testing.T) {
	s := NewUserStats("u1")
	err := s.Apply(game(Category("chess"), 10, day(1)))
	assert.True(t, shared.IsInvalidSubmission(err))
}

func TestStreakOn(t *testing.T) {
	s := NewUserStats("u1")
	assert.Equal(t, 0, s.StreakOn(day(1)))

	for d := 1; d <= 7; d++ {
		require.NoError(t, s.Apply(game(CategoryQuiz, 10, day(d))))
	}
	assert.Equal(t, 7, s.StreakOn(day(7)))
	assert.Equal(t, 7, s.StreakOn(day(8)))
	assert.Equal(t, 0, s.StreakOn(day(9)))
}

func TestScoreRecord_Validate(t *testing.T) {
	ok := game(CategoryQuiz, 10, day(1))
	require.NoError(t, ok.Validate())

	bad := []func(r *ScoreRecord){
		func(r *ScoreRecord) { r.ID = "" },
		func(r *ScoreRecord) { r.UserID = "" },
		func(r *ScoreRecord) { r.Category = "" },
		func(r *ScoreRecord) { r.Points = -1 },
		func(r *ScoreRecord) { r.PlayedAt = time.Time{} },
		func(r *ScoreRecord) { r.IdempotencyKey = "" },
	}
	for i, mutate := range bad {
		r := ok
		mutate(&r)
		assert.True(t, shared.IsInvalidSubmission(r.Validate()), "case %d", i)
	}
}

func TestDailyChallenge_Claim(t *testing.T) {
	s := NewUserStats("u1")
	d := NewDailyChallenge("u1", day(3))

	require.NoError(t, d.Claim(ChallengeDailyLogin, s))
	assert.True(t, shared.IsInvalidSubmission(d.Claim(ChallengeDailyLogin, s)))

	assert.True(t, shared.IsInvalidSubmission(d.Claim(ChallengeFirstGame, s)), "no game played yet")
	d.GamePlayed = true
	require.NoError(t, d.Claim(ChallengeFirstGame, s))
	assert.True(t, shared.IsInvalidSubmission(d.Claim(ChallengeFirstGame, s)))

	assert.True(t, shared.IsInvalidSubmission(d.Claim(Challenge("marathon"), s)))
}

func TestDailyChallenge_WeeklyStreak(t *testing.T) {
	s := NewUserStats("u1")
	for d := 1; d <= 6; d++ {
		require.NoError(t, s.Apply(game(CategoryQuiz, 10, day(d))))
	}
	dc := NewDailyChallenge("u1", day(6))
	assert.False(t, dc.WeeklyStreakAvailable(s))
	assert.True(t, shared.IsInvalidSubmission(dc.Claim(ChallengeWeeklyStreak, s)))

	require.NoError(t, s.Apply(game(CategoryQuiz, 10, day(7))))
	dc = NewDailyChallenge("u1", day(7))
	assert.True(t, dc.WeeklyStreakAvailable(s))
	require.NoError(t, dc.Claim(ChallengeWeeklyStreak, s))
	assert.True(t, shared.IsInvalidSubmission(dc.Claim(ChallengeWeeklyStreak, s)))
}

func TestBonusRecord(t *testing.T) {
	r := BonusRecord("id-1", "u1", ChallengeWeeklyStreak, day(7))

	require.NoError(t, r.Validate())
	assert.Equal(t, CategoryBonus, r.Category)
	assert.Equal(t, 100, r.Points)
	assert.Equal(t, "challenge:weekly_streak:2025-03-07", r.IdempotencyKey)
	assert.JSONEq(t, `{"challenge":"weekly_streak"}`, string(r.Details))
}

func TestAchievements(t *testing.T) {
	all := Achievements(600, 1, 7)
	require.Len(t, all, 5)

	names := make([]string, 0)
	for _, a := range Unlocked(all) {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"First Steps", "Eco Warrior", "Weekly Warrior"}, names)
	assert.Empty(t, Unlocked(Achievements(0, 0, 0)))
}

func TestDailyPoints(t *testing.T) {
	records := []ScoreRecord{
		game(CategoryQuiz, 30, day(6)),
		game(CategoryBonus, 10, day(6)),
		game(CategoryMemory, 80, day(7)),
		game(CategoryMemory, 80, day(1)),
	}
	points := DailyPoints(records, day(7), 7)

	require.Len(t, points, 7)
	assert.Equal(t, timeutil.DateOf(day(1)), points[0].Date)
	assert.Equal(t, 80, points[0].Points)
	assert.Equal(t, DayPoints{Date: timeutil.DateOf(day(6)), Points: 40, GamesPlayed: 1}, points[5])
	assert.Equal(t, 80, points[6].Points)
	assert.Zero(t, points[3].Points)
}
