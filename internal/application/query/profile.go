package query

import (
	"context"
	"errors"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is the public view of an account.
type UserDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	StudentID   string    `json:"studentId"`
	Faculty     string    `json:"faculty"`
	FacultyName string    `json:"facultyName"`
	Role        string    `json:"role"`
	TotalPoints int       `json:"totalPoints"`
	Streak      int       `json:"currentStreak"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		StudentID:   u.StudentID,
		Faculty:     string(u.Faculty),
		FacultyName: u.Faculty.DisplayName(),
		Role:        string(u.Role),
		TotalPoints: u.TotalPoints,
		Streak:      u.CurrentStreak,
		CreatedAt:   u.CreatedAt,
	}
}

// UserStatsDTO is the per-game rollup of a user.
type UserStatsDTO struct {
	UserID         string      `json:"userId"`
	TotalPoints    int         `json:"totalPoints"`
	GamesPlayed    int         `json:"gamesPlayed"`
	CurrentStreak  int         `json:"currentStreak"`
	LastPlayedDate string      `json:"lastPlayedDate,omitempty"`
	Quiz           stats.Tally `json:"quiz"`
	Memory         stats.Tally `json:"memory"`
	Puzzle         stats.Tally `json:"puzzle"`
	Sorting        stats.Tally `json:"sorting"`
	Bonus          stats.Tally `json:"bonus"`
}

// toUserStatsDTO shows the streak as of now: a missed day has already
// broken it even though the stored counter resets only on the next game.
func toUserStatsDTO(s *stats.UserStats, now time.Time) UserStatsDTO {
	dto := UserStatsDTO{
		UserID:        s.UserID,
		TotalPoints:   s.TotalPoints(),
		GamesPlayed:   s.GamesPlayed(),
		CurrentStreak: s.StreakOn(now),
		Quiz:          s.Quiz,
		Memory:        s.Memory,
		Puzzle:        s.Puzzle,
		Sorting:       s.Sorting,
		Bonus:         s.Bonus,
	}
	if !s.LastPlayedDate.IsZero() {
		dto.LastPlayedDate = timeutil.FormatDate(s.LastPlayedDate)
	}
	return dto
}

// RecordDTO is one score record as shown in history lists.
type RecordDTO struct {
	ID       string    `json:"id"`
	Category string    `json:"gameType"`
	Points   int       `json:"pointsEarned"`
	PlayedAt time.Time `json:"playedAt"`
}

func toRecordDTOs(records []stats.ScoreRecord) []RecordDTO {
	out := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, RecordDTO{ID: r.ID, Category: string(r.Category), Points: r.Points, PlayedAt: r.PlayedAt})
	}
	return out
}

// DayPointsDTO is the activity of one calendar day.
type DayPointsDTO struct {
	Date        string `json:"date"`
	Points      int    `json:"points"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// ══════════════════════════════════════════════════════════════════════════════
// GET USER STATS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserStatsHandler returns the rollup row of a user.
type GetUserStatsHandler struct {
	store stats.Store
	now   func() time.Time
}

// NewGetUserStatsHandler creates a new GetUserStatsHandler.
func NewGetUserStatsHandler(store stats.Store) *GetUserStatsHandler {
	return &GetUserStatsHandler{store: store, now: time.Now}
}

// Handle returns the stats; shared.ErrUserNotFound for an unknown user.
func (h *GetUserStatsHandler) Handle(ctx context.Context, userID string) (*UserStatsDTO, error) {
	s, err := h.store.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserStatsDTO(s, h.now())
	return &dto, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Everything the profile page shows, for one user.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// RecentGamesLimit is the length of the profile's game history.
	RecentGamesLimit = 10

	// ActivityDays is the window of the points-per-day chart.
	ActivityDays = 7
)

// ProfileDTO is the caller's profile page.
type ProfileDTO struct {
	User UserDTO `json:"user"`

	// Rank is nil for accounts that are not ranked (admins).
	GlobalRank  *leaderboard.Rank `json:"globalRank"`
	FacultyRank *leaderboard.Rank `json:"facultyRank"`

	Stats        UserStatsDTO                         `json:"stats"`
	GameSummary  map[stats.Category]stats.GameSummary `json:"gameSummary"`
	RecentGames  []RecordDTO                          `json:"recentGames"`
	Activity     []DayPointsDTO                       `json:"activity"`
	Achievements []stats.Achievement                  `json:"achievements"`
}

// GetProfileHandler builds the profile page.
type GetProfileHandler struct {
	users   user.Repository
	store   stats.Store
	ranking leaderboard.Repository
	now     func() time.Time
}

// NewGetProfileHandler creates a new GetProfileHandler.
func NewGetProfileHandler(users user.Repository, store stats.Store, ranking leaderboard.Repository) *GetProfileHandler {
	return &GetProfileHandler{users: users, store: store, ranking: ranking, now: time.Now}
}

// Handle returns the profile of userID.
func (h *GetProfileHandler) Handle(ctx context.Context, userID string) (*ProfileDTO, error) {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.build(ctx, u, RecentGamesLimit)
}

func (h *GetProfileHandler) build(ctx context.Context, u *user.User, recent int) (*ProfileDTO, error) {
	now := h.now()

	s, err := h.store.GetStats(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	summaries, err := h.store.GameSummaries(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	records, err := h.store.RecentRecords(ctx, u.ID, recent)
	if err != nil {
		return nil, err
	}
	window, err := h.store.RecordsSince(ctx, u.ID, now.Add(-ActivityDays*24*time.Hour))
	if err != nil {
		return nil, err
	}

	profile := &ProfileDTO{
		User:         toUserDTO(u),
		Stats:        toUserStatsDTO(s, now),
		GameSummary:  summaries,
		RecentGames:  toRecordDTOs(records),
		Achievements: stats.Achievements(u.TotalPoints, s.GamesPlayed(), s.CurrentStreak),
	}
	profile.User.Streak = profile.Stats.CurrentStreak
	for _, d := range stats.DailyPoints(window, now, ActivityDays) {
		profile.Activity = append(profile.Activity, DayPointsDTO{
			Date:        timeutil.FormatDate(d.Date),
			Points:      d.Points,
			GamesPlayed: d.GamesPlayed,
		})
	}

	if u.Role.IsRanked() {
		pos, err := h.ranking.Position(ctx, u.ID)
		switch {
		case err == nil:
			profile.GlobalRank = &pos.GlobalRank
			profile.FacultyRank = &pos.FacultyRank
		case !errors.Is(err, shared.ErrNotRanked):
			return nil, err
		}
	}
	return profile, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeDTO describes one daily challenge.
type ChallengeDTO struct {
	ID        stats.Challenge `json:"id"`
	Reward    int             `json:"reward"`
	Completed bool            `json:"completed"`
	Available bool            `json:"available"`
}

// ChallengesDTO is today's challenge board.
type ChallengesDTO struct {
	Date          string         `json:"date"`
	CurrentStreak int            `json:"currentStreak"`
	Challenges    []ChallengeDTO `json:"challenges"`
}

// GetChallengesHandler returns today's challenge progress.
type GetChallengesHandler struct {
	store stats.Store
	now   func() time.Time
}

// NewGetChallengesHandler creates a new GetChallengesHandler.
func NewGetChallengesHandler(store stats.Store) *GetChallengesHandler {
	return &GetChallengesHandler{store: store, now: time.Now}
}

// Handle returns the board for today's calendar date.
func (h *GetChallengesHandler) Handle(ctx context.Context, userID string) (*ChallengesDTO, error) {
	now := h.now()
	s, err := h.store.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	dc, err := h.store.GetDailyChallenge(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	streak := s.StreakOn(now)
	return &ChallengesDTO{
		Date:          timeutil.FormatDate(dc.Date),
		CurrentStreak: streak,
		Challenges: []ChallengeDTO{
			{
				ID:        stats.ChallengeDailyLogin,
				Reward:    stats.ChallengeDailyLogin.Reward(),
				Completed: dc.DailyLoginClaimed,
				Available: !dc.DailyLoginClaimed,
			},
			{
				ID:        stats.ChallengeFirstGame,
				Reward:    stats.ChallengeFirstGame.Reward(),
				Completed: dc.FirstGameClaimed,
			},
			{
				ID:        stats.ChallengeWeeklyStreak,
				Reward:    stats.ChallengeWeeklyStreak.Reward(),
				Completed: dc.WeeklyStreakClaimed,
				Available: dc.WeeklyStreakAvailable(s),
			},
		},
	}, nil
}
