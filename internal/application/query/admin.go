package query

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN QUERIES
// The caller is authorized as admin by the interface layer.
// ══════════════════════════════════════════════════════════════════════════════

// ─────────────────────────────────────────────────────────────────────────────
// List users
// ─────────────────────────────────────────────────────────────────────────────

// ListUsersQuery pages through all accounts, newest first.
type ListUsersQuery struct {
	Page     int
	PageSize int

	// Role filters by role; empty lists everyone.
	Role string
}

// UserListDTO is one page of accounts.
type UserListDTO struct {
	Users    []UserDTO `json:"users"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// ListUsersHandler handles the ListUsersQuery.
type ListUsersHandler struct {
	users user.Repository
}

// NewListUsersHandler creates a new ListUsersHandler.
func NewListUsersHandler(users user.Repository) *ListUsersHandler {
	return &ListUsersHandler{users: users}
}

// Handle returns a page of users.
func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (*UserListDTO, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return nil, shared.InvalidQuery("query", "ListUsers", "page must be at least 1")
	}
	if q.PageSize <= 0 {
		q.PageSize = user.DefaultListOptions().Limit
	}
	q.PageSize = min(q.PageSize, leaderboard.MaxPageSize)

	opts := user.ListOptions{Offset: (q.Page - 1) * q.PageSize, Limit: q.PageSize}
	if role := strings.TrimSpace(q.Role); role != "" {
		opts.Role = user.Role(strings.ToLower(role))
		if !opts.Role.IsValid() {
			return nil, shared.InvalidQuery("query", "ListUsers", "unknown role %q", q.Role)
		}
	}

	users, total, err := h.users.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := &UserListDTO{Users: make([]UserDTO, 0, len(users)), Total: total, Page: q.Page, PageSize: q.PageSize}
	for _, u := range users {
		out.Users = append(out.Users, toUserDTO(u))
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// User details
// ─────────────────────────────────────────────────────────────────────────────

// DetailRecordsLimit is the history length on the admin user page.
const DetailRecordsLimit = 20

// GetUserDetailsHandler returns a user's profile with a longer history.
type GetUserDetailsHandler struct {
	users    user.Repository
	profiles *GetProfileHandler
}

// NewGetUserDetailsHandler creates a new GetUserDetailsHandler.
func NewGetUserDetailsHandler(users user.Repository, profiles *GetProfileHandler) *GetUserDetailsHandler {
	return &GetUserDetailsHandler{users: users, profiles: profiles}
}

// Handle returns the details of userID.
func (h *GetUserDetailsHandler) Handle(ctx context.Context, userID string) (*ProfileDTO, error) {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.profiles.build(ctx, u, DetailRecordsLimit)
}

// ─────────────────────────────────────────────────────────────────────────────
// Platform stats
// ─────────────────────────────────────────────────────────────────────────────

const (
	// RecentWindow bounds "recent signups" and "active users".
	RecentWindow = 7 * 24 * time.Hour

	// TopFacultiesLimit is the length of the faculty table.
	TopFacultiesLimit = 5
)

// FacultyPointsDTO is one row of the faculty table.
type FacultyPointsDTO struct {
	Faculty string `json:"faculty"`
	Name    string `json:"name"`
	Points  int    `json:"points"`
}

// PlatformStatsDTO is the admin dashboard.
type PlatformStatsDTO struct {
	TotalStudents           int                    `json:"totalStudents"`
	TotalAdmins             int                    `json:"totalAdmins"`
	TotalPoints             int                    `json:"totalPoints"`
	TotalGames              int                    `json:"totalGames"`
	GamesByType             map[stats.Category]int `json:"gamesByType"`
	AveragePointsPerStudent float64                `json:"averagePointsPerStudent"`
	RecentSignups           int                    `json:"recentSignups"`
	ActiveUsers             int                    `json:"activeUsers"`
	TopFaculties            []FacultyPointsDTO     `json:"topFaculties"`
}

// GetPlatformStatsHandler builds the admin dashboard.
type GetPlatformStatsHandler struct {
	store stats.Store
	now   func() time.Time
}

// NewGetPlatformStatsHandler creates a new GetPlatformStatsHandler.
func NewGetPlatformStatsHandler(store stats.Store) *GetPlatformStatsHandler {
	return &GetPlatformStatsHandler{store: store, now: time.Now}
}

// Handle returns the platform statistics.
func (h *GetPlatformStatsHandler) Handle(ctx context.Context) (*PlatformStatsDTO, error) {
	totals, err := h.store.PlatformTotals(ctx, h.now().Add(-RecentWindow))
	if err != nil {
		return nil, err
	}

	games := make(map[stats.Category]int, 4)
	for _, c := range stats.AllCategories() {
		if c.IsGame() {
			games[c] = totals.GamesByType[c]
		}
	}

	return &PlatformStatsDTO{
		TotalStudents:           totals.Students,
		TotalAdmins:             totals.Admins,
		TotalPoints:             totals.TotalPoints,
		TotalGames:              totals.TotalGames,
		GamesByType:             games,
		AveragePointsPerStudent: math.Round(totals.AveragePointsPerStudent()*10) / 10,
		RecentSignups:           totals.RecentSignups,
		ActiveUsers:             totals.ActiveUsers,
		TopFaculties:            topFaculties(totals.FacultyPoints, TopFacultiesLimit),
	}, nil
}

// topFaculties sorts by points descending, then by code.
func topFaculties(points map[string]int, limit int) []FacultyPointsDTO {
	rows := make([]FacultyPointsDTO, 0, len(points))
	for code, p := range points {
		rows = append(rows, FacultyPointsDTO{Faculty: code, Name: user.Faculty(code).DisplayName(), Points: p})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Faculty < rows[j].Faculty
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
