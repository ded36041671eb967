package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/application/command"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/application/query"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports every dependency. It answers 503 only when a critical
// dependency (the result store) is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	StudentID string `json:"studentId"`
	Faculty   string `json:"faculty"`
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		StudentID: req.StudentID,
		Faculty:   req.Faculty,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"userId":  res.UserID,
		"email":   res.Email,
		"faculty": res.Faculty,
		"role":    res.Role,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GAME HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleQuizQuestions handles GET /api/v1/games/quiz/questions?count=
func (s *Server) handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	count, err := getQueryParamInt(r, "count", 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	res, err := s.deps.GetQuizQuestions.Handle(r.Context(), count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// IdempotencyHeader may carry the submission token instead of the body.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyField = "idempotencyKey"

type submitResponse struct {
	Award          *scoring.Award `json:"award"`
	Recorded       bool           `json:"recorded"`
	RecordID       string         `json:"recordId,omitempty"`
	TotalPoints    int            `json:"totalPoints,omitempty"`
	CurrentStreak  int            `json:"currentStreak,omitempty"`
	FirstGameBonus int            `json:"firstGameBonus,omitempty"`
}

// handleSubmitGame handles POST /api/v1/games/{gameType}/submit
// Answers 201 when a record was written and 200 for acknowledged puzzle
// sub-levels that score nothing.
func (s *Server) handleSubmitGame(w http.ResponseWriter, r *http.Request) {
	id, _ := handlers.IdentityFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body cannot be read")
		return
	}
	payload, key, err := splitIdempotencyKey(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	}

	res, err := s.deps.SubmitGameResult.Handle(r.Context(), command.SubmitGameResultCommand{
		UserID:         id.UserID,
		GameType:       r.PathValue("gameType"),
		Payload:        payload,
		IdempotencyKey: key,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := submitResponse{Award: res.Award, Recorded: res.Recorded}
	status := http.StatusOK
	if res.Recorded && res.Record != nil {
		status = http.StatusCreated
		resp.RecordID = res.Record.RecordID
		resp.TotalPoints = res.Record.TotalPoints
		resp.CurrentStreak = res.Record.CurrentStreak
		resp.FirstGameBonus = res.Record.FirstGameBonus
	}
	writeJSON(w, r, status, resp)
}

// splitIdempotencyKey removes the token from a submission body so the game
// decoder, which rejects unknown fields, sees only the game payload.
func splitIdempotencyKey(body []byte) (json.RawMessage, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, "", errNotObject
	}
	raw, ok := fields[idempotencyField]
	if !ok {
		return body, "", nil
	}
	var key string
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, "", errKeyNotString
	}
	delete(fields, idempotencyField)
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, "", err
	}
	return payload, strings.TrimSpace(key), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard?page=&pageSize=&faculty=
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	res, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Page:     params.Get("page"),
		PageSize: params.Get("pageSize"),
		Faculty:  params.Get("faculty"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{
		TotalCount: res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		HasMore:    res.HasMore,
	})
}

// handleGetTop handles GET /api/v1/leaderboard/top?n=
func (s *Server) handleGetTop(w http.ResponseWriter, r *http.Request) {
	n, err := getQueryParamInt(r, "n", 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	entries, err := s.deps.GetTop.Handle(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// handleSearchLeaderboard handles GET /api/v1/leaderboard/search?q=
func (s *Server) handleSearchLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.SearchLeaderboard.Handle(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// handleGetUserRank handles GET /api/v1/users/{id}/rank
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	pos, err := s.deps.GetUserRank.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pos)
}

// handleGetUserStats handles GET /api/v1/users/{id}/stats
func (s *Server) handleGetUserStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetUserStats.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE & CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProfile handles GET /api/v1/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := handlers.IdentityFromContext(r.Context())
	res, err := s.deps.GetProfile.Handle(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetChallenges handles GET /api/v1/challenges
func (s *Server) handleGetChallenges(w http.ResponseWriter, r *http.Request) {
	id, _ := handlers.IdentityFromContext(r.Context())
	res, err := s.deps.GetChallenges.Handle(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleClaimDailyLogin handles POST /api/v1/challenges/daily-login
func (s *Server) handleClaimDailyLogin(w http.ResponseWriter, r *http.Request) {
	s.claimChallenge(w, r, stats.ChallengeDailyLogin)
}

// handleClaimWeeklyStreak handles POST /api/v1/challenges/weekly-streak
func (s *Server) handleClaimWeeklyStreak(w http.ResponseWriter, r *http.Request) {
	s.claimChallenge(w, r, stats.ChallengeWeeklyStreak)
}

func (s *Server) claimChallenge(w http.ResponseWriter, r *http.Request, c stats.Challenge) {
	id, _ := handlers.IdentityFromContext(r.Context())
	res, err := s.deps.ClaimChallenge.Handle(r.Context(), command.ClaimChallengeCommand{
		UserID:    id.UserID,
		Challenge: c,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"challenge":   res.Challenge,
		"points":      res.Points,
		"totalPoints": res.TotalPoints,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListUsers handles GET /api/v1/admin/users?page=&pageSize=&role=
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := getQueryParamInt(r, "page", 1)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	pageSize, err := getQueryParamInt(r, "pageSize", 20)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	res, err := s.deps.ListUsers.Handle(r.Context(), query.ListUsersQuery{
		Page:     page,
		PageSize: pageSize,
		Role:     r.URL.Query().Get("role"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{
		TotalCount: res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		HasMore:    res.Page*res.PageSize < res.Total,
	})
}

// handleGetUserDetails handles GET /api/v1/admin/users/{id}
func (s *Server) handleGetUserDetails(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetUserDetails.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleUpdateUserRole handles PUT /api/v1/admin/users/{id}/role
func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	actor, _ := handlers.IdentityFromContext(r.Context())
	cmd := command.UpdateUserRoleCommand{
		ActorID: actor.UserID,
		UserID:  r.PathValue("id"),
		Role:    user.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	}
	if err := s.deps.UpdateUserRole.Handle(r.Context(), cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"userId": cmd.UserID, "role": cmd.Role})
}

// handleResetUserPassword handles PUT /api/v1/admin/users/{id}/password
func (s *Server) handleResetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	actor, _ := handlers.IdentityFromContext(r.Context())
	cmd := command.ResetUserPasswordCommand{
		ActorID:     actor.UserID,
		UserID:      r.PathValue("id"),
		NewPassword: req.Password,
	}
	if err := s.deps.ResetUserPassword.Handle(r.Context(), cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"userId": cmd.UserID})
}

// handleDeleteUser handles DELETE /api/v1/admin/users/{id}
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := handlers.IdentityFromContext(r.Context())
	cmd := command.DeleteUserCommand{ActorID: actor.UserID, UserID: r.PathValue("id")}
	if err := s.deps.DeleteUser.Handle(r.Context(), cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": cmd.UserID})
}

// handlePlatformStats handles GET /api/v1/admin/stats
func (s *Server) handlePlatformStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetPlatformStats.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes the request body into v and answers 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "request body must be a JSON object")
		return false
	}
	return true
}

var (
	errNotObject    = shared.InvalidSubmission("http", "SubmitGame", "game result must be a JSON object")
	errKeyNotString = shared.InvalidSubmission("http", "SubmitGame", "%s must be a string", idempotencyField)
)
