package command

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SCORE COMMAND
// Appends one score record, plus the first game bonus of the day, and updates
// the user's rollups in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// RecordScoreCommand contains an already computed award.
type RecordScoreCommand struct {
	// UserID is the owner of the record.
	UserID string

	// GameType is the game that produced the points.
	GameType scoring.GameType

	// Points is the award, never negative.
	Points int

	// PlayedAt defaults to now.
	PlayedAt time.Time

	// Details is stored verbatim with the record.
	Details json.RawMessage

	// IdempotencyKey is the client token of the submission.
	IdempotencyKey string
}

// Validate validates the command.
func (c RecordScoreCommand) Validate() error {
	if c.UserID == "" {
		return shared.InvalidSubmission("command", "RecordScore", "user id is required")
	}
	if !c.GameType.IsValid() {
		return shared.InvalidSubmission("command", "RecordScore", "unknown game type %q", c.GameType)
	}
	if c.Points < 0 {
		return shared.InvalidSubmission("command", "RecordScore", "points must not be negative")
	}
	if stats.IsReservedKey(c.IdempotencyKey) {
		return shared.InvalidSubmission("command", "RecordScore", "idempotency key must not start with %q", stats.ReservedKeyPrefix)
	}
	return nil
}

// RecordScoreResult contains the committed totals.
type RecordScoreResult struct {
	// RecordID is the id of the new score record.
	RecordID string

	// TotalPoints is the user's total after the record and any first-game bonus.
	TotalPoints int

	// CurrentStreak is the streak after the record.
	CurrentStreak int

	// Stats is the rollup row after the record.
	Stats stats.UserStats

	// FirstGameBonus is the bonus credited for the first game of the day, or 0.
	FirstGameBonus int
}

// RecordScoreHandler handles the RecordScoreCommand.
type RecordScoreHandler struct {
	store stats.Store
	hooks Hooks
}

// NewRecordScoreHandler creates a new RecordScoreHandler.
func NewRecordScoreHandler(store stats.Store, hooks Hooks) *RecordScoreHandler {
	return &RecordScoreHandler{store: store, hooks: hooks.withDefaults()}
}

// Handle records the score.
func (h *RecordScoreHandler) Handle(ctx context.Context, cmd RecordScoreCommand) (*RecordScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.PlayedAt.IsZero() {
		cmd.PlayedAt = h.hooks.Now()
	}
	if len(cmd.Details) == 0 {
		cmd.Details = json.RawMessage(`{}`)
	}

	rec := stats.ScoreRecord{
		ID:             h.hooks.NewID(),
		UserID:         cmd.UserID,
		Category:       stats.Category(cmd.GameType),
		Points:         cmd.Points,
		PlayedAt:       cmd.PlayedAt,
		Details:        cmd.Details,
		IdempotencyKey: cmd.IdempotencyKey,
	}
	out, err := h.store.RecordScore(ctx, rec)
	if err != nil {
		return nil, err
	}

	result := &RecordScoreResult{
		RecordID:      rec.ID,
		TotalPoints:   out.TotalPoints,
		CurrentStreak: out.Stats.CurrentStreak,
		Stats:         out.Stats,
	}
	events := []shared.Event{
		shared.NewScoreRecordedEvent(cmd.UserID, rec.ID, string(cmd.GameType), cmd.Points,
			out.TotalPoints, out.Stats.CurrentStreak, cmd.PlayedAt),
	}

	if out.Bonus != nil {
		result.FirstGameBonus = out.Bonus.Points
		events = append(events, shared.NewChallengeClaimedEvent(cmd.UserID,
			string(stats.ChallengeFirstGame), out.Bonus.Points))
	}

	h.hooks.afterCommit(ctx, events...)
	return result, nil
}
