package command

import (
	"context"
	"encoding/json"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GAME RESULT COMMAND
// Scores a raw game payload and records the award.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitGameResultCommand carries an untrusted client payload.
type SubmitGameResultCommand struct {
	// UserID is the authenticated player.
	UserID string

	// GameType selects the scorer ("quiz", "memory", "puzzle", "sorting").
	GameType string

	// Payload is the game-specific JSON body.
	Payload json.RawMessage

	// IdempotencyKey is a client-generated token, unique per submission.
	IdempotencyKey string
}

// Validate validates the command.
func (c SubmitGameResultCommand) Validate() error {
	if c.UserID == "" {
		return shared.InvalidSubmission("command", "SubmitGameResult", "user id is required")
	}
	if c.IdempotencyKey == "" {
		return shared.InvalidSubmission("command", "SubmitGameResult", "idempotency key is required")
	}
	if stats.IsReservedKey(c.IdempotencyKey) {
		return shared.InvalidSubmission("command", "SubmitGameResult", "idempotency key must not start with %q", stats.ReservedKeyPrefix)
	}
	if len(c.Payload) == 0 {
		return shared.InvalidSubmission("command", "SubmitGameResult", "game result is required")
	}
	return nil
}

// SubmitGameResultResult is the award plus the committed totals.
type SubmitGameResultResult struct {
	// Award is the scoring outcome, including quiz feedback.
	Award *scoring.Award

	// Recorded is false for acknowledged but unscored puzzle sub-levels.
	Recorded bool

	// Record holds the committed totals when Recorded is true.
	Record *RecordScoreResult
}

// SubmitGameResultHandler handles the SubmitGameResultCommand.
type SubmitGameResultHandler struct {
	engine *scoring.Engine
	record *RecordScoreHandler
	log    *logger.Logger
}

// NewSubmitGameResultHandler creates a new SubmitGameResultHandler.
func NewSubmitGameResultHandler(engine *scoring.Engine, record *RecordScoreHandler, log *logger.Logger) *SubmitGameResultHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitGameResultHandler{engine: engine, record: record, log: log}
}

// Handle scores and records the submission.
func (h *SubmitGameResultHandler) Handle(ctx context.Context, cmd SubmitGameResultCommand) (*SubmitGameResultResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	log := h.log.With(logger.UserID(cmd.UserID), logger.GameType(cmd.GameType))

	gameType, err := scoring.ParseGameType(cmd.GameType)
	if err != nil {
		return nil, err
	}
	result, err := scoring.DecodeGameResult(gameType, cmd.Payload)
	if err != nil {
		log.Warn("game submission rejected", logger.Err(err))
		return nil, err
	}
	award, err := h.engine.Score(ctx, result)
	if err != nil {
		log.Warn("game submission rejected", logger.Err(err))
		return nil, err
	}
	if !award.Recordable {
		return &SubmitGameResultResult{Award: award}, nil
	}

	details, err := json.Marshal(struct {
		Input     json.RawMessage   `json:"input"`
		Breakdown scoring.Breakdown `json:"breakdown"`
	}{cmd.Payload, award.Breakdown})
	if err != nil {
		return nil, shared.WrapError("command", "SubmitGameResult", shared.ErrInvalidSubmission, "game result is not valid JSON", err)
	}

	rec, err := h.record.Handle(ctx, RecordScoreCommand{
		UserID:         cmd.UserID,
		GameType:       gameType,
		Points:         award.Points,
		Details:        details,
		IdempotencyKey: cmd.IdempotencyKey,
	})
	if err != nil {
		log.Warn("game submission not recorded", logger.Err(err))
		return nil, err
	}

	log.Info("game submission recorded",
		logger.Points(award.Points),
		logger.Int("total_points", rec.TotalPoints),
		logger.Int("streak", rec.CurrentStreak),
	)
	return &SubmitGameResultResult{Award: award, Recorded: true, Record: rec}, nil
}
