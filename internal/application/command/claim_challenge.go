package command

import (
	"context"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM CHALLENGE COMMAND
// Credits the daily login or weekly streak bonus, at most once per date.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimChallengeCommand names the challenge to claim.
type ClaimChallengeCommand struct {
	UserID    string
	Challenge stats.Challenge
}

// Validate validates the command. The first-game bonus is credited
// automatically with the game and cannot be claimed directly.
func (c ClaimChallengeCommand) Validate() error {
	if c.UserID == "" {
		return shared.InvalidSubmission("command", "ClaimChallenge", "user id is required")
	}
	switch c.Challenge {
	case stats.ChallengeDailyLogin, stats.ChallengeWeeklyStreak:
		return nil
	case stats.ChallengeFirstGame:
		return shared.InvalidSubmission("command", "ClaimChallenge", "first game bonus is credited automatically")
	}
	return shared.InvalidSubmission("command", "ClaimChallenge", "unknown challenge %q", c.Challenge)
}

// ClaimChallengeResult contains the reward and new total.
type ClaimChallengeResult struct {
	Challenge   stats.Challenge
	Points      int
	TotalPoints int
}

// ClaimChallengeHandler handles the ClaimChallengeCommand.
type ClaimChallengeHandler struct {
	store stats.Store
	hooks Hooks
}

// NewClaimChallengeHandler creates a new ClaimChallengeHandler.
func NewClaimChallengeHandler(store stats.Store, hooks Hooks) *ClaimChallengeHandler {
	return &ClaimChallengeHandler{store: store, hooks: hooks.withDefaults()}
}

// Handle claims the challenge for today.
func (h *ClaimChallengeHandler) Handle(ctx context.Context, cmd ClaimChallengeCommand) (*ClaimChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	out, err := h.store.ClaimChallenge(ctx, h.hooks.NewID(), cmd.UserID, cmd.Challenge, h.hooks.Now())
	if err != nil {
		return nil, err
	}

	h.hooks.Logger.Info("challenge claimed",
		logger.UserID(cmd.UserID),
		logger.String("challenge", string(cmd.Challenge)),
		logger.Points(out.Record.Points),
	)
	h.hooks.afterCommit(ctx, shared.NewChallengeClaimedEvent(cmd.UserID, string(cmd.Challenge), out.Record.Points))

	return &ClaimChallengeResult{
		Challenge:   cmd.Challenge,
		Points:      out.Record.Points,
		TotalPoints: out.TotalPoints,
	}, nil
}
