// Package command contains write operations (CQRS - Commands).
// Every command commits through exactly one store transaction; events and
// cache invalidation happen after commit and never fail the command.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardInvalidator drops cached leaderboard pages.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Hooks groups the post-commit collaborators shared by all handlers.
type Hooks struct {
	// Publisher receives domain events. Nil disables publishing.
	Publisher shared.EventPublisher

	// Cache is invalidated after every write. Nil disables invalidation.
	Cache LeaderboardInvalidator

	// Logger is used for post-commit failures. Nil means logger.Nop().
	Logger *logger.Logger

	// NewID generates record and user ids. Nil means uuid.NewString.
	NewID func() string

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

func (h Hooks) withDefaults() Hooks {
	if h.Logger == nil {
		h.Logger = logger.Nop()
	}
	if h.NewID == nil {
		h.NewID = uuid.NewString
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	return h
}

// afterCommit publishes events and invalidates the leaderboard cache.
// Failures are logged; the write has already committed.
func (h Hooks) afterCommit(ctx context.Context, events ...shared.Event) {
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			h.Logger.Warn("leaderboard cache invalidation failed", logger.Err(err))
		}
	}
	if h.Publisher == nil {
		return
	}
	for _, e := range events {
		if err := h.Publisher.Publish(ctx, e); err != nil {
			h.Logger.Warn("event publish failed",
				logger.String("event_type", string(e.EventType())),
				logger.UserID(e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}
