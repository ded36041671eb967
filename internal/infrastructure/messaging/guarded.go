package messaging

import (
	"context"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/circuitbreaker"
)

// GuardedPublisher routes Publish through a circuit breaker. While the
// breaker is open events are dropped with circuitbreaker.ErrCircuitOpen
// instead of waiting on a dead broker.
type GuardedPublisher struct {
	next    shared.EventPublisher
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedPublisher wraps next with breaker.
func NewGuardedPublisher(next shared.EventPublisher, breaker *circuitbreaker.CircuitBreaker) *GuardedPublisher {
	return &GuardedPublisher{next: next, breaker: breaker}
}

// Publish implements shared.EventPublisher.
func (g *GuardedPublisher) Publish(ctx context.Context, event shared.Event) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.Publish(ctx, event)
	})
}

var _ shared.EventPublisher = (*GuardedPublisher)(nil)
