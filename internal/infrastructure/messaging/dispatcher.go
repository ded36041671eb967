package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/circuitbreaker"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherConfig configures the Dispatcher.
type DispatcherConfig struct {
	// MaxAttempts per target, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// Timeout bounds a single Publish across all targets.
	Timeout time.Duration
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		Timeout:        2 * time.Second,
	}
}

// Dispatcher fans an event out to several publishers, retrying each one.
// A failing target does not stop delivery to the others.
type Dispatcher struct {
	targets []shared.EventPublisher
	config  DispatcherConfig
	logger  *logger.Logger
}

// NewDispatcher creates a Dispatcher. Nil targets are skipped.
func NewDispatcher(config DispatcherConfig, log *logger.Logger, targets ...shared.EventPublisher) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	kept := make([]shared.EventPublisher, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Dispatcher{targets: kept, config: config, logger: log.Named("dispatcher")}
}

// Publish implements shared.EventPublisher.
func (d *Dispatcher) Publish(ctx context.Context, event shared.Event) error {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	var errs []error
	for _, target := range d.targets {
		err := retry.Do(ctx, func(ctx context.Context) error {
			return target.Publish(ctx, event)
		},
			retry.WithMaxAttempts(d.config.MaxAttempts),
			retry.WithInitialDelay(d.config.InitialBackoff),
			retry.WithRetryIf(retryable),
		)
		if err != nil {
			d.logger.Warn("event delivery failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retryable excludes a closed bus and an open breaker; neither recovers
// within one dispatch.
func retryable(err error) bool {
	return !errors.Is(err, ErrEventBusClosed) && !circuitbreaker.IsRejected(err)
}

var _ shared.EventPublisher = (*Dispatcher)(nil)
