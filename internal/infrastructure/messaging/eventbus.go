// Package messaging delivers KopiO domain events after a write commits:
// in-process through InMemoryEventBus and across services through NATS.
package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// Handler reacts to a published event.
type Handler func(ctx context.Context, event shared.Event) error

// InMemoryEventBus calls subscribed handlers synchronously in the
// publisher's goroutine. Suitable for single-instance deployments and testing.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]Handler
	allHandlers []Handler
	logger      *logger.Logger
	closed      bool
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(log *logger.Logger) *InMemoryEventBus {
	if log == nil {
		log = logger.Nop()
	}
	return &InMemoryEventBus{
		handlers: make(map[shared.EventType][]Handler),
		logger:   log.Named("eventbus"),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers. Handler errors are
// logged and joined into the returned error.
func (b *InMemoryEventBus) Publish(ctx context.Context, event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]Handler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Error("handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting events.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDER
// ══════════════════════════════════════════════════════════════════════════════

// Recorder keeps every published event. Used by tests and the dry-run mode.
type Recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements shared.EventPublisher.
func (r *Recorder) Publish(_ context.Context, event shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(t shared.EventType) []shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// Noop discards events.
type Noop struct{}

// Publish implements shared.EventPublisher.
func (Noop) Publish(context.Context, shared.Event) error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNotConnected is returned when the broker connection is gone.
	ErrNotConnected = errors.New("broker is not connected")
)

var (
	_ shared.EventPublisher = (*InMemoryEventBus)(nil)
	_ shared.EventPublisher = (*Recorder)(nil)
	_ shared.EventPublisher = Noop{}
)
