package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NATS PUBLISHER
// ══════════════════════════════════════════════════════════════════════════════

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL of the NATS server, e.g. nats://localhost:4222.
	URL string

	// SubjectPrefix is prepended to the event type: "<prefix>.<type>".
	SubjectPrefix string

	// Name identifies this client to the server.
	Name string

	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		SubjectPrefix:  "kopio",
		Name:           "kopio",
		ConnectTimeout: 5 * time.Second,
	}
}

// Envelope is the wire format of a published event.
type Envelope struct {
	Type        shared.EventType `json:"type"`
	AggregateID string           `json:"aggregateId"`
	OccurredAt  time.Time        `json:"occurredAt"`
	Data        json.RawMessage  `json:"data"`
}

// Encode wraps an event into its wire envelope.
func Encode(event shared.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return json.Marshal(Envelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Data:        data,
	})
}

// Subject returns the subject an event type is published on.
func Subject(prefix string, t shared.EventType) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}

// NATSPublisher publishes events to NATS core subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *logger.Logger
}

// NewNATSPublisher connects to the server.
func NewNATSPublisher(cfg NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logger.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, logger: log}, nil
}

// Publish implements shared.EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event shared.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.conn.IsConnected() && !p.conn.IsReconnecting() {
		return ErrNotConnected
	}
	data, err := Encode(event)
	if err != nil {
		return err
	}
	subject := Subject(p.prefix, event.EventType())
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe delivers decoded envelopes of the given type to handler.
func (p *NATSPublisher) Subscribe(t shared.EventType, handler func(Envelope)) (*nats.Subscription, error) {
	subject := Subject(p.prefix, t)
	return p.conn.Subscribe(subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			p.logger.Warn("malformed event dropped", logger.String("subject", msg.Subject), logger.Err(err))
			return
		}
		handler(env)
	})
}

// Ping checks the connection.
func (p *NATSPublisher) Ping(context.Context) error {
	if !p.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

var _ shared.EventPublisher = (*NATSPublisher)(nil)
