// Package publish republishes engine events to NATS subjects.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"wifiwatch/internal/engine"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "wifiwatch.events"

// Conn is the publishing half of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Envelope wraps one event on the wire.
type Envelope struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Time      time.Time       `json:"time"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher forwards engine events to <prefix>.<kind>.
type Publisher struct {
	conn      Conn
	prefix    string
	sessionID string
	log       zerolog.Logger
}

// NewPublisher creates a publisher over conn.
func NewPublisher(conn Conn, prefix, sessionID string, log zerolog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{
		conn:      conn,
		prefix:    prefix,
		sessionID: sessionID,
		log:       log.With().Str("component", "publisher").Logger(),
	}
}

// Subject returns the subject an event kind is published on.
func (p *Publisher) Subject(kind engine.EventKind) string {
	return p.prefix + "." + string(kind)
}

// Publish sends a single event.
func (p *Publisher) Publish(ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Kind, err)
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	data, err := json.Marshal(Envelope{
		ID:        uuid.New().String(),
		SessionID: p.sessionID,
		Kind:      string(ev.Kind),
		Time:      ts.UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	subject := p.Subject(ev.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Run publishes events until the channel closes or ctx is done. Failures are
// logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, events <-chan engine.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.Publish(ev); err != nil {
				p.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Publish failed")
				continue
			}
			p.log.Debug().Str("kind", string(ev.Kind)).Msg("Published event")
		}
	}
}

// Connect dials NATS with handlers that log connection state changes.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	log = log.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(url,
		nats.Name("wifiwatch"),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}
