package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/nats-io/nats.go"
)

// Publisher fans transition events out to other services.
type Publisher interface {
	Publish(ctx context.Context, e memorandum.TransitionEvent) error
	Close() error
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

type NATSPublisher struct {
	conn   conn
	prefix string
}

// NewNATSPublisher connects to url. Subjects take the form
// <prefix>.<company_id>.<event>.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("hris-memorandum"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(c conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: strings.TrimSuffix(prefix, ".")}
}

func (p *NATSPublisher) Subject(e memorandum.TransitionEvent) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, token(e.CompanyID), token(string(e.Event)))
}

func (p *NATSPublisher) Publish(ctx context.Context, e memorandum.TransitionEvent) error {
	data, err := json.Marshal(memorandum.NewTransitionMessage(e))
	if err != nil {
		return fmt.Errorf("failed to encode transition event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("failed to publish transition event: %w", err)
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// token keeps a value inside one subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// Noop is used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, memorandum.TransitionEvent) error { return nil }

func (Noop) Close() error { return nil }
