package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maxldruck/printcalc/config"
	"go.uber.org/zap"
)

// Domain event types.
const (
	EventAccountRegistered = "account.registered"
	EventAccountDeleted    = "account.deleted"
	EventProjectSaved      = "project.saved"
	EventProjectDeleted    = "project.deleted"
	EventQuoteExported     = "quote.exported"
)

// Event is the JSON payload published for every domain event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Account    string         `json:"account"`
	ProjectID  int64          `json:"project_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Open connects the backend selected by cfg. It returns nil when event
// publishing is disabled.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "memory":
		return New(NewRecorder()), nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
}

// Publisher emits domain events. Publishing is best effort: failures are
// logged and never returned to the caller. A nil Publisher, or one without
// a broker, drops events.
type Publisher struct {
	mq      *MQ
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

func NewPublisher(m *MQ, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{mq: m, channel: channel, logger: logger, now: time.Now}
}

// Emit publishes e, filling in its ID and timestamp.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if p == nil || p.mq == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	attrs := map[string]string{"type": e.Type, "event_id": e.ID}
	messageID, err := p.mq.Publish(ctx, p.channel, data, attrs)
	if err != nil {
		p.logger.Warn("publish event failed",
			zap.String("type", e.Type),
			zap.String("channel", p.channel),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event published", zap.String("type", e.Type), zap.String("message_id", messageID))
}
