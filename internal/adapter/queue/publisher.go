package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
)

// EventPublisher forwards session side-channel events to the broker
// as JSON on "<prefix>.<kind>".
type EventPublisher struct {
	mq     MessageQueue
	prefix string
	log    *zap.Logger
}

func NewEventPublisher(mq MessageQueue, prefix string, log *zap.Logger) *EventPublisher {
	return &EventPublisher{
		mq:     mq,
		prefix: strings.TrimSuffix(prefix, "."),
		log:    log,
	}
}

// Subject returns the subject an event kind is published on
func (p *EventPublisher) Subject(kind domain.EventKind) string {
	if p.prefix == "" {
		return string(kind)
	}
	return p.prefix + "." + string(kind)
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(event.Kind)
	if err := p.mq.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.log.Debug("side-channel event published",
		zap.String("subject", subject),
		zap.String("session_id", event.SessionID),
	)
	return nil
}
