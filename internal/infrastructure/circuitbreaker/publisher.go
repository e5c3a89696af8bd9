package circuitbreaker

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/ports"
)

// Publisher guards a broker-backed event publisher. While the circuit is
// open events are dropped immediately instead of waiting on a dead broker.
type Publisher struct {
	next    ports.EventPublisher
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func NewPublisher(next ports.EventPublisher, breaker *gobreaker.CircuitBreaker, log *zap.Logger) *Publisher {
	return &Publisher{next: next, breaker: breaker, log: log}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, event)
	})
	if IsRejected(err) {
		p.log.Debug("Dropping event, broker circuit open",
			zap.String("breaker", p.breaker.Name()),
			zap.String("kind", string(event.Kind)),
			zap.String("session_id", event.SessionID),
		)
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return err
}

// State returns the current breaker state
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}
