package dialogue

import (
	"context"
	"errors"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/ports"
)

type multiPublisher []ports.EventPublisher

// MultiPublish delivers every event to all non-nil publishers. One failing
// publisher does not stop the others; their errors are joined.
func MultiPublish(publishers ...ports.EventPublisher) ports.EventPublisher {
	out := make(multiPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multiPublisher) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
