package dialogue

import (
	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/ports"
)

// Releaser is implemented by render targets holding per-session resources
type Releaser interface {
	Release()
}

type multiRender []ports.RenderTarget

// MultiRender fans a view out to every non-nil target, in order.
func MultiRender(targets ...ports.RenderTarget) ports.RenderTarget {
	out := make(multiRender, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (m multiRender) Render(view domain.View) {
	for _, t := range m {
		t.Render(view)
	}
}

func (m multiRender) Release() {
	for _, t := range m {
		if r, ok := t.(Releaser); ok {
			r.Release()
		}
	}
}
