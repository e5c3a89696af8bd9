package ports

import (
	"context"
	"time"

	"github.com/seu-repo/concierge/internal/domain"
)

// Cache is a key/value store with expiration
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// RenderTarget receives the session view after every state change.
// Render is called with the session lock held: it must not block and must not
// call back into the session.
type RenderTarget interface {
	Render(view domain.View)
}

// EventPublisher delivers side-channel events to the host application
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// VoiceCapture wraps platform speech recognition.
// After Start succeeds, onResult is called exactly once for the cycle.
type VoiceCapture interface {
	Supported() bool
	Start(ctx context.Context, onResult func(domain.CaptureResult)) error
	Stop() error
}

// Timer is a handle to a scheduled callback
type Timer interface {
	// Stop prevents the callback from firing. It reports false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs a callback after a delay.
// f must never run before AfterFunc has returned.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}
