package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/concierge/internal/domain"
)

// MockVoiceCapture is a controllable speech recognizer.
// Tests deliver results through Emit.
type MockVoiceCapture struct {
	mu          sync.Mutex
	Unsupported bool
	StartFunc   func(ctx context.Context) error
	StopFunc    func() error
	StartCalls  int
	StopCalls   int
	onResult    func(domain.CaptureResult)
}

func (m *MockVoiceCapture) Supported() bool {
	return !m.Unsupported
}

func (m *MockVoiceCapture) Start(ctx context.Context, onResult func(domain.CaptureResult)) error {
	m.mu.Lock()
	m.StartCalls++
	startFunc := m.StartFunc
	m.mu.Unlock()

	if startFunc != nil {
		if err := startFunc(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.onResult = onResult
	m.mu.Unlock()
	return nil
}

func (m *MockVoiceCapture) Stop() error {
	m.mu.Lock()
	m.StopCalls++
	stopFunc := m.StopFunc
	m.mu.Unlock()

	if stopFunc != nil {
		return stopFunc()
	}
	return nil
}

// Emit delivers a result to the callback of the most recent Start.
// It reports false when Start was never called.
func (m *MockVoiceCapture) Emit(res domain.CaptureResult) bool {
	m.mu.Lock()
	cb := m.onResult
	m.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(res)
	return true
}

// MockEventPublisher records published side-channel events
type MockEventPublisher struct {
	mu          sync.Mutex
	Events      []domain.Event
	PublishFunc func(ctx context.Context, event domain.Event) error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Published returns a copy of the recorded events
func (m *MockEventPublisher) Published() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.Events...)
}

// RenderRecorder records every view a session renders
type RenderRecorder struct {
	mu       sync.Mutex
	views    []domain.View
	released bool
}

func (r *RenderRecorder) Render(view domain.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func (r *RenderRecorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

// Count returns how many views were rendered
func (r *RenderRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Last returns the most recent view
func (r *RenderRecorder) Last() (domain.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return domain.View{}, false
	}
	return r.views[len(r.views)-1], true
}

func (r *RenderRecorder) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}
