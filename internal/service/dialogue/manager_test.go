package dialogue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/mocks"
	"github.com/seu-repo/concierge/internal/ports"
	"github.com/seu-repo/concierge/internal/service/intent"
	"github.com/seu-repo/concierge/internal/service/persona"
)

type managerFixture struct {
	manager *Manager
	clock   *mocks.ManualScheduler
	mu      sync.Mutex
	renders map[string]*mocks.RenderRecorder
}

func newManagerFixture(t *testing.T, cfg ManagerConfig) *managerFixture {
	t.Helper()

	f := &managerFixture{
		clock:   mocks.NewManualScheduler(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		renders: make(map[string]*mocks.RenderRecorder),
	}
	f.manager = NewManager(ManagerDeps{
		Resolver:   persona.NewResolver(nil),
		Classifier: intent.NewClassifier(),
		Responder:  intent.NewResponder(nil),
		Scheduler:  f.clock,
		Events:     &mocks.MockEventPublisher{},
		Render: func(id string) ports.RenderTarget {
			f.mu.Lock()
			defer f.mu.Unlock()
			r := &mocks.RenderRecorder{}
			f.renders[id] = r
			return r
		},
		Now: f.clock.Now,
	}, cfg, zap.NewNop())
	return f
}

func (f *managerFixture) recorder(id string) *mocks.RenderRecorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders[id]
}

func TestManager_CreateResolvesPersonaFromPath(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{ReplyDelay: time.Second})

	s, err := f.manager.Create(context.Background(), "/app/cellar/reds", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, domain.PersonaSommelier, s.Persona().Type)

	got, err := f.manager.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	// the initial view is pushed on creation
	last, ok := f.recorder(s.ID()).Last()
	require.True(t, ok)
	assert.NotEmpty(t, last.Greeting)
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{ReplyDelay: time.Second})
	ctx := context.Background()

	a, err := f.manager.Create(ctx, "/", nil)
	require.NoError(t, err)
	b, err := f.manager.Create(ctx, "/", nil)
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.Submit(ctx, "Quero viajar"))
	f.clock.Advance(time.Second)

	assert.Len(t, a.View().Messages, 2)
	assert.Empty(t, b.View().Messages)
}

func TestManager_MaxSessions(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{MaxSessions: 1})

	_, err := f.manager.Create(context.Background(), "/", nil)
	require.NoError(t, err)
	_, err = f.manager.Create(context.Background(), "/", nil)

	assert.ErrorIs(t, err, domain.ErrTooManySessions)
	assert.Equal(t, 1, f.manager.Len())
}

func TestManager_DisposeReleasesRenderTarget(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{ReplyDelay: time.Second})
	ctx := context.Background()
	s, err := f.manager.Create(ctx, "/", nil)
	require.NoError(t, err)
	require.NoError(t, s.Submit(ctx, "Quero viajar"))

	require.NoError(t, f.manager.Dispose(s.ID()))
	f.clock.Advance(time.Minute)

	assert.True(t, f.recorder(s.ID()).Released())
	assert.True(t, s.Disposed())
	assert.Len(t, s.View().Messages, 1)

	_, err = f.manager.Get(s.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, f.manager.Dispose(s.ID()), domain.ErrSessionNotFound)
}

func TestManager_UpdateContext(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{})
	s, err := f.manager.Create(context.Background(), "/", nil)
	require.NoError(t, err)

	venue := &domain.VenueContext{Name: "Bar do Zé", Types: []string{"food"}}
	updated, err := f.manager.UpdateContext(s.ID(), "/app/drinks-food", venue)

	require.NoError(t, err)
	assert.Equal(t, domain.PersonaChef, updated.Persona().Type)

	_, err = f.manager.UpdateContext("missing", "/", nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_EvictIdle(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{IdleTTL: 10 * time.Minute})
	ctx := context.Background()

	stale, err := f.manager.Create(ctx, "/", nil)
	require.NoError(t, err)
	f.clock.Advance(8 * time.Minute)
	fresh, err := f.manager.Create(ctx, "/", nil)
	require.NoError(t, err)
	f.clock.Advance(3 * time.Minute)

	evicted := f.manager.EvictIdle(f.clock.Now())

	assert.Equal(t, 1, evicted)
	assert.True(t, stale.Disposed())
	assert.False(t, fresh.Disposed())
	assert.Equal(t, 1, f.manager.Len())
}

func TestManager_EvictIdleDisabled(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{})
	_, err := f.manager.Create(context.Background(), "/", nil)
	require.NoError(t, err)

	assert.Zero(t, f.manager.EvictIdle(f.clock.Now().Add(24*time.Hour)))
}

func TestManager_Close(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{})
	s, err := f.manager.Create(context.Background(), "/", nil)
	require.NoError(t, err)

	f.manager.Close()

	assert.True(t, s.Disposed())
	assert.Zero(t, f.manager.Len())
	_, err = f.manager.Create(context.Background(), "/", nil)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	f := newManagerFixture(t, ManagerConfig{IdleTTL: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.manager.Run(ctx, 10*time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
