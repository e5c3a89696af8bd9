package dialogue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/observability/telemetry"
	"github.com/seu-repo/concierge/internal/ports"
)

// RenderFactory builds the render target of a new session
type RenderFactory func(sessionID string) ports.RenderTarget

// CaptureFactory builds the voice capture of a new session. Returning nil
// marks voice input as unsupported for that session.
type CaptureFactory func(sessionID string) ports.VoiceCapture

// ManagerConfig bounds the session registry
type ManagerConfig struct {
	ReplyDelay  time.Duration
	IdleTTL     time.Duration
	MaxSessions int
}

// Manager is the registry of live sessions
type Manager struct {
	resolver   ports.PersonaResolver
	classifier ports.IntentClassifier
	responder  ports.ResponseGenerator
	scheduler  ports.Scheduler
	events     ports.EventPublisher
	render     RenderFactory
	capture    CaptureFactory
	cfg        ManagerConfig
	log        *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// ManagerDeps groups the collaborators shared by every session
type ManagerDeps struct {
	Resolver   ports.PersonaResolver
	Classifier ports.IntentClassifier
	Responder  ports.ResponseGenerator
	Scheduler  ports.Scheduler
	Events     ports.EventPublisher
	Render     RenderFactory
	Capture    CaptureFactory
	Now        func() time.Time
}

func NewManager(deps ManagerDeps, cfg ManagerConfig, log *zap.Logger) *Manager {
	if deps.Scheduler == nil {
		deps.Scheduler = NewScheduler()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		resolver:   deps.Resolver,
		classifier: deps.Classifier,
		responder:  deps.Responder,
		scheduler:  deps.Scheduler,
		events:     deps.Events,
		render:     deps.Render,
		capture:    deps.Capture,
		cfg:        cfg,
		log:        log,
		now:        deps.Now,
		sessions:   make(map[string]*Session),
	}
}

// Create opens a session for the given path and optional venue
func (m *Manager) Create(ctx context.Context, path string, venue *domain.VenueContext) (*Session, error) {
	_, span := telemetry.Tracer().Start(ctx, "dialogue.CreateSession")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrSessionClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.log.Warn("session limit reached", zap.Int("max_sessions", m.cfg.MaxSessions))
		return nil, domain.ErrTooManySessions
	}

	id := uuid.New().String()
	opts := Options{
		Resolver:   m.resolver,
		Classifier: m.classifier,
		Responder:  m.responder,
		Scheduler:  m.scheduler,
		Events:     m.events,
		ReplyDelay: m.cfg.ReplyDelay,
		Now:        m.now,
	}
	if m.render != nil {
		opts.Render = m.render(id)
	}
	if m.capture != nil {
		opts.Capture = m.capture(id)
	}

	route := domain.ParseRoute(path)
	session := NewSession(id, route, venue, opts, m.log)
	m.sessions[id] = session
	telemetry.ActiveSessions.Set(float64(len(m.sessions)))

	m.log.Info("session created",
		zap.String("session_id", id),
		zap.String("route", string(route)),
		zap.String("persona", string(session.Persona().Type)),
	)
	if opts.Render != nil {
		opts.Render.Render(session.View())
	}
	return session, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// UpdateContext re-resolves the persona of a live session from a new path and venue
func (m *Manager) UpdateContext(id, path string, venue *domain.VenueContext) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateContext(domain.ParseRoute(path), venue); err != nil {
		return nil, err
	}
	return s, nil
}

// Dispose removes and tears down a session
func (m *Manager) Dispose(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		telemetry.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	m.teardown(s)
	m.log.Info("session disposed", zap.String("session_id", id))
	return nil
}

// EvictIdle disposes sessions whose last activity is older than the idle TTL
// and returns how many were removed.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity()) > m.cfg.IdleTTL {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	telemetry.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range stale {
		m.teardown(s)
	}
	if len(stale) > 0 {
		m.log.Info("idle sessions evicted", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run evicts idle sessions on every tick until ctx is cancelled
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.EvictIdle(m.now())
		}
	}
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close disposes every session and rejects further Create calls
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	telemetry.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, s := range all {
		m.teardown(s)
	}
}

func (m *Manager) teardown(s *Session) {
	s.Dispose()
	if r, ok := s.opts.Render.(Releaser); ok {
		r.Release()
	}
	if r, ok := s.opts.Capture.(Releaser); ok {
		r.Release()
	}
}
