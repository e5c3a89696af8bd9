package dialogue

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/observability/telemetry"
	"github.com/seu-repo/concierge/internal/ports"
)

// DefaultReplyDelay is the simulated "thinking" time before the assistant answers
const DefaultReplyDelay = 1200 * time.Millisecond

// Options holds the collaborators of a Session
type Options struct {
	Resolver   ports.PersonaResolver
	Classifier ports.IntentClassifier
	Responder  ports.ResponseGenerator
	Scheduler  ports.Scheduler
	Capture    ports.VoiceCapture // nil when the runtime has no speech recognition
	Render     ports.RenderTarget
	Events     ports.EventPublisher
	ReplyDelay time.Duration
	Now        func() time.Time
}

// Session owns one conversation: the append-only message log and the
// Idle/AwaitingReply turn-taking machine, with voice capture on a separate axis.
//
// All state lives behind mu. Collaborator calls that may call back into the
// session (VoiceCapture.Start/Stop, EventPublisher.Publish) are made without it.
type Session struct {
	id   string
	opts Options
	log  *zap.Logger

	mu           sync.Mutex
	route        domain.RouteContext
	venue        *domain.VenueContext
	persona      domain.PersonaDefinition
	messages     []domain.Message
	awaiting     bool
	listening    bool
	disposed     bool
	turn         uint64
	pending      ports.Timer
	captureGen   uint64
	lastActivity time.Time
	entropy      io.Reader
}

// NewSession creates an idle session with an empty log
func NewSession(id string, route domain.RouteContext, venue *domain.VenueContext, opts Options, log *zap.Logger) *Session {
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler()
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		id:      id,
		opts:    opts,
		log:     log.With(zap.String("session_id", id)),
		route:   route,
		venue:   cloneVenue(venue),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	s.persona = opts.Resolver.Resolve(route, s.venue)
	s.lastActivity = opts.Now()
	return s
}

// ID returns the session id assigned by the manager
func (s *Session) ID() string {
	return s.id
}

// Submit appends a user message and schedules the assistant reply.
// Blank input is ignored with ErrEmptyInput; a submission while a reply is
// pending is rejected with ErrAwaitingReply so replies can never reorder.
func (s *Session) Submit(ctx context.Context, text string) error {
	_, span := telemetry.Tracer().Start(ctx, "dialogue.Submit")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		telemetry.SubmissionsRejected.WithLabelValues("empty").Inc()
		return domain.ErrEmptyInput
	}

	s.mu.Lock()
	stopCapture, err := s.submitLocked(text)
	s.mu.Unlock()

	if stopCapture {
		s.releaseCapture()
	}
	return err
}

// submitLocked reports whether an active capture was abandoned and must be
// stopped once the lock is released.
func (s *Session) submitLocked(text string) (bool, error) {
	if s.disposed {
		return false, domain.ErrSessionClosed
	}
	if s.awaiting {
		telemetry.SubmissionsRejected.WithLabelValues("awaiting_reply").Inc()
		return false, domain.ErrAwaitingReply
	}

	// Typing while the microphone is open abandons the capture: listening
	// only ever happens while idle.
	abandoned := s.listening
	if abandoned {
		s.listening = false
		s.captureGen++
	}

	s.appendMessage(domain.SenderUser, text, "", nil)
	s.awaiting = true
	s.turn++

	turn := s.turn
	submittedAt := s.opts.Now()
	s.pending = s.opts.Scheduler.AfterFunc(s.opts.ReplyDelay, func() {
		s.deliverReply(turn, text, submittedAt)
	})

	s.log.Debug("user message accepted", zap.Uint64("turn", turn))
	s.renderLocked()
	return abandoned, nil
}

func (s *Session) deliverReply(turn uint64, text string, submittedAt time.Time) {
	_, span := telemetry.Tracer().Start(context.Background(), "dialogue.Reply")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || !s.awaiting || turn != s.turn {
		telemetry.StaleCallbacks.WithLabelValues("reply").Inc()
		s.log.Debug("discarding stale reply", zap.Uint64("turn", turn), zap.Error(domain.ErrStaleCallback))
		return
	}

	rule := s.opts.Classifier.Classify(text)
	reply, followUps := s.opts.Responder.Respond(rule)
	s.appendMessage(domain.SenderAssistant, reply, rule.Topic, followUps)
	s.awaiting = false
	s.pending = nil

	span.SetAttributes(attribute.String("intent.topic", string(rule.Topic)))
	telemetry.TurnsTotal.WithLabelValues(string(rule.Topic)).Inc()
	telemetry.ReplyLatency.Observe(s.opts.Now().Sub(submittedAt).Seconds())

	s.log.Debug("assistant reply delivered", zap.Uint64("turn", turn), zap.String("topic", string(rule.Topic)))
	s.renderLocked()
}

// SubmitSuggestion handles a click on a suggestion or follow-up chip.
// Items that need a host handler emit a side-channel event and leave the
// session untouched; the rest are submitted as their synthetic text.
func (s *Session) SubmitSuggestion(ctx context.Context, item domain.SuggestionItem) (*domain.Event, error) {
	if !item.RequiresHandler() {
		return nil, s.Submit(ctx, item.SyntheticText())
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	s.lastActivity = s.opts.Now()
	s.mu.Unlock()

	kind := domain.EventSuggestionAction
	if item.IsSpecial && item.Action == string(domain.EventOpenCategoryPicker) {
		kind = domain.EventOpenCategoryPicker
	}
	event := &domain.Event{
		Kind:      kind,
		SessionID: s.id,
		Payload:   map[string]string{"label": item.Label, "action": item.Action},
		At:        s.opts.Now(),
	}
	s.publish(ctx, *event)
	return event, nil
}

// SubmitFollowUp submits a follow-up chip label as typed text
func (s *Session) SubmitFollowUp(ctx context.Context, label string) error {
	return s.Submit(ctx, label)
}

// StartVoiceCapture opens the microphone. Only valid while idle.
func (s *Session) StartVoiceCapture(ctx context.Context) error {
	if s.opts.Capture == nil || !s.opts.Capture.Supported() {
		telemetry.VoiceCapturesTotal.WithLabelValues("unsupported").Inc()
		s.publish(ctx, domain.Event{
			Kind:      domain.EventNotice,
			SessionID: s.id,
			Payload:   map[string]string{"reason": "voice_unsupported"},
			At:        s.opts.Now(),
		})
		return domain.ErrUnsupportedCapability
	}

	s.mu.Lock()
	switch {
	case s.disposed:
		s.mu.Unlock()
		return domain.ErrSessionClosed
	case s.awaiting:
		s.mu.Unlock()
		return domain.ErrAwaitingReply
	case s.listening:
		s.mu.Unlock()
		return domain.ErrCaptureActive
	}
	s.listening = true
	s.captureGen++
	gen := s.captureGen
	s.lastActivity = s.opts.Now()
	s.renderLocked()
	s.mu.Unlock()

	err := s.opts.Capture.Start(ctx, func(res domain.CaptureResult) {
		s.onCaptureResult(gen, res)
	})
	if err != nil {
		s.mu.Lock()
		if s.listening && s.captureGen == gen {
			s.listening = false
			s.captureGen++
			s.renderLocked()
		}
		s.mu.Unlock()

		telemetry.VoiceCapturesTotal.WithLabelValues("start_failed").Inc()
		s.log.Warn("voice capture failed to start", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrCaptureFailure, err)
	}
	return nil
}

// StopVoiceCapture closes the microphone without submitting anything.
func (s *Session) StopVoiceCapture() error {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = false
	s.captureGen++
	s.renderLocked()
	s.mu.Unlock()

	telemetry.VoiceCapturesTotal.WithLabelValues("stopped").Inc()
	s.releaseCapture()
	return nil
}

func (s *Session) onCaptureResult(gen uint64, res domain.CaptureResult) {
	s.mu.Lock()
	if s.disposed || !s.listening || gen != s.captureGen {
		s.mu.Unlock()
		telemetry.StaleCallbacks.WithLabelValues("capture").Inc()
		s.log.Debug("discarding stale capture result",
			zap.String("outcome", string(res.Outcome)),
			zap.Error(domain.ErrStaleCallback),
		)
		return
	}
	defer s.mu.Unlock()

	s.listening = false
	s.captureGen++
	telemetry.VoiceCapturesTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case domain.CaptureTranscript:
		if text := strings.TrimSpace(res.Transcript); text != "" {
			if _, err := s.submitLocked(text); err != nil {
				s.log.Debug("transcript not submitted", zap.Error(err))
				s.renderLocked()
			}
			return
		}
		s.log.Debug("empty transcript dropped")
	case domain.CaptureError:
		s.log.Warn("voice capture error", zap.Error(fmt.Errorf("%w: %v", domain.ErrCaptureFailure, res.Err)))
	}
	s.renderLocked()
}

func (s *Session) releaseCapture() {
	if s.opts.Capture == nil {
		return
	}
	if err := s.opts.Capture.Stop(); err != nil {
		s.log.Warn("failed to stop voice capture", zap.Error(err))
	}
}

// UpdateContext re-resolves the persona after a route or venue change
func (s *Session) UpdateContext(route domain.RouteContext, venue *domain.VenueContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return domain.ErrSessionClosed
	}
	s.route = route
	s.venue = cloneVenue(venue)
	s.persona = s.opts.Resolver.Resolve(route, s.venue)
	s.lastActivity = s.opts.Now()
	s.renderLocked()
	return nil
}

// Persona returns the active persona
func (s *Session) Persona() domain.PersonaDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona.Clone()
}

// View returns the current render snapshot
func (s *Session) View() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Observe calls fn with the current view under the session lock, so it is
// ordered with every Render. fn must not block or call back into the session.
func (s *Session) Observe(fn func(domain.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.viewLocked())
}

// LastActivity is the time of the last accepted interaction
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Disposed reports whether Dispose was called
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose cancels the pending reply and any running capture. After it
// returns the log is never mutated and nothing is rendered again.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	wasListening := s.listening
	s.listening = false
	s.captureGen++
	s.mu.Unlock()

	if wasListening {
		s.releaseCapture()
	}
	s.log.Debug("session disposed")
}

// appendMessage is the only place the log grows.
func (s *Session) appendMessage(sender domain.Sender, text string, topic domain.Topic, followUps []string) domain.Message {
	now := s.opts.Now()
	msg := domain.Message{
		ID:        s.newMessageID(now, sender),
		Sender:    sender,
		Text:      text,
		Timestamp: now,
		Topic:     topic,
		FollowUps: followUps,
	}
	s.messages = append(s.messages, msg)
	s.lastActivity = now
	return msg
}

// newMessageID derives a time-ordered id and suffixes the sender so a user
// message and its reply never collide within the same millisecond.
func (s *Session) newMessageID(at time.Time, sender domain.Sender) string {
	id, err := ulid.New(ulid.Timestamp(at), s.entropy)
	if err != nil {
		return strconv.FormatInt(at.UnixNano(), 10) + "-" + strconv.Itoa(len(s.messages)) + "-" + string(sender)
	}
	return id.String() + "-" + string(sender)
}

func (s *Session) renderLocked() {
	if s.opts.Render == nil || s.disposed {
		return
	}
	s.opts.Render.Render(s.viewLocked())
}

func (s *Session) viewLocked() domain.View {
	view := domain.View{
		SessionID:        s.id,
		Persona:          s.persona.Type,
		Messages:         make([]domain.Message, len(s.messages)),
		IsAwaitingReply:  s.awaiting,
		IsCapturingVoice: s.listening,
		VoiceSupported:   s.opts.Capture != nil && s.opts.Capture.Supported(),
	}
	for i, m := range s.messages {
		if m.FollowUps != nil {
			m.FollowUps = append([]string(nil), m.FollowUps...)
		}
		view.Messages[i] = m
	}
	if len(s.messages) == 0 {
		p := s.persona.Clone()
		view.Greeting = p.Greeting
		view.Suggestions = p.Suggestions
	}
	return view
}

func (s *Session) publish(ctx context.Context, event domain.Event) {
	telemetry.SideEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	if s.opts.Events == nil {
		return
	}
	if err := s.opts.Events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish side-channel event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}

func cloneVenue(v *domain.VenueContext) *domain.VenueContext {
	if v == nil {
		return nil
	}
	out := &domain.VenueContext{Name: v.Name}
	if v.Types != nil {
		out.Types = append([]string(nil), v.Types...)
	}
	return out
}
