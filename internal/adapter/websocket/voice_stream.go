package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/service/dialogue"
)

// Inbound frame types
const (
	InboundVoice      = "voice"
	InboundSubmit     = "submit"
	InboundSuggestion = "suggestion"
)

// InboundFrame is what browsers send on the session socket
type InboundFrame struct {
	Type       string                 `json:"type"`
	Text       string                 `json:"text,omitempty"`
	Outcome    domain.CaptureOutcome  `json:"outcome,omitempty"`
	Transcript string                 `json:"transcript,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Item       *domain.SuggestionItem `json:"item,omitempty"`
}

// RemoteCapture is a ports.VoiceCapture whose recognizer runs in the browser:
// Start and Stop are relayed as frames and the result comes back on the socket.
type RemoteCapture struct {
	hub       *Hub
	sessionID string

	mu        sync.Mutex
	onResult  func(domain.CaptureResult)
	onRelease func()
}

// Capture returns the remote voice capture of one session
func (h *Hub) Capture(sessionID string) *RemoteCapture {
	return &RemoteCapture{hub: h, sessionID: sessionID}
}

// Supported is true while a browser is attached to the session
func (r *RemoteCapture) Supported() bool {
	return r.hub.HasClients(r.sessionID)
}

func (r *RemoteCapture) Start(ctx context.Context, onResult func(domain.CaptureResult)) error {
	r.mu.Lock()
	r.onResult = onResult
	r.mu.Unlock()

	if !r.hub.Send(r.sessionID, OutboundFrame{Type: FrameVoiceStart}) {
		r.mu.Lock()
		r.onResult = nil
		r.mu.Unlock()
		return errors.New("voice start frame not delivered")
	}
	return nil
}

func (r *RemoteCapture) Stop() error {
	r.mu.Lock()
	r.onResult = nil
	r.mu.Unlock()

	r.hub.Send(r.sessionID, OutboundFrame{Type: FrameVoiceStop})
	return nil
}

// Deliver hands a browser result to the pending capture cycle. Results with
// no cycle in progress are dropped and reported as false.
func (r *RemoteCapture) Deliver(res domain.CaptureResult) bool {
	r.mu.Lock()
	cb := r.onResult
	r.onResult = nil
	r.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(res)
	return true
}

// Release drops a pending callback when the session goes away
func (r *RemoteCapture) Release() {
	r.mu.Lock()
	r.onResult = nil
	release := r.onRelease
	r.onRelease = nil
	r.mu.Unlock()

	if release != nil {
		release()
	}
}

// Sessions looks up live dialogue sessions
type Sessions interface {
	Get(id string) (*dialogue.Session, error)
}

// SessionStreamHandler serves the per-session socket: it pushes views and
// events and accepts typed input, suggestion clicks and voice results.
type SessionStreamHandler struct {
	hub      *Hub
	sessions Sessions
	captures *CaptureRegistry
	logger   *zap.Logger
}

func NewSessionStreamHandler(hub *Hub, sessions Sessions, captures *CaptureRegistry, logger *zap.Logger) *SessionStreamHandler {
	return &SessionStreamHandler{
		hub:      hub,
		sessions: sessions,
		captures: captures,
		logger:   logger,
	}
}

// HandleSession runs for the lifetime of one browser connection
func (h *SessionStreamHandler) HandleSession(c *websocket.Conn) {
	sessionID := c.Params("id")
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		h.logger.Debug("websocket for unknown session", zap.String("session_id", sessionID))
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session not found"))
		c.Close()
		return
	}

	h.hub.AddClient(c, sessionID, func(client *Client) {
		h.sendCurrentView(session, client)
	}, func(data []byte) {
		h.handleFrame(session, data)
	})
}

// sendCurrentView gives a late joiner the transcript. The frame is queued
// under the session lock, so no render can overtake it.
func (h *SessionStreamHandler) sendCurrentView(session *dialogue.Session, client *Client) {
	session.Observe(func(view domain.View) {
		h.hub.SendTo(client, OutboundFrame{Type: FrameView, View: &view})
	})
}

func (h *SessionStreamHandler) handleFrame(session *dialogue.Session, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Debug("malformed websocket frame", zap.String("session_id", session.ID()), zap.Error(err))
		return
	}

	ctx := context.Background()
	switch frame.Type {
	case InboundSubmit:
		if err := session.Submit(ctx, frame.Text); err != nil {
			h.logger.Debug("websocket submit rejected", zap.String("session_id", session.ID()), zap.Error(err))
		}
	case InboundSuggestion:
		if frame.Item == nil {
			return
		}
		if _, err := session.SubmitSuggestion(ctx, *frame.Item); err != nil {
			h.logger.Debug("websocket suggestion rejected", zap.String("session_id", session.ID()), zap.Error(err))
		}
	case InboundVoice:
		res := frameResult(frame)
		if !h.captures.Deliver(session.ID(), res) {
			h.logger.Debug("voice result without active capture",
				zap.String("session_id", session.ID()),
				zap.String("outcome", string(res.Outcome)),
			)
		}
	default:
		h.logger.Debug("unknown websocket frame type", zap.String("type", frame.Type))
	}
}

func frameResult(frame InboundFrame) domain.CaptureResult {
	switch frame.Outcome {
	case domain.CaptureTranscript:
		return domain.TranscriptResult(frame.Transcript)
	case domain.CaptureError:
		msg := frame.Error
		if msg == "" {
			msg = "recognition error"
		}
		return domain.ErrorResult(errors.New(msg))
	default:
		return domain.EndedResult()
	}
}

// CaptureRegistry tracks the remote capture of every session so inbound
// voice frames reach the right cycle.
type CaptureRegistry struct {
	hub      *Hub
	mu       sync.Mutex
	captures map[string]*RemoteCapture
}

// NewCaptureRegistry must be called before the hub runs. A capture cycle
// still open when the last browser of its session disconnects ends silently.
func NewCaptureRegistry(hub *Hub) *CaptureRegistry {
	r := &CaptureRegistry{hub: hub, captures: make(map[string]*RemoteCapture)}
	hub.onEmpty = func(sessionID string) {
		r.Deliver(sessionID, domain.EndedResult())
	}
	return r
}

// For returns the capture of a session, creating it on first use
func (r *CaptureRegistry) For(sessionID string) *RemoteCapture {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.captures[sessionID]
	if !ok {
		c = r.hub.Capture(sessionID)
		c.onRelease = func() { r.remove(sessionID) }
		r.captures[sessionID] = c
	}
	return c
}

// Deliver routes a voice result to the session's capture
func (r *CaptureRegistry) Deliver(sessionID string, res domain.CaptureResult) bool {
	r.mu.Lock()
	c, ok := r.captures[sessionID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	return c.Deliver(res)
}

// Len returns the number of tracked captures
func (r *CaptureRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.captures)
}

func (r *CaptureRegistry) remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.captures, sessionID)
}

// SetupSessionRoutes registers the session socket
func SetupSessionRoutes(app *fiber.App, handler *SessionStreamHandler) {
	app.Use("/ws/sessions", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/sessions/:id", websocket.New(handler.HandleSession))
}
