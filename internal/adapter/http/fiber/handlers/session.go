package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/service/dialogue"
)

// ViewArchive reads the last stored view of a session that is no longer live
type ViewArchive interface {
	Load(ctx context.Context, sessionID string) (domain.View, error)
}

type SessionHandler struct {
	manager *dialogue.Manager
	archive ViewArchive
	loc     *time.Location
	log     *zap.Logger
}

func NewSessionHandler(manager *dialogue.Manager, loc *time.Location, log *zap.Logger) *SessionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionHandler{
		manager: manager,
		loc:     loc,
		log:     log,
	}
}

// WithArchive lets Get answer for evicted or deleted sessions from their
// stored snapshot
func (h *SessionHandler) WithArchive(archive ViewArchive) *SessionHandler {
	h.archive = archive
	return h
}

// ContextRequest carries the navigation path and the optional current venue
type ContextRequest struct {
	Route string               `json:"route"`
	Venue *domain.VenueContext `json:"venue,omitempty"`
}

type SubmitRequest struct {
	Text string `json:"text"`
}

// SuggestionRequest selects a greeting suggestion by position or label.
// A label that matches no suggestion is treated as a follow-up chip.
type SuggestionRequest struct {
	Index *int   `json:"index,omitempty"`
	Label string `json:"label,omitempty"`
}

type MessageResponse struct {
	domain.Message
	DisplayTime string `json:"display_time"`
}

type ViewResponse struct {
	SessionID        string                  `json:"session_id"`
	Persona          domain.PersonaType      `json:"persona"`
	Messages         []MessageResponse       `json:"messages"`
	IsAwaitingReply  bool                    `json:"is_awaiting_reply"`
	IsCapturingVoice bool                    `json:"is_capturing_voice"`
	VoiceSupported   bool                    `json:"voice_supported"`
	Greeting         string                  `json:"greeting,omitempty"`
	Suggestions      []domain.SuggestionItem `json:"suggestions,omitempty"`
	Archived         bool                    `json:"archived,omitempty"`
}

func (h *SessionHandler) toResponse(v domain.View) ViewResponse {
	msgs := make([]MessageResponse, len(v.Messages))
	for i, m := range v.Messages {
		msgs[i] = MessageResponse{Message: m, DisplayTime: m.DisplayTime(h.loc)}
	}
	return ViewResponse{
		SessionID:        v.SessionID,
		Persona:          v.Persona,
		Messages:         msgs,
		IsAwaitingReply:  v.IsAwaitingReply,
		IsCapturingVoice: v.IsCapturingVoice,
		VoiceSupported:   v.VoiceSupported,
		Greeting:         v.Greeting,
		Suggestions:      v.Suggestions,
	}
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req ContextRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
	}

	session, err := h.manager.Create(c.UserContext(), req.Route, req.Venue)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(session.View()))
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	session, err := h.manager.Get(id)
	if errors.Is(err, domain.ErrSessionNotFound) && h.archive != nil {
		return h.getArchived(c, id, err)
	}
	if err != nil {
		return err
	}
	return c.JSON(h.toResponse(session.View()))
}

// getArchived serves the stored transcript of a session that is gone. The
// session can no longer reply or listen, so those flags are cleared.
func (h *SessionHandler) getArchived(c *fiber.Ctx, id string, notFound error) error {
	view, err := h.archive.Load(c.UserContext(), id)
	if err != nil {
		h.log.Debug("no archived view", zap.String("session_id", id), zap.Error(err))
		return notFound
	}

	resp := h.toResponse(view)
	resp.IsAwaitingReply = false
	resp.IsCapturingVoice = false
	resp.VoiceSupported = false
	resp.Archived = true
	return c.JSON(resp)
}

func (h *SessionHandler) UpdateContext(c *fiber.Ctx) error {
	var req ContextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.manager.UpdateContext(c.Params("id"), req.Route, req.Venue)
	if err != nil {
		return err
	}
	return c.JSON(h.toResponse(session.View()))
}

func (h *SessionHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return err
	}
	if err := session.Submit(c.UserContext(), req.Text); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.toResponse(session.View()))
}

func (h *SessionHandler) Suggestion(c *fiber.Ctx) error {
	var req SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return err
	}

	item, found, err := pickSuggestion(session.Persona().Suggestions, req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !found {
		if err := session.SubmitFollowUp(c.UserContext(), req.Label); err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(h.toResponse(session.View()))
	}

	event, err := session.SubmitSuggestion(c.UserContext(), item)
	if err != nil {
		return err
	}
	if event != nil {
		return c.JSON(fiber.Map{"event": event})
	}
	return c.Status(fiber.StatusAccepted).JSON(h.toResponse(session.View()))
}

func pickSuggestion(items []domain.SuggestionItem, req SuggestionRequest) (domain.SuggestionItem, bool, error) {
	if req.Index != nil {
		if *req.Index < 0 || *req.Index >= len(items) {
			return domain.SuggestionItem{}, false, errors.New("suggestion index out of range")
		}
		return items[*req.Index], true, nil
	}
	if req.Label == "" {
		return domain.SuggestionItem{}, false, errors.New("index or label is required")
	}
	for _, item := range items {
		if item.Label == req.Label {
			return item, true, nil
		}
	}
	return domain.SuggestionItem{}, false, nil
}

func (h *SessionHandler) StartVoice(c *fiber.Ctx) error {
	session, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return err
	}
	if err := session.StartVoiceCapture(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(h.toResponse(session.View()))
}

func (h *SessionHandler) StopVoice(c *fiber.Ctx) error {
	session, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return err
	}
	if err := session.StopVoiceCapture(); err != nil {
		return err
	}
	return c.JSON(h.toResponse(session.View()))
}

func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if err := h.manager.Dispose(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterRoutes mounts the session endpoints on router
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	sessions := router.Group("/sessions")
	sessions.Post("/", h.Create)
	sessions.Get("/:id", h.Get)
	sessions.Put("/:id/context", h.UpdateContext)
	sessions.Post("/:id/messages", h.Submit)
	sessions.Post("/:id/suggestions", h.Suggestion)
	sessions.Post("/:id/voice/start", h.StartVoice)
	sessions.Post("/:id/voice/stop", h.StopVoice)
	sessions.Delete("/:id", h.Delete)
}
