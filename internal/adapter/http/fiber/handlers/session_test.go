package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/adapter/cache"
	"github.com/seu-repo/concierge/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/mocks"
	"github.com/seu-repo/concierge/internal/ports"
	"github.com/seu-repo/concierge/internal/service/dialogue"
	"github.com/seu-repo/concierge/internal/service/intent"
	"github.com/seu-repo/concierge/internal/service/persona"
)

type apiFixture struct {
	app     *fiber.App
	clock   *mocks.ManualScheduler
	events  *mocks.MockEventPublisher
	capture *mocks.MockVoiceCapture
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return buildAPIFixture(t, nil)
}

// buildAPIFixture renders into snapshots and serves them as the archive
// when snapshots is set
func buildAPIFixture(t *testing.T, snapshots *cache.SnapshotStore) *apiFixture {
	t.Helper()

	log := zap.NewNop()
	f := &apiFixture{
		clock:   mocks.NewManualScheduler(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		events:  &mocks.MockEventPublisher{},
		capture: &mocks.MockVoiceCapture{},
	}
	resolver := persona.NewResolver(nil)
	deps := dialogue.ManagerDeps{
		Resolver:   resolver,
		Classifier: intent.NewClassifier(),
		Responder:  intent.NewResponder(nil),
		Scheduler:  f.clock,
		Events:     f.events,
		Capture:    func(string) ports.VoiceCapture { return f.capture },
		Now:        f.clock.Now,
	}
	if snapshots != nil {
		deps.Render = func(id string) ports.RenderTarget { return snapshots.Target(id) }
	}
	manager := dialogue.NewManager(deps, dialogue.ManagerConfig{ReplyDelay: time.Second}, log)
	t.Cleanup(manager.Close)

	f.app = fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log)})
	v1 := f.app.Group("/api/v1")
	sessions := NewSessionHandler(manager, time.UTC, log)
	if snapshots != nil {
		sessions.WithArchive(snapshots)
	}
	sessions.RegisterRoutes(v1)
	NewPersonaHandler(resolver, log).RegisterRoutes(v1)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (f *apiFixture) createSession(t *testing.T, route string) ViewResponse {
	t.Helper()
	resp, body := f.do(t, "POST", "/api/v1/sessions", ContextRequest{Route: route})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var view ViewResponse
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func TestSessionAPI_CreateAndConverse(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/app/travel")
	require.NotEmpty(t, view.SessionID)
	assert.Equal(t, domain.PersonaTravel, view.Persona)
	assert.NotEmpty(t, view.Greeting)

	base := "/api/v1/sessions/" + view.SessionID
	resp, body := f.do(t, "POST", base+"/messages", SubmitRequest{Text: "Quero viajar para a praia"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.IsAwaitingReply)

	resp, _ = f.do(t, "POST", base+"/messages", SubmitRequest{Text: "outra"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	f.clock.Advance(time.Second)

	resp, body = f.do(t, "GET", base, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Messages, 2)
	assert.Equal(t, domain.TopicTrip, view.Messages[1].Topic)
	assert.Equal(t, "12:00", view.Messages[0].DisplayTime)
	assert.False(t, view.IsAwaitingReply)
}

func TestSessionAPI_BlankSubmitIsNoContent(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/")

	resp, _ := f.do(t, "POST", "/api/v1/sessions/"+view.SessionID+"/messages", SubmitRequest{Text: "   "})

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestSessionAPI_UnknownSession(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.do(t, "GET", "/api/v1/sessions/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, "DELETE", "/api/v1/sessions/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSessionAPI_SpecialSuggestionReturnsEvent(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/app/cellar")

	var special string
	for _, s := range view.Suggestions {
		if s.IsSpecial {
			special = s.Label
		}
	}
	require.NotEmpty(t, special)

	resp, body := f.do(t, "POST", "/api/v1/sessions/"+view.SessionID+"/suggestions", SuggestionRequest{Label: special})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Event domain.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, domain.EventOpenCategoryPicker, out.Event.Kind)
	assert.Len(t, f.events.Published(), 1)
}

func TestSessionAPI_SuggestionByIndexAndFollowUp(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/app/travel")
	base := "/api/v1/sessions/" + view.SessionID

	idx := 0
	resp, _ := f.do(t, "POST", base+"/suggestions", SuggestionRequest{Index: &idx})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	f.clock.Advance(time.Second)

	resp, _ = f.do(t, "POST", base+"/suggestions", SuggestionRequest{Label: "Ver hotéis"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	f.clock.Advance(time.Second)

	_, body := f.do(t, "GET", base, nil)
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Messages, 4)
	assert.Equal(t, "Ver hotéis", view.Messages[2].Text)
	assert.Equal(t, domain.TopicLodging, view.Messages[3].Topic)

	bad := 99
	resp, _ = f.do(t, "POST", base+"/suggestions", SuggestionRequest{Index: &bad})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionAPI_VoiceUnsupportedIsNotice(t *testing.T) {
	f := newAPIFixture(t)
	f.capture.Unsupported = true
	view := f.createSession(t, "/")

	resp, body := f.do(t, "POST", "/api/v1/sessions/"+view.SessionID+"/voice/start", nil)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "notice")
}

func TestSessionAPI_VoiceStartStop(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/")
	base := "/api/v1/sessions/" + view.SessionID

	resp, body := f.do(t, "POST", base+"/voice/start", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.IsCapturingVoice)

	resp, _ = f.do(t, "POST", base+"/voice/start", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = f.do(t, "POST", base+"/voice/stop", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.False(t, view.IsCapturingVoice)
}

func TestSessionAPI_UpdateContextAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	view := f.createSession(t, "/")
	base := "/api/v1/sessions/" + view.SessionID

	resp, body := f.do(t, "PUT", base+"/context", ContextRequest{
		Route: "/app/drinks-food",
		Venue: &domain.VenueContext{Name: "Cantina", Types: []string{"restaurant"}},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, domain.PersonaChef, view.Persona)
	assert.Contains(t, view.Suggestions[0].Label, "Cantina")

	resp, _ = f.do(t, "DELETE", base, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, "GET", base, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSessionAPI_GetServesArchivedTranscript(t *testing.T) {
	// Arrange
	f := buildAPIFixture(t, cache.NewSnapshotStore(mocks.NewMockCache(), time.Hour, zap.NewNop()))
	view := f.createSession(t, "/app/travel")
	base := "/api/v1/sessions/" + view.SessionID

	resp, _ := f.do(t, "POST", base+"/messages", SubmitRequest{Text: "Quero viajar para a praia"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	f.clock.Advance(time.Second)
	resp, _ = f.do(t, "POST", base+"/messages", SubmitRequest{Text: "Onde comer?"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	// Act
	resp, _ = f.do(t, "DELETE", base, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, body := f.do(t, "GET", base, nil)

	// Assert
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var archived ViewResponse
	require.NoError(t, json.Unmarshal(body, &archived))
	assert.True(t, archived.Archived)
	assert.Equal(t, view.SessionID, archived.SessionID)
	require.Len(t, archived.Messages, 3)
	assert.Equal(t, domain.TopicTrip, archived.Messages[1].Topic)
	assert.False(t, archived.IsAwaitingReply)
	assert.False(t, archived.VoiceSupported)

	// the session itself stays gone
	resp, _ = f.do(t, "POST", base+"/messages", SubmitRequest{Text: "oi"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, "GET", "/api/v1/sessions/never-existed", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPersonaAPI_Resolve(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, "GET", "/api/v1/personas/resolve?route=/app/drinks-food&venue_name=Bistr%C3%B4&venue_types=bar,%20Restaurant", nil)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Route   domain.RouteContext      `json:"route"`
		Persona domain.PersonaDefinition `json:"persona"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, domain.RouteDrinksFood, out.Route)
	assert.Equal(t, domain.PersonaChef, out.Persona.Type)
	assert.Contains(t, out.Persona.Suggestions[0].Label, "Bistrô")
}
