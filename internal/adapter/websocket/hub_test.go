package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/mocks"
	"github.com/seu-repo/concierge/internal/ports"
	"github.com/seu-repo/concierge/internal/service/dialogue"
	"github.com/seu-repo/concierge/internal/service/intent"
	"github.com/seu-repo/concierge/internal/service/persona"
)

func nextFrame(t *testing.T, h *Hub) (string, OutboundFrame) {
	t.Helper()
	select {
	case env := <-h.broadcast:
		var frame OutboundFrame
		require.NoError(t, json.Unmarshal(env.data, &frame))
		return env.sessionID, frame
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return "", OutboundFrame{}
	}
}

func TestViewTarget_QueuesViewFrame(t *testing.T) {
	h := NewHub(zap.NewNop())

	h.Target("s1").Render(domain.View{SessionID: "s1", IsAwaitingReply: true})

	sessionID, frame := nextFrame(t, h)
	assert.Equal(t, "s1", sessionID)
	assert.Equal(t, FrameView, frame.Type)
	require.NotNil(t, frame.View)
	assert.True(t, frame.View.IsAwaitingReply)
}

func TestHub_PublishQueuesEventFrame(t *testing.T) {
	h := NewHub(zap.NewNop())

	err := h.Publish(context.Background(), domain.Event{Kind: domain.EventOpenCategoryPicker, SessionID: "s2"})

	require.NoError(t, err)
	sessionID, frame := nextFrame(t, h)
	assert.Equal(t, "s2", sessionID)
	assert.Equal(t, FrameEvent, frame.Type)
	assert.Equal(t, domain.EventOpenCategoryPicker, frame.Event.Kind)
}

func TestHub_SendNeverBlocks(t *testing.T) {
	h := NewHub(zap.NewNop())

	for i := 0; i < cap(h.broadcast); i++ {
		require.True(t, h.Send("s", OutboundFrame{Type: FrameView}))
	}
	assert.False(t, h.Send("s", OutboundFrame{Type: FrameView}))
}

func TestHub_RunRoutesBySession(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := &Client{hub: h, send: make(chan []byte, 4), sessionID: "a"}
	b := &Client{hub: h, send: make(chan []byte, 4), sessionID: "b"}
	h.register <- a
	h.register <- b

	h.Send("a", OutboundFrame{Type: FrameVoiceStart})

	select {
	case data := <-a.send:
		assert.Contains(t, string(data), FrameVoiceStart)
	case <-time.After(time.Second):
		t.Fatal("client a got nothing")
	}
	assert.Empty(t, b.send)
	assert.True(t, h.HasClients("a"))
}

func TestRemoteCapture_OneResultPerCycle(t *testing.T) {
	h := NewHub(zap.NewNop())
	registry := NewCaptureRegistry(h)
	capture := registry.For("s1")
	require.Same(t, capture, registry.For("s1"))

	var got []domain.CaptureResult
	require.NoError(t, capture.Start(context.Background(), func(res domain.CaptureResult) {
		got = append(got, res)
	}))
	_, frame := nextFrame(t, h)
	assert.Equal(t, FrameVoiceStart, frame.Type)

	assert.True(t, registry.Deliver("s1", domain.TranscriptResult("oi")))
	assert.False(t, registry.Deliver("s1", domain.EndedResult()))
	require.Len(t, got, 1)
	assert.Equal(t, "oi", got[0].Transcript)
}

func TestRemoteCapture_StopDropsCallback(t *testing.T) {
	h := NewHub(zap.NewNop())
	capture := h.Capture("s1")
	called := false
	require.NoError(t, capture.Start(context.Background(), func(domain.CaptureResult) { called = true }))

	require.NoError(t, capture.Stop())

	assert.False(t, capture.Deliver(domain.TranscriptResult("oi")))
	assert.False(t, called)
}

func TestCaptureRegistry_ReleaseForgetsSession(t *testing.T) {
	registry := NewCaptureRegistry(NewHub(zap.NewNop()))
	capture := registry.For("s1")
	require.Equal(t, 1, registry.Len())

	capture.Release()

	assert.Zero(t, registry.Len())
	assert.False(t, registry.Deliver("s1", domain.EndedResult()))
}

func TestFrameResult(t *testing.T) {
	assert.Equal(t, domain.TranscriptResult("olá"), frameResult(InboundFrame{Outcome: domain.CaptureTranscript, Transcript: "olá"}))
	assert.Equal(t, domain.CaptureError, frameResult(InboundFrame{Outcome: domain.CaptureError}).Outcome)
	assert.EqualError(t, frameResult(InboundFrame{Outcome: domain.CaptureError, Error: "not-allowed"}).Err, "not-allowed")
	assert.Equal(t, domain.EndedResult(), frameResult(InboundFrame{Outcome: "bogus"}))
}

func TestSessionStreamHandler_HandleFrame(t *testing.T) {
	// Arrange
	h := NewHub(zap.NewNop())
	registry := NewCaptureRegistry(h)
	clock := mocks.NewManualScheduler(time.Now())
	manager := dialogue.NewManager(dialogue.ManagerDeps{
		Resolver:   persona.NewResolver(nil),
		Classifier: intent.NewClassifier(),
		Responder:  intent.NewResponder(nil),
		Scheduler:  clock,
		Events:     h,
		Now:        clock.Now,
	}, dialogue.ManagerConfig{ReplyDelay: time.Second}, zap.NewNop())
	session, err := manager.Create(context.Background(), "/app/cellar", nil)
	require.NoError(t, err)
	handler := NewSessionStreamHandler(h, manager, registry, zap.NewNop())

	// Act
	handler.handleFrame(session, []byte(`{"type":"submit","text":"Qual vinho combina com o jantar?"}`))
	handler.handleFrame(session, []byte(`{"type":"submit","text":"de novo"}`))
	handler.handleFrame(session, []byte(`not json`))
	handler.handleFrame(session, []byte(`{"type":"suggestion","item":{"label":"Escolher categoria","is_special":true,"action":"open_category_picker"}}`))
	clock.Advance(time.Second)

	// Assert
	msgs := session.View().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.TopicRestaurant, msgs[1].Topic)

	_, frame := nextFrame(t, h)
	assert.Equal(t, FrameEvent, frame.Type)
	assert.Equal(t, domain.EventOpenCategoryPicker, frame.Event.Kind)
}

func drainViews(t *testing.T, c *Client) []domain.View {
	t.Helper()
	var views []domain.View
	for {
		select {
		case data := <-c.send:
			var frame OutboundFrame
			require.NoError(t, json.Unmarshal(data, &frame))
			if frame.Type == FrameView {
				views = append(views, *frame.View)
			}
		case <-time.After(200 * time.Millisecond):
			return views
		}
	}
}

func TestHub_LateJoinerEndsOnLatestView(t *testing.T) {
	tests := []struct {
		name                string
		replyBeforeSnapshot bool
	}{
		{name: "reply lands between register and snapshot", replyBeforeSnapshot: true},
		{name: "reply lands right after snapshot", replyBeforeSnapshot: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := NewHub(zap.NewNop())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go h.Run(ctx)

			clock := mocks.NewManualScheduler(time.Now())
			manager := dialogue.NewManager(dialogue.ManagerDeps{
				Resolver:   persona.NewResolver(nil),
				Classifier: intent.NewClassifier(),
				Responder:  intent.NewResponder(nil),
				Scheduler:  clock,
				Events:     h,
				Render:     func(id string) ports.RenderTarget { return h.Target(id) },
				Now:        clock.Now,
			}, dialogue.ManagerConfig{ReplyDelay: time.Second}, zap.NewNop())
			session, err := manager.Create(ctx, "/app/travel", nil)
			require.NoError(t, err)
			require.NoError(t, session.Submit(ctx, "Quero viajar para a praia"))

			handler := NewSessionStreamHandler(h, manager, NewCaptureRegistry(h), zap.NewNop())
			client := &Client{hub: h, send: make(chan []byte, sendBuffer), sessionID: session.ID()}

			// Act
			attached := h.attach(client, func(c *Client) {
				if tt.replyBeforeSnapshot {
					clock.Advance(time.Second)
				}
				handler.sendCurrentView(session, c)
			})
			if !tt.replyBeforeSnapshot {
				clock.Advance(time.Second)
			}

			// Assert
			require.True(t, attached)
			views := drainViews(t, client)
			require.NotEmpty(t, views)
			last := views[len(views)-1]
			assert.False(t, last.IsAwaitingReply)
			assert.Len(t, last.Messages, 2)
		})
	}
}

func TestHub_SendToSkipsOtherClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := &Client{hub: h, send: make(chan []byte, 4), sessionID: "s"}
	b := &Client{hub: h, send: make(chan []byte, 4), sessionID: "s"}
	require.True(t, h.attach(a, nil))
	require.True(t, h.attach(b, nil))

	require.True(t, h.SendTo(b, OutboundFrame{Type: FrameVoiceStop}))
	require.True(t, h.Send("s", OutboundFrame{Type: FrameVoiceStart}))

	select {
	case data := <-b.send:
		assert.Contains(t, string(data), FrameVoiceStop)
	case <-time.After(time.Second):
		t.Fatal("client b got nothing")
	}
	select {
	case data := <-a.send:
		assert.Contains(t, string(data), FrameVoiceStart)
	case <-time.After(time.Second):
		t.Fatal("client a got nothing")
	}
}

func TestHub_AttachAfterStop(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	called := false
	ok := h.attach(&Client{hub: h, send: make(chan []byte, 1), sessionID: "s"}, func(*Client) { called = true })

	assert.False(t, ok)
	assert.False(t, called)
}
