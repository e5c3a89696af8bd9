package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Outbound frame types
const (
	FrameView       = "view"
	FrameEvent      = "event"
	FrameVoiceStart = "voice_start"
	FrameVoiceStop  = "voice_stop"
)

// OutboundFrame is what the hub pushes to browsers
type OutboundFrame struct {
	Type  string        `json:"type"`
	View  *domain.View  `json:"view,omitempty"`
	Event *domain.Event `json:"event,omitempty"`
}

type envelope struct {
	sessionID string
	data      []byte

	// Set when the frame is for one client only.
	client *Client
}

// Hub fans session views and events out to the websocket clients
// attached to each session.
type Hub struct {
	// Clients grouped by session.
	sessions map[string]map[*Client]bool

	// Outbound frames addressed to one session.
	broadcast chan envelope

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Called outside the lock when the last client of a session leaves.
	onEmpty func(sessionID string)

	mu  sync.RWMutex
	log *zap.Logger
}

// Client is one browser connection attached to a session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.sessionID] == nil {
				h.sessions[client.sessionID] = make(map[*Client]bool)
			}
			h.sessions[client.sessionID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			emptied := h.removeLocked(client)
			h.mu.Unlock()
			h.notifyEmpty(emptied, client.sessionID)
		case env := <-h.broadcast:
			emptied := false
			h.mu.Lock()
			for client := range h.sessions[env.sessionID] {
				if env.client != nil && env.client != client {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					h.log.Warn("dropping slow websocket client", zap.String("session_id", env.sessionID))
					emptied = h.removeLocked(client) || emptied
				}
			}
			h.mu.Unlock()
			h.notifyEmpty(emptied, env.sessionID)
		}
	}
}

// removeLocked reports whether the session has no clients left
func (h *Hub) removeLocked(client *Client) bool {
	clients := h.sessions[client.sessionID]
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
		return true
	}
	return false
}

func (h *Hub) notifyEmpty(emptied bool, sessionID string) {
	if emptied && h.onEmpty != nil {
		h.onEmpty(sessionID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// HasClients reports whether any browser is attached to the session
func (h *Hub) HasClients(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// Send queues a frame for every client of the session without blocking.
// It reports false when the frame had to be dropped.
func (h *Hub) Send(sessionID string, frame OutboundFrame) bool {
	return h.enqueue(envelope{sessionID: sessionID}, frame)
}

// SendTo queues a frame for a single registered client. Frames queued by
// Send and SendTo are delivered in the order they were queued.
func (h *Hub) SendTo(client *Client, frame OutboundFrame) bool {
	return h.enqueue(envelope{sessionID: client.sessionID, client: client}, frame)
}

func (h *Hub) enqueue(env envelope, frame OutboundFrame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("failed to encode websocket frame", zap.String("type", frame.Type), zap.Error(err))
		return false
	}
	env.data = data

	select {
	case h.broadcast <- env:
		return true
	default:
		h.log.Warn("websocket broadcast queue full", zap.String("session_id", env.sessionID), zap.String("type", frame.Type))
		return false
	}
}

// Target returns the render target that pushes views of one session
func (h *Hub) Target(sessionID string) *ViewTarget {
	return &ViewTarget{hub: h, sessionID: sessionID}
}

// Publish forwards a side-channel event to the session's browsers
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	h.Send(event.SessionID, OutboundFrame{Type: FrameEvent, Event: &event})
	return nil
}

// ViewTarget is a ports.RenderTarget bound to one session
type ViewTarget struct {
	hub       *Hub
	sessionID string
}

func (t *ViewTarget) Render(view domain.View) {
	t.hub.Send(t.sessionID, OutboundFrame{Type: FrameView, View: &view})
}

// AddClient attaches a connection to a session and blocks in its read loop
// until the connection closes. onRegistered runs once the hub delivers the
// session's frames to the client, which is the point to send it the current
// state. onFrame receives every inbound text frame.
func (h *Hub) AddClient(conn *websocket.Conn, sessionID string, onRegistered func(*Client), onFrame func([]byte)) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), sessionID: sessionID}
	if !h.attach(client, onRegistered) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(onFrame)
}

func (h *Hub) attach(client *Client, onRegistered func(*Client)) bool {
	select {
	case h.register <- client:
	case <-h.done:
		return false
	}
	if onRegistered != nil {
		onRegistered(client)
	}
	return true
}

func (c *Client) readPump(onFrame func([]byte)) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket closed unexpectedly", zap.String("session_id", c.sessionID), zap.Error(err))
			}
			return
		}
		if messageType == websocket.TextMessage && onFrame != nil {
			onFrame(data)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
