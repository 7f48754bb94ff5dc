// Package ws mirrors notification events to connected clients over
// websockets.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// client wraps a websocket connection with a write lock: gorilla
// connections allow only one concurrent writer.
type client struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (c *client) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

// Hub tracks connected websocket clients and fans event frames out to them.
type Hub struct {
	lg       *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub(lg *zap.Logger) *Hub {
	return &Hub{
		lg: lg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer disconnects. The read loop discards inbound messages; the channel is
// push-only.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, userID: userID}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event frame to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(frame{Event: event, Payload: payload}); err != nil {
			h.lg.Debug("websocket write failed", zap.String("user_id", c.userID), zap.Error(err))
		}
	}
}

// SendTo sends an event frame to every connection of a single user.
func (h *Hub) SendTo(userID, event string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, 1)
	for c := range h.clients {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(frame{Event: event, Payload: payload}); err != nil {
			h.lg.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
