// Package push delivers refreshed data to connected browsers over
// WebSocket. Each mutation on a user's ledger re-sends that user's
// full transaction list; admin dashboards additionally receive
// system-wide refresh events.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pravacash/internal/core"
	applog "pravacash/internal/log"

	"github.com/gorilla/websocket"
)

// Event names pushed to clients.
const (
	EventTransactionsUpdated      = "transactions:updated"
	EventAdminStatsUpdated        = "admin:stats:updated"
	EventAdminUsersUpdated        = "admin:users:updated"
	EventAdminTransactionsUpdated = "admin:transactions:updated"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 8
)

// Message is the frame sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	admin bool

	// mu serializes sends against close: broadcasters hold *client
	// references snapshotted outside the hub lock, so the channel may
	// only be closed when no send can be in flight.
	mu     sync.Mutex
	closed bool
}

// trySend queues the payload. It reports false when the buffer is
// full; a closed client swallows the payload silently.
func (c *client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks connected clients by user id and fans events out to them.
type Hub struct {
	logger *applog.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	upgrader websocket.Upgrader
}

func NewHub(logger *applog.Logger) *Hub {
	return &Hub{
		logger:  logger.WithComponent(applog.ComponentPush),
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The endpoint is already gated by a token; browsers
			// connect from a separately served frontend.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and keeps the connection registered
// until it drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string, role core.Role) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		admin: role == core.RoleAdmin,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String(applog.FieldUserID, userID),
		slog.Bool("admin", c.admin))

	go h.writePump(c)
	h.readPump(c, userID)
}

// readPump discards inbound frames; it exists to notice the peer going
// away and to answer pings.
func (h *Hub) readPump(c *client, userID string) {
	defer func() {
		h.unregister(userID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	if set, ok := h.clients[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
	h.mu.Unlock()

	c.shutdown()
}

// Broadcast sends an event to every connection of one user. Slow
// clients are dropped rather than blocking the caller.
func (h *Hub) Broadcast(ctx context.Context, userID, event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal push message",
			slog.String(applog.FieldEvent, event),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(userID, c, payload)
	}

	h.logger.DebugContext(ctx, "event broadcast",
		slog.String(applog.FieldUserID, userID),
		slog.String(applog.FieldEvent, event),
		slog.Int(applog.FieldCount, len(targets)))
}

// BroadcastAdmins sends an event to every connected admin regardless
// of which user triggered it.
func (h *Hub) BroadcastAdmins(ctx context.Context, event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal push message",
			slog.String(applog.FieldEvent, event),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	type target struct {
		userID string
		c      *client
	}
	var targets []target
	for userID, set := range h.clients {
		for c := range set {
			if c.admin {
				targets = append(targets, target{userID, c})
			}
		}
	}
	h.mu.RUnlock()

	for _, tg := range targets {
		h.deliver(tg.userID, tg.c, payload)
	}
}

func (h *Hub) deliver(userID string, c *client, payload []byte) {
	if c.trySend(payload) {
		return
	}
	// Buffer full means the reader is stuck; cut it loose.
	h.unregister(userID, c)
	c.conn.Close()
}

// ConnectionCount reports how many connections one user currently has.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
