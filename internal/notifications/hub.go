package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"zeroai/internal/middleware"
	"zeroai/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxTotalConns = 10000

// ErrHubFull is returned when the connection limit is reached.
var ErrHubFull = errors.New("server connection limit reached")

// Hub tracks timeline stream clients and broadcasts events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "timeline hub" }

// Register adds a connection. userID may be empty for anonymous viewers.
func (h *Hub) Register(conn *websocket.Conn, userID string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}

	c := newClient(h, conn, userID)
	h.clients[c] = struct{}{}
	observability.WebSocketConnections.Inc()
	return c, nil
}

// UnregisterClient removes c and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
	observability.WebSocketConnections.Dec()
}

// Broadcast queues message for every client.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if c.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Start subscribes the hub to the notifier's timeline channel.
func (h *Hub) Start(ctx context.Context, n *Notifier) error {
	if err := n.StartTimelineSubscriber(ctx, func(payload string) {
		h.Broadcast([]byte(payload))
	}); err != nil {
		return err
	}
	middleware.Logger.Info("timeline hub subscribed", slog.String("hub", h.Name()))
	return nil
}

// Shutdown disconnects every client and rejects new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnections.Dec()
	}
	return nil
}
