// Package websocket pushes portfolio valuation snapshots to the browser tabs
// of a session.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"volexplorer/internal/infrastructure"
)

// TypeConnection is the first message a client receives
const TypeConnection = "connection"

// Message is the JSON envelope of every pushed frame
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type outbound struct {
	sessionID string
	payload   []byte
}

// Hub tracks connected clients by session and fans messages out to them.
// All client map changes happen on the Run goroutine.
type Hub struct {
	clients   map[*Client]bool
	bySession map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound
	done       chan struct{}

	mu           sync.RWMutex
	messagesSent int64
	dropped      int64

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewHub creates a hub; call Run to start it
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		bySession:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 256),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Run serves registrations and deliveries until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", slog.Int("clients", h.ClientCount()))
			return nil

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	set, ok := h.bySession[c.sessionID]
	if !ok {
		set = make(map[*Client]bool)
		h.bySession[c.sessionID] = set
	}
	set[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := c.context()
	h.metrics.RecordWebSocketClient(ctx, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", c.id),
		slog.String("remote_addr", c.remoteAddr),
		slog.Int("total_clients", count))

	payload, err := encode(TypeConnection, c.sessionID, map[string]interface{}{
		"status":    "connected",
		"client_id": c.id,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", c.id))
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.detachLocked(c) {
		h.mu.Unlock()
		return
	}
	count := len(h.clients)
	h.mu.Unlock()

	ctx := c.context()
	h.metrics.RecordWebSocketClient(ctx, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", c.id),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

// detachLocked removes c and closes its send channel; false if c was not registered
func (h *Hub) detachLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	if set := h.bySession[c.sessionID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.bySession, c.sessionID)
		}
	}
	close(c.send)
	return true
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.bySession[msg.sessionID]))
	for c := range h.bySession[msg.sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg.payload:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			// slow consumer: drop the client rather than block the hub
			h.mu.Lock()
			detached := h.detachLocked(c)
			h.dropped++
			h.mu.Unlock()
			if detached {
				h.metrics.RecordWebSocketClient(c.context(), -1)
				h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
					slog.String("client_id", c.id))
			}
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.detachLocked(c)
		h.metrics.RecordWebSocketClient(context.Background(), -1)
	}
}

// Register adds a client. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; a no-op once the hub has stopped
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToSession queues a message for every client of sessionID. Sessions
// without a connected client are skipped.
func (h *Hub) SendToSession(sessionID, messageType string, data interface{}) {
	if sessionID == "" || h.SessionClientCount(sessionID) == 0 {
		return
	}
	payload, err := encode(messageType, sessionID, data)
	if err != nil {
		h.logger.Error("failed to encode message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
		return
	}
	select {
	case h.outbound <- outbound{sessionID: sessionID, payload: payload}:
	case <-h.done:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.Warn("outbound queue full, message dropped",
			slog.String("message_type", messageType))
	}
}

func encode(messageType, sessionID string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{
		Type:      messageType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients subscribed to sessionID
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySession[sessionID])
}

// Stats returns delivery counters
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients": len(h.clients),
		"sessions":       len(h.bySession),
		"messages_sent":  h.messagesSent,
		"dropped":        h.dropped,
	}
}
