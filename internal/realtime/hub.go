// ABOUTME: In-memory fan-out hub routing push payloads to bound client connections
// ABOUTME: Maps session keys to connection send queues; no persistence, no replay

package realtime

import (
	"log/slog"
	"sync"
)

const (
	// sendBufferSize is the per-connection send queue depth. Publishes to a
	// connection whose queue is full are dropped, never blocked on.
	sendBufferSize = 16
)

// ReplyPayload is the final answer frame pushed to bound connections.
type ReplyPayload struct {
	Reply           string `json:"reply"`
	NeedsEscalation bool   `json:"needsEscalation"`
}

// TypingFrame is the ephemeral composing signal bracketing background work.
type TypingFrame struct {
	IsTyping bool `json:"isTyping"`
}

// AckFrame confirms a successful session bind.
type AckFrame struct {
	Type       string `json:"type"`
	SessionKey string `json:"sessionKey"`
}

// Publisher is the outbound surface the orchestrator needs from the hub.
type Publisher interface {
	PublishReply(sessionKey string, payload ReplyPayload)
	PublishTyping(sessionKey string, isTyping bool)
}

// Hub provides in-memory routing of push payloads to live connections.
// Each connection is bound to at most one session key at a time; multiple
// connections may share a key (e.g. several browser tabs). Payloads
// published to a key with no bound connections are dropped.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[string]chan<- any // sessionKey -> connID -> send queue
	byConn map[string]string                // connID -> sessionKey
	logger *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[string]map[string]chan<- any),
		byConn: make(map[string]string),
		logger: logger.With("component", "realtime"),
	}
}

// Bind registers a connection's send queue under a session key. If the
// connection was previously bound to another key it is moved.
func (h *Hub) Bind(connID, sessionKey string, send chan<- any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.byConn[connID]; ok && prev != sessionKey {
		h.removeLocked(connID, prev)
	}

	if _, ok := h.conns[sessionKey]; !ok {
		h.conns[sessionKey] = make(map[string]chan<- any)
	}
	h.conns[sessionKey][connID] = send
	h.byConn[connID] = sessionKey

	h.logger.Debug("connection bound", "session_key", sessionKey, "conn_id", connID)
}

// Unbind removes a connection from whatever key it is bound to.
// A key whose connection set becomes empty is dropped entirely.
func (h *Hub) Unbind(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.byConn[connID]
	if !ok {
		return
	}
	h.removeLocked(connID, key)

	h.logger.Debug("connection unbound", "session_key", key, "conn_id", connID)
}

// removeLocked deletes a connection entry. Callers hold the write lock.
func (h *Hub) removeLocked(connID, sessionKey string) {
	delete(h.byConn, connID)
	if set, ok := h.conns[sessionKey]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.conns, sessionKey)
		}
	}
}

// PublishReply pushes the final answer payload to every connection bound to
// the session key. A no-op when no connection is bound.
func (h *Hub) PublishReply(sessionKey string, payload ReplyPayload) {
	h.publish(sessionKey, payload)
}

// PublishTyping pushes the composing signal to every connection bound to
// the session key.
func (h *Hub) PublishTyping(sessionKey string, isTyping bool) {
	h.publish(sessionKey, TypingFrame{IsTyping: isTyping})
}

// publish fans a payload out to every send queue bound to the key.
// Non-blocking: payloads are dropped for connections whose queues are full,
// so a stalled consumer cannot delay delivery to the others.
func (h *Hub) publish(sessionKey string, payload any) {
	h.mu.RLock()
	set, ok := h.conns[sessionKey]
	if !ok || len(set) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy send queues under read lock to avoid holding it during sends
	targets := make([]chan<- any, 0, len(set))
	for _, ch := range set {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- payload:
			// Sent
		default:
			h.logger.Debug("dropped payload for slow connection",
				"session_key", sessionKey)
		}
	}
}

// boundConns reports how many connections are bound to a key.
func (h *Hub) boundConns(sessionKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[sessionKey])
}

// keyCount reports how many session keys currently have bound connections.
func (h *Hub) keyCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
