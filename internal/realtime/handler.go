// ABOUTME: WebSocket endpoint binding client connections to session keys
// ABOUTME: Accepts session-id frames, acks them, and drains the hub send queue

package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	// frameTypeSessionID is the inbound frame announcing a session key.
	frameTypeSessionID = "session-id"
	// frameTypeSessionAck is the outbound bind confirmation.
	frameTypeSessionAck = "session-ack"

	// writeTimeout bounds a single frame write to one connection.
	writeTimeout = 10 * time.Second
)

// inboundFrame is the envelope for client-to-server frames.
type inboundFrame struct {
	Type       string `json:"type"`
	SessionKey string `json:"sessionKey"`
}

// Handler upgrades HTTP requests to WebSocket connections and manages their
// lifecycle against the hub.
type Handler struct {
	hub            *Hub
	logger         *slog.Logger
	originPatterns []string
}

// NewHandler creates a WebSocket handler over the given hub.
// originPatterns is passed through to the websocket accept options;
// empty means same-origin only.
func NewHandler(hub *Hub, originPatterns []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:            hub,
		logger:         logger.With("component", "realtime"),
		originPatterns: originPatterns,
	}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}

	connID := uuid.New().String()
	send := make(chan any, sendBufferSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.logger.Debug("client connected", "conn_id", connID)
	defer func() {
		h.hub.Unbind(connID)
		h.logger.Debug("client disconnecting", "conn_id", connID)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	go h.writeLoop(ctx, cancel, conn, connID, send)

	for {
		var frame inboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			h.logger.Debug("read error, closing", "conn_id", connID, "error", err)
			return
		}

		if frame.Type != frameTypeSessionID || frame.SessionKey == "" {
			// Unknown frames are ignored, not an error
			continue
		}

		h.hub.Bind(connID, frame.SessionKey, send)

		// The ack goes through the send queue so it stays ordered with
		// any payload published immediately after the bind.
		select {
		case send <- AckFrame{Type: frameTypeSessionAck, SessionKey: frame.SessionKey}:
		default:
			h.logger.Warn("send queue full, dropping ack",
				"conn_id", connID, "session_key", frame.SessionKey)
		}
	}
}

// writeLoop drains the send queue to the connection in order. A failed or
// timed-out write tears the connection down; the read loop then exits too.
func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, connID string, send <-chan any) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-send:
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, payload)
			writeCancel()
			if err != nil {
				h.logger.Debug("write error, closing", "conn_id", connID, "error", err)
				_ = conn.Close(websocket.StatusPolicyViolation, "write failure")
				return
			}
		}
	}
}
