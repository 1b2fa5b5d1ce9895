// ABOUTME: End-to-end tests for the WebSocket handler over httptest
// ABOUTME: Covers bind/ack exchange, push delivery order, and unbind on close

package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frame map[string]json.RawMessage
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func TestHandler_BindAck(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, NewHandler(hub, nil, nil))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{
		"type":       "session-id",
		"sessionKey": "s1",
	}))

	frame := readFrame(t, conn)
	assert.JSONEq(t, `"session-ack"`, string(frame["type"]))
	assert.JSONEq(t, `"s1"`, string(frame["sessionKey"]))
}

func TestHandler_DeliversTypingThenReplyInOrder(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, NewHandler(hub, nil, nil))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{
		"type":       "session-id",
		"sessionKey": "s1",
	}))
	readFrame(t, conn) // ack

	// Wait for the bind to be visible before publishing
	require.Eventually(t, func() bool { return hub.boundConns("s1") == 1 },
		time.Second, 10*time.Millisecond)

	hub.PublishTyping("s1", true)
	hub.PublishTyping("s1", false)
	hub.PublishReply("s1", ReplyPayload{Reply: "all done", NeedsEscalation: true})

	first := readFrame(t, conn)
	assert.JSONEq(t, `true`, string(first["isTyping"]))

	second := readFrame(t, conn)
	assert.JSONEq(t, `false`, string(second["isTyping"]))

	third := readFrame(t, conn)
	assert.JSONEq(t, `"all done"`, string(third["reply"]))
	assert.JSONEq(t, `true`, string(third["needsEscalation"]))
}

func TestHandler_IgnoresUnknownFrames(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, NewHandler(hub, nil, nil))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"type": "mystery"}))

	// Connection must survive and still bind afterwards
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{
		"type":       "session-id",
		"sessionKey": "s1",
	}))

	frame := readFrame(t, conn)
	assert.JSONEq(t, `"session-ack"`, string(frame["type"]))
}

func TestHandler_UnbindsOnClose(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, NewHandler(hub, nil, nil))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{
		"type":       "session-id",
		"sessionKey": "s1",
	}))
	readFrame(t, conn) // ack

	require.Eventually(t, func() bool { return hub.boundConns("s1") == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "leaving"))

	require.Eventually(t, func() bool { return hub.keyCount() == 0 },
		2*time.Second, 10*time.Millisecond,
		"disconnected client must be removed from the hub")
}
