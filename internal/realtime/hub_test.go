// ABOUTME: Tests for Hub fan-out routing of push payloads
// ABOUTME: Covers bind, unbind, rebind, no-op publish, drops, and concurrency

package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReplyToBoundConnection(t *testing.T) {
	h := NewHub(nil)

	send := make(chan any, sendBufferSize)
	h.Bind("conn-1", "s1", send)

	h.PublishReply("s1", ReplyPayload{Reply: "hello", NeedsEscalation: false})

	select {
	case got := <-send:
		payload, ok := got.(ReplyPayload)
		require.True(t, ok, "expected ReplyPayload, got %T", got)
		assert.Equal(t, "hello", payload.Reply)
		assert.False(t, payload.NeedsEscalation)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
}

func TestHub_MultipleConnectionsShareKey(t *testing.T) {
	h := NewHub(nil)

	sends := make([]chan any, 3)
	for i := range sends {
		sends[i] = make(chan any, sendBufferSize)
		h.Bind(fmt.Sprintf("conn-%d", i), "s1", sends[i])
	}

	h.PublishTyping("s1", true)

	for i, send := range sends {
		select {
		case got := <-send:
			frame, ok := got.(TypingFrame)
			require.True(t, ok, "conn %d: expected TypingFrame, got %T", i, got)
			assert.True(t, frame.IsTyping, "conn %d", i)
		case <-time.After(time.Second):
			t.Fatalf("conn %d timed out", i)
		}
	}
}

func TestHub_PublishToUnboundKeyIsNoOp(t *testing.T) {
	h := NewHub(nil)

	// Must not panic or block
	h.PublishReply("nobody-home", ReplyPayload{Reply: "dropped"})
	h.PublishTyping("nobody-home", true)

	assert.Equal(t, 0, h.keyCount())
}

func TestHub_UnbindDropsEmptyKeys(t *testing.T) {
	h := NewHub(nil)

	send1 := make(chan any, sendBufferSize)
	send2 := make(chan any, sendBufferSize)
	h.Bind("conn-1", "s1", send1)
	h.Bind("conn-2", "s1", send2)

	h.Unbind("conn-1")
	assert.Equal(t, 1, h.boundConns("s1"))

	h.Unbind("conn-2")
	assert.Equal(t, 0, h.boundConns("s1"))
	assert.Equal(t, 0, h.keyCount(), "empty key entries must be removed")
}

func TestHub_UnbindUnknownConnIsNoOp(t *testing.T) {
	h := NewHub(nil)
	h.Unbind("never-bound")
	assert.Equal(t, 0, h.keyCount())
}

func TestHub_RebindMovesConnection(t *testing.T) {
	h := NewHub(nil)

	send := make(chan any, sendBufferSize)
	h.Bind("conn-1", "s1", send)
	h.Bind("conn-1", "s2", send)

	assert.Equal(t, 0, h.boundConns("s1"), "old key should be vacated")
	assert.Equal(t, 1, h.boundConns("s2"))

	h.PublishReply("s2", ReplyPayload{Reply: "moved"})
	select {
	case got := <-send:
		assert.Equal(t, "moved", got.(ReplyPayload).Reply)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload on new key")
	}
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	h := NewHub(nil)

	// A queue nobody drains
	stalled := make(chan any, 1)
	stalled <- struct{}{}
	h.Bind("conn-stalled", "s1", stalled)

	healthy := make(chan any, sendBufferSize)
	h.Bind("conn-healthy", "s1", healthy)

	done := make(chan struct{})
	go func() {
		h.PublishReply("s1", ReplyPayload{Reply: "through"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled connection")
	}

	select {
	case got := <-healthy:
		assert.Equal(t, "through", got.(ReplyPayload).Reply)
	case <-time.After(time.Second):
		t.Fatal("healthy connection did not receive payload")
	}
}

func TestHub_ConcurrentBindPublishUnbind(t *testing.T) {
	h := NewHub(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			key := fmt.Sprintf("s%d", i%4)
			send := make(chan any, sendBufferSize)
			h.Bind(connID, key, send)
			h.PublishTyping(key, true)
			h.PublishReply(key, ReplyPayload{Reply: "r"})
			h.Unbind(connID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, h.keyCount(), "all keys should be cleaned up")
}
