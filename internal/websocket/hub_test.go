package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func newTestClient(h *Hub, userID string, buffer int) *Client {
	return &Client{hub: h, Send: make(chan []byte, buffer), UserID: userID}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubUserChannel(t *testing.T) {
	h := startHub(t)
	alice := newTestClient(h, "alice", 4)
	bob := newTestClient(h, "bob", 4)
	h.Register(alice)
	h.Register(bob)

	h.Notify("user:alice", []byte("for alice"))
	h.Notify("user:bob", []byte("for bob"))

	assert.Equal(t, "for alice", string(receive(t, alice)))
	assert.Equal(t, "for bob", string(receive(t, bob)))
}

func TestHubProjectSubscriptions(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, "alice", 4)
	h.Register(c)

	h.Subscribe(c, "project:p1")
	h.Notify("project:p1", []byte("first"))
	assert.Equal(t, "first", string(receive(t, c)))

	h.Unsubscribe(c, "project:p1")
	h.Notify("project:p1", []byte("ignored"))
	h.Notify("user:alice", []byte("marker"))
	assert.Equal(t, "marker", string(receive(t, c)))
}

func TestHubReply(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, "alice", 4)
	h.Register(c)

	c.Reply(NewErrorMessage("nope"))
	assert.JSONEq(t, `{"action":"error","payload":{"message":"nope"}}`, string(receive(t, c)))
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, "alice", 1)
	h.Register(c)

	h.Notify("user:alice", []byte("one"))
	h.Notify("user:alice", []byte("two"))

	assert.Equal(t, "one", string(receive(t, c)))
	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}

	// Unregistering a dropped client is a no-op.
	h.Unregister(c)
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewHub()
	go h.Run()
	c := newTestClient(h, "alice", 1)
	h.Register(c)
	h.Stop()

	_, ok := <-c.Send
	assert.False(t, ok)

	// Calls after Stop return immediately.
	h.Notify("user:alice", []byte("late"))
	h.Unregister(c)
	h.Stop()
}
