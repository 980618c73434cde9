package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pravacash/internal/core"
	applog "pravacash/internal/log"
)

func newTestHub() *Hub {
	return NewHub(applog.New(applog.DefaultConfig()))
}

func register(h *Hub, userID string, c *client) {
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()
}

// A reader's deferred cleanup can run between a broadcast snapshotting
// the client set and the send itself. The late send must be a no-op,
// not a panic on the closed channel.
func TestDeliverAfterUnregister(t *testing.T) {
	h := newTestHub()
	c := &client{send: make(chan []byte, 1)}
	register(h, "u1", c)

	h.unregister("u1", c)
	h.unregister("u1", c) // double cleanup is fine

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("deliver after unregister panicked: %v", r)
		}
	}()
	h.deliver("u1", c, []byte(`{}`))

	if n := h.ConnectionCount("u1"); n != 0 {
		t.Errorf("connection count = %d, want 0", n)
	}
}

func TestConcurrentDeliverAndUnregister(t *testing.T) {
	h := newTestHub()

	for i := 0; i < 50; i++ {
		c := &client{send: make(chan []byte, sendBufferSize)}
		register(h, "u1", c)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.deliver("u1", c, []byte(`{}`))
		}()
		go func() {
			defer wg.Done()
			h.unregister("u1", c)
		}()
		wg.Wait()
	}

	if n := h.ConnectionCount("u1"); n != 0 {
		t.Errorf("connection count = %d, want 0", n)
	}
}

func dialTestHub(t *testing.T, h *Hub, userID string, role core.Role) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, userID, role)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitForCount(t, h, userID, 1)
	return conn
}

func waitForCount(t *testing.T, h *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ConnectionCount(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("connection count for %s never reached %d", userID, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesConnection(t *testing.T) {
	h := newTestHub()
	conn := dialTestHub(t, h, "u1", core.RoleUser)

	h.Broadcast(context.Background(), "u1", EventTransactionsUpdated, []string{"refreshed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != EventTransactionsUpdated {
		t.Errorf("event = %q, want %q", msg.Event, EventTransactionsUpdated)
	}
}

func TestBroadcastAfterPeerClosed(t *testing.T) {
	h := newTestHub()
	conn := dialTestHub(t, h, "u1", core.RoleUser)

	conn.Close()
	waitForCount(t, h, "u1", 0)

	// The fanout after a mutation must survive clients that just left.
	h.Broadcast(context.Background(), "u1", EventTransactionsUpdated, nil)
	h.BroadcastAdmins(context.Background(), EventAdminStatsUpdated, nil)
}

func TestBroadcastAdminsSkipsRegularUsers(t *testing.T) {
	h := newTestHub()
	userConn := dialTestHub(t, h, "u1", core.RoleUser)
	adminConn := dialTestHub(t, h, "boss", core.RoleAdmin)

	h.BroadcastAdmins(context.Background(), EventAdminStatsUpdated, map[string]int{"totalUsers": 2})

	adminConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := adminConn.ReadMessage()
	if err != nil {
		t.Fatalf("admin read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != EventAdminStatsUpdated {
		t.Errorf("event = %q, want %q", msg.Event, EventAdminStatsUpdated)
	}

	userConn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := userConn.ReadMessage(); err == nil {
		t.Error("regular user received an admin event")
	}
}
