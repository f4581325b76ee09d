package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialTestHub(t, server)
	defer conn.Close()

	waitForClients(t, hub, 1)

	sent := Event{
		Type:   EventProductsRefreshed,
		At:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Groups: 7,
	}
	hub.Broadcast(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventProductsRefreshed {
		t.Errorf("type = %q, want %q", got.Type, EventProductsRefreshed)
	}
	if got.Groups != 7 {
		t.Errorf("groups = %d, want 7", got.Groups)
	}
	if !got.At.Equal(sent.At) {
		t.Errorf("at = %v, want %v", got.At, sent.At)
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn1 := dialTestHub(t, server)
	defer conn1.Close()
	conn2 := dialTestHub(t, server)
	defer conn2.Close()

	waitForClients(t, hub, 2)

	hub.Broadcast(Event{Type: EventProductsRefreshed, At: time.Now().UTC()})

	for i, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("subscriber %d read: %v", i+1, err)
		}
		if !strings.Contains(string(data), EventProductsRefreshed) {
			t.Errorf("subscriber %d got %q", i+1, data)
		}
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialTestHub(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcast to an empty hub must not panic
	hub.Broadcast(Event{Type: EventProductsRefreshed, At: time.Now().UTC()})
}

func TestHub_CloseRejectsNewConnections(t *testing.T) {
	hub := NewHub(nil, nil)

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialTestHub(t, server)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Close()
	waitForClients(t, hub, 0)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	_, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Error("dial after Close should fail")
	}
}
