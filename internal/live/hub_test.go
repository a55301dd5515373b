package live

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func createTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", hub.HealthHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return msg
}

func TestBroadcast(t *testing.T) {
	hub, server := createTestServer(t)
	a, b := dial(t, server), dial(t, server)
	waitForClients(t, hub, 2)

	if err := hub.Broadcast("result", map[string]string{"season": "spring"}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != "result" {
			t.Errorf("Expected result message, got %q", msg.Type)
		}
		data, _ := msg.Data.(map[string]any)
		if data["season"] != "spring" {
			t.Errorf("Unexpected data %v", msg.Data)
		}
	}
}

func TestLateClientGetsLastMessage(t *testing.T) {
	hub, server := createTestServer(t)
	hub.Broadcast("result", 1)
	hub.Broadcast("result", 2)

	conn := dial(t, server)
	if msg := readMessage(t, conn); msg.Data != float64(2) {
		t.Errorf("Expected replay of the latest message, got %v", msg.Data)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	hub, server := createTestServer(t)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub, server := createTestServer(t)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("Expected no clients after Close, got %d", hub.Clients())
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed")
	}
}

func TestHealthHandler(t *testing.T) {
	hub, server := createTestServer(t)
	dial(t, server)
	waitForClients(t, hub, 1)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["clients"] != float64(1) {
		t.Errorf("Expected 1 client, got %v", body["clients"])
	}
}
