package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuery(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected /api/chat, got %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"llama3.2","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"summary\":\"ok\"}"},"done":true}`+"\n")
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/api/chat")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	reply, err := client.Query(context.Background(), "llama3.2", "hello", "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if reply != `{"summary":"ok"}` {
		t.Errorf("Unexpected reply %q", reply)
	}
	if got["model"] != "llama3.2" || got["stream"] != false {
		t.Errorf("Unexpected request %v", got)
	}
}

func TestQueryServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model not found"}`)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	if _, err := client.Query(context.Background(), "missing", "hello", ""); err == nil {
		t.Error("Expected error for missing model")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("localhost"); err == nil {
		t.Error("Expected error for URL without scheme")
	}
}

func TestQueryBadImage(t *testing.T) {
	client, _ := NewClient("http://127.0.0.1:1")
	if _, err := client.Query(context.Background(), "m", "p", "%%%"); err == nil {
		t.Error("Expected base64 decode error")
	}
}
