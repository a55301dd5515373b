package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestQuery(t *testing.T) {
	var req ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected /v1/chat/completions, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "note"}}},
		})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL + "/")
	// "/9j/" is the base64 jpeg magic
	reply, err := client.Query(context.Background(), "local", "hello", "/9j/4AAQ")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if reply != "note" {
		t.Errorf("Expected note, got %q", reply)
	}

	parts, ok := req.Messages[0].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %v", req.Messages[0].Content)
	}
	image := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(image, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected data URL %q", image)
	}
}

func TestQueryPartsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"from parts"}]}}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	reply, err := client.Query(context.Background(), "local", "hello", "")
	if err != nil || reply != "from parts" {
		t.Errorf("Expected text from content parts, got %q, %v", reply, err)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient(server.URL)
			if _, err := client.Query(context.Background(), "local", "hello", ""); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
