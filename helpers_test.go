package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Test helper functions shared across test files

func intPtr(i int) *int {
	return &i
}

func float64Ptr(f float64) *float64 {
	return &f
}

func stringPtr(s string) *string {
	return &s
}

// newTestClient starts a server running handler and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*Config)) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig("sk-test")
	cfg.BaseURL = server.URL + "/v1"
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := NewClientWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewClientWithConfig failed: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}
