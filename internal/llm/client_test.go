package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	cfg := DefaultClientConfig("test-key")
	cfg.BaseURL = url
	cfg.Timeout = 5 * time.Second
	return NewClientWithConfig(cfg)
}

func TestClientComplete(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"  the answer  "}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	text, err := client.Complete(context.Background(), "some/model", []Message{{Role: "user", Content: "q"}}, 0.1, 2000)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "the answer" {
		t.Errorf("text = %q, want trimmed completion", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "some/model" || gotReq.Temperature != 0.1 || gotReq.MaxTokens != 2000 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestClientCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "m", nil, 0, 10)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if Classify(err) != ClassRateLimited {
		t.Errorf("Classify = %s, want rate_limited", Classify(err))
	}
}

func TestClientCompleteEmbeddedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model unavailable"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "m", nil, 0, 10)
	if err == nil {
		t.Fatal("Complete() = nil error on embedded API error")
	}
}

func TestClientCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "m", nil, 0, 10)
	if err == nil {
		t.Fatal("Complete() = nil error on empty choices")
	}
}

func TestClientCompleteMissingKey(t *testing.T) {
	client := NewClient("")
	_, err := client.Complete(context.Background(), "m", nil, 0, 10)
	if err == nil {
		t.Fatal("Complete() = nil error with no API key")
	}
}
