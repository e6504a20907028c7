package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicChat_ParsesContentAndUsage(t *testing.T) {
	var gotReq anthropicChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-sonnet-20240620",
			"content": [{"type": "text", "text": "hello"}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key")
	res, err := p.Chat(context.Background(), Request{
		Model:       "claude-3-5-sonnet-20240620",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Content != "hello" {
		t.Fatalf("unexpected content: %q", res.Content)
	}
	if res.InputTokens != 10 || res.OutputTokens != 5 {
		t.Fatalf("unexpected usage: in=%d out=%d", res.InputTokens, res.OutputTokens)
	}
	if res.TotalTokens() != 15 {
		t.Fatalf("unexpected total: %d", res.TotalTokens())
	}
	if gotReq.MaxTokens != 1000 {
		t.Fatalf("max_tokens not forwarded: %d", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hi" {
		t.Fatalf("messages not forwarded: %+v", gotReq.Messages)
	}
}

func TestAnthropicChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key")
	_, err := p.Chat(context.Background(), Request{
		Model:    "claude-3-5-sonnet-20240620",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.Provider != "anthropic" {
		t.Fatalf("unexpected provider name: %q", provErr.Provider)
	}
}

func TestAnthropicChat_MissingKey(t *testing.T) {
	p := NewAnthropicProvider("http://localhost:0", "")
	_, err := p.Chat(context.Background(), Request{
		Model:    "claude-x",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error without api key")
	}
}
