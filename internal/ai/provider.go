package ai

import (
	"context"
	"fmt"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-agnostic chat request. Adapters translate it into
// their backend's wire format.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Result is the provider-agnostic response. InputTokens/OutputTokens are
// exact where the backend reports usage, estimated otherwise (see gemini).
type Result struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

func (r *Result) TotalTokens() int { return r.InputTokens + r.OutputTokens }

type Provider interface {
	Name() string
	Chat(ctx context.Context, req Request) (*Result, error)
}

// ProviderError wraps a transport or API failure from a specific backend.
// The orchestrator does not retry; the failure surfaces to the caller.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
