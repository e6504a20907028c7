package ai

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name  string
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Chat(ctx context.Context, req Request) (*Result, error) {
	_ = ctx
	p.calls++
	return &Result{Content: "ok", Model: req.Model}, nil
}

func newTestRouter() (*Router, *fakeProvider, *fakeProvider, *fakeProvider) {
	a := &fakeProvider{name: "anthropic"}
	o := &fakeProvider{name: "openai"}
	g := &fakeProvider{name: "gemini"}
	return NewRouter(a, o, g), a, o, g
}

func TestRoute_ByPrefix(t *testing.T) {
	r, a, o, g := newTestRouter()

	cases := []struct {
		model string
		want  string
	}{
		{"claude-3-5-sonnet-20240620", "anthropic"},
		{"claude-x", "anthropic"},
		{"gpt-4-turbo", "openai"},
		{"gemini-pro", "gemini"},
	}
	for _, tc := range cases {
		p, err := r.Route(tc.model)
		if err != nil {
			t.Fatalf("route %q: %v", tc.model, err)
		}
		if p.Name() != tc.want {
			t.Fatalf("route %q: got provider %q, want %q", tc.model, p.Name(), tc.want)
		}
	}

	if a.calls != 0 || o.calls != 0 || g.calls != 0 {
		t.Fatalf("routing must not call providers")
	}
}

func TestRoute_UnknownModel(t *testing.T) {
	r, _, _, _ := newTestRouter()

	_, err := r.Route("unknown-model")
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestValidateModels(t *testing.T) {
	r, _, _, _ := newTestRouter()

	if err := r.ValidateModels([]string{"claude-3-opus-20240229", "gpt-4", "gemini-pro"}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := r.ValidateModels([]string{"gpt-4", "llama3"}); err == nil {
		t.Fatalf("expected validation failure for unrouted model")
	}
}
