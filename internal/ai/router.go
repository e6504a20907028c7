package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedModel is returned when a model id matches no known family
// prefix. Handlers branch on it with errors.Is.
var ErrUnsupportedModel = errors.New("unsupported model")

type family struct {
	prefix   string
	provider Provider
}

// Router maps model-id prefixes to providers. The family set is fixed at
// construction; there is no dynamic registration, so adding a model family
// without wiring a provider is a startup failure, not a silent misroute.
type Router struct {
	families []family
}

func NewRouter(anthropic, openai, gemini Provider) *Router {
	return &Router{families: []family{
		{prefix: "claude-", provider: anthropic},
		{prefix: "gpt-", provider: openai},
		{prefix: "gemini-", provider: gemini},
	}}
}

func (r *Router) Route(model string) (Provider, error) {
	model = strings.TrimSpace(model)
	for _, f := range r.families {
		if strings.HasPrefix(model, f.prefix) {
			return f.provider, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
}

// ValidateModels checks that every given model id routes to a provider.
// Called at startup against the catalog so catalog/router drift aborts boot.
func (r *Router) ValidateModels(ids []string) error {
	for _, id := range ids {
		if _, err := r.Route(id); err != nil {
			return fmt.Errorf("catalog model %q has no provider family", id)
		}
	}
	return nil
}
