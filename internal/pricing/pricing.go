package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPricing is returned when a model id matches no price entry.
// A request with an unverifiable cost is fatal; no usage gets recorded.
var ErrUnknownPricing = errors.New("unknown pricing")

// Entry prices every model id beginning with Prefix; the longest matching
// prefix wins, so dated snapshots override their family default. Entries
// with a ModelID also carry the catalog metadata for that model — the
// catalog served by the API is a view of this table and cannot drift
// from it.
type Entry struct {
	Prefix      string
	ModelID     string // empty for family-default rows, which price but are not listed
	Name        string
	Provider    string
	Description string
	// USD per million tokens
	InputCost  float64
	OutputCost float64
	MaxTokens  int
}

type Table struct {
	entries []Entry
}

func NewTable(entries []Entry) *Table {
	return &Table{entries: entries}
}

// Default returns the built-in price table, listed models in display order,
// family defaults last.
func Default() *Table {
	return NewTable([]Entry{
		{
			Prefix:      "claude-3-5-sonnet",
			ModelID:     "claude-3-5-sonnet-20240620",
			Name:        "Claude 3.5 Sonnet",
			Provider:    "Anthropic",
			Description: "Most intelligent model, best for complex tasks",
			InputCost:   3.0,
			OutputCost:  15.0,
			MaxTokens:   200000,
		},
		{
			Prefix:      "claude-3-opus",
			ModelID:     "claude-3-opus-20240229",
			Name:        "Claude 3 Opus",
			Provider:    "Anthropic",
			Description: "Powerful model for complex reasoning",
			InputCost:   15.0,
			OutputCost:  75.0,
			MaxTokens:   200000,
		},
		{
			Prefix:      "claude-3-haiku",
			ModelID:     "claude-3-haiku-20240307",
			Name:        "Claude 3 Haiku",
			Provider:    "Anthropic",
			Description: "Fastest and most compact model",
			InputCost:   0.25,
			OutputCost:  1.25,
			MaxTokens:   200000,
		},
		{
			Prefix:      "gpt-4-turbo",
			ModelID:     "gpt-4-turbo",
			Name:        "GPT-4 Turbo",
			Provider:    "OpenAI",
			Description: "OpenAI's most capable model",
			InputCost:   10.0,
			OutputCost:  30.0,
			MaxTokens:   128000,
		},
		{
			Prefix:      "gpt-4",
			ModelID:     "gpt-4",
			Name:        "GPT-4",
			Provider:    "OpenAI",
			Description: "Powerful reasoning model",
			InputCost:   30.0,
			OutputCost:  60.0,
			MaxTokens:   8192,
		},
		{
			Prefix:      "gpt-3.5-turbo",
			ModelID:     "gpt-3.5-turbo",
			Name:        "GPT-3.5 Turbo",
			Provider:    "OpenAI",
			Description: "Fast and cost-effective",
			InputCost:   0.5,
			OutputCost:  1.5,
			MaxTokens:   16385,
		},
		{
			Prefix:      "gemini-pro",
			ModelID:     "gemini-pro",
			Name:        "Gemini Pro",
			Provider:    "Google",
			Description: "Google's advanced AI model",
			InputCost:   0.5,
			OutputCost:  1.5,
			MaxTokens:   32760,
		},
		// family defaults: price any model of the family not listed above
		{Prefix: "claude-", InputCost: 3.0, OutputCost: 15.0},
		{Prefix: "gpt-", InputCost: 30.0, OutputCost: 60.0},
		{Prefix: "gemini-", InputCost: 0.5, OutputCost: 1.5},
	})
}

// Lookup finds the price entry for a model id; the longest matching prefix
// wins. Unmatched ids are an error, never a free request.
func (t *Table) Lookup(model string) (Entry, error) {
	model = strings.TrimSpace(model)

	best := -1
	bestLen := -1
	for i, e := range t.entries {
		if strings.HasPrefix(model, e.Prefix) && len(e.Prefix) > bestLen {
			best = i
			bestLen = len(e.Prefix)
		}
	}
	if best < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownPricing, model)
	}
	return t.entries[best], nil
}

// Cost computes the USD cost of a request from token counts.
func (t *Table) Cost(model string, inputTokens, outputTokens int) (float64, error) {
	e, err := t.Lookup(model)
	if err != nil {
		return 0, err
	}
	return float64(inputTokens)/1_000_000*e.InputCost +
		float64(outputTokens)/1_000_000*e.OutputCost, nil
}

// Catalog returns the listed models in declared order, skipping
// family-default rows. This is the only model list the API serves.
func (t *Table) Catalog() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.ModelID != "" {
			out = append(out, e)
		}
	}
	return out
}

// ModelIDs lists every cataloged model id, for startup routing validation.
func (t *Table) ModelIDs() []string {
	ids := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.ModelID != "" {
			ids = append(ids, e.ModelID)
		}
	}
	return ids
}
