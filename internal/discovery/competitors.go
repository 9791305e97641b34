package discovery

import (
	"context"
	"strings"

	"github.com/sentinelhq/sentinel/internal/ai"
)

// SuggestCompetitors asks the LLM for competitors of a product description
// and fills in any missing domains by search. Suggestions that stay
// domainless are kept; the pipeline can still probe boards by name.
func (e *Engine) SuggestCompetitors(ctx context.Context, llm ai.Client, description string, n int) ([]ai.Competitor, error) {
	suggestions, err := llm.SuggestCompetitors(ctx, description, n)
	if err != nil {
		return nil, err
	}

	out := make([]ai.Competitor, 0, len(suggestions))
	for _, c := range suggestions {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Domain = strings.TrimSpace(strings.TrimPrefix(c.Domain, "www."))
		if c.Domain == "" {
			c.Domain = e.ResolveDomain(ctx, c.Name)
		}
		out = append(out, c)
	}
	return out, nil
}
