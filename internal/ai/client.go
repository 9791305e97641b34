package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sentinelhq/sentinel/internal/ats"
)

// Competitor is one suggestion from the LLM.
type Competitor struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// PricingDiff is the synthesized comparison between two pricing states.
type PricingDiff struct {
	Changed  bool   `json:"changed"`
	Verdict  string `json:"verdict"`
	Analysis string `json:"analysis"`
}

type Client interface {
	// SuggestCompetitors names up to n competitors for a product description.
	SuggestCompetitors(ctx context.Context, description string, n int) ([]Competitor, error)
	// ExtractJobs pulls structured postings out of raw careers-page text.
	ExtractJobs(ctx context.Context, pageText string) ([]ats.JobPosting, error)
	// ExtractPricingState distills a pricing page's text into tiers and
	// prices. label tags the snapshot in the prompt ("current", "archived").
	ExtractPricingState(ctx context.Context, pageText, label string) (string, error)
	// SynthesizePricingDiff compares two extracted pricing states.
	SynthesizePricingDiff(ctx context.Context, oldState, newState string) (PricingDiff, error)
}

// NewClient picks a client from the environment. AI_PROVIDER forces
// "gemini" or "mock"; otherwise the presence of GEMINI_API_KEY decides.
func NewClient(log *slog.Logger) Client {
	provider := strings.ToLower(os.Getenv("AI_PROVIDER"))
	geminiKey := os.Getenv("GEMINI_API_KEY")

	if provider == "" {
		if geminiKey != "" {
			provider = "gemini"
		} else {
			provider = "mock"
		}
	}

	switch provider {
	case "gemini":
		if geminiKey == "" {
			log.Warn("AI_PROVIDER=gemini but GEMINI_API_KEY not set, falling back to mock")
			return NewMockClient()
		}
		c := NewGeminiClient(geminiKey, log)
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			c = c.WithModel(model)
		}
		return c
	default:
		log.Info("using mock AI client, set GEMINI_API_KEY for real analysis")
		return NewMockClient()
	}
}

// MockClient returns canned answers so the pipeline runs end to end
// without an API key.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) SuggestCompetitors(_ context.Context, _ string, n int) ([]Competitor, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]Competitor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Competitor{
			Name:   fmt.Sprintf("Example Competitor %d", i+1),
			Domain: fmt.Sprintf("example%d.com", i+1),
		})
	}
	return out, nil
}

func (m *MockClient) ExtractJobs(_ context.Context, pageText string) ([]ats.JobPosting, error) {
	if strings.TrimSpace(pageText) == "" {
		return nil, nil
	}
	return []ats.JobPosting{{
		Title:      "Software Engineer",
		Department: ats.DepartmentGeneral,
		Location:   ats.LocationUnspecified,
	}}, nil
}

func (m *MockClient) ExtractPricingState(_ context.Context, _, label string) (string, error) {
	return fmt.Sprintf("Mock pricing state (%s): Starter $10/mo, Pro $25/mo", label), nil
}

func (m *MockClient) SynthesizePricingDiff(_ context.Context, _, _ string) (PricingDiff, error) {
	return PricingDiff{
		Changed:  false,
		Verdict:  "No pricing change detected",
		Analysis: "Mock analysis: pricing states were not compared against a real model.",
	}, nil
}
