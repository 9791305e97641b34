// Package pricing diffs a company's current pricing page against its
// archived self.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/wayback"
)

// Analysis is one pricing comparison: the archived state, the live state,
// and the model's read on what moved.
type Analysis struct {
	PricingURL  string         `json:"pricing_url"`
	SnapshotURL string         `json:"snapshot_url,omitempty"`
	CapturedAt  time.Time      `json:"captured_at,omitempty"`
	OldState    string         `json:"old_state,omitempty"`
	NewState    string         `json:"new_state"`
	Diff        ai.PricingDiff `json:"diff"`
}

type Probe struct {
	fetcher *httpx.CollyFetcher
	archive *wayback.Client
	llm     ai.Client
	log     *slog.Logger
}

func NewProbe(fetcher *httpx.CollyFetcher, archive *wayback.Client, llm ai.Client, log *slog.Logger) *Probe {
	return &Probe{
		fetcher: fetcher,
		archive: archive,
		llm:     llm,
		log:     log.With("component", "pricing"),
	}
}

// Analyze compares the live pricing page against the archive from monthsAgo
// back. No archive history means no comparison: the analysis then carries
// only the current state, which is still worth reporting.
func (p *Probe) Analyze(ctx context.Context, pricingURL string, monthsAgo int) (*Analysis, error) {
	currentBody, _, err := p.fetcher.FetchBytes(ctx, pricingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch current pricing page: %w", err)
	}
	currentText := ats.ExtractText(currentBody)
	if strings.TrimSpace(currentText) == "" {
		return nil, fmt.Errorf("pricing page had no readable text: %s", pricingURL)
	}

	newState, err := p.llm.ExtractPricingState(ctx, currentText, "current")
	if err != nil {
		return nil, fmt.Errorf("extract current pricing state: %w", err)
	}

	analysis := &Analysis{PricingURL: pricingURL, NewState: newState}

	capture, err := p.archive.Closest(ctx, pricingURL, monthsAgo)
	if err != nil {
		p.log.Warn("archive lookup failed", "url", pricingURL, "error", err)
		observability.IncError(observability.ErrorNetwork, "pricing")
		return analysis, nil
	}
	if capture == nil {
		p.log.Info("no archived capture, skipping comparison", "url", pricingURL)
		return analysis, nil
	}

	oldBody, err := p.archive.FetchBody(ctx, capture)
	if err != nil {
		p.log.Warn("archived capture unreadable", "url", capture.URL, "error", err)
		observability.IncError(observability.ErrorNetwork, "pricing")
		return analysis, nil
	}

	oldState, err := p.llm.ExtractPricingState(ctx, ats.ExtractText(oldBody), "archived")
	if err != nil {
		return nil, fmt.Errorf("extract archived pricing state: %w", err)
	}

	diff, err := p.llm.SynthesizePricingDiff(ctx, oldState, newState)
	if err != nil {
		return nil, fmt.Errorf("synthesize pricing diff: %w", err)
	}

	analysis.SnapshotURL = capture.URL
	analysis.CapturedAt = capture.CapturedAt
	analysis.OldState = oldState
	analysis.Diff = diff
	return analysis, nil
}
