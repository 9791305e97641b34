// Package core runs the per-competitor analysis pipeline: discovery →
// source routing → trend diff → snapshot save, plus the pricing probe.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/discovery"
	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/pricing"
	"github.com/sentinelhq/sentinel/internal/snapshot"
	"github.com/sentinelhq/sentinel/internal/trend"
)

// One competitor gets this long before the pipeline moves on. Slow ATS
// hosts and archive lookups add up; the batch must not stall on one company.
const defaultCompanyDeadline = 3 * time.Minute

// CompetitorResult is everything one pipeline pass learned about a company.
type CompetitorResult struct {
	Name       string            `json:"name"`
	Domain     string            `json:"domain,omitempty"`
	Dossier    discovery.Dossier `json:"dossier"`
	BoardURL   string            `json:"board_url,omitempty"`
	Provenance string            `json:"provenance,omitempty"`
	Jobs       []ats.JobPosting  `json:"jobs"`

	Hiring trend.HiringAnalysis `json:"hiring_analysis"`
	// Trends is nil on a company's first run; Pricing is nil when no
	// pricing page was found.
	Trends  *trend.Report     `json:"hiring_trends,omitempty"`
	Pricing *pricing.Analysis `json:"pricing_analysis,omitempty"`

	Error      string    `json:"error,omitempty"` // non-fatal: partial results still stand
	AnalyzedAt time.Time `json:"timestamp"`
}

// Discoverer is the slice of the discovery engine the pipeline needs.
type Discoverer interface {
	ResolveDomain(ctx context.Context, company string) string
	BuildDossier(ctx context.Context, domain string) discovery.Dossier
	Discover(ctx context.Context, company, domain, knownCareersURL string) (*ats.Endpoint, string, error)
}

// Collector merges job sources for one target.
type Collector interface {
	Collect(ctx context.Context, target ats.Target) ats.Result
}

// PricingProber compares a pricing page against its archived state.
type PricingProber interface {
	Analyze(ctx context.Context, pricingURL string, monthsAgo int) (*pricing.Analysis, error)
}

type Pipeline struct {
	engine  Discoverer
	router  Collector
	store   snapshot.Store
	probe   PricingProber
	log     *slog.Logger
	timeout time.Duration
}

func NewPipeline(engine Discoverer, router Collector, store snapshot.Store, probe PricingProber, log *slog.Logger) *Pipeline {
	return &Pipeline{
		engine:  engine,
		router:  router,
		store:   store,
		probe:   probe,
		log:     log.With("component", "pipeline"),
		timeout: defaultCompanyDeadline,
	}
}

// WithTimeout overrides the per-company deadline.
func (p *Pipeline) WithTimeout(d time.Duration) *Pipeline {
	p.timeout = d
	return p
}

// Run processes competitors sequentially. A company that fails completely
// still yields a result row carrying its error; the batch always finishes.
func (p *Pipeline) Run(ctx context.Context, competitors []ai.Competitor, monthsBack int) []CompetitorResult {
	results := make([]CompetitorResult, 0, len(competitors))
	for _, c := range competitors {
		if ctx.Err() != nil {
			break
		}
		p.log.Info("analyzing competitor", "name", c.Name, "domain", c.Domain)
		results = append(results, p.AnalyzeCompetitor(ctx, c.Name, c.Domain, monthsBack))
	}
	return results
}

// AnalyzeCompetitor runs the full chain for one company under its own
// deadline.
func (p *Pipeline) AnalyzeCompetitor(ctx context.Context, name, domain string, monthsBack int) CompetitorResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := CompetitorResult{Name: name, Domain: domain, AnalyzedAt: time.Now().UTC()}

	if domain == "" {
		domain = p.engine.ResolveDomain(ctx, name)
		result.Domain = domain
	}
	if domain != "" {
		result.Dossier = p.engine.BuildDossier(ctx, domain)
	}

	endpoint, careersURL, err := p.engine.Discover(ctx, name, domain, result.Dossier.CareersURL)
	if err != nil {
		// Discovery trouble is not terminal; the router still has the
		// supplementary tiers.
		p.log.Warn("discovery failed", "company", name, "error", err)
	}
	if endpoint != nil {
		result.BoardURL = endpoint.BoardURL
	}

	routed := p.router.Collect(ctx, ats.Target{
		Company:    name,
		Endpoint:   endpoint,
		CareersURL: careersURL,
	})
	result.Jobs = routed.Jobs
	result.Provenance = routed.Provenance
	result.Hiring = trend.AnalyzeHiring(routed.Jobs)

	p.diffAndPersist(ctx, &result, routed)

	if p.probe != nil && result.Dossier.PricingURL != "" {
		analysis, err := p.probe.Analyze(ctx, result.Dossier.PricingURL, monthsBack)
		if err != nil {
			p.log.Warn("pricing probe failed", "company", name, "error", err)
			result.Error = appendError(result.Error, fmt.Sprintf("pricing: %v", err))
		} else {
			result.Pricing = analysis
		}
	}

	return result
}

// diffAndPersist diffs against the previous snapshot when one exists and
// saves the current jobs either way. A save failure is logged, not fatal:
// this run's report is already built, only the next diff suffers.
func (p *Pipeline) diffAndPersist(ctx context.Context, result *CompetitorResult, routed ats.Result) {
	if len(routed.Jobs) == 0 && routed.Provenance == "" {
		// Nothing collected: keep the previous snapshot and skip the diff,
		// so a transient outage doesn't register as every role disappearing.
		return
	}

	prev, err := p.store.Load(ctx, result.Name)
	if err != nil {
		p.log.Warn("snapshot load failed", "company", result.Name, "error", err)
		observability.IncError(observability.ErrorStore, "pipeline")
	}
	if prev != nil {
		report := trend.Analyze(prev.Jobs, routed.Jobs)
		result.Trends = &report
	}
	snap := snapshot.New(result.Name, routed.Provenance, routed.Jobs)
	if err := p.store.Save(ctx, snap); err != nil {
		p.log.Warn("snapshot save failed", "company", result.Name, "error", err)
		observability.IncError(observability.ErrorStore, "pipeline")
	}
}

func appendError(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}
