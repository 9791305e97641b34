package ats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentinelhq/sentinel/internal/observability"
)

// Thresholds for when lower-priority sources get consulted. An
// authoritative board with a healthy count stands alone; thin results get
// padded by the aggregator, and still-thin results by the network sample.
const (
	aggregatorThreshold = 20
	networkThreshold    = 30
)

// Result is the router's merged answer for one company.
type Result struct {
	Jobs []JobPosting `json:"jobs"`
	// Provenance names every source that contributed at least one surviving
	// job, e.g. "greenhouse:https://boards.greenhouse.io/acme + levelsfyi".
	// Empty means no source produced anything.
	Provenance string `json:"provenance,omitempty"`
}

// Router folds sources in priority order: the vendor-matched authoritative
// board first, then supplementary sources while the count stays under their
// thresholds, then the direct careers-page tier only when everything else
// came up empty. Merged jobs dedupe by normalized title, first seen wins.
type Router struct {
	authoritative map[Vendor]Source
	aggregator    Source // consulted under aggregatorThreshold
	network       Source // consulted under networkThreshold
	direct        Source // consulted only at zero
	log           *slog.Logger
}

func NewRouter(log *slog.Logger, authoritative []Source, aggregator, network, direct Source) *Router {
	byVendor := make(map[Vendor]Source, len(authoritative))
	for _, src := range authoritative {
		byVendor[src.Vendor()] = src
	}
	return &Router{
		authoritative: byVendor,
		aggregator:    aggregator,
		network:       network,
		direct:        direct,
		log:           log.With("component", "router"),
	}
}

type contribution struct {
	label string
	jobs  []JobPosting
}

func (r *Router) Collect(ctx context.Context, target Target) Result {
	var contribs []contribution
	count := 0

	if target.Endpoint != nil {
		if src, ok := r.authoritative[target.Endpoint.Vendor]; ok {
			jobs := r.consult(ctx, src, target)
			label := fmt.Sprintf("%s:%s", src.Vendor(), target.Endpoint.BoardURL)
			contribs = append(contribs, contribution{label, jobs})
			count += len(jobs)
		} else {
			r.log.Warn("no source registered for vendor", "vendor", target.Endpoint.Vendor)
		}
	}

	if r.aggregator != nil && count < aggregatorThreshold {
		jobs := r.consult(ctx, r.aggregator, target)
		contribs = append(contribs, contribution{string(r.aggregator.Vendor()), jobs})
		count += len(jobs)
	}

	if r.network != nil && count < networkThreshold {
		jobs := r.consult(ctx, r.network, target)
		contribs = append(contribs, contribution{string(r.network.Vendor()), jobs})
		count += len(jobs)
	}

	if r.direct != nil && count == 0 && target.CareersURL != "" {
		jobs := r.consult(ctx, r.direct, target)
		contribs = append(contribs, contribution{
			fmt.Sprintf("%s:%s", r.direct.Vendor(), target.CareersURL), jobs})
	}

	return mergeContributions(contribs)
}

func (r *Router) consult(ctx context.Context, src Source, target Target) []JobPosting {
	jobs, err := src.Fetch(ctx, target)
	switch {
	case err != nil:
		r.log.Warn("source failed", "company", target.Company,
			"vendor", src.Vendor(), "error", err)
		observability.IncError(observability.ClassifySourceError(err), "router")
		observability.IncSourceResult(string(src.Vendor()) + ":error")
	case len(jobs) == 0:
		observability.IncSourceResult(string(src.Vendor()) + ":empty")
	default:
		observability.IncSourceResult(string(src.Vendor()) + ":hit")
	}
	return jobs
}

// mergeContributions dedupes across contributions in priority order and
// builds the provenance string from sources whose jobs survived.
func mergeContributions(contribs []contribution) Result {
	seen := make(map[string]struct{})
	var merged []JobPosting
	var labels []string

	for _, c := range contribs {
		survived := 0
		for _, j := range c.jobs {
			key := NormalizeTitle(j.Title)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, j)
			survived++
		}
		if survived > 0 {
			labels = append(labels, c.label)
		}
	}

	observability.AddJobsCollected(len(merged))
	return Result{
		Jobs:       merged,
		Provenance: strings.Join(labels, " + "),
	}
}
