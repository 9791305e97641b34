package ats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	vendor Vendor
	auth   bool
	jobs   []JobPosting
	err    error
	calls  int
}

func (s *stubSource) Vendor() Vendor      { return s.vendor }
func (s *stubSource) Authoritative() bool { return s.auth }

func (s *stubSource) Fetch(_ context.Context, _ Target) ([]JobPosting, error) {
	s.calls++
	return s.jobs, s.err
}

func makeJobs(prefix string, n int) []JobPosting {
	jobs := make([]JobPosting, n)
	for i := range jobs {
		jobs[i] = JobPosting{
			Title:      fmt.Sprintf("%s Engineer %d", prefix, i),
			Department: DepartmentGeneral,
			Location:   LocationUnspecified,
		}
	}
	return jobs
}

func TestRouterHealthyBoardStandsAlone(t *testing.T) {
	board := &stubSource{vendor: VendorGreenhouse, auth: true, jobs: makeJobs("Core", 35)}
	agg := &stubSource{vendor: VendorLevelsFyi, jobs: makeJobs("Agg", 5)}
	network := &stubSource{vendor: VendorLinkedIn, jobs: makeJobs("Net", 5)}
	direct := &stubSource{vendor: VendorDirect, jobs: makeJobs("Direct", 5)}

	r := NewRouter(testLogger(), []Source{board}, agg, network, direct)
	res := r.Collect(context.Background(), Target{
		Company:    "Acme",
		Endpoint:   &Endpoint{Vendor: VendorGreenhouse, BoardURL: "https://boards.greenhouse.io/acme"},
		CareersURL: "https://acme.com/careers",
	})

	assert.Len(t, res.Jobs, 35)
	assert.Equal(t, "greenhouse:https://boards.greenhouse.io/acme", res.Provenance)
	assert.Zero(t, agg.calls)
	assert.Zero(t, network.calls)
	assert.Zero(t, direct.calls)
}

func TestRouterThinBoardGetsPadded(t *testing.T) {
	board := &stubSource{vendor: VendorLever, auth: true, jobs: makeJobs("Core", 10)}
	agg := &stubSource{vendor: VendorLevelsFyi, jobs: makeJobs("Agg", 5)}
	network := &stubSource{vendor: VendorLinkedIn, jobs: makeJobs("Net", 5)}

	r := NewRouter(testLogger(), []Source{board}, agg, network, nil)
	res := r.Collect(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorLever, BoardURL: "https://jobs.lever.co/acme"},
	})

	// 10 < 20 pulls the aggregator; 15 < 30 pulls the network too.
	assert.Len(t, res.Jobs, 20)
	assert.Equal(t, 1, agg.calls)
	assert.Equal(t, 1, network.calls)
	assert.Equal(t, "lever:https://jobs.lever.co/acme + levelsfyi + linkedin", res.Provenance)
}

func TestRouterMidThresholdSkipsAggregator(t *testing.T) {
	board := &stubSource{vendor: VendorGreenhouse, auth: true, jobs: makeJobs("Core", 25)}
	agg := &stubSource{vendor: VendorLevelsFyi, jobs: makeJobs("Agg", 5)}
	network := &stubSource{vendor: VendorLinkedIn, jobs: makeJobs("Net", 5)}

	r := NewRouter(testLogger(), []Source{board}, agg, network, nil)
	res := r.Collect(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorGreenhouse, BoardURL: "https://boards.greenhouse.io/acme"},
	})

	assert.Zero(t, agg.calls)
	assert.Equal(t, 1, network.calls)
	assert.Len(t, res.Jobs, 30)
}

func TestRouterFailedBoardFallsThrough(t *testing.T) {
	board := &stubSource{vendor: VendorGreenhouse, auth: true, err: errors.New("status 404")}
	agg := &stubSource{vendor: VendorLevelsFyi, jobs: makeJobs("Agg", 3)}

	r := NewRouter(testLogger(), []Source{board}, agg, nil, nil)
	res := r.Collect(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorGreenhouse, BoardURL: "https://boards.greenhouse.io/acme"},
	})

	require.Len(t, res.Jobs, 3)
	// The failed board contributed nothing so it never shows in provenance.
	assert.Equal(t, "levelsfyi", res.Provenance)
}

func TestRouterDirectOnlyAtZero(t *testing.T) {
	agg := &stubSource{vendor: VendorLevelsFyi}
	network := &stubSource{vendor: VendorLinkedIn}
	direct := &stubSource{vendor: VendorDirect, jobs: makeJobs("Direct", 2)}

	r := NewRouter(testLogger(), nil, agg, network, direct)
	res := r.Collect(context.Background(), Target{
		Company:    "Acme",
		CareersURL: "https://acme.com/careers",
	})

	assert.Equal(t, 1, direct.calls)
	assert.Len(t, res.Jobs, 2)
	assert.Equal(t, "direct:https://acme.com/careers", res.Provenance)
}

func TestRouterEverythingEmpty(t *testing.T) {
	r := NewRouter(testLogger(), nil,
		&stubSource{vendor: VendorLevelsFyi},
		&stubSource{vendor: VendorLinkedIn},
		&stubSource{vendor: VendorDirect})
	res := r.Collect(context.Background(), Target{Company: "Ghost Co", CareersURL: "https://ghost.io/jobs"})

	assert.Empty(t, res.Jobs)
	assert.Empty(t, res.Provenance)
}

func TestRouterDedupesAcrossSources(t *testing.T) {
	board := &stubSource{vendor: VendorGreenhouse, auth: true, jobs: []JobPosting{
		{Title: "Staff Engineer", Department: "Platform", Location: "NYC"},
	}}
	agg := &stubSource{vendor: VendorLevelsFyi, jobs: []JobPosting{
		{Title: "  staff engineer ", Department: DepartmentGeneral, Location: LocationUnspecified},
		{Title: "Sales Lead", Department: "Sales", Location: "Remote"},
	}}

	r := NewRouter(testLogger(), []Source{board}, agg, nil, nil)
	res := r.Collect(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorGreenhouse, BoardURL: "https://boards.greenhouse.io/acme"},
	})

	require.Len(t, res.Jobs, 2)
	// First-seen wins: the board's richer record survives.
	assert.Equal(t, "Platform", res.Jobs[0].Department)
	assert.Equal(t, "Sales Lead", res.Jobs[1].Title)
}

func TestDedupe(t *testing.T) {
	jobs := []JobPosting{
		{Title: "Backend Engineer"},
		{Title: "backend engineer  "},
		{Title: "Frontend Engineer"},
		{Title: ""},
		{Title: "BACKEND ENGINEER"},
	}
	out := Dedupe(jobs)
	require.Len(t, out, 2)
	assert.Equal(t, "Backend Engineer", out[0].Title)
	assert.Equal(t, "Frontend Engineer", out[1].Title)

	// Idempotent.
	assert.Equal(t, out, Dedupe(out))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "staff engineer", NormalizeTitle("  Staff Engineer "))
	assert.Equal(t, "", NormalizeTitle("   "))
}
