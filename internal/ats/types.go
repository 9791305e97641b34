package ats

import (
	"context"
	"strings"
)

// Defaults used when a vendor payload omits a field.
const (
	DepartmentGeneral   = "General"
	LocationUnspecified = "Not specified"
)

// Vendor identifies a job-data source.
type Vendor string

const (
	VendorGreenhouse Vendor = "greenhouse"
	VendorLever      Vendor = "lever"
	VendorAshby      Vendor = "ashby"
	VendorLevelsFyi  Vendor = "levelsfyi"
	VendorLinkedIn   Vendor = "linkedin"
	VendorDirect     Vendor = "direct"
)

// JobPosting is a single opening. Title is the natural dedup key; two
// distinct postings with identical titles collapse into one, which is an
// accepted imprecision.
type JobPosting struct {
	Title      string `json:"title"`
	Department string `json:"department"`
	Location   string `json:"location"`
}

// Endpoint is a discovered job board: which vendor hosts it and where.
// Endpoints are rediscovered every run and never persisted.
type Endpoint struct {
	Vendor   Vendor `json:"vendor_type"`
	BoardURL string `json:"board_url"`
}

// Target carries everything the router knows about one company's job data.
type Target struct {
	Company    string
	Endpoint   *Endpoint // nil when no ATS board was discovered
	CareersURL string    // raw careers page for the last-resort tier
}

// Source fetches job postings from one vendor. Implementations fail soft:
// transient network errors, vendor non-existence, and malformed payloads all
// surface as an empty list plus the error for logging, never a panic or a
// fatal condition.
type Source interface {
	Vendor() Vendor
	// Authoritative sources return the complete job list per their vendor's
	// API contract; supplementary ones return a bounded sample.
	Authoritative() bool
	Fetch(ctx context.Context, target Target) ([]JobPosting, error)
}

// Extractor is the LLM text-extraction collaborator used by the direct
// careers-page tier. It is a black box returning structured postings or an
// error; nothing downstream of the router depends on it.
type Extractor interface {
	ExtractJobs(ctx context.Context, pageText string) ([]JobPosting, error)
}

// NormalizeTitle folds a title into its dedup key.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Dedupe removes postings whose normalized titles repeat, preserving
// first-seen order.
func Dedupe(jobs []JobPosting) []JobPosting {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]JobPosting, 0, len(jobs))
	for _, j := range jobs {
		key := NormalizeTitle(j.Title)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, j)
	}
	return out
}

func orDefault(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return strings.TrimSpace(val)
}
