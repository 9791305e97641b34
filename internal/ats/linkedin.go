package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
)

const (
	linkedInBase = "https://www.linkedin.com"

	linkedInPageSize = 25
	linkedInMaxPages = 4
)

// LinkedInSource samples postings from the unauthenticated guest endpoints:
// a company typeahead to resolve the company id, then the paginated guest
// job search scoped to that id. Supplementary and heavily rate limited by
// the host, so failures are expected and tolerated.
type LinkedInSource struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

func NewLinkedInSource(log *slog.Logger) *LinkedInSource {
	return &LinkedInSource{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: linkedInBase,
		log:     log.With("source", VendorLinkedIn),
	}
}

func (s *LinkedInSource) Vendor() Vendor      { return VendorLinkedIn }
func (s *LinkedInSource) Authoritative() bool { return false }

func (s *LinkedInSource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.Company == "" {
		return nil, nil
	}
	companyID, err := s.resolveCompanyID(ctx, target.Company)
	if err != nil {
		observability.IncError(observability.ClassifyFetchError(err), "ats.linkedin")
		return nil, err
	}
	if companyID == "" {
		return nil, nil
	}

	var jobs []JobPosting
	for page := 0; page < linkedInMaxPages; page++ {
		batch, err := s.fetchSearchPage(ctx, companyID, page*linkedInPageSize)
		if err != nil {
			observability.IncError(observability.ClassifyFetchError(err), "ats.linkedin")
			break
		}
		if len(batch) == 0 {
			break
		}
		jobs = append(jobs, batch...)
		if len(batch) < linkedInPageSize {
			break
		}
	}
	return jobs, nil
}

type linkedInTypeaheadHit struct {
	DisplayName string `json:"displayName"`
	ID          any    `json:"id"` // number or string depending on entity
}

// resolveCompanyID maps a company name to its numeric id via the guest
// typeahead. The best hit is one whose display name contains the query or
// vice versa; otherwise the first hit wins.
func (s *LinkedInSource) resolveCompanyID(ctx context.Context, company string) (string, error) {
	u := fmt.Sprintf("%s/jobs-guest/api/typeaheadHits?query=%s&typeaheadType=COMPANY",
		s.baseURL, url.QueryEscape(company))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", httpx.DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	observability.IncPagesFetched()

	if resp.StatusCode != http.StatusOK {
		return "", &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("typeahead: status %d", resp.StatusCode)}
	}

	var hits []linkedInTypeaheadHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return "", fmt.Errorf("decode typeahead hits: %w", err)
	}
	if len(hits) == 0 {
		return "", nil
	}

	want := strings.ToLower(company)
	best := hits[0]
	for _, h := range hits {
		got := strings.ToLower(h.DisplayName)
		if strings.Contains(got, want) || strings.Contains(want, got) {
			best = h
			break
		}
	}
	return hitID(best), nil
}

func hitID(h linkedInTypeaheadHit) string {
	switch v := h.ID.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func (s *LinkedInSource) fetchSearchPage(ctx context.Context, companyID string, start int) ([]JobPosting, error) {
	u := fmt.Sprintf("%s/jobs-guest/jobs/api/seeMoreJobPostings/search?f_C=%s&start=%d",
		s.baseURL, url.QueryEscape(companyID), start)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpx.DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	observability.IncPagesFetched()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("guest job search: status %d", resp.StatusCode)}
	}
	return ParseLinkedInCards(resp.Body)
}

// ParseLinkedInCards scrapes job cards out of a guest search result
// fragment. The guest endpoint has no department data; everything lands in
// the default bucket.
func ParseLinkedInCards(r io.Reader) ([]JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse job cards: %w", err)
	}

	var jobs []JobPosting
	doc.Find("div.base-card").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("h3.base-search-card__title").First().Text())
		if title == "" {
			return
		}
		jobs = append(jobs, JobPosting{
			Title:      title,
			Department: DepartmentGeneral,
			Location:   orDefault(sel.Find("span.job-search-card__location").First().Text(), LocationUnspecified),
		})
	})
	return jobs, nil
}
