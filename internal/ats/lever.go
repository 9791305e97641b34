package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
)

const (
	leverAPIBase  = "https://api.lever.co/v0"
	leverPageSize = 100
	leverMaxPages = 50
)

var leverSlugRe = regexp.MustCompile(`jobs\.lever\.co/([^/?#]+)`)

// LeverSource reads a Lever board through the public postings API, paging
// until a short page, falling back to the hosted board HTML.
type LeverSource struct {
	client  *http.Client
	apiBase string
	log     *slog.Logger
}

func NewLeverSource(log *slog.Logger) *LeverSource {
	return &LeverSource{
		client:  &http.Client{Timeout: 20 * time.Second},
		apiBase: leverAPIBase,
		log:     log.With("source", VendorLever),
	}
}

func (s *LeverSource) Vendor() Vendor      { return VendorLever }
func (s *LeverSource) Authoritative() bool { return true }

func (s *LeverSource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.Endpoint == nil || target.Endpoint.BoardURL == "" {
		return nil, nil
	}
	boardURL := target.Endpoint.BoardURL

	if slug := leverBoardSlug(boardURL); slug != "" {
		jobs, err := s.fetchAPI(ctx, slug)
		if err != nil {
			s.log.Warn("postings api failed, trying board html",
				"slug", slug, "error", err)
			observability.IncError(observability.ClassifyFetchError(err), "ats.lever")
		}
		if len(jobs) > 0 {
			return jobs, nil
		}
	}
	return s.fetchHTML(ctx, boardURL)
}

type leverPosting struct {
	Text       string `json:"text"`
	Categories struct {
		Team     string `json:"team"`
		Location string `json:"location"`
	} `json:"categories"`
}

func (s *LeverSource) fetchAPI(ctx context.Context, slug string) ([]JobPosting, error) {
	var jobs []JobPosting
	for page := 0; page < leverMaxPages; page++ {
		url := fmt.Sprintf("%s/postings/%s?mode=json&skip=%d&limit=%d",
			s.apiBase, slug, page*leverPageSize, leverPageSize)
		batch, err := s.fetchPage(ctx, url)
		if err != nil {
			// Keep whatever earlier pages produced.
			if len(jobs) > 0 {
				s.log.Warn("lever page failed mid-pagination", "page", page, "error", err)
				return jobs, nil
			}
			return nil, err
		}
		jobs = append(jobs, batch...)
		if len(batch) < leverPageSize {
			break
		}
	}
	return jobs, nil
}

func (s *LeverSource) fetchPage(ctx context.Context, url string) ([]JobPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("lever postings api: status %d", resp.StatusCode)}
	}

	var postings []leverPosting
	if err := json.NewDecoder(resp.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("decode lever postings: %w", err)
	}

	jobs := make([]JobPosting, 0, len(postings))
	for _, p := range postings {
		jobs = append(jobs, JobPosting{
			Title:      strings.TrimSpace(p.Text),
			Department: orDefault(p.Categories.Team, DepartmentGeneral),
			Location:   orDefault(p.Categories.Location, LocationUnspecified),
		})
	}
	return jobs, nil
}

func (s *LeverSource) fetchHTML(ctx context.Context, boardURL string) ([]JobPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, boardURL, nil)
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
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("lever board page: status %d", resp.StatusCode)}
	}
	return ParseLeverBoard(resp.Body)
}

// ParseLeverBoard scrapes a hosted Lever board page. Postings sit in
// div.posting blocks; department comes from the posting's own team span or
// the enclosing posting-group header.
func ParseLeverBoard(r io.Reader) ([]JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse lever board: %w", err)
	}

	var jobs []JobPosting
	doc.Find("div.posting").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("a.posting-title h5").First().Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find("a.posting-title").First().Text())
		}
		if title == "" {
			return
		}
		dept := strings.TrimSpace(sel.Find("span.sort-by-team").First().Text())
		if dept == "" {
			if group := sel.Closest("div.postings-group"); group.Length() > 0 {
				dept = strings.TrimSpace(group.Find("div.posting-category-title, div.large-category-header").First().Text())
			}
		}
		jobs = append(jobs, JobPosting{
			Title:      title,
			Department: orDefault(dept, DepartmentGeneral),
			Location:   orDefault(sel.Find("span.sort-by-location").First().Text(), LocationUnspecified),
		})
	})
	return jobs, nil
}

func leverBoardSlug(boardURL string) string {
	if m := leverSlugRe.FindStringSubmatch(boardURL); m != nil {
		return m[1]
	}
	return ""
}
