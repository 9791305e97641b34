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

const greenhouseAPIBase = "https://boards-api.greenhouse.io"

var greenhouseTokenRe = regexp.MustCompile(`(?:job-boards|boards)\.greenhouse\.io/([\w-]+)`)

// GreenhouseSource reads a Greenhouse board through the public boards API,
// falling back to scraping the hosted board page when the API yields nothing.
type GreenhouseSource struct {
	client  *http.Client
	apiBase string
	log     *slog.Logger
}

func NewGreenhouseSource(log *slog.Logger) *GreenhouseSource {
	return &GreenhouseSource{
		client:  &http.Client{Timeout: 20 * time.Second},
		apiBase: greenhouseAPIBase,
		log:     log.With("source", VendorGreenhouse),
	}
}

func (s *GreenhouseSource) Vendor() Vendor      { return VendorGreenhouse }
func (s *GreenhouseSource) Authoritative() bool { return true }

func (s *GreenhouseSource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.Endpoint == nil || target.Endpoint.BoardURL == "" {
		return nil, nil
	}
	boardURL := target.Endpoint.BoardURL

	if token := greenhouseBoardToken(boardURL); token != "" {
		jobs, err := s.fetchAPI(ctx, token)
		if err != nil {
			s.log.Warn("boards api failed, trying board html",
				"token", token, "error", err)
			observability.IncError(observability.ClassifyFetchError(err), "ats.greenhouse")
		}
		if len(jobs) > 0 {
			return jobs, nil
		}
	}
	return s.fetchHTML(ctx, boardURL)
}

type greenhouseJobs struct {
	Jobs []struct {
		Title    string `json:"title"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Departments []struct {
			Name string `json:"name"`
		} `json:"departments"`
	} `json:"jobs"`
}

func (s *GreenhouseSource) fetchAPI(ctx context.Context, token string) ([]JobPosting, error) {
	url := fmt.Sprintf("%s/v1/boards/%s/jobs?content=false", s.apiBase, token)
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
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("greenhouse boards api: status %d", resp.StatusCode)}
	}

	var payload greenhouseJobs
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode greenhouse jobs: %w", err)
	}

	jobs := make([]JobPosting, 0, len(payload.Jobs))
	for _, j := range payload.Jobs {
		dept := DepartmentGeneral
		if len(j.Departments) > 0 {
			dept = orDefault(j.Departments[0].Name, DepartmentGeneral)
		}
		jobs = append(jobs, JobPosting{
			Title:      strings.TrimSpace(j.Title),
			Department: dept,
			Location:   orDefault(j.Location.Name, LocationUnspecified),
		})
	}
	return jobs, nil
}

func (s *GreenhouseSource) fetchHTML(ctx context.Context, boardURL string) ([]JobPosting, error) {
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
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("greenhouse board page: status %d", resp.StatusCode)}
	}
	return ParseGreenhouseBoard(resp.Body)
}

// ParseGreenhouseBoard scrapes a hosted Greenhouse board page. It tries the
// classic div.opening layout first, then falls back to scanning job links in
// heading order for the newer board markup.
func ParseGreenhouseBoard(r io.Reader) ([]JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse greenhouse board: %w", err)
	}

	if jobs := parseGreenhouseOpenings(doc); len(jobs) > 0 {
		return jobs, nil
	}
	return parseGreenhouseJobLinks(doc), nil
}

func parseGreenhouseOpenings(doc *goquery.Document) []JobPosting {
	var jobs []JobPosting
	doc.Find("div.opening").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("a").First().Text())
		if title == "" {
			return
		}
		dept := DepartmentGeneral
		if section := sel.Closest("section"); section.Length() > 0 {
			if h := strings.TrimSpace(section.Find("h2, h3, h4").First().Text()); h != "" {
				dept = h
			}
		}
		jobs = append(jobs, JobPosting{
			Title:      title,
			Department: dept,
			Location:   orDefault(sel.Find("span.location").First().Text(), LocationUnspecified),
		})
	})
	return jobs
}

var greenhouseJobHrefRe = regexp.MustCompile(`/jobs/\d+`)

// Link texts that are navigation, not job titles.
var greenhouseLinkStoplist = map[string]struct{}{
	"apply": {}, "view": {}, "see all": {}, "all open positions": {},
	"view all": {}, "learn more": {}, "read more": {}, "careers": {},
	"jobs": {}, "home": {}, "about": {}, "benefits": {}, "culture": {},
	"teams": {}, "locations": {},
}

var roleKeywords = []string{
	"engineer", "manager", "director", "analyst", "designer",
	"developer", "lead", "head", "specialist", "coordinator",
}

func parseGreenhouseJobLinks(doc *goquery.Document) []JobPosting {
	var jobs []JobPosting
	currentDept := DepartmentGeneral

	doc.Find("h2, h3, h4, a").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) != "a" {
			if h := strings.TrimSpace(sel.Text()); h != "" && len(h) < 60 {
				currentDept = h
			}
			return
		}
		href, _ := sel.Attr("href")
		if !greenhouseJobHrefRe.MatchString(href) {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if !plausibleJobTitle(title) {
			return
		}
		jobs = append(jobs, JobPosting{
			Title:      title,
			Department: currentDept,
			Location:   LocationUnspecified,
		})
	})
	return jobs
}

// plausibleJobTitle filters link text down to strings that read like role
// names: long enough to be a title, not in the navigation stoplist, and for
// short titles containing a recognizable role word.
func plausibleJobTitle(title string) bool {
	if len(title) < 10 {
		return false
	}
	lower := strings.ToLower(title)
	if _, stop := greenhouseLinkStoplist[lower]; stop {
		return false
	}
	if len(strings.Fields(title)) <= 3 {
		for _, kw := range roleKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
	return true
}

func greenhouseBoardToken(boardURL string) string {
	if m := greenhouseTokenRe.FindStringSubmatch(boardURL); m != nil {
		return m[1]
	}
	return ""
}
