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

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

const (
	levelsFyiBase = "https://www.levels.fyi"

	// The public jobs pages stop serving useful results past a small window,
	// so the source caps what it collects.
	levelsFyiMaxJobs  = 15
	levelsFyiPageSize = 10
	levelsFyiMaxPages = 3
)

// LevelsFyiSource samples a company's openings from the levels.fyi jobs
// pages. It is supplementary: results are a bounded sample used to pad thin
// authoritative data, never a complete board.
type LevelsFyiSource struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

func NewLevelsFyiSource(log *slog.Logger) *LevelsFyiSource {
	return &LevelsFyiSource{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: levelsFyiBase,
		log:     log.With("source", VendorLevelsFyi),
	}
}

func (s *LevelsFyiSource) Vendor() Vendor      { return VendorLevelsFyi }
func (s *LevelsFyiSource) Authoritative() bool { return false }

func (s *LevelsFyiSource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.Company == "" {
		return nil, nil
	}
	slugs := urlutil.BoardSlugs(target.Company)

	var jobs []JobPosting
	for page := 0; page < levelsFyiMaxPages && len(jobs) < levelsFyiMaxJobs; page++ {
		pageURL := fmt.Sprintf("%s/jobs?companySlug=%s&offset=%d",
			s.baseURL, url.QueryEscape(slugs[0]), page*levelsFyiPageSize)
		batch, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			observability.IncError(observability.ClassifyFetchError(err), "ats.levelsfyi")
			if len(jobs) > 0 {
				break
			}
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		jobs = append(jobs, batch...)
		if len(batch) < levelsFyiPageSize {
			break
		}
	}

	if len(jobs) > levelsFyiMaxJobs {
		jobs = jobs[:levelsFyiMaxJobs]
	}
	return jobs, nil
}

type levelsFyiState struct {
	Props struct {
		PageProps struct {
			Jobs []struct {
				Title      string `json:"title"`
				Department string `json:"department"`
				Team       string `json:"team"`
				Location   string `json:"location"`
				City       string `json:"city"`
			} `json:"jobs"`
		} `json:"pageProps"`
	} `json:"props"`
}

func (s *LevelsFyiSource) fetchPage(ctx context.Context, pageURL string) ([]JobPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
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
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("levels.fyi jobs page: status %d", resp.StatusCode)}
	}

	buf := new(strings.Builder)
	if _, err := copyBounded(buf, resp.Body); err != nil {
		return nil, err
	}
	return ParseLevelsFyiPage(buf.String())
}

// ParseLevelsFyiPage pulls job rows out of the page's embedded app state.
// The state lives in a <script id="__NEXT_DATA__"> blob; the parser locates
// the first brace and walks to its balanced close rather than trusting the
// surrounding markup.
func ParseLevelsFyiPage(html string) ([]JobPosting, error) {
	marker := strings.Index(html, `id="__NEXT_DATA__"`)
	if marker < 0 {
		return nil, nil
	}
	raw := extractJSONObject(html[marker:])
	if raw == "" {
		return nil, nil
	}

	var state levelsFyiState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode levels.fyi state: %w", err)
	}

	rows := state.Props.PageProps.Jobs
	jobs := make([]JobPosting, 0, len(rows))
	for _, row := range rows {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			continue
		}
		dept := orDefault(row.Department, "")
		if dept == "" {
			dept = orDefault(row.Team, DepartmentGeneral)
		}
		loc := orDefault(row.Location, "")
		if loc == "" {
			loc = orDefault(row.City, LocationUnspecified)
		}
		jobs = append(jobs, JobPosting{Title: title, Department: dept, Location: loc})
	}
	return jobs, nil
}

// copyBounded drains a response body with a hard size cap; careers pages
// occasionally embed enormous payloads.
func copyBounded(dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, io.LimitReader(src, 4<<20))
}

// extractJSONObject returns the first balanced {...} object in s, honoring
// string literals and escapes, or "" when none closes.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
