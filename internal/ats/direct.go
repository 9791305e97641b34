package ats

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
)

// Text sent to the extractor is capped; careers pages past this point are
// boilerplate.
const directTextLimit = 12000

// DirectSource is the last-resort tier for companies without a detectable
// ATS board: it fetches the careers page itself, reads schema.org JobPosting
// structured data when present, and otherwise hands the page text to the
// LLM extractor.
type DirectSource struct {
	fetcher   *httpx.CollyFetcher
	extractor Extractor
	log       *slog.Logger
}

func NewDirectSource(fetcher *httpx.CollyFetcher, extractor Extractor, log *slog.Logger) *DirectSource {
	return &DirectSource{
		fetcher:   fetcher,
		extractor: extractor,
		log:       log.With("source", VendorDirect),
	}
}

func (s *DirectSource) Vendor() Vendor      { return VendorDirect }
func (s *DirectSource) Authoritative() bool { return false }

func (s *DirectSource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.CareersURL == "" {
		return nil, nil
	}
	body, _, err := s.fetcher.FetchBytes(ctx, target.CareersURL)
	if err != nil {
		observability.IncError(observability.ClassifyFetchError(err), "ats.direct")
		return nil, err
	}

	if jobs := ExtractJSONLDJobs(body); len(jobs) > 0 {
		return jobs, nil
	}

	if s.extractor == nil {
		return nil, nil
	}
	text := ExtractText(body)
	if len(text) > directTextLimit {
		text = text[:directTextLimit]
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	jobs, err := s.extractor.ExtractJobs(ctx, text)
	if err != nil {
		observability.IncError(observability.ErrorAI, "ats.direct")
		return nil, err
	}
	return jobs, nil
}

// ExtractJSONLDJobs reads schema.org JobPosting entries out of the page's
// ld+json script blocks, walking nested @graph containers and arrays.
func ExtractJSONLDJobs(page []byte) []JobPosting {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var jobs []JobPosting
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(sel.Text()), &v); err != nil {
			return
		}
		for _, m := range findJobPostings(v) {
			if j, ok := jobFromJSONLD(m); ok {
				jobs = append(jobs, j)
			}
		}
	})
	return jobs
}

func findJobPostings(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case map[string]any:
		if typ, _ := t["@type"].(string); strings.EqualFold(typ, "JobPosting") {
			out = append(out, t)
		}
		if graph, ok := t["@graph"]; ok {
			out = append(out, findJobPostings(graph)...)
		}
	case []any:
		for _, item := range t {
			out = append(out, findJobPostings(item)...)
		}
	}
	return out
}

func jobFromJSONLD(m map[string]any) (JobPosting, bool) {
	title, _ := m["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		if u, _ := m["url"].(string); u != "" {
			title = pathTitle(u)
		}
	}
	if title == "" {
		return JobPosting{}, false
	}
	dept, _ := m["occupationalCategory"].(string)
	return JobPosting{
		Title:      title,
		Department: orDefault(dept, DepartmentGeneral),
		Location:   orDefault(jsonldLocation(m), LocationUnspecified),
	}, true
}

func jsonldLocation(m map[string]any) string {
	loc, ok := m["jobLocation"]
	if !ok {
		return ""
	}
	if arr, ok := loc.([]any); ok && len(arr) > 0 {
		loc = arr[0]
	}
	place, ok := loc.(map[string]any)
	if !ok {
		return ""
	}
	if addr, ok := place["address"].(map[string]any); ok {
		if city, _ := addr["addressLocality"].(string); city != "" {
			return city
		}
		if region, _ := addr["addressRegion"].(string); region != "" {
			return region
		}
	}
	name, _ := place["name"].(string)
	return name
}

// pathTitle recovers a human-readable title from the last useful segment of
// a job posting URL, e.g. /jobs/staff-software-engineer.
func pathTitle(u string) string {
	parts := strings.Split(u, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.TrimSpace(parts[i])
		if p == "" {
			continue
		}
		if q := strings.IndexAny(p, "?#"); q >= 0 {
			p = p[:q]
		}
		p = strings.ReplaceAll(p, "-", " ")
		p = strings.ReplaceAll(p, "_", " ")
		if p == "" {
			continue
		}
		return cases.Title(language.Und).String(p)
	}
	return ""
}

// ExtractText flattens a HTML document to whitespace-normalized visible
// text, skipping script and style bodies.
func ExtractText(page []byte) string {
	z := html.NewTokenizer(bytes.NewReader(page))
	var (
		parts []string
		skip  int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if fields := strings.Fields(string(z.Text())); len(fields) > 0 {
				parts = append(parts, strings.Join(fields, " "))
			}
		}
	}
}
