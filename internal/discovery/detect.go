// Package discovery figures out where a company's job data lives: a known
// custom board, an ATS link on the careers page, or a guessed vendor URL
// that survives existence verification.
package discovery

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

// Vendor URL patterns looked for in careers-page links and raw markup.
// Order is the probe priority order as well.
var vendorPatterns = []struct {
	vendor ats.Vendor
	re     *regexp.Regexp
}{
	{ats.VendorGreenhouse, regexp.MustCompile(`(?:https?://)?job-boards\.greenhouse\.io/[\w-]+`)},
	{ats.VendorGreenhouse, regexp.MustCompile(`(?:https?://)?boards\.greenhouse\.io/[\w-]+`)},
	{ats.VendorLever, regexp.MustCompile(`(?:https?://)?jobs\.lever\.co/[\w-]+`)},
	{ats.VendorAshby, regexp.MustCompile(`(?:https?://)?jobs\.ashbyhq\.com/[\w-]+`)},
}

// Engine runs the three discovery tiers in order. It is re-run every
// pipeline execution; endpoints are never cached across runs.
type Engine struct {
	polite *httpx.PoliteClient
	ashby  *ats.AshbySource
	log    *slog.Logger
}

func NewEngine(polite *httpx.PoliteClient, ashby *ats.AshbySource, log *slog.Logger) *Engine {
	return &Engine{polite: polite, ashby: ashby, log: log.With("component", "discovery")}
}

// Discover resolves a company to its job board endpoint, when one exists,
// plus the careers URL the scan used (handed to the direct tier as a
// fallback). knownCareersURL, when non-empty, skips the careers-page hunt.
// A nil endpoint with no error means the company has no detectable board.
func (e *Engine) Discover(ctx context.Context, company, domain, knownCareersURL string) (*ats.Endpoint, string, error) {
	careersURL := customCareersURL(company)
	if careersURL == "" {
		careersURL = knownCareersURL
	}
	if careersURL == "" && domain != "" {
		careersURL = e.findCareersPage(ctx, domain)
	}

	if careersURL != "" {
		if ep := e.scanCareersPage(ctx, careersURL); ep != nil {
			e.log.Info("board found on careers page",
				"company", company, "vendor", ep.Vendor, "url", ep.BoardURL)
			return ep, careersURL, nil
		}
	}

	if ep := e.probeCommonBoards(ctx, company); ep != nil {
		e.log.Info("board found by slug probe",
			"company", company, "vendor", ep.Vendor, "url", ep.BoardURL)
		return ep, careersURL, nil
	}

	e.log.Info("no job board detected", "company", company)
	return nil, careersURL, nil
}

func (e *Engine) scanCareersPage(ctx context.Context, careersURL string) *ats.Endpoint {
	req, err := httpx.NewRequest(ctx, careersURL)
	if err != nil {
		return nil
	}
	resp, err := e.polite.Do(ctx, req)
	if err != nil {
		e.log.Warn("careers page fetch failed", "url", careersURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil
	}
	return ScanPage(buf.Bytes())
}

// ScanPage looks for a vendor board URL in a careers page: the href/src of
// anchor, iframe, and script tags first, then the raw markup for boards
// referenced from inline javascript.
func ScanPage(page []byte) *ats.Endpoint {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page)); err == nil {
		var found *ats.Endpoint
		doc.Find("a[href], iframe[src], script[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			attr, ok := sel.Attr("href")
			if !ok {
				attr, _ = sel.Attr("src")
			}
			if ep := matchVendorURL(attr); ep != nil {
				found = ep
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return matchVendorURL(string(page))
}

func matchVendorURL(s string) *ats.Endpoint {
	for _, p := range vendorPatterns {
		if m := p.re.FindString(s); m != "" {
			return &ats.Endpoint{
				Vendor:   p.vendor,
				BoardURL: urlutil.CleanBoardURL(urlutil.EnsureScheme(m)),
			}
		}
	}
	return nil
}
