package discovery

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

// Path guesses tried in order when hunting a company's pricing and careers
// pages on its own domain.
var (
	pricingPaths = []string{
		"/pricing", "/pricing/", "/plans", "/plans/", "/plans-pricing",
		"/product/pricing", "/products/pricing", "/price", "/prices",
		"/packages", "/subscribe", "/buy",
	}
	careersPaths = []string{
		"/jobs/all", "/careers", "/jobs", "/about/careers", "/company/careers",
	}
)

// Dossier is what link discovery learned about a company's own site.
type Dossier struct {
	Homepage   string `json:"homepage"`
	PricingURL string `json:"pricing_url,omitempty"`
	CareersURL string `json:"careers_url,omitempty"`
}

// BuildDossier locates the pricing and careers pages for a domain: guessed
// paths first, then a scan of the homepage navigation for anything a guess
// missed.
func (e *Engine) BuildDossier(ctx context.Context, domain string) Dossier {
	homepage := urlutil.EnsureScheme(domain)
	d := Dossier{Homepage: homepage}

	d.PricingURL = e.firstLiveURL(ctx, homepage, pricingPaths)
	d.CareersURL = e.firstLiveURL(ctx, homepage, careersPaths)

	if d.PricingURL == "" || d.CareersURL == "" {
		navPricing, navCareers := e.scanHomepageNav(ctx, homepage)
		if d.PricingURL == "" {
			d.PricingURL = navPricing
		}
		if d.CareersURL == "" {
			d.CareersURL = navCareers
		}
	}
	return d
}

func (e *Engine) findCareersPage(ctx context.Context, domain string) string {
	return e.BuildDossier(ctx, domain).CareersURL
}

func (e *Engine) firstLiveURL(ctx context.Context, homepage string, paths []string) string {
	base := strings.TrimRight(homepage, "/")
	for _, path := range paths {
		candidate := base + path
		if e.polite.Verify(ctx, candidate) {
			return candidate
		}
	}
	return ""
}

// scanHomepageNav reads the homepage's links for pricing- and careers-ish
// anchors on the same host.
func (e *Engine) scanHomepageNav(ctx context.Context, homepage string) (pricingURL, careersURL string) {
	req, err := httpx.NewRequest(ctx, homepage)
	if err != nil {
		return "", ""
	}
	resp, err := e.polite.Do(ctx, req)
	if err != nil {
		e.log.Warn("homepage fetch failed", "url", homepage, "error", err)
		return "", ""
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", ""
	}
	return ScanNavLinks(homepage, buf.Bytes())
}

// ScanNavLinks finds the first same-site pricing and careers links in a
// page. Link text and href are both consulted.
func ScanNavLinks(baseURL string, page []byte) (pricingURL, careersURL string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", ""
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		hrefLower := strings.ToLower(href)

		abs := absolutize(baseURL, href)
		if abs == "" {
			return
		}
		if pricingURL == "" &&
			(strings.Contains(hrefLower, "pricing") || strings.Contains(hrefLower, "plans") ||
				text == "pricing" || text == "plans") {
			pricingURL = abs
		}
		if careersURL == "" &&
			(strings.Contains(hrefLower, "careers") || strings.Contains(hrefLower, "jobs") ||
				text == "careers" || text == "jobs" || text == "we're hiring") {
			careersURL = abs
		}
	})
	return pricingURL, careersURL
}

func absolutize(baseURL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:"):
		return ""
	case strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://"):
		// Off-site pricing/careers links are fine (hosted boards live
		// off-domain), so keep absolute URLs as-is.
		return href
	case strings.HasPrefix(href, "/"):
		return strings.TrimRight(baseURL, "/") + href
	default:
		return strings.TrimRight(baseURL, "/") + "/" + href
	}
}
