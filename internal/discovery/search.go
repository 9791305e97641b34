package discovery

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

// Hosts that show up in search results but are never a company's own site.
var searchNoise = []string{
	"duckduckgo.com", "wikipedia.org", "linkedin.com", "crunchbase.com",
	"facebook.com", "twitter.com", "x.com", "youtube.com", "glassdoor.com",
}

// ResolveDomain finds a company's website via the DuckDuckGo html endpoint
// when the LLM suggestion came without one. Best-effort: an empty return
// just means the pipeline proceeds name-only.
func (e *Engine) ResolveDomain(ctx context.Context, company string) string {
	results := e.duckDuckSearch(ctx, company+" official website", 8)
	for _, raw := range results {
		_, host, err := urlutil.Normalize(raw)
		if err != nil || host == "" {
			continue
		}
		if noisyHost(host) {
			continue
		}
		return strings.TrimPrefix(host, "www.")
	}
	return ""
}

func noisyHost(host string) bool {
	for _, noise := range searchNoise {
		if strings.HasSuffix(host, noise) {
			return true
		}
	}
	return false
}

// duckDuckSearch fetches a small set of result URLs from the DuckDuckGo
// html endpoint.
func (e *Engine) duckDuckSearch(ctx context.Context, query string, limit int) []string {
	reqURL := "https://duckduckgo.com/html/?q=" + url.QueryEscape(query)

	req, err := httpx.NewRequest(ctx, reqURL)
	if err != nil {
		return nil
	}
	resp, err := e.polite.Do(ctx, req)
	if err != nil {
		e.log.Warn("search failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if limit > 0 && len(urls) >= limit {
			return
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}

		// DuckDuckGo rewrites result links as /l/?uddg=<encoded>.
		if strings.Contains(href, "uddg=") {
			if decoded := decodeDDGLink(href); decoded != "" {
				href = decoded
			}
		}
		if !strings.HasPrefix(href, "http") {
			return
		}
		urls = append(urls, href)
	})
	return urls
}

func decodeDDGLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("uddg"); v != "" {
		if decoded, err := url.QueryUnescape(v); err == nil {
			return decoded
		}
	}
	return ""
}
