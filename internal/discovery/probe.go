package discovery

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

// Existence verification thresholds for guessed Greenhouse boards. A bare
// 200 is not proof: unknown tokens often redirect to a generic marketing
// page, so the page must still be on the vendor host and look like a board.
const greenhouseMinJobLinks = 3

// probeCommonBoards guesses board URLs from the company name's slug
// variants and returns the first one that passes its vendor's existence
// verification.
func (e *Engine) probeCommonBoards(ctx context.Context, company string) *ats.Endpoint {
	for _, slug := range urlutil.BoardSlugs(company) {
		candidates := []struct {
			vendor ats.Vendor
			url    string
			verify func(ctx context.Context, boardURL string) bool
		}{
			{ats.VendorGreenhouse, "https://boards.greenhouse.io/" + slug, e.verifyGreenhouse},
			{ats.VendorLever, "https://jobs.lever.co/" + slug, e.verifyLever},
			{ats.VendorAshby, "https://jobs.ashbyhq.com/" + slug, e.verifyAshby},
		}
		for _, c := range candidates {
			if c.verify(ctx, c.url) {
				return &ats.Endpoint{Vendor: c.vendor, BoardURL: c.url}
			}
		}
	}
	return nil
}

func (e *Engine) verifyGreenhouse(ctx context.Context, boardURL string) bool {
	finalURL, body, err := e.fetchForVerification(ctx, boardURL)
	if err != nil {
		return false
	}
	return greenhouseBoardLooksReal(finalURL, body)
}

// greenhouseBoardLooksReal rejects redirects away from the vendor host and
// pages without enough job links to be a live board.
func greenhouseBoardLooksReal(finalURL, body string) bool {
	if !strings.Contains(finalURL, "greenhouse.io") {
		return false
	}
	if strings.Count(body, "/jobs/") < greenhouseMinJobLinks {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "opening") ||
		strings.Contains(lower, "position") ||
		strings.Contains(lower, "apply")
}

func (e *Engine) verifyLever(ctx context.Context, boardURL string) bool {
	_, body, err := e.fetchForVerification(ctx, boardURL)
	if err != nil {
		return false
	}
	return leverBoardLooksReal(body)
}

func leverBoardLooksReal(body string) bool {
	return strings.Contains(strings.ToLower(body), "posting")
}

// verifyAshby asks the GraphQL API directly: a board exists when its
// posting list comes back non-empty.
func (e *Engine) verifyAshby(ctx context.Context, boardURL string) bool {
	if e.ashby == nil {
		return false
	}
	jobs, err := e.ashby.Fetch(ctx, ats.Target{
		Endpoint: &ats.Endpoint{Vendor: ats.VendorAshby, BoardURL: boardURL},
	})
	return err == nil && len(jobs) > 0
}

func (e *Engine) fetchForVerification(ctx context.Context, rawURL string) (finalURL, body string, err error) {
	req, err := httpx.NewRequest(ctx, rawURL)
	if err != nil {
		return "", "", err
	}
	resp, err := e.polite.Do(ctx, req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", "", fmt.Errorf("probe: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", "", err
	}
	finalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return finalURL, buf.String(), nil
}
