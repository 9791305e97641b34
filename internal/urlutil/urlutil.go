package urlutil

import (
	"errors"
	"net/url"
	"strings"
)

// Hosts of the ATS vendors the pipeline can extract from, plus vendors we
// recognize during discovery even though no structured fetcher exists yet.
var atsHosts = []string{
	"job-boards.greenhouse.io",
	"boards.greenhouse.io",
	"greenhouse.io",
	"jobs.lever.co",
	"lever.co",
	"jobs.ashbyhq.com",
	"ashbyhq.com",
	"myworkdayjobs.com",
	"breezy.hr",
}

// Normalize parses a raw URL, defaults the scheme to https, strips fragments
// and lowercases the host. Returns the normalized URL and its hostname.
func Normalize(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
		// "example.com/careers" parses as a path-only URL.
		if u.Host == "" {
			if reparsed, err2 := url.Parse("https://" + raw); err2 == nil {
				u = reparsed
			}
		}
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return u.String(), u.Hostname(), nil
}

// IsATSHost reports whether host belongs to a known ATS vendor.
func IsATSHost(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, ats := range atsHosts {
		if host == ats || strings.HasSuffix(host, "."+ats) {
			return true
		}
	}
	return false
}

// CleanBoardURL strips query parameters and embed suffixes from a discovered
// ATS link so it points at the plain hosted board.
func CleanBoardURL(raw string) string {
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "/embed"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSuffix(raw, "/")
}

// SnapshotSlug normalizes a company name into the snapshot-store key:
// lowercase, spaces replaced with underscores, periods removed.
func SnapshotSlug(company string) string {
	s := strings.ToLower(strings.TrimSpace(company))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ".", "")
	return s
}

// BoardSlugs returns the slug variants probed against vendor URL patterns:
// a compact form with spaces and punctuation removed, and a hyphenated form.
func BoardSlugs(company string) []string {
	lower := strings.ToLower(strings.TrimSpace(company))
	compact := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(lower)
	hyphen := strings.ReplaceAll(strings.ReplaceAll(lower, " ", "-"), ".", "")

	slugs := []string{compact}
	if hyphen != compact {
		slugs = append(slugs, hyphen)
	}
	return slugs
}

// SameHost reports whether two hostnames match ignoring a www prefix.
func SameHost(a, b string) bool {
	trim := func(h string) string {
		return strings.ToLower(strings.TrimPrefix(h, "www."))
	}
	return trim(a) != "" && trim(a) == trim(b)
}

// EnsureScheme prefixes https:// when the value has no scheme.
func EnsureScheme(raw string) string {
	if raw == "" {
		return raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}
