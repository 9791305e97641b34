package discovery

import "strings"

// Companies whose careers pages live somewhere slug-probing and homepage
// scans won't find. Checked before any network call.
var customCareers = map[string]string{
	"atlassian": "https://www.atlassian.com/company/careers/all-jobs",
	"microsoft": "https://jobs.careers.microsoft.com/global/en/search",
	"github":    "https://www.github.careers/careers-home",
	"gitlab":    "https://about.gitlab.com/jobs/all-jobs/",
	"notion":    "https://www.notion.com/careers",
	"figma":     "https://www.figma.com/careers/",
	"linear":    "https://linear.app/careers",
	"airtable":  "https://airtable.com/careers",
	"asana":     "https://asana.com/jobs/all",
	"monday":    "https://monday.com/careers",
}

func customCareersURL(company string) string {
	key := strings.ToLower(strings.TrimSpace(company))
	if url, ok := customCareers[key]; ok {
		return url
	}
	// "Monday.com" and similar: retry with the TLD-looking suffix dropped.
	if i := strings.IndexByte(key, '.'); i > 0 {
		if url, ok := customCareers[key[:i]]; ok {
			return url
		}
	}
	return ""
}
