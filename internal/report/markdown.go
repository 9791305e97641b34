// Package report renders pipeline results into a Markdown briefing.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sentinelhq/sentinel/internal/core"
	"github.com/sentinelhq/sentinel/internal/trend"
)

const noHiringData = "No hiring data available (ATS not detected or unsupported)."

// RenderMarkdown builds the full competitive briefing for a batch run.
func RenderMarkdown(title string, results []core.CompetitorResult, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_Generated %s — %d competitors analyzed._\n\n",
		generatedAt.Format("2006-01-02 15:04 MST"), len(results))

	for _, r := range results {
		renderCompetitor(&b, r)
	}
	return b.String()
}

func renderCompetitor(b *strings.Builder, r core.CompetitorResult) {
	fmt.Fprintf(b, "## %s\n\n", r.Name)
	if r.Domain != "" {
		fmt.Fprintf(b, "- Website: %s\n", r.Domain)
	}
	if r.BoardURL != "" {
		fmt.Fprintf(b, "- Job board: %s\n", r.BoardURL)
	}
	if r.Error != "" {
		fmt.Fprintf(b, "- Partial data: %s\n", r.Error)
	}
	b.WriteString("\n")

	renderPricing(b, r)
	renderHiring(b, r)
	renderTrends(b, r)

	if r.Provenance != "" {
		fmt.Fprintf(b, "_Sources: %s_\n\n", r.Provenance)
	}
}

func renderPricing(b *strings.Builder, r core.CompetitorResult) {
	if r.Pricing == nil {
		return
	}
	p := r.Pricing
	b.WriteString("### Pricing\n\n")
	if p.Diff.Verdict != "" {
		fmt.Fprintf(b, "**%s**\n\n", p.Diff.Verdict)
	}
	if p.OldState != "" {
		fmt.Fprintf(b, "| Snapshot | State |\n|---|---|\n")
		fmt.Fprintf(b, "| %s (archived) | %s |\n", p.CapturedAt.Format("2006-01-02"), tableCell(p.OldState))
		fmt.Fprintf(b, "| current | %s |\n\n", tableCell(p.NewState))
	} else {
		fmt.Fprintf(b, "Current state: %s\n\n", p.NewState)
		b.WriteString("No archived capture was available for comparison.\n\n")
	}
	if p.Diff.Analysis != "" {
		fmt.Fprintf(b, "%s\n\n", p.Diff.Analysis)
	}
}

func renderHiring(b *strings.Builder, r core.CompetitorResult) {
	b.WriteString("### Hiring\n\n")
	if r.Hiring.TotalJobs == 0 {
		b.WriteString(noHiringData + "\n\n")
		return
	}

	fmt.Fprintf(b, "%s\n\n", r.Hiring.Summary)

	if len(r.Hiring.TopDepartments) > 0 {
		b.WriteString("| Department | Open roles |\n|---|---|\n")
		for _, d := range r.Hiring.TopDepartments {
			fmt.Fprintf(b, "| %s | %d |\n", d.Name, d.Count)
		}
		b.WriteString("\n")
	}
	if len(r.Hiring.StrategicSignals) > 0 {
		b.WriteString("Strategic signals:\n\n")
		for _, s := range r.Hiring.StrategicSignals {
			fmt.Fprintf(b, "- %s: %d roles (%.1f%%)\n", s.Category, s.Count, s.Percent)
		}
		b.WriteString("\n")
	}
}

func renderTrends(b *strings.Builder, r core.CompetitorResult) {
	if r.Trends == nil {
		return
	}
	t := r.Trends
	b.WriteString("### Trends since last run\n\n")
	fmt.Fprintf(b, "%s\n\n", t.Summary)

	if len(t.KeywordChanges) > 0 {
		b.WriteString("Keyword shifts:\n\n")
		for _, kw := range sortedKeys(t.KeywordChanges) {
			d := t.KeywordChanges[kw]
			fmt.Fprintf(b, "- %s: %d → %d (%+d)\n", kw, d.Old, d.New, d.Delta)
		}
		b.WriteString("\n")
	}
	if len(t.DepartmentChanges) > 0 {
		b.WriteString("Department shifts:\n\n")
		for _, dept := range sortedKeys(t.DepartmentChanges) {
			d := t.DepartmentChanges[dept]
			fmt.Fprintf(b, "- %s: %d → %d (%+d)\n", dept, d.Old, d.New, d.Delta)
		}
		b.WriteString("\n")
	}
	if len(t.NewRoles) > 0 {
		b.WriteString("New roles:\n\n")
		for _, j := range t.NewRoles {
			fmt.Fprintf(b, "- %s (%s, %s)\n", j.Title, j.Department, j.Location)
		}
		b.WriteString("\n")
	}
	if len(t.RemovedRoles) > 0 {
		b.WriteString("Removed roles:\n\n")
		for _, j := range t.RemovedRoles {
			fmt.Fprintf(b, "- %s (%s, %s)\n", j.Title, j.Department, j.Location)
		}
		b.WriteString("\n")
	}
}

func sortedKeys(m map[string]trend.Delta) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tableCell flattens multi-line text for use inside a Markdown table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
