package trend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sentinelhq/sentinel/internal/ats"
)

// Strategic signal categories and the title terms that indicate them.
// Multiple terms hitting one title still count the title once per category.
var signalCategories = []struct {
	Name  string
	Terms []string
}{
	{"AI/ML", []string{"ai", "machine learning", "ml engineer", "deep learning", "llm", "data scientist"}},
	{"Enterprise", []string{"enterprise", "strategic account", "solutions engineer", "customer success"}},
	{"Platform", []string{"platform", "infrastructure", "sre", "devops", "reliability"}},
	{"Security", []string{"security", "compliance", "trust"}},
	{"Growth", []string{"growth", "marketing", "demand gen", "sales development"}},
	{"International", []string{"emea", "apac", "latam", "international", "localization"}},
}

const maxTopDepartments = 5

// DepartmentCount is one row of the department leaderboard.
type DepartmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Signal is one strategic category's share of current openings.
type Signal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// HiringAnalysis is the point-in-time read on a single snapshot, as opposed
// to the two-snapshot diff in Report.
type HiringAnalysis struct {
	TotalJobs        int               `json:"total_jobs"`
	TopDepartments   []DepartmentCount `json:"top_departments"`
	StrategicSignals []Signal          `json:"strategic_signals"`
	Summary          string            `json:"summary"`
}

// AnalyzeHiring reads strategic intent out of one job list: where headcount
// concentrates and which investment themes the titles betray.
func AnalyzeHiring(jobs []ats.JobPosting) HiringAnalysis {
	a := HiringAnalysis{TotalJobs: len(jobs)}
	if len(jobs) == 0 {
		a.Summary = "No open roles found"
		return a
	}

	a.TopDepartments = topDepartments(jobs)
	a.StrategicSignals = strategicSignals(jobs)
	a.Summary = summarizeHiring(a)
	return a
}

func topDepartments(jobs []ats.JobPosting) []DepartmentCount {
	counts := countDepartments(jobs)
	out := make([]DepartmentCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, DepartmentCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxTopDepartments {
		out = out[:maxTopDepartments]
	}
	return out
}

func strategicSignals(jobs []ats.JobPosting) []Signal {
	var signals []Signal
	for _, cat := range signalCategories {
		count := 0
		for _, j := range jobs {
			title := strings.ToLower(j.Title)
			for _, term := range cat.Terms {
				if strings.Contains(title, term) {
					count++
					break
				}
			}
		}
		if count == 0 {
			continue
		}
		pct := float64(count) / float64(len(jobs)) * 100
		signals = append(signals, Signal{
			Category: cat.Name,
			Count:    count,
			Percent:  math.Round(pct*10) / 10,
		})
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Count != signals[j].Count {
			return signals[i].Count > signals[j].Count
		}
		return signals[i].Category < signals[j].Category
	})
	return signals
}

func summarizeHiring(a HiringAnalysis) string {
	if len(a.TopDepartments) == 0 {
		return fmt.Sprintf("%d open roles", a.TotalJobs)
	}
	lead := a.TopDepartments[0]
	if len(a.StrategicSignals) > 0 {
		return fmt.Sprintf("%d open roles, led by %s (%d); strongest signal: %s",
			a.TotalJobs, lead.Name, lead.Count, a.StrategicSignals[0].Category)
	}
	return fmt.Sprintf("%d open roles, led by %s (%d)", a.TotalJobs, lead.Name, lead.Count)
}
