// Package trend computes diffs between two job-list snapshots. Everything
// here is pure: no I/O, no clocks, no logging, which keeps it the most
// test-dense corner of the pipeline.
package trend

import (
	"fmt"
	"math"
	"strings"

	"github.com/sentinelhq/sentinel/internal/ats"
)

// Vocabulary of title keywords tracked across snapshots. Matching is
// case-insensitive substring, so "ML" also hits "ML Ops" and the accepted
// false positives that come with substrings.
var Keywords = []string{
	"AI", "ML", "Machine Learning", "Enterprise", "Sales", "Security",
	"Platform", "Infrastructure", "Staff", "Principal", "Director", "VP",
}

// Delta is an old/new count pair for one keyword or department.
type Delta struct {
	Old   int `json:"old"`
	New   int `json:"new"`
	Delta int `json:"delta"`
}

// Report is the one-generation-back diff between two snapshots. It is
// recomputed every run and never persisted.
type Report struct {
	OldCount              int              `json:"old_count"`
	NewCount              int              `json:"new_count"`
	VelocityChangePercent float64          `json:"velocity_change_percent"`
	KeywordChanges        map[string]Delta `json:"keyword_changes"`
	DepartmentChanges     map[string]Delta `json:"department_changes"`
	NewRoles              []ats.JobPosting `json:"new_roles"`
	RemovedRoles          []ats.JobPosting `json:"removed_roles"`
	Summary               string           `json:"summary"`
}

// Role lists are capped; past this the report stops being readable and the
// velocity number carries the signal anyway.
const maxRoleList = 10

// Analyze diffs two job lists, oldest first.
func Analyze(prev, curr []ats.JobPosting) Report {
	r := Report{
		OldCount:              len(prev),
		NewCount:              len(curr),
		VelocityChangePercent: velocity(len(prev), len(curr)),
		KeywordChanges:        keywordDeltas(prev, curr),
		DepartmentChanges:     departmentDeltas(prev, curr),
	}
	r.NewRoles, r.RemovedRoles = roleDiff(prev, curr)
	r.Summary = summarize(r)
	return r
}

func velocity(oldCount, newCount int) float64 {
	if oldCount == 0 {
		if newCount > 0 {
			return 100.0
		}
		return 0.0
	}
	v := float64(newCount-oldCount) / float64(oldCount) * 100
	return math.Round(v*10) / 10
}

func keywordDeltas(prev, curr []ats.JobPosting) map[string]Delta {
	changes := make(map[string]Delta)
	for _, kw := range Keywords {
		o := countKeyword(prev, kw)
		n := countKeyword(curr, kw)
		if o != n {
			changes[kw] = Delta{Old: o, New: n, Delta: n - o}
		}
	}
	return changes
}

func countKeyword(jobs []ats.JobPosting, keyword string) int {
	kw := strings.ToLower(keyword)
	count := 0
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.Title), kw) {
			count++
		}
	}
	return count
}

func departmentDeltas(prev, curr []ats.JobPosting) map[string]Delta {
	oldCounts := countDepartments(prev)
	newCounts := countDepartments(curr)

	changes := make(map[string]Delta)
	for dept, o := range oldCounts {
		if n := newCounts[dept]; n != o {
			changes[dept] = Delta{Old: o, New: n, Delta: n - o}
		}
	}
	for dept, n := range newCounts {
		if _, seen := oldCounts[dept]; !seen {
			changes[dept] = Delta{Old: 0, New: n, Delta: n}
		}
	}
	return changes
}

func countDepartments(jobs []ats.JobPosting) map[string]int {
	counts := make(map[string]int)
	for _, j := range jobs {
		dept := j.Department
		if dept == "" {
			dept = ats.DepartmentGeneral
		}
		counts[dept]++
	}
	return counts
}

// roleDiff partitions postings by normalized title: present only in new,
// present only in old. A title present in both appears in neither list even
// when its other fields moved. Order follows source list order.
func roleDiff(prev, curr []ats.JobPosting) (added, removed []ats.JobPosting) {
	oldTitles := titleSet(prev)
	newTitles := titleSet(curr)

	for _, j := range curr {
		if _, ok := oldTitles[ats.NormalizeTitle(j.Title)]; !ok {
			added = append(added, j)
			if len(added) == maxRoleList {
				break
			}
		}
	}
	for _, j := range prev {
		if _, ok := newTitles[ats.NormalizeTitle(j.Title)]; !ok {
			removed = append(removed, j)
			if len(removed) == maxRoleList {
				break
			}
		}
	}
	return added, removed
}

func titleSet(jobs []ats.JobPosting) map[string]struct{} {
	set := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		set[ats.NormalizeTitle(j.Title)] = struct{}{}
	}
	return set
}

func summarize(r Report) string {
	switch {
	case r.VelocityChangePercent > 0:
		return fmt.Sprintf("Hiring velocity increased by %.0f%% (%d → %d open roles)",
			r.VelocityChangePercent, r.OldCount, r.NewCount)
	case r.VelocityChangePercent < 0:
		return fmt.Sprintf("Hiring velocity decreased by %.0f%% (%d → %d open roles)",
			-r.VelocityChangePercent, r.OldCount, r.NewCount)
	default:
		return fmt.Sprintf("Hiring velocity unchanged (%d open roles)", r.NewCount)
	}
}
