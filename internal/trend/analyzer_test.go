package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelhq/sentinel/internal/ats"
)

func job(title, dept string) ats.JobPosting {
	return ats.JobPosting{Title: title, Department: dept, Location: ats.LocationUnspecified}
}

func nJobs(n int, dept string) []ats.JobPosting {
	jobs := make([]ats.JobPosting, n)
	for i := range jobs {
		jobs[i] = job(string(rune('A'+i))+" Role", dept)
	}
	return jobs
}

func TestVelocitySymmetry(t *testing.T) {
	up := Analyze(nJobs(10, "Eng"), nJobs(15, "Eng"))
	assert.Equal(t, 50.0, up.VelocityChangePercent)

	down := Analyze(nJobs(10, "Eng"), nJobs(5, "Eng"))
	assert.Equal(t, -50.0, down.VelocityChangePercent)
}

func TestVelocityZeroBase(t *testing.T) {
	r := Analyze(nil, nJobs(5, "Eng"))
	assert.Equal(t, 100.0, r.VelocityChangePercent)

	r = Analyze(nil, nil)
	assert.Equal(t, 0.0, r.VelocityChangePercent)
}

func TestVelocityRounding(t *testing.T) {
	// 1/3 growth = 33.333... rounds to one decimal.
	r := Analyze(nJobs(3, "Eng"), nJobs(4, "Eng"))
	assert.Equal(t, 33.3, r.VelocityChangePercent)
}

func TestKeywordDeltasOnlyChanged(t *testing.T) {
	prev := []ats.JobPosting{
		job("Staff Engineer", "Eng"),
		job("Security Analyst", "Security"),
	}
	curr := []ats.JobPosting{
		job("Staff Engineer", "Eng"),
		job("Security Analyst", "Security"),
		job("Security Engineer", "Security"),
		job("AI Researcher", "Research"),
	}
	r := Analyze(prev, curr)

	require.Contains(t, r.KeywordChanges, "Security")
	assert.Equal(t, Delta{Old: 1, New: 2, Delta: 1}, r.KeywordChanges["Security"])
	assert.Equal(t, Delta{Old: 0, New: 1, Delta: 1}, r.KeywordChanges["AI"])
	// "Staff" count did not change, so it must be absent.
	assert.NotContains(t, r.KeywordChanges, "Staff")
}

func TestDepartmentDeltaCompleteness(t *testing.T) {
	prev := []ats.JobPosting{job("A", "Eng"), job("B", "Eng"), job("C", "Design")}
	curr := []ats.JobPosting{job("A", "Eng"), job("D", "Sales")}
	r := Analyze(prev, curr)

	assert.Equal(t, Delta{Old: 2, New: 1, Delta: -1}, r.DepartmentChanges["Eng"])
	assert.Equal(t, Delta{Old: 1, New: 0, Delta: -1}, r.DepartmentChanges["Design"])
	assert.Equal(t, Delta{Old: 0, New: 1, Delta: 1}, r.DepartmentChanges["Sales"])
	assert.Len(t, r.DepartmentChanges, 3)
}

func TestDepartmentDeltaEqualCountsAbsent(t *testing.T) {
	prev := []ats.JobPosting{job("A", "Eng"), job("B", "Sales")}
	curr := []ats.JobPosting{job("C", "Eng"), job("D", "Sales")}
	r := Analyze(prev, curr)
	assert.Empty(t, r.DepartmentChanges)
}

func TestRolePartition(t *testing.T) {
	prev := []ats.JobPosting{
		job("Backend Engineer", "Eng"),
		job("Recruiter", "People"),
	}
	curr := []ats.JobPosting{
		// Same title, moved department: belongs in neither list.
		job("Backend Engineer", "Platform"),
		job("Sales Rep", "Sales"),
	}
	r := Analyze(prev, curr)

	require.Len(t, r.NewRoles, 1)
	assert.Equal(t, "Sales Rep", r.NewRoles[0].Title)
	require.Len(t, r.RemovedRoles, 1)
	assert.Equal(t, "Recruiter", r.RemovedRoles[0].Title)
}

func TestRoleListCap(t *testing.T) {
	r := Analyze(nil, nJobs(25, "Eng"))
	assert.Len(t, r.NewRoles, 10)
}

func TestFullDiffScenario(t *testing.T) {
	prev := []ats.JobPosting{job("Backend Engineer", "Eng")}
	curr := []ats.JobPosting{
		job("Backend Engineer", "Eng"),
		job("Sales Rep", "Sales"),
	}
	r := Analyze(prev, curr)

	assert.Equal(t, 100.0, r.VelocityChangePercent)
	require.Len(t, r.NewRoles, 1)
	assert.Equal(t, "Sales Rep", r.NewRoles[0].Title)
	assert.Empty(t, r.RemovedRoles)
	assert.Equal(t, map[string]Delta{"Sales": {Old: 0, New: 1, Delta: 1}}, r.DepartmentChanges)
	assert.Equal(t, "Hiring velocity increased by 100% (1 → 2 open roles)", r.Summary)
}

func TestSummaryDirections(t *testing.T) {
	assert.Contains(t, Analyze(nJobs(10, "Eng"), nJobs(5, "Eng")).Summary, "decreased by 50%")
	assert.Contains(t, Analyze(nJobs(5, "Eng"), nJobs(5, "Eng")).Summary, "unchanged")
}

func TestAnalyzeHiring(t *testing.T) {
	jobs := []ats.JobPosting{
		job("Machine Learning Engineer", "Research"),
		job("AI Product Manager", "Product"),
		job("Platform Engineer", "Infrastructure"),
		job("Enterprise Account Executive", "Sales"),
		job("Account Manager, EMEA", "Sales"),
		job("Office Manager", "G&A"),
	}
	a := AnalyzeHiring(jobs)

	assert.Equal(t, 6, a.TotalJobs)
	require.NotEmpty(t, a.TopDepartments)
	assert.Equal(t, DepartmentCount{Name: "Sales", Count: 2}, a.TopDepartments[0])

	byCat := make(map[string]Signal)
	for _, s := range a.StrategicSignals {
		byCat[s.Category] = s
	}
	assert.Equal(t, 2, byCat["AI/ML"].Count)
	assert.Equal(t, 33.3, byCat["AI/ML"].Percent)
	assert.Equal(t, 1, byCat["Platform"].Count)
	assert.Equal(t, 1, byCat["International"].Count)
	assert.NotContains(t, byCat, "Security")

	assert.Contains(t, a.Summary, "6 open roles")
}

func TestAnalyzeHiringEmpty(t *testing.T) {
	a := AnalyzeHiring(nil)
	assert.Zero(t, a.TotalJobs)
	assert.Equal(t, "No open roles found", a.Summary)
	assert.Empty(t, a.TopDepartments)
}
