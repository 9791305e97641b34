package ats

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreenhouseAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/boards/acme/jobs", r.URL.Path)
		fmt.Fprint(w, `{"jobs":[
			{"title":"Staff Engineer","location":{"name":"New York"},"departments":[{"name":"Platform"}]},
			{"title":"Account Executive","location":{"name":""},"departments":[]}
		]}`)
	}))
	defer srv.Close()

	src := NewGreenhouseSource(testLogger())
	src.apiBase = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorGreenhouse, BoardURL: "https://boards.greenhouse.io/acme"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, JobPosting{Title: "Staff Engineer", Department: "Platform", Location: "New York"}, jobs[0])
	assert.Equal(t, DepartmentGeneral, jobs[1].Department)
	assert.Equal(t, LocationUnspecified, jobs[1].Location)
}

func TestGreenhouseHTMLFallback(t *testing.T) {
	page := `<html><body>
		<section><h3>Engineering</h3>
			<div class="opening"><a href="/acme/jobs/1">Backend Engineer</a><span class="location">Berlin</span></div>
			<div class="opening"><a href="/acme/jobs/2">SRE</a></div>
		</section>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	src := NewGreenhouseSource(testLogger())
	// A board URL off the vendor host has no extractable token, which sends
	// the source straight to the HTML path.
	jobs, err := src.Fetch(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorGreenhouse, BoardURL: srv.URL},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Engineering", jobs[0].Department)
	assert.Equal(t, "Berlin", jobs[0].Location)
	assert.Equal(t, LocationUnspecified, jobs[1].Location)
}

func TestParseGreenhouseJobLinks(t *testing.T) {
	page := `<html><body>
		<h2>Engineering</h2>
		<a href="/acme/jobs/4001">Senior Platform Engineer</a>
		<a href="/acme/jobs/4002">Apply</a>
		<a href="/acme/jobs/4003">Data Engineer</a>
		<a href="/about">About our engineering team and culture</a>
		<h2>Sales</h2>
		<a href="/acme/jobs/4004">Enterprise Account Executive, EMEA</a>
	</body></html>`
	jobs, err := ParseGreenhouseBoard(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Engineering", jobs[0].Department)
	assert.Equal(t, "Data Engineer", jobs[1].Title)
	assert.Equal(t, "Sales", jobs[2].Department)
}

func TestPlausibleJobTitle(t *testing.T) {
	assert.True(t, plausibleJobTitle("Senior Software Engineer"))
	assert.True(t, plausibleJobTitle("Data Engineer")) // short but has a role word
	assert.False(t, plausibleJobTitle("Apply"))
	assert.False(t, plausibleJobTitle("All Open Positions"))
	assert.False(t, plausibleJobTitle("Our Team Page"))
	assert.True(t, plausibleJobTitle("Head of Revenue Operations and Strategy"))
}

func TestLeverPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/postings/acme", r.URL.Path)
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		w.Header().Set("Content-Type", "application/json")
		if skip >= leverPageSize {
			// Short second page ends pagination.
			fmt.Fprint(w, `[{"text":"Closer","categories":{"team":"Sales","location":"Remote"}}]`)
			return
		}
		fmt.Fprint(w, "[")
		for i := 0; i < leverPageSize; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"text":"Engineer %d","categories":{"team":"Eng","location":"NYC"}}`, i)
		}
		fmt.Fprint(w, "]")
	}))
	defer srv.Close()

	src := NewLeverSource(testLogger())
	src.apiBase = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorLever, BoardURL: "https://jobs.lever.co/acme"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, leverPageSize+1)
	assert.Equal(t, "Closer", jobs[leverPageSize].Title)
	assert.Equal(t, "Sales", jobs[leverPageSize].Department)
}

func TestParseLeverBoard(t *testing.T) {
	page := `<html><body>
	<div class="postings-group">
		<div class="posting-category-title">Engineering</div>
		<div class="posting">
			<a class="posting-title" href="#"><h5>Infrastructure Engineer</h5>
				<span class="sort-by-location">Amsterdam</span></a>
		</div>
		<div class="posting">
			<a class="posting-title" href="#"><h5>ML Engineer</h5>
				<span class="sort-by-team">Applied AI</span></a>
		</div>
	</div>
	</body></html>`
	jobs, err := ParseLeverBoard(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Engineering", jobs[0].Department)
	assert.Equal(t, "Amsterdam", jobs[0].Location)
	assert.Equal(t, "Applied AI", jobs[1].Department)
	assert.Equal(t, LocationUnspecified, jobs[1].Location)
}

func TestAshbyBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"data":{"jobBoard":{
			"teams":[{"id":"t1","name":"20 Engineering"},{"id":"t2","name":"Design"}],
			"jobPostings":[
				{"id":"p1","title":"Compiler Engineer","teamId":"t1","locationName":"Remote"},
				{"id":"p2","title":"Brand Designer","teamId":"t2","locationName":""},
				{"id":"p3","title":"Chief of Staff","teamId":"missing","locationName":"SF"}
			]}}}`)
	}))
	defer srv.Close()

	src := NewAshbySource(testLogger())
	src.apiURL = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{
		Company:  "Acme",
		Endpoint: &Endpoint{Vendor: VendorAshby, BoardURL: "https://jobs.ashbyhq.com/acme"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Engineering", jobs[0].Department) // numeric prefix stripped
	assert.Equal(t, LocationUnspecified, jobs[1].Location)
	assert.Equal(t, DepartmentGeneral, jobs[2].Department)
}

func TestAshbyMissingBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"jobBoard":null}}`)
	}))
	defer srv.Close()

	src := NewAshbySource(testLogger())
	src.apiURL = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{
		Company:  "Nobody",
		Endpoint: &Endpoint{Vendor: VendorAshby, BoardURL: "https://jobs.ashbyhq.com/nobody"},
	})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestParseLevelsFyiPage(t *testing.T) {
	page := `<html><head></head><body>
	<script id="__NEXT_DATA__" type="application/json">
	{"props":{"pageProps":{"jobs":[
		{"title":"Senior Backend Engineer","department":"Engineering","location":"Seattle"},
		{"title":"Product Manager","team":"Product","city":"Austin"},
		{"title":"","department":"Ghost"}
	]}}}
	</script></body></html>`
	jobs, err := ParseLevelsFyiPage(page)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Engineering", jobs[0].Department)
	assert.Equal(t, "Product", jobs[1].Department)
	assert.Equal(t, "Austin", jobs[1].Location)
}

func TestLevelsFyiCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var rows []string
		for i := 0; i < levelsFyiPageSize; i++ {
			rows = append(rows, fmt.Sprintf(`{"title":"Role %d","department":"Eng","location":"HQ"}`, offset+i))
		}
		fmt.Fprintf(w, `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"jobs":[%s]}}}</script></body></html>`,
			strings.Join(rows, ","))
	}))
	defer srv.Close()

	src := NewLevelsFyiSource(testLogger())
	src.baseURL = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{Company: "Acme Corp"})
	require.NoError(t, err)
	assert.Len(t, jobs, levelsFyiMaxJobs)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, extractJSONObject(`prefix {"a":{"b":"}"}} suffix`))
	assert.Equal(t, "", extractJSONObject("no braces here"))
	assert.Equal(t, "", extractJSONObject(`{"never":"closes"`))
}

func TestLinkedInSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs-guest/api/typeaheadHits", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "COMPANY", r.URL.Query().Get("typeaheadType"))
		fmt.Fprint(w, `[{"displayName":"Umbrella Corp","id":999},{"displayName":"Acme","id":1337}]`)
	})
	mux.HandleFunc("/jobs-guest/jobs/api/seeMoreJobPostings/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1337", r.URL.Query().Get("f_C"))
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, "<ul></ul>")
			return
		}
		fmt.Fprint(w, `<ul><li><div class="base-card">
			<h3 class="base-search-card__title">Solutions Architect</h3>
			<span class="job-search-card__location">London</span>
		</div></li></ul>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewLinkedInSource(testLogger())
	src.baseURL = srv.URL

	jobs, err := src.Fetch(context.Background(), Target{Company: "Acme"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Solutions Architect", jobs[0].Title)
	assert.Equal(t, "London", jobs[0].Location)
	assert.Equal(t, DepartmentGeneral, jobs[0].Department)
}

func TestLinkedInBestMatchContainment(t *testing.T) {
	// The hit name is contained in the query, so it beats the first hit.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "typeaheadHits") {
			fmt.Fprint(w, `[{"displayName":"Unrelated Co","id":"1"},{"displayName":"Acme Holdings","id":"2"}]`)
			return
		}
		require.Equal(t, "2", r.URL.Query().Get("f_C"))
		fmt.Fprint(w, "<ul></ul>")
	}))
	defer srv.Close()

	src := NewLinkedInSource(testLogger())
	src.baseURL = srv.URL

	_, err := src.Fetch(context.Background(), Target{Company: "Acme Holdings Inc"})
	require.NoError(t, err)
}

func TestExtractJSONLDJobs(t *testing.T) {
	page := []byte(`<html><head>
	<script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[
		{"@type":"JobPosting","title":"Site Reliability Engineer",
		 "occupationalCategory":"Infrastructure",
		 "jobLocation":{"@type":"Place","address":{"addressLocality":"Dublin"}}},
		{"@type":"Organization","name":"Acme"}
	]}
	</script>
	<script type="application/ld+json">
	{"@type":"JobPosting","title":"Recruiter"}
	</script>
	</head><body></body></html>`)

	jobs := ExtractJSONLDJobs(page)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Infrastructure", jobs[0].Department)
	assert.Equal(t, "Dublin", jobs[0].Location)
	assert.Equal(t, DepartmentGeneral, jobs[1].Department)
}

func TestJSONLDTitleFromURL(t *testing.T) {
	page := []byte(`<html><head><script type="application/ld+json">
	{"@type":"JobPosting","url":"https://acme.com/jobs/staff-software-engineer?src=nav"}
	</script></head><body></body></html>`)

	jobs := ExtractJSONLDJobs(page)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Staff Software Engineer", jobs[0].Title)
}

func TestPathTitle(t *testing.T) {
	assert.Equal(t, "Senior Data Analyst", pathTitle("https://x.com/careers/senior_data-analyst/"))
	assert.Equal(t, "", pathTitle(""))
}

func TestExtractText(t *testing.T) {
	page := []byte(`<html><head><style>.x{color:red}</style>
	<script>var hidden = "nope";</script></head>
	<body><h1>Open   Roles</h1><p>Join  us.</p></body></html>`)
	text := ExtractText(page)
	assert.Equal(t, "Open Roles Join us.", text)
	assert.NotContains(t, text, "nope")
}
