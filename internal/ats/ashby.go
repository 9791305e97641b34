package ats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/observability"
)

const (
	ashbyGraphQLURL = "https://jobs.ashbyhq.com/api/non-user-graphql?op=ApiJobBoardWithTeams"

	ashbyBoardQuery = `query ApiJobBoardWithTeams($organizationHostedJobsPageName: String!) {
  jobBoard: jobBoardWithTeams(organizationHostedJobsPageName: $organizationHostedJobsPageName) {
    teams { id name parentTeamId }
    jobPostings { id title teamId locationName }
  }
}`
)

var (
	ashbySlugRe       = regexp.MustCompile(`jobs\.ashbyhq\.com/([^/?#]+)`)
	ashbyTeamPrefixRe = regexp.MustCompile(`^\d+\s+`)
)

// AshbySource reads an Ashby board through the unauthenticated GraphQL
// endpoint the hosted job pages themselves use.
type AshbySource struct {
	client *http.Client
	apiURL string
	log    *slog.Logger
}

func NewAshbySource(log *slog.Logger) *AshbySource {
	return &AshbySource{
		client: &http.Client{Timeout: 20 * time.Second},
		apiURL: ashbyGraphQLURL,
		log:    log.With("source", VendorAshby),
	}
}

func (s *AshbySource) Vendor() Vendor      { return VendorAshby }
func (s *AshbySource) Authoritative() bool { return true }

type ashbyBoardResponse struct {
	Data struct {
		JobBoard *struct {
			Teams []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"teams"`
			JobPostings []struct {
				Title        string `json:"title"`
				TeamID       string `json:"teamId"`
				LocationName string `json:"locationName"`
			} `json:"jobPostings"`
		} `json:"jobBoard"`
	} `json:"data"`
}

func (s *AshbySource) Fetch(ctx context.Context, target Target) ([]JobPosting, error) {
	if target.Endpoint == nil {
		return nil, nil
	}
	slug := ashbyBoardSlug(target.Endpoint.BoardURL)
	if slug == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"operationName": "ApiJobBoardWithTeams",
		"variables":     map[string]string{"organizationHostedJobsPageName": slug},
		"query":         ashbyBoardQuery,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httpx.DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	observability.IncPagesFetched()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpx.FetchError{Status: resp.StatusCode, Err: fmt.Errorf("ashby graphql: status %d", resp.StatusCode)}
	}

	var payload ashbyBoardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ashby board: %w", err)
	}
	if payload.Data.JobBoard == nil {
		// Board does not exist for this slug.
		return nil, nil
	}

	teams := make(map[string]string, len(payload.Data.JobBoard.Teams))
	for _, t := range payload.Data.JobBoard.Teams {
		// Team names sometimes carry a numeric sort prefix ("20 Engineering").
		teams[t.ID] = strings.TrimSpace(ashbyTeamPrefixRe.ReplaceAllString(t.Name, ""))
	}

	jobs := make([]JobPosting, 0, len(payload.Data.JobBoard.JobPostings))
	for _, p := range payload.Data.JobBoard.JobPostings {
		jobs = append(jobs, JobPosting{
			Title:      strings.TrimSpace(p.Title),
			Department: orDefault(teams[p.TeamID], DepartmentGeneral),
			Location:   orDefault(p.LocationName, LocationUnspecified),
		})
	}
	return jobs, nil
}

func ashbyBoardSlug(boardURL string) string {
	if m := ashbySlugRe.FindStringSubmatch(boardURL); m != nil {
		return m[1]
	}
	return ""
}
