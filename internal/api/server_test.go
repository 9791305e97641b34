package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/core"
	"github.com/sentinelhq/sentinel/internal/trend"
)

type stubRunner struct {
	results []core.CompetitorResult
}

func (s *stubRunner) Run(_ context.Context, competitors []ai.Competitor, _ int) []core.CompetitorResult {
	if s.results != nil {
		return s.results
	}
	out := make([]core.CompetitorResult, len(competitors))
	for i, c := range competitors {
		out[i] = core.CompetitorResult{
			Name:   c.Name,
			Domain: c.Domain,
			Hiring: trend.HiringAnalysis{Summary: "No open roles found"},
		}
	}
	return out
}

func newTestServer(runner Runner, suggester Suggester) *Server {
	return NewServer(runner, suggester, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func getJob(t *testing.T, srv *Server, id string) AnalysisJob {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var job AnalysisJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func waitForTerminal(t *testing.T, srv *Server, id string) AnalysisJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job := getJob(t, srv, id)
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return AnalysisJob{}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeWithExplicitCompetitors(t *testing.T) {
	srv := newTestServer(&stubRunner{}, nil)
	rec := postJSON(t, srv, "/analyze", `{"competitors":[{"name":"Acme","domain":"acme.com"}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted["job_id"])

	job := waitForTerminal(t, srv, accepted["job_id"])
	assert.Equal(t, StatusCompleted, job.Status)
	require.Len(t, job.Results, 1)
	assert.Equal(t, "Acme", job.Results[0].Name)
	assert.Contains(t, job.Report, "## Acme")
}

func TestAnalyzeWithDescription(t *testing.T) {
	suggester := SuggesterFunc(func(_ context.Context, description string, n int) ([]ai.Competitor, error) {
		assert.Equal(t, "a team chat product", description)
		assert.Equal(t, 2, n)
		return []ai.Competitor{{Name: "ChatCo", Domain: "chatco.com"}}, nil
	})
	srv := newTestServer(&stubRunner{}, suggester)

	rec := postJSON(t, srv, "/analyze", `{"description":"a team chat product","max_competitors":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	job := waitForTerminal(t, srv, accepted["job_id"])
	assert.Equal(t, StatusCompleted, job.Status)
	require.Len(t, job.Results, 1)
	assert.Equal(t, "ChatCo", job.Results[0].Name)
}

func TestAnalyzeSuggestionFailure(t *testing.T) {
	suggester := SuggesterFunc(func(_ context.Context, _ string, _ int) ([]ai.Competitor, error) {
		return nil, errors.New("model unavailable")
	})
	srv := newTestServer(&stubRunner{}, suggester)

	rec := postJSON(t, srv, "/analyze", `{"description":"anything"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	job := waitForTerminal(t, srv, accepted["job_id"])
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.Error, "competitor suggestion")
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	srv := newTestServer(&stubRunner{}, nil)
	rec := postJSON(t, srv, "/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/jobs/no-such-id", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	srv := newTestServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pages_fetched")
}

func TestRegistryPrune(t *testing.T) {
	reg := newJobRegistry()
	done := reg.create()
	reg.update(done.ID, func(j *AnalysisJob) { j.Status = StatusCompleted })
	running := reg.create()
	reg.update(running.ID, func(j *AnalysisJob) { j.Status = StatusRunning })

	// Nothing is old enough yet.
	assert.Zero(t, reg.prune(time.Hour))

	// Everything is past the cutoff, but only terminal jobs go.
	assert.Equal(t, 1, reg.prune(0))
	_, ok := reg.get(done.ID)
	assert.False(t, ok)
	_, ok = reg.get(running.ID)
	assert.True(t, ok)
}
