package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/report"
)

const (
	defaultMaxCompetitors = 5
	defaultMonthsBack     = 6

	// A queued batch gets a generous overall ceiling on top of the
	// pipeline's per-company deadline.
	jobDeadline = 45 * time.Minute
)

// AnalyzeRequest either names competitors directly or describes a product
// for the suggester to expand.
type AnalyzeRequest struct {
	Description string          `json:"description,omitempty"`
	Competitors []ai.Competitor `json:"competitors,omitempty"`
	Months      int             `json:"months,omitempty"`
	Max         int             `json:"max_competitors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" && len(req.Competitors) == 0 {
		respondError(w, http.StatusBadRequest, "either description or competitors is required")
		return
	}
	if req.Months <= 0 {
		req.Months = defaultMonthsBack
	}
	if req.Max <= 0 {
		req.Max = defaultMaxCompetitors
	}

	job := s.registry.create()
	go s.runJob(job.ID, req)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(StatusPending),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.registry.get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// runJob executes one queued analysis. It owns the job record's lifecycle
// from pending to a terminal state.
func (s *Server) runJob(jobID string, req AnalyzeRequest) {
	s.workSlot <- struct{}{}
	defer func() { <-s.workSlot }()

	ctx, cancel := context.WithTimeout(context.Background(), jobDeadline)
	defer cancel()

	s.registry.update(jobID, func(j *AnalysisJob) { j.Status = StatusRunning })

	competitors := req.Competitors
	if len(competitors) == 0 {
		suggested, err := s.suggester.Suggest(ctx, req.Description, req.Max)
		if err != nil {
			s.log.Error("competitor suggestion failed", "job", jobID, "error", err)
			s.registry.update(jobID, func(j *AnalysisJob) {
				j.Status = StatusFailed
				j.Error = fmt.Sprintf("competitor suggestion: %v", err)
			})
			return
		}
		competitors = suggested
	}
	if len(competitors) > req.Max {
		competitors = competitors[:req.Max]
	}
	if len(competitors) == 0 {
		s.registry.update(jobID, func(j *AnalysisJob) {
			j.Status = StatusFailed
			j.Error = "no competitors to analyze"
		})
		return
	}

	results := s.runner.Run(ctx, competitors, req.Months)
	md := report.RenderMarkdown("Competitive Briefing", results, time.Now().UTC())

	s.registry.update(jobID, func(j *AnalysisJob) {
		j.Status = StatusCompleted
		j.Results = results
		j.Report = md
	})
	s.log.Info("analysis job finished", "job", jobID, "competitors", len(results))
}
