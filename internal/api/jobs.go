package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelhq/sentinel/internal/core"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Completed jobs linger this long so clients can poll at leisure.
const jobRetention = 24 * time.Hour

// AnalysisJob is one queued batch analysis and its eventual output.
type AnalysisJob struct {
	ID        string                  `json:"id"`
	Status    JobStatus               `json:"status"`
	Results   []core.CompetitorResult `json:"results,omitempty"`
	Report    string                  `json:"report,omitempty"`
	Error     string                  `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// jobRegistry is the in-memory job table. Results are ephemeral by design;
// durable output goes through the snapshot store and report files.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*AnalysisJob
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*AnalysisJob)}
}

func (r *jobRegistry) create() *AnalysisJob {
	now := time.Now().UTC()
	job := &AnalysisJob{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// get returns a copy so callers never race the worker's writes.
func (r *jobRegistry) get(id string) (AnalysisJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return AnalysisJob{}, false
	}
	return *job, true
}

func (r *jobRegistry) update(id string, fn func(*AnalysisJob)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

// prune drops terminal jobs past the retention window.
func (r *jobRegistry) prune(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.Status != StatusCompleted && job.Status != StatusFailed {
			continue
		}
		if job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// startRetention prunes stale jobs once at startup and then hourly until
// ctx ends.
func (r *jobRegistry) startRetention(ctx context.Context, log *slog.Logger) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			if n := r.prune(jobRetention); n > 0 {
				log.Info("pruned finished jobs", "count", n)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
