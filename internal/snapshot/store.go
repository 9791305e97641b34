// Package snapshot persists the latest job list per company so the next run
// has something to diff against. Exactly one generation is kept: every save
// overwrites the previous snapshot for that company.
package snapshot

import (
	"context"
	"time"

	"github.com/sentinelhq/sentinel/internal/ats"
)

// Snapshot is one company's job list as captured at the end of a run.
type Snapshot struct {
	Company          string           `json:"company"`
	SourceDescriptor string           `json:"source_descriptor"`
	CapturedAt       time.Time        `json:"timestamp"`
	JobCount         int              `json:"job_count"`
	Jobs             []ats.JobPosting `json:"jobs"`
}

// Store is the persistence boundary for snapshots. Load returns (nil, nil)
// when no snapshot exists for the company; callers treat that as a normal
// first-run state, not an error.
type Store interface {
	Load(ctx context.Context, company string) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// New builds a snapshot with the capture time and count filled in.
func New(company, sourceDescriptor string, jobs []ats.JobPosting) Snapshot {
	return Snapshot{
		Company:          company,
		SourceDescriptor: sourceDescriptor,
		CapturedAt:       time.Now().UTC(),
		JobCount:         len(jobs),
		Jobs:             jobs,
	}
}
