package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	company_slug      TEXT PRIMARY KEY,
	company           TEXT NOT NULL,
	source_descriptor TEXT NOT NULL DEFAULT '',
	captured_at       TIMESTAMPTZ NOT NULL,
	job_count         INTEGER NOT NULL DEFAULT 0,
	jobs              JSONB NOT NULL DEFAULT '[]'
);
`

// PostgresStore keeps one row per company, overwritten on save. Selected
// over the file store when a DATABASE_URL is configured.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgresStore(dsn string, log *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db, log: log.With("component", "snapshot.postgres")}, nil
}

// CreateSchema applies the snapshot table DDL. Idempotent.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create snapshot schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Load(ctx context.Context, company string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT company, source_descriptor, captured_at, job_count, jobs
		FROM snapshots WHERE company_slug = $1`,
		urlutil.SnapshotSlug(company))

	var snap Snapshot
	var jobsJSON []byte
	err := row.Scan(&snap.Company, &snap.SourceDescriptor, &snap.CapturedAt, &snap.JobCount, &jobsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal(jobsJSON, &snap.Jobs); err != nil {
		s.log.Warn("snapshot row unreadable, treating as first run",
			"company", company, "error", err)
		return nil, nil
	}
	return &snap, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	jobsJSON, err := json.Marshal(snap.Jobs)
	if err != nil {
		return fmt.Errorf("encode snapshot jobs: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (company_slug, company, source_descriptor, captured_at, job_count, jobs)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_slug) DO UPDATE SET
			company = EXCLUDED.company,
			source_descriptor = EXCLUDED.source_descriptor,
			captured_at = EXCLUDED.captured_at,
			job_count = EXCLUDED.job_count,
			jobs = EXCLUDED.jobs`,
		urlutil.SnapshotSlug(snap.Company), snap.Company, snap.SourceDescriptor,
		snap.CapturedAt, snap.JobCount, jobsJSON)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	observability.IncSnapshotsSaved()
	return nil
}
