package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sentinelhq/sentinel/internal/observability"
	"github.com/sentinelhq/sentinel/internal/urlutil"
)

// FileStore keeps one JSON file per company under a single directory,
// keyed by the company's slug.
type FileStore struct {
	dir string
	log *slog.Logger
}

func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir, log: log.With("component", "snapshot.file")}, nil
}

func (s *FileStore) path(company string) string {
	return filepath.Join(s.dir, urlutil.SnapshotSlug(company)+".json")
}

// Load reads the company's snapshot. A missing file is a first run; a file
// that no longer parses is treated the same way, with a warning, since a
// broken snapshot must not poison future runs.
func (s *FileStore) Load(_ context.Context, company string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(company))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("snapshot unreadable, treating as first run",
			"company", company, "error", err)
		observability.IncError(observability.ErrorStore, "snapshot.file")
		return nil, nil
	}
	return &snap, nil
}

func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path(snap.Company), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	observability.IncSnapshotsSaved()
	return nil
}
