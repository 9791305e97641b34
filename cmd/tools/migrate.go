// Command migrate applies the Postgres snapshot schema. Only needed when
// DATABASE_URL is in use; the file store needs no setup.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sentinelhq/sentinel/internal/config"
	"github.com/sentinelhq/sentinel/internal/snapshot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	store, err := snapshot.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		slog.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.CreateSchema(context.Background()); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("snapshot schema is up to date")
}
