package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/api"
	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/config"
	"github.com/sentinelhq/sentinel/internal/core"
	"github.com/sentinelhq/sentinel/internal/discovery"
	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/pricing"
	"github.com/sentinelhq/sentinel/internal/snapshot"
	"github.com/sentinelhq/sentinel/internal/wayback"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	llm := ai.NewClient(logger)
	polite := httpx.NewPoliteClient(cfg.UserAgent)
	fetcher := httpx.NewCollyFetcher(cfg.UserAgent)

	ashby := ats.NewAshbySource(logger)
	router := ats.NewRouter(logger,
		[]ats.Source{ats.NewGreenhouseSource(logger), ats.NewLeverSource(logger), ashby},
		ats.NewLevelsFyiSource(logger),
		ats.NewLinkedInSource(logger),
		ats.NewDirectSource(fetcher, llm, logger),
	)
	engine := discovery.NewEngine(polite, ashby, logger)

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("snapshot store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	probe := pricing.NewProbe(fetcher, wayback.NewClient(logger), llm, logger)
	pipeline := core.NewPipeline(engine, router, store, probe, logger).
		WithTimeout(cfg.CompanyTimeout)

	suggester := api.SuggesterFunc(func(ctx context.Context, description string, n int) ([]ai.Competitor, error) {
		return engine.SuggestCompetitors(ctx, llm, description, n)
	})

	srv := api.NewServer(pipeline, suggester, logger)
	srv.Start(ctx)

	slog.Info("starting server", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (snapshot.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := snapshot.NewPostgresStore(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}
	fileStore, err := snapshot.NewFileStore(cfg.SnapshotDir, logger)
	if err != nil {
		return nil, nil, err
	}
	return fileStore, func() {}, nil
}
