package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/config"
	"github.com/sentinelhq/sentinel/internal/core"
	"github.com/sentinelhq/sentinel/internal/discovery"
	"github.com/sentinelhq/sentinel/internal/httpx"
	"github.com/sentinelhq/sentinel/internal/pricing"
	"github.com/sentinelhq/sentinel/internal/report"
	"github.com/sentinelhq/sentinel/internal/snapshot"
	"github.com/sentinelhq/sentinel/internal/wayback"
)

func main() {
	var (
		competitorsFlag = flag.String("competitors", "", "comma-separated competitors, each as Name or Name:domain")
		months          = flag.Int("months", 0, "pricing-archive lookback in months (default from env)")
		maxCompetitors  = flag.Int("max", 5, "max competitors when expanding a description")
		outputDir       = flag.String("output", "", "directory for report files (default from env)")
		verbose         = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if *months <= 0 {
		*months = cfg.MonthsBack
	}
	if *outputDir == "" {
		*outputDir = cfg.ReportDir
	}

	description := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if description == "" && *competitorsFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: sentinel [flags] <product description>")
		fmt.Fprintln(os.Stderr, "   or: sentinel -competitors 'Acme:acme.com,Globex'")
		flag.PrintDefaults()
		os.Exit(2)
	}

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

	store, err := snapshot.NewFileStore(cfg.SnapshotDir, logger)
	if err != nil {
		slog.Error("snapshot store init failed", "error", err)
		os.Exit(1)
	}

	probe := pricing.NewProbe(fetcher, wayback.NewClient(logger), llm, logger)
	pipeline := core.NewPipeline(engine, router, store, probe, logger).
		WithTimeout(cfg.CompanyTimeout)

	ctx := context.Background()

	competitors := parseCompetitors(*competitorsFlag)
	if len(competitors) == 0 {
		competitors, err = engine.SuggestCompetitors(ctx, llm, description, *maxCompetitors)
		if err != nil {
			slog.Error("competitor suggestion failed", "error", err)
			os.Exit(1)
		}
		if len(competitors) == 0 {
			slog.Error("no competitors suggested, nothing to do")
			os.Exit(1)
		}
	}

	results := pipeline.Run(ctx, competitors, *months)
	md := report.RenderMarkdown("Competitive Briefing", results, time.Now().UTC())

	if err := writeOutputs(*outputDir, results, md); err != nil {
		slog.Error("writing report failed", "error", err)
		os.Exit(1)
	}

	for _, r := range results {
		fmt.Printf("%-24s %s\n", r.Name, r.Hiring.Summary)
		if r.Trends != nil {
			fmt.Printf("%-24s %s\n", "", r.Trends.Summary)
		}
		if r.Pricing != nil && r.Pricing.Diff.Verdict != "" {
			fmt.Printf("%-24s %s\n", "", r.Pricing.Diff.Verdict)
		}
	}
	fmt.Printf("\nreport written to %s\n", filepath.Join(*outputDir, "report.md"))
}

// parseCompetitors reads "Name:domain,Name2" into competitor entries.
func parseCompetitors(raw string) []ai.Competitor {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []ai.Competitor
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, domain, _ := strings.Cut(part, ":")
		out = append(out, ai.Competitor{
			Name:   strings.TrimSpace(name),
			Domain: strings.TrimSpace(domain),
		})
	}
	return out
}

func writeOutputs(dir string, results []core.CompetitorResult, md string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), raw, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "report.md"), []byte(md), 0o644)
}
