// Package api exposes the analysis pipeline over HTTP: submit a batch,
// poll its job, read pipeline stats.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sentinelhq/sentinel/internal/ai"
	"github.com/sentinelhq/sentinel/internal/core"
)

// Runner executes a batch analysis. Satisfied by *core.Pipeline.
type Runner interface {
	Run(ctx context.Context, competitors []ai.Competitor, monthsBack int) []core.CompetitorResult
}

// Suggester turns a product description into a competitor list.
type Suggester interface {
	Suggest(ctx context.Context, description string, n int) ([]ai.Competitor, error)
}

// SuggesterFunc adapts a closure to Suggester.
type SuggesterFunc func(ctx context.Context, description string, n int) ([]ai.Competitor, error)

func (f SuggesterFunc) Suggest(ctx context.Context, description string, n int) ([]ai.Competitor, error) {
	return f(ctx, description, n)
}

type Server struct {
	router    *chi.Mux
	runner    Runner
	suggester Suggester
	registry  *jobRegistry
	log       *slog.Logger

	// One analysis at a time keeps the scraping footprint polite no matter
	// how many jobs clients queue.
	workSlot chan struct{}
}

func NewServer(runner Runner, suggester Suggester, log *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		runner:    runner,
		suggester: suggester,
		registry:  newJobRegistry(),
		log:       log.With("component", "api"),
		workSlot:  make(chan struct{}, 1),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/analyze", s.handleAnalyze)
	s.router.Get("/jobs/{id}", s.handleGetJob)
	s.router.Get("/stats", s.handleStats)
}

// Start launches the background retention loop. Call once before serving.
func (s *Server) Start(ctx context.Context) {
	s.registry.startRetention(ctx, s.log)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
