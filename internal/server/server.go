// Package server exposes the HTTP API: daily picks, event listings,
// player history lookups and odds utilities.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"nba-props-analyzer/internal/analysis"
	"nba-props-analyzer/internal/cache"
	"nba-props-analyzer/internal/history"
)

// Config holds the server's tunables.
type Config struct {
	Regions         string
	TZOffsetMinutes int // default local-day offset when the request omits one
	EventsCacheTTL  time.Duration
	AllowedOrigins  []string
}

// Server wires the pipeline components behind the HTTP handlers.
type Server struct {
	analyzer *analysis.Analyzer
	feed     analysis.MarketFeed
	provider *history.Provider
	store    cache.Store
	cfg      Config
}

// New builds a server. store may be nil to disable event caching.
func New(analyzer *analysis.Analyzer, feed analysis.MarketFeed, provider *history.Provider, store cache.Store, cfg Config) *Server {
	return &Server{
		analyzer: analyzer,
		feed:     feed,
		provider: provider,
		store:    store,
		cfg:      cfg,
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/nba", func(r chi.Router) {
		r.Get("/daily-picks", s.handleDailyPicks)
		r.Post("/daily-picks/trigger", s.handleTriggerAnalysis)
		r.Get("/events", s.handleEvents)
		r.Get("/events/{event_id}/players", s.handleEventPlayers)
		r.Post("/props/no-vig", s.handleNoVig)
		r.Get("/players", s.handlePlayers)
		r.Get("/player-history", s.handlePlayerHistory)
		r.Post("/csv/reload", s.handleCSVReload)
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
