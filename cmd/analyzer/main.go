package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nba-props-analyzer/internal/alerts"
	"nba-props-analyzer/internal/analysis"
	"nba-props-analyzer/internal/cache"
	"nba-props-analyzer/internal/config"
	"nba-props-analyzer/internal/history"
	"nba-props-analyzer/internal/oddsapi"
	"nba-props-analyzer/internal/scheduler"
	"nba-props-analyzer/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	feed := oddsapi.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.SportKey, cfg.Regions)

	provider := history.NewProvider(cfg.CSVDataPath)
	if err := provider.Load(); err != nil {
		if cfg.CSVDownloadURL == "" {
			slog.Error("loading game log corpus failed", "path", cfg.CSVDataPath, "error", err)
			os.Exit(1)
		}
		slog.Warn("corpus missing, downloading", "url", cfg.CSVDownloadURL)
		if err := history.Download(context.Background(), cfg.CSVDownloadURL, cfg.CSVDataPath); err != nil {
			slog.Error("corpus download failed", "error", err)
			os.Exit(1)
		}
		if err := provider.Load(); err != nil {
			slog.Error("loading downloaded corpus failed", "path", cfg.CSVDataPath, "error", err)
			os.Exit(1)
		}
	}

	// Redis is optional: without it every request recomputes.
	var store cache.Store
	redisStore, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, caching disabled", "error", err)
	} else {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			slog.Warn("redis unreachable, caching disabled", "url", cfg.RedisURL, "error", err)
			redisStore.Close()
			redisStore = nil
		} else {
			store = redisStore
			slog.Info("connected to redis", "url", cfg.RedisURL)
		}
		cancel()
	}

	analyzer := analysis.New(feed, provider, store, analysis.Config{
		MinProbability: cfg.MinProbability,
		MinGames:       cfg.MinGames,
		CacheTTL:       cfg.PicksCacheTTL,
	})
	notifier := alerts.NewNotifier(cfg.AlertCooldown)

	sched, err := scheduler.New(analyzer, provider, notifier, scheduler.Config{
		AnalysisHourUTC: cfg.AnalysisHourUTC,
		TZOffsetMinutes: cfg.TZOffsetMinutes,
		CorpusURL:       cfg.CSVDownloadURL,
		CorpusPath:      cfg.CSVDataPath,
	})
	if err != nil {
		slog.Error("creating scheduler failed", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		slog.Error("starting scheduler failed", "error", err)
		os.Exit(1)
	}

	srv := server.New(analyzer, feed, provider, store, server.Config{
		Regions:         cfg.Regions,
		TZOffsetMinutes: cfg.TZOffsetMinutes,
		EventsCacheTTL:  cfg.EventsCacheTTL,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	go func() {
		slog.Info("http server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	if err := sched.Stop(); err != nil {
		slog.Error("scheduler shutdown failed", "error", err)
	}
	if redisStore != nil {
		redisStore.Close()
	}
	slog.Info("stopped gracefully")
}
