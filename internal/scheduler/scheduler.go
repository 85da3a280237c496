// Package scheduler drives the recurring jobs: the daily analysis run and
// the corpus refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"nba-props-analyzer/internal/alerts"
	"nba-props-analyzer/internal/analysis"
	"nba-props-analyzer/internal/history"
)

// Config holds the scheduler's tunables.
type Config struct {
	AnalysisHourUTC int    // daily analysis time (UTC)
	TZOffsetMinutes int    // local-day offset passed to the analyzer
	CorpusURL       string // empty disables the corpus refresh job
	CorpusPath      string
}

// Scheduler owns the gocron instance and the job targets.
type Scheduler struct {
	s        gocron.Scheduler
	analyzer *analysis.Analyzer
	provider *history.Provider
	notifier *alerts.Notifier
	cfg      Config
}

// New builds a scheduler running in UTC.
func New(analyzer *analysis.Analyzer, provider *history.Provider, notifier *alerts.Notifier, cfg Config) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:        s,
		analyzer: analyzer,
		provider: provider,
		notifier: notifier,
		cfg:      cfg,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	// Daily analysis. Runs fresh (no cache read) so the cached entry is
	// replaced with today's numbers; odds are stable by late morning UTC.
	_, err := s.s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.cfg.AnalysisHourUTC), 0, 0))),
		gocron.NewTask(s.runDailyAnalysis),
	)
	if err != nil {
		return fmt.Errorf("failed to create daily analysis job: %w", err)
	}

	// Corpus refresh two hours before the analysis run, so the day's
	// picks score against the freshest game logs.
	if s.cfg.CorpusURL != "" {
		refreshHour := (s.cfg.AnalysisHourUTC + 22) % 24
		_, err = s.s.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(refreshHour), 0, 0))),
			gocron.NewTask(s.refreshCorpus),
		)
		if err != nil {
			return fmt.Errorf("failed to create corpus refresh job: %w", err)
		}
	}

	s.s.Start()
	slog.Info("scheduler started",
		"analysis_hour_utc", s.cfg.AnalysisHourUTC,
		"corpus_refresh", s.cfg.CorpusURL != "")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) runDailyAnalysis() {
	date := time.Now().UTC().Format("2006-01-02")
	result := s.analyzer.Run(context.Background(), date, false, s.cfg.TZOffsetMinutes)
	if s.notifier != nil {
		s.notifier.NotifyRun(result)
		s.notifier.CleanupOldAlerts()
	}
}

func (s *Scheduler) refreshCorpus() {
	if err := history.Download(context.Background(), s.cfg.CorpusURL, s.cfg.CorpusPath); err != nil {
		slog.Error("corpus download failed", "url", s.cfg.CorpusURL, "error", err)
		return
	}
	if err := s.provider.Reload(); err != nil {
		slog.Error("corpus reload failed", "error", err)
		return
	}
	slog.Info("corpus refreshed", "path", s.cfg.CorpusPath)
}
