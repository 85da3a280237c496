// Package analysis runs the daily high-probability props pipeline: list the
// day's events, pull prop lines for each market, resolve a consensus
// threshold per player, score it against the historical corpus, and keep
// the picks that clear the probability floor.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"nba-props-analyzer/internal/cache"
	"nba-props-analyzer/internal/history"
	"nba-props-analyzer/internal/lines"
	"nba-props-analyzer/internal/mathutil"
	"nba-props-analyzer/internal/oddsapi"
)

// supportedMarkets maps The Odds API market keys to corpus metrics.
var supportedMarkets = []struct {
	MarketKey string
	Metric    string
}{
	{"player_points", history.MetricPoints},
	{"player_rebounds", history.MetricRebounds},
	{"player_assists", history.MetricAssists},
	{"player_points_rebounds_assists", history.MetricPRA},
}

// MarketFeed is the slice of the odds client the analyzer uses.
type MarketFeed interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]oddsapi.Event, error)
	GetEventOdds(ctx context.Context, eventID, markets string, bookmakers ...string) (*oddsapi.EventOdds, error)
}

// StatsProvider is the slice of the history provider the analyzer uses.
type StatsProvider interface {
	ComputeStats(q history.StatsQuery) (*history.Stats, error)
}

// Pick is one prop that cleared the probability and sample-size floors.
type Pick struct {
	PlayerName      string    `json:"player_name"`
	PlayerTeam      string    `json:"player_team"`
	EventID         string    `json:"event_id"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	CommenceTime    time.Time `json:"commence_time"`
	Metric          string    `json:"metric"`
	Threshold       float64   `json:"threshold"`
	Direction       string    `json:"direction"` // "over" or "under"
	Probability     float64   `json:"probability"`
	NGames          int       `json:"n_games"`
	BookmakersCount int       `json:"bookmakers_count"`
	AllLines        []float64 `json:"all_lines"` // sorted distinct lines observed
}

// RunStats summarizes one analysis run.
type RunStats struct {
	TotalEvents     int     `json:"total_events"`
	TotalPlayers    int     `json:"total_players"`
	TotalProps      int     `json:"total_props"`
	HighProbCount   int     `json:"high_prob_count"`
	DurationSeconds float64 `json:"analysis_duration_seconds"`
}

// Result is the complete output of one run. A run either succeeds with
// picks (possibly zero) or reports why it produced nothing via Message;
// it never surfaces an error to the caller.
type Result struct {
	RunID      string    `json:"run_id"`
	Date       string    `json:"date"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	TotalPicks int       `json:"total_picks"`
	Picks      []Pick    `json:"picks"`
	Stats      *RunStats `json:"stats"`
	Message    *string   `json:"message"`
}

// Config tunes the pipeline.
type Config struct {
	MinProbability float64       // picks need at least this empirical probability
	MinGames       int           // and at least this many games in the sample
	CacheTTL       time.Duration // how long a run stays cached
}

// Default pipeline settings.
const (
	DefaultMinProbability = 0.65
	DefaultMinGames       = 10
	DefaultCacheTTL       = 6 * time.Hour
)

// Analyzer wires the market feed, the historical corpus and the cache.
type Analyzer struct {
	feed  MarketFeed
	stats StatsProvider
	store cache.Store
	cfg   Config
}

// New builds an analyzer. Zero config fields fall back to the defaults;
// store may be nil to disable caching.
func New(feed MarketFeed, stats StatsProvider, store cache.Store, cfg Config) *Analyzer {
	if cfg.MinProbability == 0 {
		cfg.MinProbability = DefaultMinProbability
	}
	if cfg.MinGames == 0 {
		cfg.MinGames = DefaultMinGames
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &Analyzer{feed: feed, stats: stats, store: store, cfg: cfg}
}

// Run executes the pipeline for one local calendar date. date is
// YYYY-MM-DD (empty means today in UTC) and tzOffsetMinutes shifts the
// day window east of UTC (480 = UTC+8). With useCache a previously
// cached run for the same date and offset is returned verbatim; either
// way a successful run is written back to the cache so later reads see
// the freshest analysis.
func (a *Analyzer) Run(ctx context.Context, date string, useCache bool, tzOffsetMinutes int) *Result {
	start := time.Now()

	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	cacheKey := cache.DailyPicksKey(date, tzOffsetMinutes)
	if useCache && a.store != nil {
		if data, ok := a.store.Get(ctx, cacheKey); ok {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				slog.Info("serving cached analysis", "date", date, "tz_offset", tzOffsetMinutes)
				return &cached
			}
			slog.Warn("discarding undecodable cached analysis", "key", cacheKey)
		}
	}

	slog.Info("starting daily analysis", "date", date, "tz_offset", tzOffsetMinutes)

	events, err := EventsForDate(ctx, a.feed, date, tzOffsetMinutes)
	if err != nil {
		slog.Error("fetching events failed", "date", date, "error", err)
		return errorResult(date, fmt.Sprintf("failed to fetch events: %v", err))
	}
	if len(events) == 0 {
		slog.Info("no events scheduled", "date", date)
		return errorResult(date, "no events scheduled for this date")
	}

	var allPicks []Pick
	var totalPlayers, totalProps int
	for _, event := range events {
		picks, players, props, err := a.analyzeEvent(ctx, event)
		if err != nil {
			if errors.Is(err, history.ErrDataSourceUnavailable) {
				slog.Error("historical corpus unavailable", "error", err)
				return errorResult(date, fmt.Sprintf("analysis aborted: %v", err))
			}
			slog.Warn("event analysis failed", "event_id", event.ID, "error", err)
			continue
		}
		allPicks = append(allPicks, picks...)
		totalPlayers += players
		totalProps += props
	}

	sort.SliceStable(allPicks, func(i, j int) bool {
		return allPicks[i].Probability > allPicks[j].Probability
	})

	result := &Result{
		RunID:      uuid.NewString(),
		Date:       date,
		AnalyzedAt: time.Now().UTC(),
		TotalPicks: len(allPicks),
		Picks:      allPicks,
		Stats: &RunStats{
			TotalEvents:     len(events),
			TotalPlayers:    totalPlayers,
			TotalProps:      totalProps,
			HighProbCount:   len(allPicks),
			DurationSeconds: mathutil.Round(time.Since(start).Seconds(), 2),
		},
	}

	if a.store != nil {
		if data, err := json.Marshal(result); err == nil {
			a.store.Set(ctx, cacheKey, data, a.cfg.CacheTTL)
		}
	}

	slog.Info("daily analysis complete",
		"date", date,
		"picks", len(allPicks),
		"events", len(events),
		"duration_seconds", result.Stats.DurationSeconds)

	return result
}

func errorResult(date, message string) *Result {
	return &Result{
		RunID:      uuid.NewString(),
		Date:       date,
		AnalyzedAt: time.Now().UTC(),
		Picks:      []Pick{},
		Message:    &message,
	}
}

// EventsForDate lists events whose commence time falls on the local
// calendar date. The feed query widens the exact UTC window by an hour on
// each side, then the precise local-date filter decides.
func EventsForDate(ctx context.Context, feed MarketFeed, date string, tzOffsetMinutes int) ([]oddsapi.Event, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	offset := time.Duration(tzOffsetMinutes) * time.Minute
	utcStart := day.Add(-offset)
	utcEnd := day.Add(24*time.Hour - time.Second).Add(-offset)

	events, err := feed.ListEvents(ctx, utcStart.Add(-time.Hour), utcEnd.Add(time.Hour))
	if err != nil {
		return nil, err
	}

	var filtered []oddsapi.Event
	for _, ev := range events {
		localDate := ev.CommenceTime.UTC().Add(offset).Format("2006-01-02")
		if localDate == date {
			filtered = append(filtered, ev)
		}
	}

	slog.Info("events filtered to local date",
		"date", date, "fetched", len(events), "kept", len(filtered))
	return filtered, nil
}

// analyzeEvent scores every player prop of one event across the supported
// markets. It returns the picks plus how many distinct players and
// player-market combinations it examined.
func (a *Analyzer) analyzeEvent(ctx context.Context, event oddsapi.Event) ([]Pick, int, int, error) {
	var picks []Pick
	players := make(map[string]bool)
	totalProps := 0

	for _, market := range supportedMarkets {
		bookmakers, err := a.propsForMarket(ctx, event.ID, market.MarketKey)
		if err != nil {
			slog.Warn("fetching market failed",
				"event_id", event.ID, "market", market.MarketKey, "error", err)
			continue
		}
		if len(bookmakers) == 0 {
			continue
		}

		grouped := lines.GroupByPlayer(bookmakers)
		playerNames := make([]string, 0, len(grouped))
		for name := range grouped {
			playerNames = append(playerNames, name)
		}
		sort.Strings(playerNames)

		for _, playerName := range playerNames {
			playerLines := grouped[playerName]
			players[playerName] = true
			totalProps++

			threshold, ok := lines.ResolveThreshold(playerLines)
			if !ok {
				continue
			}

			stats, err := a.stats.ComputeStats(history.StatsQuery{
				Player:     playerName,
				Metric:     market.Metric,
				Threshold:  threshold,
				ExcludeDNP: true,
			})
			if err != nil {
				return nil, 0, 0, fmt.Errorf("stats lookup for %s: %w", playerName, err)
			}

			if stats.NGames < a.cfg.MinGames {
				continue
			}

			// Team as of the player's most recent game.
			playerTeam := ""
			if n := len(stats.GameLogs); n > 0 {
				playerTeam = stats.GameLogs[n-1].Team
			}

			pick := Pick{
				PlayerName:      playerName,
				PlayerTeam:      playerTeam,
				EventID:         event.ID,
				HomeTeam:        event.HomeTeam,
				AwayTeam:        event.AwayTeam,
				CommenceTime:    event.CommenceTime,
				Metric:          market.Metric,
				Threshold:       threshold,
				NGames:          stats.NGames,
				BookmakersCount: len(playerLines),
				AllLines:        sortedDistinct(playerLines),
			}

			switch {
			case stats.POver != nil && *stats.POver >= a.cfg.MinProbability:
				pick.Direction = "over"
				pick.Probability = *stats.POver
			case stats.PUnder != nil && *stats.PUnder >= a.cfg.MinProbability:
				pick.Direction = "under"
				pick.Probability = *stats.PUnder
			default:
				continue
			}

			slog.Info("pick found",
				"player", playerName,
				"team", playerTeam,
				"metric", market.Metric,
				"direction", pick.Direction,
				"threshold", threshold,
				"probability", pick.Probability)
			picks = append(picks, pick)
		}
	}

	return picks, len(players), totalProps, nil
}

// propsForMarket fetches one market's bookmakers for an event. A 404 means
// the book simply does not offer the market, which is an empty result,
// not a failure.
func (a *Analyzer) propsForMarket(ctx context.Context, eventID, marketKey string) ([]oddsapi.Bookmaker, error) {
	odds, err := a.feed.GetEventOdds(ctx, eventID, marketKey)
	if err != nil {
		var apiErr *oddsapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}
	return odds.Bookmakers, nil
}

func sortedDistinct(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
