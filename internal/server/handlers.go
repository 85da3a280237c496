package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"nba-props-analyzer/internal/analysis"
	"nba-props-analyzer/internal/cache"
	"nba-props-analyzer/internal/history"
	"nba-props-analyzer/internal/lines"
	"nba-props-analyzer/internal/names"
	"nba-props-analyzer/internal/odds"
	"nba-props-analyzer/internal/oddsapi"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDailyPicks returns the analysis for one local calendar date.
// GET /api/nba/daily-picks?date=2026-01-17&tz_offset=480&refresh=true
func (s *Server) handleDailyPicks(w http.ResponseWriter, r *http.Request) {
	tzOffset, err := s.tzOffsetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := s.dateParam(r, tzOffset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	result := s.analyzer.Run(r.Context(), date, !refresh, tzOffset)
	writeJSON(w, http.StatusOK, result)
}

// handleTriggerAnalysis forces a fresh run, replacing any cached result.
// POST /api/nba/daily-picks/trigger?date=2026-01-17&tz_offset=480
func (s *Server) handleTriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	tzOffset, err := s.tzOffsetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := s.dateParam(r, tzOffset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.analyzer.Run(r.Context(), date, false, tzOffset)
	writeJSON(w, http.StatusOK, result)
}

// handleEvents lists the events of one local calendar date, cached briefly
// since the upstream listing barely changes within a day.
// GET /api/nba/events?date=2026-01-17&tz_offset=480
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tzOffset, err := s.tzOffsetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := s.dateParam(r, tzOffset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.EventsKey(date, s.cfg.Regions)
	if s.store != nil {
		if data, ok := s.store.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	events, err := analysis.EventsForDate(r.Context(), s.feed, date, tzOffset)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to fetch events: %v", err))
		return
	}

	resp := map[string]any{
		"date":   date,
		"events": events,
		"count":  len(events),
	}
	if s.store != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.store.Set(r.Context(), key, data, s.cfg.EventsCacheTTL)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEventPlayers lists the players with props quoted for one event,
// extracted from the points market and cached briefly.
// GET /api/nba/events/{event_id}/players
func (s *Server) handleEventPlayers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	key := cache.PlayersKey(eventID)
	if s.store != nil {
		if data, ok := s.store.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	players := []string{}
	eventOdds, err := s.feed.GetEventOdds(r.Context(), eventID, "player_points")
	if err != nil {
		var apiErr *oddsapi.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to fetch event odds: %v", err))
			return
		}
		// 404 means no props quoted yet, which is an empty list.
	} else {
		for name := range lines.GroupByPlayer(eventOdds.Bookmakers) {
			players = append(players, name)
		}
		sort.Strings(players)
	}

	resp := map[string]any{
		"event_id": eventID,
		"players":  players,
		"count":    len(players),
	}
	if s.store != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.store.Set(r.Context(), key, data, s.cfg.EventsCacheTTL)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type noVigBook struct {
	Bookmaker  string  `json:"bookmaker"`
	PriceOver  float64 `json:"price_over"`
	PriceUnder float64 `json:"price_under"`
}

type noVigBookResult struct {
	Bookmaker    string  `json:"bookmaker"`
	ImpliedOver  float64 `json:"implied_over"`
	ImpliedUnder float64 `json:"implied_under"`
	Vig          float64 `json:"vig"`
	FairOver     float64 `json:"fair_over"`
	FairUnder    float64 `json:"fair_under"`
}

// handleNoVig strips bookmaker margin from a set of two-way quotes and
// returns per-book fair probabilities plus the consensus.
// POST /api/nba/props/no-vig
func (s *Server) handleNoVig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Books []noVigBook `json:"books"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Books) == 0 {
		writeError(w, http.StatusBadRequest, "at least one book is required")
		return
	}

	results := make([]noVigBookResult, 0, len(req.Books))
	probs := make([]odds.BookProbs, 0, len(req.Books))
	for _, b := range req.Books {
		impliedOver := odds.AmericanToImplied(b.PriceOver)
		impliedUnder := odds.AmericanToImplied(b.PriceUnder)
		fairOver, fairUnder := odds.Devig(impliedOver, impliedUnder)
		vig := odds.CalculateVig(impliedOver, impliedUnder)

		results = append(results, noVigBookResult{
			Bookmaker:    b.Bookmaker,
			ImpliedOver:  impliedOver,
			ImpliedUnder: impliedUnder,
			Vig:          vig,
			FairOver:     fairOver,
			FairUnder:    fairUnder,
		})
		probs = append(probs, odds.BookProbs{
			Bookmaker: b.Bookmaker,
			Over:      fairOver,
			Under:     fairUnder,
			Vig:       vig,
		})
	}

	resp := map[string]any{"books": results}
	if over, under, ok := odds.ConsensusMean(probs); ok {
		resp["consensus_mean"] = map[string]float64{"over": over, "under": under}
	}
	if over, under, ok := odds.ConsensusWeighted(probs); ok {
		resp["consensus_weighted"] = map[string]float64{"over": over, "under": under}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePlayers searches the corpus for player names. Substring matches
// come first; when none exist a fuzzy match may still find a misspelled
// name.
// GET /api/nba/players?q=curry
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	players, err := s.provider.ListPlayers(query)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if len(players) == 0 && query != "" {
		all, err := s.provider.ListPlayers("")
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if match, ok := names.Resolve(query, all, names.DefaultThreshold); ok {
			players = []string{match}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"players": players,
		"count":   len(players),
	})
}

// handlePlayerHistory computes the empirical over/under split for one
// player, metric and threshold.
// GET /api/nba/player-history?player=Stephen+Curry&metric=points&threshold=24.5&n=20&exclude_dnp=true&opponent=LAL
func (s *Server) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	player := q.Get("player")
	if player == "" {
		writeError(w, http.StatusBadRequest, "player is required")
		return
	}

	metric := q.Get("metric")
	if metric == "" {
		metric = history.MetricPoints
	}
	switch metric {
	case history.MetricPoints, history.MetricRebounds, history.MetricAssists, history.MetricPRA:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown metric %q", metric))
		return
	}

	threshold, err := strconv.ParseFloat(q.Get("threshold"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "threshold must be a number")
		return
	}

	recentN := 0
	if v := q.Get("n"); v != "" {
		recentN, err = strconv.Atoi(v)
		if err != nil || recentN < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
	}

	excludeDNP := q.Get("exclude_dnp") != "false"

	stats, err := s.provider.ComputeStats(history.StatsQuery{
		Player:     player,
		Metric:     metric,
		Threshold:  threshold,
		RecentN:    recentN,
		ExcludeDNP: excludeDNP,
		Opponent:   q.Get("opponent"),
	})
	if err != nil {
		if errors.Is(err, history.ErrDataSourceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCSVReload re-parses the corpus from disk, picking up a freshly
// downloaded file.
// POST /api/nba/csv/reload
func (s *Server) handleCSVReload(w http.ResponseWriter, r *http.Request) {
	if err := s.provider.Reload(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	players, err := s.provider.ListPlayers("")
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"players": len(players),
	})
}

// tzOffsetParam reads tz_offset (minutes east of UTC), falling back to the
// configured default.
func (s *Server) tzOffsetParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("tz_offset")
	if v == "" {
		return s.cfg.TZOffsetMinutes, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("tz_offset must be an integer, got %q", v)
	}
	if n < -720 || n > 840 {
		return 0, fmt.Errorf("tz_offset must be between -720 and 840, got %d", n)
	}
	return n, nil
}

// dateParam reads date (YYYY-MM-DD), defaulting to today in the
// requested timezone.
func (s *Server) dateParam(r *http.Request, tzOffsetMinutes int) (string, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		local := time.Now().UTC().Add(time.Duration(tzOffsetMinutes) * time.Minute)
		return local.Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD, got %q", v)
	}
	return v, nil
}
