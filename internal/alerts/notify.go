// Package alerts announces newly surfaced picks after scheduled runs,
// deduplicating repeats within a cooldown window.
package alerts

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nba-props-analyzer/internal/analysis"
)

// Notifier logs pick notifications with per-pick cooldown dedup.
type Notifier struct {
	mu         sync.Mutex
	lastAlerts map[string]time.Time
	cooldown   time.Duration // minimum time between repeats of the same pick
}

// NewNotifier creates a new notifier.
func NewNotifier(cooldown time.Duration) *Notifier {
	return &Notifier{
		lastAlerts: make(map[string]time.Time),
		cooldown:   cooldown,
	}
}

// NotifyPick announces one pick. A pick with the same player, metric,
// threshold and direction within the cooldown window is dropped.
func (n *Notifier) NotifyPick(pick analysis.Pick) {
	key := fmt.Sprintf("%s-%s-%.1f-%s", pick.PlayerName, pick.Metric, pick.Threshold, pick.Direction)
	if n.checkCooldown(key) {
		return
	}

	slog.Info("high probability pick",
		"player", pick.PlayerName,
		"team", pick.PlayerTeam,
		"matchup", fmt.Sprintf("%s@%s", pick.AwayTeam, pick.HomeTeam),
		"metric", pick.Metric,
		"direction", pick.Direction,
		"threshold", pick.Threshold,
		"probability", pick.Probability,
		"n_games", pick.NGames,
		"books", pick.BookmakersCount)
}

// NotifyRun logs a scheduled run completion.
func (n *Notifier) NotifyRun(result *analysis.Result) {
	if result.Stats != nil {
		slog.Info("scheduled analysis complete",
			"date", result.Date,
			"picks", result.TotalPicks,
			"events", result.Stats.TotalEvents,
			"props", result.Stats.TotalProps,
			"duration_seconds", result.Stats.DurationSeconds)
	} else if result.Message != nil {
		slog.Warn("scheduled analysis produced no picks", "date", result.Date, "message", *result.Message)
	}

	for _, pick := range result.Picks {
		n.NotifyPick(pick)
	}
}

// checkCooldown reports whether key fired within the cooldown window,
// recording the attempt when it did not.
func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if lastTime, ok := n.lastAlerts[key]; ok {
		if time.Since(lastTime) < n.cooldown {
			return true
		}
	}
	n.lastAlerts[key] = time.Now()
	return false
}

// CleanupOldAlerts removes dedup records older than the cooldown.
func (n *Notifier) CleanupOldAlerts() {
	n.mu.Lock()
	defer n.mu.Unlock()
	cutoff := time.Now().Add(-n.cooldown)
	for key, t := range n.lastAlerts {
		if t.Before(cutoff) {
			delete(n.lastAlerts, key)
		}
	}
}
