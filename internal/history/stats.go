package history

import (
	"fmt"

	"nba-props-analyzer/internal/mathutil"
)

// StatsQuery selects the sample for ComputeStats.
type StatsQuery struct {
	Player     string
	Metric     string  // points, rebounds, assists or pra
	Threshold  float64 // e.g. 24.5
	RecentN    int     // 0 means the full history
	ExcludeDNP bool    // drop games with 0 minutes
	Opponent   string  // empty means all opponents
}

// GameLogEntry is one game of the sample, shaped for time-series charts.
type GameLogEntry struct {
	Date     string  `json:"date"`      // MM/DD
	DateFull string  `json:"date_full"` // YYYY-MM-DD
	Opponent string  `json:"opponent"`
	Value    float64 `json:"value"`
	IsOver   bool    `json:"is_over"`
	Team     string  `json:"team"`
}

// HistogramBin is one bucket of the value distribution.
type HistogramBin struct {
	BinStart float64 `json:"binStart"`
	BinEnd   float64 `json:"binEnd"`
	Count    int     `json:"count"`
}

// Stats is the empirical result for one player/metric/threshold. POver and
// PUnder are nil when the sample is empty. Values equal to the threshold
// count toward neither side but stay in the denominator, so POver + PUnder
// can be less than 1.
type Stats struct {
	Player         string         `json:"player"`
	Metric         string         `json:"metric"`
	Threshold      float64        `json:"threshold"`
	NGames         int            `json:"n_games"`
	POver          *float64       `json:"p_over"`
	PUnder         *float64       `json:"p_under"`
	EqualCount     int            `json:"equal_count"`
	Mean           *float64       `json:"mean"`
	Std            *float64       `json:"std"`
	Histogram      []HistogramBin `json:"histogram"`
	GameLogs       []GameLogEntry `json:"game_logs"` // oldest first
	Opponents      []string       `json:"opponents"`
	OpponentFilter string         `json:"opponent_filter,omitempty"`
	Message        string         `json:"message,omitempty"`
}

const histogramBins = 15

// ComputeStats counts how often a player's metric landed over and under
// the threshold. Soft misses (unknown player, no usable sample) come back
// as a zero-sample Stats with a Message; the only error is an unloadable
// corpus.
func (p *Provider) ComputeStats(q StatsQuery) (*Stats, error) {
	idx, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}

	resolved, games := idx.lookup(q.Player)
	if games == nil {
		return &Stats{
			Player:    q.Player,
			Metric:    q.Metric,
			Threshold: q.Threshold,
			Message:   fmt.Sprintf("player %q not found", q.Player),
		}, nil
	}

	allOpponents := opponentsOf(games)

	var values []float64
	var logs []GameLogEntry
	for _, g := range games {
		if q.ExcludeDNP && g.Minutes == 0 {
			continue
		}
		if q.Opponent != "" && g.Opponent != q.Opponent {
			continue
		}
		v := metricValue(g, q.Metric)
		if v == nil {
			continue
		}

		values = append(values, *v)
		entry := GameLogEntry{
			Opponent: g.Opponent,
			Value:    *v,
			IsOver:   *v > q.Threshold,
			Team:     g.Team,
		}
		if !g.Date.IsZero() {
			entry.Date = g.Date.Format("01/02")
			entry.DateFull = g.Date.Format("2006-01-02")
		}
		logs = append(logs, entry)
	}

	// Games are newest-first, so the first RecentN are the most recent.
	if q.RecentN > 0 && len(values) > q.RecentN {
		values = values[:q.RecentN]
		logs = logs[:q.RecentN]
	}

	if len(values) == 0 {
		return &Stats{
			Player:         resolved,
			Metric:         q.Metric,
			Threshold:      q.Threshold,
			Opponents:      allOpponents,
			OpponentFilter: q.Opponent,
			Message:        fmt.Sprintf("no usable %s data for %q", q.Metric, resolved),
		}, nil
	}

	var overCount, underCount, equalCount int
	for _, v := range values {
		switch {
		case v > q.Threshold:
			overCount++
		case v < q.Threshold:
			underCount++
		default:
			equalCount++
		}
	}

	n := len(values)
	pOver := mathutil.Round(float64(overCount)/float64(n), 4)
	pUnder := mathutil.Round(float64(underCount)/float64(n), 4)
	mean := mathutil.Round(mathutil.Mean(values), 2)
	std := mathutil.Round(mathutil.SampleStdDev(values), 2)

	// Charts want oldest first.
	reversed := make([]GameLogEntry, len(logs))
	for i, entry := range logs {
		reversed[len(logs)-1-i] = entry
	}

	return &Stats{
		Player:         resolved,
		Metric:         q.Metric,
		Threshold:      q.Threshold,
		NGames:         n,
		POver:          &pOver,
		PUnder:         &pUnder,
		EqualCount:     equalCount,
		Mean:           &mean,
		Std:            &std,
		Histogram:      buildHistogram(values, histogramBins),
		GameLogs:       reversed,
		Opponents:      allOpponents,
		OpponentFilter: q.Opponent,
	}, nil
}

func metricValue(g GameRecord, metric string) *float64 {
	switch metric {
	case MetricPoints:
		return g.Points
	case MetricRebounds:
		return g.Rebounds
	case MetricAssists:
		return g.Assists
	case MetricPRA:
		return g.PRA
	}
	return nil
}

// buildHistogram buckets values into bins of equal width. The last bin is
// closed on both ends so the maximum value is counted.
func buildHistogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 || bins < 1 {
		return nil
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	if maxVal == minVal {
		return []HistogramBin{{BinStart: minVal, BinEnd: maxVal, Count: len(values)}}
	}

	width := (maxVal - minVal) / float64(bins)
	histogram := make([]HistogramBin, 0, bins)
	for i := 0; i < bins; i++ {
		start := minVal + float64(i)*width
		end := minVal + float64(i+1)*width

		count := 0
		for _, v := range values {
			if i == bins-1 {
				if v >= start && v <= end {
					count++
				}
			} else if v >= start && v < end {
				count++
			}
		}

		histogram = append(histogram, HistogramBin{
			BinStart: mathutil.Round(start, 2),
			BinEnd:   mathutil.Round(end, 2),
			Count:    count,
		})
	}
	return histogram
}
