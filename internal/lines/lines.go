// Package lines turns the spread of bookmaker prop lines for a player into
// a single representative threshold.
package lines

import (
	"math"
	"sort"

	"nba-props-analyzer/internal/oddsapi"
)

// round1 rounds a line to one decimal place so that float noise
// (24.499999 vs 24.5) does not split the mode count.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ResolveThreshold reduces a set of bookmaker lines to one threshold.
// Lines are rounded to one decimal, then:
//   - a unique most-common value wins (the mode),
//   - several values tied for most common average out,
//   - all-distinct values fall back to the median (mean of the two
//     central values for an even count).
//
// Returns ok=false only for empty input.
func ResolveThreshold(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	rounded := make([]float64, len(values))
	counts := make(map[float64]int, len(values))
	for i, v := range values {
		rounded[i] = round1(v)
		counts[rounded[i]]++
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	if maxCount > 1 {
		var modes []float64
		for v, c := range counts {
			if c == maxCount {
				modes = append(modes, v)
			}
		}
		if len(modes) == 1 {
			return modes[0], true
		}
		var sum float64
		for _, m := range modes {
			sum += m
		}
		return sum / float64(len(modes)), true
	}

	// No repeats: fall back to the median.
	sort.Float64s(rounded)
	n := len(rounded)
	if n%2 == 1 {
		return rounded[n/2], true
	}
	return (rounded[n/2-1] + rounded[n/2]) / 2, true
}

// GroupByPlayer flattens bookmaker prop markets into a map of player name
// to every line quoted for that player. Both the Over and the Under
// outcome carry the line, so each book usually contributes two entries.
func GroupByPlayer(bookmakers []oddsapi.Bookmaker) map[string][]float64 {
	playerLines := make(map[string][]float64)
	for _, bk := range bookmakers {
		for _, market := range bk.Markets {
			for _, outcome := range market.Outcomes {
				if outcome.Description == "" || outcome.Point == nil {
					continue
				}
				playerLines[outcome.Description] = append(playerLines[outcome.Description], *outcome.Point)
			}
		}
	}
	return playerLines
}
