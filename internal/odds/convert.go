package odds

import "math"

// AmericanToImplied converts American odds to implied probability.
// Example: -150 → 0.6 (60%), +150 → 0.4 (40%)
// The Odds API delivers prices as floats, so the input is float64.
func AmericanToImplied(price float64) float64 {
	if price == 0 {
		return 0
	}

	if price > 0 {
		// Underdog: probability = 100 / (odds + 100)
		return 100.0 / (price + 100.0)
	}
	// Favorite: probability = |odds| / (|odds| + 100)
	return math.Abs(price) / (math.Abs(price) + 100.0)
}
