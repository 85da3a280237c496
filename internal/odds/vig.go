package odds

// CalculateVig returns the bookmaker overround for a two-way market:
// the amount by which the implied probabilities exceed 1.0.
// A fair market has vig 0; a typical -110/-110 market has vig ≈ 0.0476.
func CalculateVig(impliedOver, impliedUnder float64) float64 {
	return impliedOver + impliedUnder - 1.0
}

// Devig removes the vig from a two-way market using the multiplicative
// (proportional) method. The returned probabilities sum to 1.0 and keep
// the ratio of the inputs:
//
//	trueOver  = impliedOver / (impliedOver + impliedUnder)
//	trueUnder = impliedUnder / (impliedOver + impliedUnder)
//
// A zero side stays zero: Devig(0, 0.5) is (0, 1). Only a non-positive
// total is degenerate and returns (0, 0).
func Devig(impliedOver, impliedUnder float64) (float64, float64) {
	total := impliedOver + impliedUnder
	if total <= 0 {
		return 0, 0
	}
	return impliedOver / total, impliedUnder / total
}

// DevigAmerican converts a pair of American prices to vig-free probabilities.
func DevigAmerican(priceOver, priceUnder float64) (float64, float64) {
	return Devig(AmericanToImplied(priceOver), AmericanToImplied(priceUnder))
}
