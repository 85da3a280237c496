package odds

// BookProbs is one bookmaker's vig-free over/under pair together with the
// vig observed before removal. The vig feeds the weighted consensus: a
// tighter market gets more say.
type BookProbs struct {
	Bookmaker string
	Over      float64
	Under     float64
	Vig       float64
}

// minVigWeight floors the weight denominator so a zero-vig book does not
// dominate the average with an unbounded weight.
const minVigWeight = 1e-4

// ConsensusMean averages vig-free probabilities across books with equal
// weight. Returns ok=false when there are no books.
func ConsensusMean(books []BookProbs) (over, under float64, ok bool) {
	if len(books) == 0 {
		return 0, 0, false
	}
	var overSum, underSum float64
	for _, b := range books {
		overSum += b.Over
		underSum += b.Under
	}
	n := float64(len(books))
	return overSum / n, underSum / n, true
}

// ConsensusWeighted averages vig-free probabilities weighted by 1/vig, so
// books quoting a smaller overround count for more.
func ConsensusWeighted(books []BookProbs) (over, under float64, ok bool) {
	if len(books) == 0 {
		return 0, 0, false
	}
	var overSum, underSum, weightSum float64
	for _, b := range books {
		w := 1.0 / max(b.Vig, minVigWeight)
		overSum += b.Over * w
		underSum += b.Under * w
		weightSum += w
	}
	return overSum / weightSum, underSum / weightSum, true
}
