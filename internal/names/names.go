// Package names matches player names across data sources. The odds feed and
// the historical corpus spell players differently ("P.J. Washington" vs
// "PJ Washington", "D'Angelo Russell" vs "DAngelo Russell"), so lookups go
// through normalization plus exact-then-fuzzy resolution.
package names

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultThreshold is the minimum similarity (0-100) a fuzzy match must
// reach to be accepted.
const DefaultThreshold = 90

var whitespaceRE = regexp.MustCompile(`\s+`)

// Normalize lowercases a player name, strips periods, apostrophes and
// hyphens, and collapses runs of whitespace.
// "D'Angelo Russell" and "  dangelo  russell " normalize identically.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Map(func(r rune) rune {
		switch r {
		case '.', '\'', '-':
			return -1
		}
		return r
	}, n)
	return whitespaceRE.ReplaceAllString(n, " ")
}

// similarity scores two already-normalized names on a 0-100 scale using
// Levenshtein distance relative to the longer string.
func similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 100 * (1 - float64(dist)/float64(maxLen))
}

// Resolve maps a query name to one of the candidate names. It tries an
// exact match on normalized forms first, then falls back to the best
// fuzzy match at or above threshold. The returned string is the original
// candidate spelling, not the normalized form.
func Resolve(query string, candidates []string, threshold float64) (string, bool) {
	nq := Normalize(query)

	for _, c := range candidates {
		if Normalize(c) == nq {
			return c, true
		}
	}

	best := ""
	bestScore := -1.0
	for _, c := range candidates {
		if score := similarity(nq, Normalize(c)); score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best != "" && bestScore >= threshold {
		return best, true
	}
	return "", false
}
