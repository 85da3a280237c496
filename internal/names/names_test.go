package names

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Trims and lowercases", "  Stephen Curry  ", "stephen curry"},
		{"Strips apostrophe", "D'Angelo Russell", "dangelo russell"},
		{"Strips periods", "P.J. Washington", "pj washington"},
		{"Hyphen removed", "Shai Gilgeous-Alexander", "shai gilgeousalexander"},
		{"Collapses whitespace", "LeBron   James", "lebron james"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	if Normalize("D'Angelo Russell") != Normalize("DAngelo Russell") {
		t.Error("apostrophe variants should normalize identically")
	}
}

func TestResolveExact(t *testing.T) {
	candidates := []string{"Stephen Curry", "Seth Curry", "LeBron James"}

	got, ok := Resolve("stephen curry", candidates, DefaultThreshold)
	if !ok || got != "Stephen Curry" {
		t.Errorf("Resolve exact = %q, %v; want Stephen Curry, true", got, ok)
	}

	// Exact match must return the candidate's original spelling.
	got, ok = Resolve("pj washington", []string{"P.J. Washington"}, DefaultThreshold)
	if !ok || got != "P.J. Washington" {
		t.Errorf("Resolve = %q, %v; want original spelling", got, ok)
	}
}

func TestResolveFuzzy(t *testing.T) {
	candidates := []string{"Stephen Curry", "Seth Curry"}

	// "steph curry" vs "stephen curry": distance 2 over 13 chars ≈ 84.6.
	got, ok := Resolve("Steph Curry", candidates, 80)
	if !ok || got != "Stephen Curry" {
		t.Errorf("Resolve fuzzy = %q, %v; want Stephen Curry, true", got, ok)
	}
}

func TestResolveNotFound(t *testing.T) {
	candidates := []string{"Stephen Curry", "Seth Curry"}

	if got, ok := Resolve("Kevin Durant", candidates, DefaultThreshold); ok {
		t.Errorf("Resolve should not match a dissimilar name, got %q", got)
	}
}

func TestResolveEmptyCandidates(t *testing.T) {
	if _, ok := Resolve("Stephen Curry", nil, DefaultThreshold); ok {
		t.Error("Resolve with no candidates should report not found")
	}
}
