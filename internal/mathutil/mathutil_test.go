package mathutil

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Simple", []float64{10, 20, 30}, 20},
		{"Single value", []float64{24.5}, 24.5},
		{"Empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Mean(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestSampleStdDev(t *testing.T) {
	// statistics.stdev([2, 4, 4, 4, 5, 5, 7, 9]) ≈ 2.138
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := SampleStdDev(values); math.Abs(got-2.138089935) > 0.0001 {
		t.Errorf("SampleStdDev = %v, want ≈2.1381", got)
	}

	if got := SampleStdDev([]float64{30}); got != 0 {
		t.Errorf("SampleStdDev of one value = %v, want 0", got)
	}
	if got := SampleStdDev(nil); got != 0 {
		t.Errorf("SampleStdDev of empty = %v, want 0", got)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		expected float64
	}{
		{0.70004, 4, 0.7},
		{24.456, 1, 24.5},
		{25.2349, 2, 25.23},
		{1.005, 2, 1.0}, // float repr of 1.005 is just under
	}

	for _, tt := range tests {
		if got := Round(tt.v, tt.decimals); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.decimals, got, tt.expected)
		}
	}
}
