package odds

import (
	"math"
	"testing"
)

func TestAmericanToImplied(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		expected float64
		delta    float64
	}{
		{"Even money +100", 100, 0.5, 0.001},
		{"Even money -100", -100, 0.5, 0.001},
		{"Standard -110", -110, 0.5238, 0.0001},
		{"Underdog +150", 150, 0.4, 0.001},
		{"Favorite -150", -150, 0.6, 0.001},
		{"Heavy favorite -300", -300, 0.75, 0.001},
		{"Big underdog +300", 300, 0.25, 0.001},
		{"Zero price", 0, 0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AmericanToImplied(tt.price)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("AmericanToImplied(%v) = %v, want %v", tt.price, result, tt.expected)
			}
		})
	}
}
