package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantity(t *testing.T) {
	tests := []struct {
		name         string
		equity       float64
		riskFraction float64
		stopDistance float64
		expected     float64
	}{
		{"basic sizing", 10000, 0.01, 50, 2},
		{"rounds to nearest", 10000, 0.01, 60, 2}, // 1.666 -> 2
		{"rounds down", 10000, 0.01, 80, 1},       // 1.25 -> 1
		{"floors at one unit", 1000, 0.005, 100, 1},
		{"large size", 100000, 0.02, 4, 500},
		{"zero equity", 0, 0.01, 50, 0},
		{"negative equity", -5000, 0.01, 50, 0},
		{"zero risk fraction", 10000, 0, 50, 0},
		{"negative risk fraction", 10000, -0.01, 50, 0},
		{"zero stop distance", 10000, 0.01, 0, 0},
		{"negative stop distance", 10000, 0.01, -3, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Quantity(tc.equity, tc.riskFraction, tc.stopDistance))
		})
	}
}
