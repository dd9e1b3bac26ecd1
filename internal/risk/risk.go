// Package risk provides position sizing helpers shared by all strategies.
package risk

import "math"

// Quantity returns the number of units to trade so that losing the full stop
// distance costs roughly riskFraction of equity. The result is floored at one
// unit so a valid signal always produces a trade. Returns 0 when equity,
// riskFraction or stopDistance is not positive.
func Quantity(equity, riskFraction, stopDistance float64) float64 {
	if equity <= 0 || riskFraction <= 0 || stopDistance <= 0 {
		return 0
	}

	qty := math.Round(equity * riskFraction / stopDistance)
	if qty < 1 {
		return 1
	}

	return qty
}
