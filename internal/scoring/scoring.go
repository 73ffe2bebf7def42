// Package scoring provides the shared numeric primitives used by the
// pricing, loc, and questioner estimators: bounded weighted sums,
// threshold-band lookups, and clamping helpers. All functions are pure.
package scoring

import "math"

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 bounds x to [0, 1].
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}

// WeightedSum combines named component scores with their weights. Only keys
// present in both maps contribute; the result is divided by the realized
// weight sum so that a missing component does not bias the score downward.
// Returns 0 when no weight is realized.
func WeightedSum(components, weights map[string]float64) float64 {
	var sum, weightSum float64
	for name, w := range weights {
		v, ok := components[name]
		if !ok {
			continue
		}
		sum += v * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// Band maps a lower threshold to a score. Bands are evaluated highest
// threshold first, so callers list them in any order.
type Band struct {
	Min   float64
	Value float64
}

// BandValue returns the value of the highest band whose Min is <= x, or
// fallback when x is below every band.
func BandValue(x float64, bands []Band, fallback float64) float64 {
	best := fallback
	bestMin := math.Inf(-1)
	matched := false
	for _, b := range bands {
		if x >= b.Min && (!matched || b.Min > bestMin) {
			best = b.Value
			bestMin = b.Min
			matched = true
		}
	}
	return best
}

// RoundToStep rounds x to the nearest multiple of step.
func RoundToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return math.Round(x/step) * step
}

// RoundPrice applies tiered rounding to a price in euros: nearest 50 below
// 500, nearest 100 below 2000, nearest 250 otherwise.
func RoundPrice(price float64) int {
	switch {
	case price < 500:
		return int(RoundToStep(price, 50))
	case price < 2000:
		return int(RoundToStep(price, 100))
	default:
		return int(RoundToStep(price, 250))
	}
}

// Round3 rounds x to three decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// SumWeights verifies that a weight set sums to total within epsilon.
// Used at init time to catch drift in hand-specified constant tables.
func SumWeights(weights map[string]float64, total, epsilon float64) bool {
	var s float64
	for _, w := range weights {
		s += w
	}
	return math.Abs(s-total) <= epsilon
}
