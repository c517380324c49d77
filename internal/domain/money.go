package domain

import "math"

// MinPrice is the floor for all generated prices. Prices never reach
// zero, even under an extreme negative event impact.
const MinPrice = 0.01

// Round2 rounds a dollar amount to cents. Uses math.Round after
// multiplying by 100 to handle floating-point representation issues.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FloorPrice clamps a price to MinPrice from below and rounds it to
// cents.
func FloorPrice(v float64) float64 {
	v = Round2(v)
	if v < MinPrice {
		return MinPrice
	}
	return v
}

// Clamp bounds v to the interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
