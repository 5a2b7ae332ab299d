package services

import "math"

// MinorUnits converts a decimal price to minor currency units
// (e.g. dollars to cents), rounding half-up so 12.345 becomes 1235.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
