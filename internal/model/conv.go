package model

import "math"

// Prices are stored as integer counts of the minor currency unit (cents).
// The conversion is exact for any price with at most two decimal digits;
// anything finer is rounded to the nearest cent.
const minorUnitsPerMajor = 100

// ToMinorUnits converts a decimal price to cents.
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * minorUnitsPerMajor))
}

// FromMinorUnits converts cents back to a decimal price.
func FromMinorUnits(cents int64) float64 {
	return float64(cents) / minorUnitsPerMajor
}
