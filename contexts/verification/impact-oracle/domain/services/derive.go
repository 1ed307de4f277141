package services

import "math"

// DeriveEffortHours floors declared effort at one hour and at a
// people-based lower bound, so neither signal is silently discarded.
func DeriveEffortHours(declared float64, peopleHelped int) float64 {
	return math.Max(math.Max(1.0, declared), float64(peopleHelped)*0.5)
}

// DerivePovertyIndex proxies need from reach: more people helped implies
// a higher-need area, bounded to [0.70, 1.0].
func DerivePovertyIndex(peopleHelped int) float64 {
	idx := 0.50 + float64(peopleHelped)/200.0*0.30
	return math.Max(0.70, math.Min(1.0, idx))
}
