// Package uf computes ultrafiltration volumes and aggregates for PD
// exchange entries. All functions are pure and operate on caller-supplied
// data; nothing here touches storage or the clock.
package uf

import "math"

// Derive converts the raw volumes of one exchange into the instilled fill
// volume and the signed UF volume. Positive UF means net fluid removed
// from the patient; negative means net retention.
//
// No clamping is applied: a leftover larger than the bag yields a negative
// fill, which input validation rejects upstream. Non-numeric (NaN) inputs
// propagate so callers can render a placeholder instead of a quantity.
func Derive(bagVolumeMl, leftoverMl, drainVolumeMl float64) (fillVolumeMl, ufMl float64) {
	fillVolumeMl = bagVolumeMl - leftoverMl
	ufMl = drainVolumeMl - fillVolumeMl
	return fillVolumeMl, ufMl
}

// Known reports whether v carries a usable quantity. Unset or corrupted
// volumes surface as NaN and must be excluded from sums and counts.
func Known(v float64) bool {
	return !math.IsNaN(v)
}
