package search

import (
	"math"
	"strings"
)

const (
	metersPerMile = 1609.34

	// maxRadiusMeters is the largest radius the ratings and places APIs accept
	maxRadiusMeters = 40000
)

// metersToMiles converts a provider distance to miles rounded to one decimal
func metersToMiles(meters float64) float64 {
	return math.Round(meters/metersPerMile*10) / 10
}

// radiusMeters converts an advisory radius in miles to whole meters,
// capped at maxRadiusMeters. It returns 0 when no radius was requested.
func radiusMeters(miles float64) int {
	if miles <= 0 || math.IsNaN(miles) {
		return 0
	}
	m := miles * metersPerMile
	if m >= maxRadiusMeters {
		return maxRadiusMeters
	}
	return int(math.Round(m))
}

// looksLikeChain flags aliases such as "joes-franchise-memphis". It is a
// heuristic, not an authoritative ownership check.
func looksLikeChain(alias string) bool {
	return strings.Contains(strings.ToLower(alias), "franchise")
}

// cityOf returns the part of a location before the first comma
func cityOf(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

func floatPtr(v float64) *float64 {
	return &v
}
