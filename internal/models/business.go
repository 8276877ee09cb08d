package models

import "time"

// Source identifies the upstream directory a record came from
type Source string

const (
	SourceRatings   Source = "Yelp"
	SourcePlaces    Source = "Google Places"
	SourceDirectory Source = "RapidAPI"
)

// RawSearchQuery carries search parameters exactly as received from a caller
type RawSearchQuery struct {
	Term     string `form:"query"`
	Location string `form:"location"`
	Radius   string `form:"radius"`
	Limit    string `form:"limit"`
}

// SearchQuery is a validated, defaulted search request
type SearchQuery struct {
	Term     string  `json:"term" validate:"required"`
	Location string  `json:"location" validate:"required"`
	Radius   float64 `json:"radius,omitempty" validate:"gte=0"` // miles, 0 when unset
	Limit    int     `json:"limit" validate:"gt=0"`
}

// BusinessRecord is the normalized shape every provider maps into
type BusinessRecord struct {
	Source               Source   `json:"source"`
	Name                 string   `json:"name"`
	Rating               *float64 `json:"rating,omitempty"`
	ReviewCount          *int     `json:"review_count,omitempty"`
	Address              string   `json:"address,omitempty"`
	Website              string   `json:"website,omitempty"`
	URL                  string   `json:"url,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	DistanceMiles        *float64 `json:"distance_miles,omitempty"`
	IsChain              bool     `json:"is_chain"`
	GovernmentRegistered bool     `json:"government_registered"`
}

// AggregatedResult is the merged output of one search
type AggregatedResult struct {
	Query       string           `json:"query"`
	GeneratedAt time.Time        `json:"timestamp"`
	Businesses  []BusinessRecord `json:"results"`
}

// SearchResponse is the body returned by GET /api/search
type SearchResponse struct {
	Businesses []BusinessRecord `json:"businesses"`
}
