package search

import (
	"context"

	"github.com/young1lin/civicsource/internal/models"
)

// Provider defines the interface for upstream business directories
type Provider interface {
	// Name returns the source the provider's records are tagged with
	Name() models.Source

	// Search performs one outbound request and maps the response into records.
	// Any transport, status or decoding failure is returned as an error.
	Search(ctx context.Context, query models.SearchQuery) ([]models.BusinessRecord, error)

	// IsAvailable returns true if the provider is properly configured
	IsAvailable() bool
}

// Fetcher is what the Aggregator fans out to. Fetch never fails: a fetcher
// that cannot produce records returns an empty slice.
type Fetcher interface {
	Name() models.Source
	Fetch(ctx context.Context, query models.SearchQuery) []models.BusinessRecord
}

// ProviderStatus describes a registered fetcher for the /providers endpoint
type ProviderStatus struct {
	Name      models.Source `json:"name"`
	Available bool          `json:"available"`
	Breaker   string        `json:"breaker,omitempty"`
}
