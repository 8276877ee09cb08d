package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

const placeURLPrefix = "https://www.google.com/maps/place/?q=place_id:"

// PlacesProvider searches the Google Places Text Search API
type PlacesProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewPlacesProvider creates a new places provider
func NewPlacesProvider(cfg *config.ProviderConfig) *PlacesProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeoutSeconds
	}

	return &PlacesProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("search.places"),
	}
}

// Name returns the provider name
func (p *PlacesProvider) Name() models.Source {
	return models.SourcePlaces
}

// IsAvailable returns true if the provider is properly configured
func (p *PlacesProvider) IsAvailable() bool {
	return p.apiKey != ""
}

type placesSearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
}

// Search performs a free-text place search for "<term> <location>"
func (p *PlacesProvider) Search(ctx context.Context, query models.SearchQuery) ([]models.BusinessRecord, error) {
	if !p.IsAvailable() {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("provider not configured: missing API key")}
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(query.Term+" "+query.Location))
	params.Set("key", p.apiKey)
	if r := radiusMeters(query.Radius); r > 0 {
		params.Set("radius", strconv.Itoa(r))
	}

	reqURL := fmt.Sprintf("%s/textsearch/json?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	var resp placesSearchResponse
	if err := doJSON(p.client, p.Name(), req, &resp); err != nil {
		return nil, err
	}

	// Places reports key and quota problems in the body of a 200 response
	switch resp.Status {
	case "", "OK", "ZERO_RESULTS":
	default:
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return nil, &UpstreamError{Provider: p.Name(), StatusCode: http.StatusOK, Err: fmt.Errorf("places search failed: %s", msg)}
	}

	records := make([]models.BusinessRecord, 0, len(resp.Results))
	for _, item := range resp.Results {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			p.log.Debug("skipping place without a name", zap.String("place_id", item.PlaceID))
			continue
		}

		record := models.BusinessRecord{
			Source:      p.Name(),
			Name:        name,
			Rating:      item.Rating,
			ReviewCount: item.UserRatingsTotal,
			Address:     item.FormattedAddress,
		}
		if item.PlaceID != "" {
			record.URL = placeURLPrefix + item.PlaceID
		}
		records = append(records, record)
	}

	return records, nil
}
