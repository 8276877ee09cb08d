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
	"github.com/young1lin/civicsource/pkg/phone"
)

// ratingsMaxLimit is the largest page size the Yelp Fusion search accepts
const ratingsMaxLimit = 50

// RatingsProvider searches the Yelp Fusion business search API
type RatingsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewRatingsProvider creates a new ratings provider
func NewRatingsProvider(cfg *config.ProviderConfig) *RatingsProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.yelp.com/v3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeoutSeconds
	}

	return &RatingsProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("search.ratings"),
	}
}

// Name returns the provider name
func (p *RatingsProvider) Name() models.Source {
	return models.SourceRatings
}

// IsAvailable returns true if the provider is properly configured
func (p *RatingsProvider) IsAvailable() bool {
	return p.apiKey != ""
}

type ratingsSearchResponse struct {
	Businesses []ratingsBusiness `json:"businesses"`
	Total      int               `json:"total"`
}

type ratingsBusiness struct {
	ID           string   `json:"id"`
	Alias        string   `json:"alias"`
	Name         string   `json:"name"`
	Rating       *float64 `json:"rating"`
	ReviewCount  *int     `json:"review_count"`
	URL          string   `json:"url"`
	Phone        string   `json:"phone"`
	DisplayPhone string   `json:"display_phone"`
	Distance     *float64 `json:"distance"` // meters
	Location     struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
}

// Search performs a business search ordered by rating
func (p *RatingsProvider) Search(ctx context.Context, query models.SearchQuery) ([]models.BusinessRecord, error) {
	if !p.IsAvailable() {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("provider not configured: missing API key")}
	}

	params := url.Values{}
	params.Set("term", query.Term)
	params.Set("location", query.Location)
	params.Set("sort_by", "rating")
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(min(query.Limit, ratingsMaxLimit)))
	}
	if r := radiusMeters(query.Radius); r > 0 {
		params.Set("radius", strconv.Itoa(r))
	}

	reqURL := fmt.Sprintf("%s/businesses/search?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	var resp ratingsSearchResponse
	if err := doJSON(p.client, p.Name(), req, &resp); err != nil {
		return nil, err
	}

	records := make([]models.BusinessRecord, 0, len(resp.Businesses))
	for _, item := range resp.Businesses {
		record, ok := p.toRecord(item)
		if !ok {
			p.log.Debug("skipping business without a name", zap.String("id", item.ID))
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (p *RatingsProvider) toRecord(item ratingsBusiness) (models.BusinessRecord, bool) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return models.BusinessRecord{}, false
	}

	contact := item.DisplayPhone
	if contact == "" {
		contact = item.Phone
	}

	record := models.BusinessRecord{
		Source:      p.Name(),
		Name:        name,
		Rating:      item.Rating,
		ReviewCount: item.ReviewCount,
		Address:     strings.Join(item.Location.DisplayAddress, " "),
		URL:         item.URL,
		Phone:       phone.Normalize(contact),
		IsChain:     looksLikeChain(item.Alias),
	}
	if item.Distance != nil {
		record.DistanceMiles = floatPtr(metersToMiles(*item.Distance))
	}

	return record, true
}
