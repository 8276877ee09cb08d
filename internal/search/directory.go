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

// DirectoryProvider searches the RapidAPI Local Business Data API.
// It does not support a search radius.
type DirectoryProvider struct {
	apiKey  string
	host    string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewDirectoryProvider creates a new local business directory provider
func NewDirectoryProvider(cfg *config.ProviderConfig) *DirectoryProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://local-business-data.p.rapidapi.com"
	}
	if cfg.Host == "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			cfg.Host = u.Host
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeoutSeconds
	}

	return &DirectoryProvider{
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("search.directory"),
	}
}

// Name returns the provider name
func (p *DirectoryProvider) Name() models.Source {
	return models.SourceDirectory
}

// IsAvailable returns true if the provider is properly configured
func (p *DirectoryProvider) IsAvailable() bool {
	return p.apiKey != ""
}

type directorySearchResponse struct {
	Status string              `json:"status"`
	Data   []directoryBusiness `json:"data"`
}

type directoryBusiness struct {
	BusinessID  string   `json:"business_id"`
	Name        string   `json:"name"`
	FullAddress string   `json:"full_address"`
	Address     string   `json:"address"`
	Website     string   `json:"website"`
	PhoneNumber string   `json:"phone_number"`
	PlaceLink   string   `json:"place_link"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
}

// Search performs a business search scoped to the city part of the location
func (p *DirectoryProvider) Search(ctx context.Context, query models.SearchQuery) ([]models.BusinessRecord, error) {
	if !p.IsAvailable() {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("provider not configured: missing API key")}
	}

	params := url.Values{}
	params.Set("query", query.Term)
	if city := cityOf(query.Location); city != "" {
		params.Set("city", city)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	reqURL := fmt.Sprintf("%s/search?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("X-RapidAPI-Key", p.apiKey)
	req.Header.Set("X-RapidAPI-Host", p.host)

	var resp directorySearchResponse
	if err := doJSON(p.client, p.Name(), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "OK") {
		return nil, &UpstreamError{Provider: p.Name(), StatusCode: http.StatusOK, Err: fmt.Errorf("directory search failed: %s", resp.Status)}
	}

	records := make([]models.BusinessRecord, 0, len(resp.Data))
	for _, item := range resp.Data {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			p.log.Debug("skipping business without a name", zap.String("business_id", item.BusinessID))
			continue
		}

		address := item.FullAddress
		if address == "" {
			address = item.Address
		}

		records = append(records, models.BusinessRecord{
			Source:      p.Name(),
			Name:        name,
			Rating:      item.Rating,
			ReviewCount: item.ReviewCount,
			Address:     address,
			Website:     item.Website,
			URL:         item.PlaceLink,
			Phone:       phone.Normalize(item.PhoneNumber),
		})
	}

	return records, nil
}
