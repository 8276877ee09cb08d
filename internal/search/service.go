package search

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/metrics"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

// Snapshotter persists the last search result. Failures are logged by the
// service and never reach the caller.
type Snapshotter interface {
	Save(result models.AggregatedResult) error
}

// Service is the entry point for searches coming from the HTTP layer or CLI
type Service struct {
	aggregator *Aggregator
	snapshots  Snapshotter
	defaults   config.SearchConfig
	validate   *validator.Validate
	log        *zap.Logger
}

// NewService creates a search service. snapshots may be nil.
func NewService(aggregator *Aggregator, snapshots Snapshotter, defaults config.SearchConfig) *Service {
	if defaults.DefaultLimit <= 0 {
		defaults.DefaultLimit = 10
	}
	return &Service{
		aggregator: aggregator,
		snapshots:  snapshots,
		defaults:   defaults,
		validate:   validator.New(),
		log:        logger.Named("search.service"),
	}
}

// Providers describes the providers behind this service
func (s *Service) Providers() []ProviderStatus {
	return s.aggregator.Providers()
}

// Normalize validates raw parameters and applies configured defaults.
// It returns a *ValidationError for any malformed input.
func (s *Service) Normalize(raw models.RawSearchQuery) (models.SearchQuery, error) {
	query := models.SearchQuery{
		Term:     strings.TrimSpace(raw.Term),
		Location: strings.TrimSpace(raw.Location),
		Limit:    s.defaults.DefaultLimit,
	}
	if query.Term == "" {
		return models.SearchQuery{}, invalid("query", "Query parameter is required")
	}
	if query.Location == "" {
		query.Location = s.defaults.DefaultLocation
	}

	if v := strings.TrimSpace(raw.Limit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return models.SearchQuery{}, invalid("limit", "limit must be a positive integer, got %q", v)
		}
		query.Limit = limit
	}
	if s.defaults.MaxLimit > 0 && query.Limit > s.defaults.MaxLimit {
		query.Limit = s.defaults.MaxLimit
	}

	if v := strings.TrimSpace(raw.Radius); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
			return models.SearchQuery{}, invalid("radius", "radius must be a positive number, got %q", v)
		}
		query.Radius = radius
	}

	if err := s.validate.Struct(query); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return models.SearchQuery{}, invalid(strings.ToLower(fe.Field()), "%s failed %q validation", strings.ToLower(fe.Field()), fe.Tag())
		}
		return models.SearchQuery{}, invalid("query", "%v", err)
	}

	return query, nil
}

// Search validates raw, aggregates all providers and snapshots the result.
// Only a *ValidationError is ever returned; upstream and snapshot failures
// degrade to fewer results.
func (s *Service) Search(ctx context.Context, raw models.RawSearchQuery) ([]models.BusinessRecord, error) {
	log := logger.FromContext(ctx, s.log)

	query, err := s.Normalize(raw)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("invalid").Inc()
		log.Info("rejected search", zap.Error(err))
		return nil, err
	}

	log.Info("search started",
		zap.String("query", query.Term),
		zap.String("location", query.Location),
		zap.Float64("radius", query.Radius),
		zap.Int("limit", query.Limit),
	)

	result := s.aggregator.Aggregate(ctx, query)

	if s.snapshots != nil {
		if err := s.snapshots.Save(result); err != nil {
			metrics.SnapshotFailures.Inc()
			log.Error("failed to write search snapshot", zap.Error(err))
		}
	}

	metrics.SearchRequests.WithLabelValues("ok").Inc()
	metrics.SearchResults.Observe(float64(len(result.Businesses)))
	return result.Businesses, nil
}
