package search

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/metrics"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

// DefaultTimeoutSeconds bounds a single provider call when none is configured
const DefaultTimeoutSeconds = 8

// BreakerSettings tunes the circuit breaker guarding each provider.
// A zero MaxFailures disables tripping.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
}

// Adapter is the failure boundary around one Provider. It bounds each call
// with a timeout, short-circuits a provider that keeps failing, and turns
// every error into an empty contribution.
type Adapter struct {
	provider Provider
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	log      *zap.Logger
}

// NewAdapter wraps provider with a per-call timeout and a circuit breaker
func NewAdapter(provider Provider, timeout time.Duration, settings BreakerSettings) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}

	log := logger.Named("search.adapter").With(zap.String("provider", string(provider.Name())))

	maxFailures := settings.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(provider.Name()),
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		// A caller hanging up says nothing about the provider's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Adapter{
		provider: provider,
		timeout:  timeout,
		breaker:  cb,
		log:      log,
	}
}

// Name returns the wrapped provider's source
func (a *Adapter) Name() models.Source {
	return a.provider.Name()
}

// IsAvailable reports whether the wrapped provider has credentials
func (a *Adapter) IsAvailable() bool {
	return a.provider.IsAvailable()
}

// BreakerState returns the breaker state, e.g. "closed" or "open"
func (a *Adapter) BreakerState() string {
	return a.breaker.State().String()
}

// Fetch calls the provider and never fails: on any error it logs and
// returns an empty slice.
func (a *Adapter) Fetch(ctx context.Context, query models.SearchQuery) []models.BusinessRecord {
	log := logger.FromContext(ctx, a.log)
	name := string(a.provider.Name())
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.provider.Search(callCtx, query)
	})
	metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = metrics.OutcomeBreakerOpen
		}
		metrics.ProviderRequests.WithLabelValues(name, outcome).Inc()

		fields := []zap.Field{
			zap.Error(err),
			zap.String("outcome", outcome),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode != 0 {
			fields = append(fields, zap.Int("status", upstream.StatusCode), zap.String("body", upstream.Body))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			fields = append(fields, zap.Duration("timeout", a.timeout))
		}
		log.Warn("provider search failed, contributing no results", fields...)
		return []models.BusinessRecord{}
	}

	records, _ := out.([]models.BusinessRecord)
	if records == nil {
		records = []models.BusinessRecord{}
	}
	metrics.ProviderRequests.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
	metrics.ProviderRecords.WithLabelValues(name).Add(float64(len(records)))

	log.Info("provider search completed",
		zap.String("query", query.Term),
		zap.Int("result_count", len(records)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return records
}
