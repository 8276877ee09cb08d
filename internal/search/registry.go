package search

import (
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/pkg/logger"
)

// NewAdapters builds the enabled providers in their fixed registration
// order: ratings, places, directory. That order decides which record
// survives when two providers return the same business name.
func NewAdapters(cfg *config.Config) []*Adapter {
	settings := BreakerSettings{
		MaxFailures: uint32(max(cfg.Breaker.MaxFailures, 0)),
		OpenTimeout: time.Duration(cfg.Breaker.OpenTimeout) * time.Second,
		Interval:    time.Duration(cfg.Breaker.Interval) * time.Second,
	}

	entries := []struct {
		key string
		cfg *config.ProviderConfig
		new func(*config.ProviderConfig) Provider
	}{
		{"ratings", &cfg.Providers.Ratings, func(c *config.ProviderConfig) Provider { return NewRatingsProvider(c) }},
		{"places", &cfg.Providers.Places, func(c *config.ProviderConfig) Provider { return NewPlacesProvider(c) }},
		{"directory", &cfg.Providers.Directory, func(c *config.ProviderConfig) Provider { return NewDirectoryProvider(c) }},
	}

	adapters := make([]*Adapter, 0, len(entries))
	for _, e := range entries {
		if !e.cfg.Enabled {
			logger.Info("provider disabled", zap.String("provider", e.key))
			continue
		}

		provider := e.new(e.cfg)
		if !provider.IsAvailable() {
			// Still registered: every call fails and contributes nothing
			logger.Warn("provider has no API key, its searches will return no results",
				zap.String("provider", e.key))
		}

		adapters = append(adapters, NewAdapter(provider, time.Duration(e.cfg.Timeout)*time.Second, settings))
		logger.Info("provider initialized",
			zap.String("provider", e.key),
			zap.String("source", string(provider.Name())),
			zap.Int("timeout_seconds", e.cfg.Timeout),
		)
	}

	return adapters
}
