package search

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/young1lin/civicsource/internal/metrics"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

// Aggregator fans one query out to every registered fetcher and merges the
// results.
type Aggregator struct {
	fetchers []Fetcher
	now      func() time.Time
	log      *zap.Logger
}

// NewAggregator creates an aggregator. The order of fetchers is the merge
// order, independent of which call finishes first.
func NewAggregator(fetchers ...Fetcher) *Aggregator {
	return &Aggregator{
		fetchers: fetchers,
		now:      time.Now,
		log:      logger.Named("search.aggregator"),
	}
}

// Providers describes the registered fetchers in registration order
func (a *Aggregator) Providers() []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(a.fetchers))
	for _, f := range a.fetchers {
		status := ProviderStatus{Name: f.Name(), Available: true}
		if p, ok := f.(interface{ IsAvailable() bool }); ok {
			status.Available = p.IsAvailable()
		}
		if b, ok := f.(interface{ BreakerState() string }); ok {
			status.Breaker = b.BreakerState()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Aggregate runs all fetchers concurrently, waits for every one of them, and
// returns the deduplicated, truncated merge.
func (a *Aggregator) Aggregate(ctx context.Context, query models.SearchQuery) models.AggregatedResult {
	start := time.Now()
	slots := make([][]models.BusinessRecord, len(a.fetchers))

	var g errgroup.Group
	for i, f := range a.fetchers {
		g.Go(func() error {
			slots[i] = f.Fetch(ctx, query)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, s := range slots {
		total += len(s)
	}

	merged, dropped := Merge(slots, query.Limit)
	metrics.DuplicatesDropped.Add(float64(dropped))

	logger.FromContext(ctx, a.log).Info("aggregation completed",
		zap.String("query", query.Term),
		zap.Int("provider_count", len(a.fetchers)),
		zap.Int("candidate_count", total),
		zap.Int("duplicates_dropped", dropped),
		zap.Int("result_count", len(merged)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return models.AggregatedResult{
		Query:       query.Term,
		GeneratedAt: a.now().UTC(),
		Businesses:  merged,
	}
}

// Merge concatenates slots in order, drops records without a name, keeps
// only the first record for each exact name and truncates to limit. A
// non-positive limit means no truncation. It also reports how many records
// were discarded as duplicates.
func Merge(slots [][]models.BusinessRecord, limit int) ([]models.BusinessRecord, int) {
	merged := make([]models.BusinessRecord, 0)
	seen := make(map[string]struct{})
	dropped := 0

	for _, slot := range slots {
		for _, record := range slot {
			if record.Name == "" {
				continue
			}
			if _, dup := seen[record.Name]; dup {
				dropped++
				continue
			}
			seen[record.Name] = struct{}{}
			merged = append(merged, record)
		}
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, dropped
}
