package search

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/young1lin/civicsource/internal/models"
)

// fakeFetcher is a scripted Fetcher that records what it was asked
type fakeFetcher struct {
	name    models.Source
	records []models.BusinessRecord
	delay   time.Duration
	calls   atomic.Int32
	last    atomic.Value // models.SearchQuery
}

func (f *fakeFetcher) Name() models.Source { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, q models.SearchQuery) []models.BusinessRecord {
	f.calls.Add(1)
	f.last.Store(q)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return []models.BusinessRecord{}
		}
	}
	if f.records == nil {
		return []models.BusinessRecord{}
	}
	return f.records
}

func (f *fakeFetcher) lastQuery() models.SearchQuery {
	q, _ := f.last.Load().(models.SearchQuery)
	return q
}

func names(records []models.BusinessRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Run("First occurrence wins in registration order", func(t *testing.T) {
		a := []models.BusinessRecord{
			{Source: "A", Name: "Joe's", Address: "1 Main"},
			{Source: "A", Name: "Ann's"},
		}
		b := []models.BusinessRecord{
			{Source: "B", Name: "Joe's", Address: "9 Elm"},
			{Source: "B", Name: "Bo's"},
		}

		merged, dropped := Merge([][]models.BusinessRecord{a, b}, 10)
		assert.Equal(t, []string{"Joe's", "Ann's", "Bo's"}, names(merged))
		assert.Equal(t, models.Source("A"), merged[0].Source)
		assert.Equal(t, "1 Main", merged[0].Address)
		assert.Equal(t, 1, dropped)
	})

	t.Run("Dedup happens before truncation", func(t *testing.T) {
		a := named("A", "X", "Y")
		b := named("B", "X", "Z", "W")

		merged, _ := Merge([][]models.BusinessRecord{a, b}, 3)
		assert.Equal(t, []string{"X", "Y", "Z"}, names(merged))
	})

	t.Run("Exact match only", func(t *testing.T) {
		merged, dropped := Merge([][]models.BusinessRecord{named("A", "Joe's Diner", "joe's diner", "Joe's Diner ")}, 10)
		assert.Len(t, merged, 3)
		assert.Zero(t, dropped)
	})

	t.Run("Nameless records are dropped", func(t *testing.T) {
		merged, _ := Merge([][]models.BusinessRecord{named("A", "", "Real")}, 10)
		assert.Equal(t, []string{"Real"}, names(merged))
	})

	t.Run("Empty input yields empty non-nil", func(t *testing.T) {
		merged, dropped := Merge(nil, 10)
		assert.NotNil(t, merged)
		assert.Empty(t, merged)
		assert.Zero(t, dropped)
	})

	t.Run("Non-positive limit does not truncate", func(t *testing.T) {
		merged, _ := Merge([][]models.BusinessRecord{named("A", "1", "2", "3")}, 0)
		assert.Len(t, merged, 3)
	})
}

func TestMerge_RandomInputsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		slots := make([][]models.BusinessRecord, 3)
		for s := range slots {
			n := rng.Intn(15)
			for j := 0; j < n; j++ {
				slots[s] = append(slots[s], models.BusinessRecord{
					Source: models.Source(fmt.Sprintf("P%d", s)),
					Name:   fmt.Sprintf("biz-%d", rng.Intn(12)),
				})
			}
		}
		limit := rng.Intn(20) + 1

		merged, _ := Merge(slots, limit)
		require.LessOrEqual(t, len(merged), limit)

		seen := make(map[string]bool)
		for _, r := range merged {
			require.False(t, seen[r.Name], "duplicate name %q", r.Name)
			seen[r.Name] = true

			// The kept record is the first one with that name across slots
			var first models.BusinessRecord
		find:
			for _, slot := range slots {
				for _, c := range slot {
					if c.Name == r.Name {
						first = c
						break find
					}
				}
			}
			require.Equal(t, first.Source, r.Source)
		}
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	ratings := &fakeFetcher{name: models.SourceRatings, records: named(models.SourceRatings, "AAA Plumbing", "Bluff City Pipes")}
	places := &fakeFetcher{name: models.SourcePlaces, records: named(models.SourcePlaces, "AAA Plumbing", "Delta Drains")}
	directory := &fakeFetcher{name: models.SourceDirectory, records: named(models.SourceDirectory, "Delta Drains", "Elvis Rooter")}

	agg := NewAggregator(ratings, places, directory)
	fixed := time.Date(2026, 10, 17, 7, 0, 0, 0, time.FixedZone("CDT", -5*3600))
	agg.now = func() time.Time { return fixed }

	query := testQuery()
	query.Limit = 10
	result := agg.Aggregate(context.Background(), query)

	assert.Equal(t, "plumber", result.Query)
	assert.Equal(t, time.UTC, result.GeneratedAt.Location())
	assert.True(t, fixed.Equal(result.GeneratedAt))
	assert.Equal(t, []string{"AAA Plumbing", "Bluff City Pipes", "Delta Drains", "Elvis Rooter"}, names(result.Businesses))
	assert.Equal(t, models.SourceRatings, result.Businesses[0].Source)
	assert.Equal(t, models.SourcePlaces, result.Businesses[2].Source)

	for _, f := range []*fakeFetcher{ratings, places, directory} {
		assert.Equal(t, int32(1), f.calls.Load())
		assert.Equal(t, query, f.lastQuery())
	}
}

func TestAggregator_AllEmpty(t *testing.T) {
	agg := NewAggregator(
		&fakeFetcher{name: "A"},
		&fakeFetcher{name: "B"},
		&fakeFetcher{name: "C"},
	)

	result := agg.Aggregate(context.Background(), testQuery())
	assert.NotNil(t, result.Businesses)
	assert.Empty(t, result.Businesses)
}

func TestAggregator_NoFetchers(t *testing.T) {
	result := NewAggregator().Aggregate(context.Background(), testQuery())
	assert.NotNil(t, result.Businesses)
	assert.Empty(t, result.Businesses)
}

func TestAggregator_RunsConcurrently(t *testing.T) {
	// Slowest first: order must still follow registration, and total latency
	// must track the slowest call rather than the sum.
	slow := &fakeFetcher{name: "slow", delay: 300 * time.Millisecond, records: named("slow", "Shared", "Slow Only")}
	mid := &fakeFetcher{name: "mid", delay: 200 * time.Millisecond, records: named("mid", "Shared", "Mid Only")}
	fast := &fakeFetcher{name: "fast", delay: 100 * time.Millisecond, records: named("fast", "Fast Only")}

	agg := NewAggregator(slow, mid, fast)

	start := time.Now()
	result := agg.Aggregate(context.Background(), testQuery())
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 550*time.Millisecond)
	assert.Equal(t, []string{"Shared", "Slow Only", "Mid Only", "Fast Only"}, names(result.Businesses))
	assert.Equal(t, models.Source("slow"), result.Businesses[0].Source)
}

func TestAggregator_Providers(t *testing.T) {
	breaker := NewAdapter(&fakeProvider{name: models.SourceRatings}, time.Second, BreakerSettings{})
	agg := NewAggregator(breaker, &fakeFetcher{name: "plain"})

	statuses := agg.Providers()
	require.Len(t, statuses, 2)
	assert.Equal(t, ProviderStatus{Name: models.SourceRatings, Available: true, Breaker: "closed"}, statuses[0])
	assert.Equal(t, ProviderStatus{Name: "plain", Available: true}, statuses[1])
}
