package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/models"
)

type recordingSnapshotter struct {
	mu    sync.Mutex
	saved []models.AggregatedResult
	err   error
}

func (s *recordingSnapshotter) Save(result models.AggregatedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, result)
	return s.err
}

func testDefaults() config.SearchConfig {
	return config.SearchConfig{DefaultLocation: "Memphis, TN", DefaultLimit: 10, MaxLimit: 50}
}

func TestService_Normalize(t *testing.T) {
	svc := NewService(NewAggregator(), nil, testDefaults())

	t.Run("Defaults applied", func(t *testing.T) {
		q, err := svc.Normalize(models.RawSearchQuery{Term: "  plumber "})
		require.NoError(t, err)
		assert.Equal(t, models.SearchQuery{Term: "plumber", Location: "Memphis, TN", Limit: 10}, q)
	})

	t.Run("Explicit values kept", func(t *testing.T) {
		q, err := svc.Normalize(models.RawSearchQuery{Term: "bakery", Location: "Nashville, TN", Radius: "2.5", Limit: "3"})
		require.NoError(t, err)
		assert.Equal(t, models.SearchQuery{Term: "bakery", Location: "Nashville, TN", Radius: 2.5, Limit: 3}, q)
	})

	t.Run("Huge finite radius is kept and capped on the wire", func(t *testing.T) {
		q, err := svc.Normalize(models.RawSearchQuery{Term: "bakery", Radius: "1e308"})
		require.NoError(t, err)
		assert.Equal(t, 1e308, q.Radius)
		assert.Equal(t, maxRadiusMeters, radiusMeters(q.Radius))
	})

	t.Run("Limit above maximum is clamped", func(t *testing.T) {
		q, err := svc.Normalize(models.RawSearchQuery{Term: "bakery", Limit: "500"})
		require.NoError(t, err)
		assert.Equal(t, 50, q.Limit)
	})

	tests := []struct {
		name    string
		raw     models.RawSearchQuery
		field   string
		message string
	}{
		{"Missing query", models.RawSearchQuery{}, "query", "Query parameter is required"},
		{"Blank query", models.RawSearchQuery{Term: "   "}, "query", "Query parameter is required"},
		{"Non-numeric limit", models.RawSearchQuery{Term: "x", Limit: "ten"}, "limit", `limit must be a positive integer, got "ten"`},
		{"Zero limit", models.RawSearchQuery{Term: "x", Limit: "0"}, "limit", `limit must be a positive integer, got "0"`},
		{"Negative limit", models.RawSearchQuery{Term: "x", Limit: "-3"}, "limit", `limit must be a positive integer, got "-3"`},
		{"Non-numeric radius", models.RawSearchQuery{Term: "x", Radius: "far"}, "radius", `radius must be a positive number, got "far"`},
		{"Negative radius", models.RawSearchQuery{Term: "x", Radius: "-1"}, "radius", `radius must be a positive number, got "-1"`},
		{"Infinite radius", models.RawSearchQuery{Term: "x", Radius: "Inf"}, "radius", `radius must be a positive number, got "Inf"`},
		{"Signed infinite radius", models.RawSearchQuery{Term: "x", Radius: "+Inf"}, "radius", `radius must be a positive number, got "+Inf"`},
		{"NaN radius", models.RawSearchQuery{Term: "x", Radius: "NaN"}, "radius", `radius must be a positive number, got "NaN"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Normalize(tt.raw)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestService_NormalizeNoDefaultLocation(t *testing.T) {
	svc := NewService(NewAggregator(), nil, config.SearchConfig{})

	_, err := svc.Normalize(models.RawSearchQuery{Term: "plumber"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "location", verr.Field)
}

func TestService_SearchRejectsWithoutCallingProviders(t *testing.T) {
	f := &fakeFetcher{name: "A", records: named("A", "Anything")}
	snap := &recordingSnapshotter{}
	svc := NewService(NewAggregator(f), snap, testDefaults())

	businesses, err := svc.Search(context.Background(), models.RawSearchQuery{Term: ""})
	require.Error(t, err)
	assert.Nil(t, businesses)
	assert.Zero(t, f.calls.Load())
	assert.Empty(t, snap.saved)
}

func TestService_Search(t *testing.T) {
	a := &fakeFetcher{name: "A", records: named("A", "One", "Two", "Three")}
	b := &fakeFetcher{name: "B", records: named("B", "Two", "Four")}
	snap := &recordingSnapshotter{}
	svc := NewService(NewAggregator(a, b), snap, testDefaults())

	businesses, err := svc.Search(context.Background(), models.RawSearchQuery{Term: "plumber", Limit: "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, names(businesses))

	assert.Equal(t, "Memphis, TN", a.lastQuery().Location)
	assert.Equal(t, 3, b.lastQuery().Limit)

	require.Len(t, snap.saved, 1)
	assert.Equal(t, "plumber", snap.saved[0].Query)
	assert.Equal(t, businesses, snap.saved[0].Businesses, "snapshot holds the truncated list")
}

func TestService_SnapshotFailureIsIgnored(t *testing.T) {
	f := &fakeFetcher{name: "A", records: named("A", "One")}
	snap := &recordingSnapshotter{err: errors.New("disk full")}
	svc := NewService(NewAggregator(f), snap, testDefaults())

	businesses, err := svc.Search(context.Background(), models.RawSearchQuery{Term: "plumber"})
	require.NoError(t, err)
	assert.Equal(t, []string{"One"}, names(businesses))
	assert.Len(t, snap.saved, 1)
}

func TestService_AllProvidersEmpty(t *testing.T) {
	svc := NewService(NewAggregator(&fakeFetcher{name: "A"}, &fakeFetcher{name: "B"}), nil, testDefaults())

	businesses, err := svc.Search(context.Background(), models.RawSearchQuery{Term: "plumber"})
	require.NoError(t, err)
	assert.NotNil(t, businesses)
	assert.Empty(t, businesses)
}

// Plumbers in Memphis: ratings and directory answer, places hangs past its
// timeout. The shared business keeps the ratings record.
func TestService_EndToEnd(t *testing.T) {
	tests := []struct {
		name      string
		directory string
		want      []string
	}{
		{
			name: "Directory repeats one ratings business",
			directory: `{"status":"OK","data":[
				{"name":"AAA Plumbing","full_address":"77 Other St, Memphis, TN","phone_number":"+19015267000"}
			]}`,
			want: []string{"AAA Plumbing", "Roto Rooter"},
		},
		{
			name: "Directory adds a new business",
			directory: `{"status":"OK","data":[
				{"name":"AAA Plumbing","full_address":"77 Other St, Memphis, TN","phone_number":"+19015267000"},
				{"name":"Bluff City Plumbing","full_address":"5 Bluff Rd, Memphis, TN"}
			]}`,
			want: []string{"AAA Plumbing", "Roto Rooter", "Bluff City Plumbing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings, _ := newJSONServer(t, http.StatusOK, `{"businesses":[
				{"alias":"aaa-plumbing-memphis","name":"AAA Plumbing","rating":4.8,"review_count":51,"distance":3218.68,
				 "location":{"display_address":["1 Union Ave","Memphis, TN 38103"]}},
				{"alias":"roto-franchise-memphis","name":"Roto Rooter","rating":4.0}
			]}`, nil)
			directory, _ := newJSONServer(t, http.StatusOK, tt.directory, nil)

			places := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(3 * time.Second):
				}
			}))
			t.Cleanup(places.Close)

			settings := BreakerSettings{MaxFailures: 5, OpenTimeout: time.Minute}
			adapters := []Fetcher{
				NewAdapter(NewRatingsProvider(&config.ProviderConfig{BaseURL: ratings.URL, APIKey: "k"}), time.Second, settings),
				NewAdapter(NewPlacesProvider(&config.ProviderConfig{BaseURL: places.URL, APIKey: "k"}), 200*time.Millisecond, settings),
				NewAdapter(NewDirectoryProvider(&config.ProviderConfig{BaseURL: directory.URL, APIKey: "k"}), time.Second, settings),
			}
			snap := &recordingSnapshotter{}
			svc := NewService(NewAggregator(adapters...), snap, testDefaults())

			start := time.Now()
			businesses, err := svc.Search(context.Background(), models.RawSearchQuery{Term: "plumber", Location: "Memphis, TN"})
			require.NoError(t, err)
			assert.Less(t, time.Since(start), 2*time.Second)

			require.Equal(t, tt.want, names(businesses))

			aaa := businesses[0]
			assert.Equal(t, models.SourceRatings, aaa.Source)
			assert.Equal(t, "1 Union Ave Memphis, TN 38103", aaa.Address)
			assert.Empty(t, aaa.Phone)
			require.NotNil(t, aaa.DistanceMiles)
			assert.Equal(t, 2.0, *aaa.DistanceMiles)
			assert.False(t, aaa.IsChain)
			assert.True(t, businesses[1].IsChain)

			for _, b := range businesses {
				assert.NotEqual(t, models.SourcePlaces, b.Source)
			}

			require.Len(t, snap.saved, 1)
			assert.Equal(t, businesses, snap.saved[0].Businesses)
		})
	}
}
