package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "Memphis, TN", cfg.Search.DefaultLocation)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, "https://api.yelp.com/v3", cfg.Providers.Ratings.BaseURL)
	assert.Equal(t, 8, cfg.Providers.Places.Timeout)
	assert.Equal(t, "local-business-data.p.rapidapi.com", cfg.Providers.Directory.Host)
	assert.True(t, cfg.Providers.Directory.Enabled)
	assert.Equal(t, "file", cfg.Snapshot.Backend)
	assert.True(t, cfg.CORS.AllowAll())
}

func TestLoad_CredentialsFromEnvironment(t *testing.T) {
	t.Setenv("YELP_API_KEY", "yelp-key")
	t.Setenv("GOOGLE_PLACES_API_KEY", "google-key")
	t.Setenv("RAPID_API_KEY", "rapid-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("CIVIC_SEARCH_DEFAULT_LIMIT", "7")

	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "yelp-key", cfg.Providers.Ratings.APIKey)
	assert.Equal(t, "google-key", cfg.Providers.Places.APIKey)
	assert.Equal(t, "rapid-key", cfg.Providers.Directory.APIKey)
	assert.Equal(t, "openai-key", cfg.Assistant.APIKey)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
search:
  default_location: "Nashville, TN"
providers:
  places:
    enabled: false
snapshot:
  backend: bolt
  path: /tmp/snapshots.db
cors:
  allowed_origins:
    - http://localhost:5173
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Load(path)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "Nashville, TN", cfg.Search.DefaultLocation)
	assert.False(t, cfg.Providers.Places.Enabled)
	assert.True(t, cfg.Providers.Ratings.Enabled)
	assert.Equal(t, "bolt", cfg.Snapshot.Backend)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.CORS.AllowAll())
}
