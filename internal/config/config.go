package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Search    SearchConfig    `mapstructure:"search"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SearchConfig holds the defaults applied to incoming search queries
type SearchConfig struct {
	DefaultLocation string `mapstructure:"default_location"`
	DefaultLimit    int    `mapstructure:"default_limit"`
	MaxLimit        int    `mapstructure:"max_limit"`
}

// ProvidersConfig lists the upstream business directories. Their order here
// is the fixed registration order used when merging results.
type ProvidersConfig struct {
	Ratings   ProviderConfig `mapstructure:"ratings"`
	Places    ProviderConfig `mapstructure:"places"`
	Directory ProviderConfig `mapstructure:"directory"`
}

// ProviderConfig represents a single upstream directory
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"` // RapidAPI: X-RapidAPI-Host header
	Timeout int    `mapstructure:"timeout"`
}

// BreakerConfig tunes the per-provider circuit breaker
type BreakerConfig struct {
	MaxFailures int `mapstructure:"max_failures"` // consecutive failures before opening
	OpenTimeout int `mapstructure:"open_timeout"` // seconds before a half-open probe
	Interval    int `mapstructure:"interval"`     // seconds between count resets while closed
}

type SnapshotConfig struct {
	Backend string `mapstructure:"backend"` // "file", "bolt" or "none"
	Path    string `mapstructure:"path"`
}

// AssistantConfig points at an OpenAI-compatible Chat Completions endpoint
type AssistantConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	PathSuffix   string  `mapstructure:"path_suffix"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Timeout      int     `mapstructure:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AllowAll reports whether the origin list contains a wildcard
func (c CORSConfig) AllowAll() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, origin := range c.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

func Load(cfgFile string) *Config {
	// Load .env file if exists (ignore error if not found)
	godotenv.Load()
	godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)
	bindCredentials(v)

	// Replace . with _ for nested config keys
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("CIVIC")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is ok, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isMissingFile(cfgFile, err) {
			panic("Error reading config file: " + err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("Error unmarshaling config: " + err.Error())
	}

	return &cfg
}

// bindCredentials maps the conventional provider key variables onto config
// keys, so a plain .env with YELP_API_KEY etc. works without the CIVIC_ prefix.
func bindCredentials(v *viper.Viper) {
	v.BindEnv("providers.ratings.api_key", "CIVIC_PROVIDERS_RATINGS_API_KEY", "YELP_API_KEY")
	v.BindEnv("providers.places.api_key", "CIVIC_PROVIDERS_PLACES_API_KEY", "GOOGLE_PLACES_API_KEY")
	v.BindEnv("providers.directory.api_key", "CIVIC_PROVIDERS_DIRECTORY_API_KEY", "RAPID_API_KEY")
	v.BindEnv("assistant.api_key", "CIVIC_ASSISTANT_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("search.default_location", "CIVIC_SEARCH_DEFAULT_LOCATION", "DEFAULT_LOCATION")
}

// isMissingFile tolerates an explicit --config path that does not exist,
// which viper reports as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(cfgFile string, err error) bool {
	return cfgFile != "" && strings.Contains(err.Error(), "no such file")
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Search defaults
	v.SetDefault("search.default_location", "Memphis, TN")
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 50)

	// Provider defaults
	v.SetDefault("providers.ratings.enabled", true)
	v.SetDefault("providers.ratings.base_url", "https://api.yelp.com/v3")
	v.SetDefault("providers.ratings.timeout", 8)
	v.SetDefault("providers.places.enabled", true)
	v.SetDefault("providers.places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("providers.places.timeout", 8)
	v.SetDefault("providers.directory.enabled", true)
	v.SetDefault("providers.directory.base_url", "https://local-business-data.p.rapidapi.com")
	v.SetDefault("providers.directory.host", "local-business-data.p.rapidapi.com")
	v.SetDefault("providers.directory.timeout", 8)

	// Circuit breaker defaults
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", 30)
	v.SetDefault("breaker.interval", 60)

	// Snapshot defaults
	v.SetDefault("snapshot.backend", "file")
	v.SetDefault("snapshot.path", "./data/last_search.json")

	// Assistant defaults
	v.SetDefault("assistant.base_url", "https://api.openai.com")
	v.SetDefault("assistant.path_suffix", "/v1/chat/completions")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.system_prompt", "You are Civic Helper, an assistant that helps small local vendors find and respond to public procurement opportunities. Answer concisely.")
	v.SetDefault("assistant.temperature", 0.7)
	v.SetDefault("assistant.max_tokens", 600)
	v.SetDefault("assistant.timeout", 30)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
}
