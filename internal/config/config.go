package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverAuto     = "auto"
	StoreDriverPostgres = "postgres"
	StoreDriverSupabase = "supabase"
	StoreDriverMemory   = "memory"

	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"
)

type Config struct {
	Server struct {
		Port string
	}
	APIKey   string
	Debug    bool
	LogLevel string
	Store    struct {
		Driver   string
		SeedFile string
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Supabase struct {
		URL string
		Key string
	}
	Geocoder struct {
		Provider      string
		BaseURL       string
		UserAgent     string
		Timeout       time.Duration
		RatePerSecond float64
		CacheTTL      time.Duration
	}
	Google struct {
		MapsAPIKey string
	}
	Search struct {
		RadiusMiles float64
		Limit       int
	}
	HappyRobot struct {
		BearerToken string
		APIBaseURL  string
		Timeout     time.Duration
	}
	Metrics struct {
		RefreshInterval time.Duration
		RefreshWorkers  int
		RefreshTimeout  time.Duration
	}
	NATS struct {
		URL     string
		Subject string
	}
	RateLimit struct {
		PerMinute int
	}
}

// Load reads config.yaml (optional) and the environment into a Config.
// Every key can be overridden by its upper-cased, underscore-separated env name.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// PORT is the conventional name on most hosts.
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind server.port: %w", err)
	}

	var config Config
	config.Server.Port = v.GetString("server.port")
	config.APIKey = v.GetString("api_key")
	config.Debug = v.GetBool("debug")
	config.LogLevel = v.GetString("log_level")
	if config.Debug {
		config.LogLevel = "debug"
	}

	config.Store.Driver = strings.ToLower(v.GetString("store.driver"))
	config.Store.SeedFile = v.GetString("store.seed_file")
	config.Database.URL = v.GetString("database.url")
	config.Redis.URL = v.GetString("redis.url")
	config.Supabase.URL = strings.TrimRight(v.GetString("supabase.url"), "/")
	config.Supabase.Key = v.GetString("supabase.key")

	config.Geocoder.Provider = strings.ToLower(v.GetString("geocoder.provider"))
	config.Geocoder.BaseURL = strings.TrimRight(v.GetString("geocoder.base_url"), "/")
	config.Geocoder.UserAgent = v.GetString("geocoder.user_agent")
	config.Geocoder.Timeout = v.GetDuration("geocoder.timeout")
	config.Geocoder.RatePerSecond = v.GetFloat64("geocoder.rate_per_second")
	config.Geocoder.CacheTTL = v.GetDuration("geocoder.cache_ttl")
	config.Google.MapsAPIKey = v.GetString("google.maps_api_key")

	config.Search.RadiusMiles = v.GetFloat64("search.radius_miles")
	config.Search.Limit = v.GetInt("search.limit")

	config.HappyRobot.BearerToken = v.GetString("happyrobot.bearer_token")
	config.HappyRobot.APIBaseURL = strings.TrimRight(v.GetString("happyrobot.api_base_url"), "/")
	config.HappyRobot.Timeout = v.GetDuration("happyrobot.timeout")

	config.Metrics.RefreshInterval = v.GetDuration("metrics.refresh_interval")
	config.Metrics.RefreshWorkers = v.GetInt("metrics.refresh_workers")
	config.Metrics.RefreshTimeout = v.GetDuration("metrics.refresh_timeout")

	config.NATS.URL = v.GetString("nats.url")
	config.NATS.Subject = v.GetString("nats.subject")
	config.RateLimit.PerMinute = v.GetInt("ratelimit.per_minute")

	config.Store.Driver = config.ResolveStoreDriver()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("api_key", "test-api-key-12345")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("store.driver", StoreDriverAuto)
	v.SetDefault("store.seed_file", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("geocoder.provider", GeocoderNominatim)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "load-matcher")
	v.SetDefault("geocoder.timeout", 3*time.Second)
	v.SetDefault("geocoder.rate_per_second", 1.0)
	v.SetDefault("geocoder.cache_ttl", 24*time.Hour)
	v.SetDefault("search.radius_miles", 100.0)
	v.SetDefault("search.limit", 3)
	v.SetDefault("happyrobot.api_base_url", "https://platform.happyrobot.ai/api/v1")
	v.SetDefault("happyrobot.timeout", 5*time.Second)
	v.SetDefault("metrics.refresh_interval", time.Duration(0))
	v.SetDefault("metrics.refresh_workers", 5)
	v.SetDefault("metrics.refresh_timeout", 2*time.Minute)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "carrier_sales.metrics.stored")
	v.SetDefault("ratelimit.per_minute", 120)
}

// ResolveStoreDriver turns "auto" into a concrete driver from the credentials present.
func (c *Config) ResolveStoreDriver() string {
	if c.Store.Driver != "" && c.Store.Driver != StoreDriverAuto {
		return c.Store.Driver
	}
	switch {
	case c.Database.URL != "":
		return StoreDriverPostgres
	case c.Supabase.URL != "" && c.Supabase.Key != "":
		return StoreDriverSupabase
	default:
		return StoreDriverMemory
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Geocoder.Provider {
	case GeocoderNominatim:
	case GeocoderGoogle:
		if c.Google.MapsAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google geocoder")
		}
	default:
		return fmt.Errorf("unknown geocoder provider %q", c.Geocoder.Provider)
	}

	if c.Search.RadiusMiles <= 0 {
		return fmt.Errorf("search radius must be positive")
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search limit must be positive")
	}
	if c.Metrics.RefreshWorkers <= 0 {
		return fmt.Errorf("metrics refresh workers must be positive")
	}

	return nil
}

// ValidateRunStatus is advisory. Without a token the service still starts; run-status lookups fail.
func (c *Config) ValidateRunStatus() error {
	if c.HappyRobot.BearerToken == "" {
		return fmt.Errorf("HAPPYROBOT_BEARER_TOKEN is not set")
	}
	if c.HappyRobot.APIBaseURL == "" {
		return fmt.Errorf("HAPPYROBOT_API_BASE_URL is not set")
	}
	return nil
}
