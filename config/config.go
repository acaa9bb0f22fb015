package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/silverpoint/price-search/internal/http/ratelimit"
	"github.com/silverpoint/price-search/internal/kroger"
	"github.com/silverpoint/price-search/internal/places"
	"github.com/silverpoint/price-search/internal/resilience"
	"github.com/silverpoint/price-search/internal/search"
	"github.com/silverpoint/price-search/internal/types"
)

// Config holds the application configuration
type Config struct {
	Server         ServerConfig          `mapstructure:"server"`
	Logging        LoggingConfig         `mapstructure:"logging"`
	Kroger         kroger.Config         `mapstructure:"kroger"`
	Places         places.Config         `mapstructure:"places"`
	Search         search.Config         `mapstructure:"search"`
	Upstream       ratelimit.Config      `mapstructure:"upstream"`
	CircuitBreaker resilience.Config     `mapstructure:"circuit_breaker"`
	RateLimit      RateLimitConfig       `mapstructure:"rate_limit"`
	Telemetry      TelemetryConfig       `mapstructure:"telemetry"`
	Stores         []types.StoreLocation `mapstructure:"stores"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RateLimitConfig holds inbound per-client rate limiting configuration.
// A rate of zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		// .env is optional
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix("PRICE_SEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Kroger.ClientID = strings.TrimSpace(cfg.Kroger.ClientID)
	cfg.Kroger.ClientSecret = strings.TrimSpace(cfg.Kroger.ClientSecret)
	cfg.Places.APIKey = strings.TrimSpace(cfg.Places.APIKey)

	return &cfg, nil
}

// loadEnvFile loads the first .env file found by parsing KEY=VALUE lines.
// Variables already present in the environment are not overwritten.
func loadEnvFile() error {
	envPaths := []string{
		".",
		"./config",
	}

	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			if _, exists := os.LookupEnv(key); !exists {
				os.Setenv(key, value)
			}
		}
	}
	return scanner.Err()
}

// bindEnvVars binds the conventional environment variable names
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")

	// Primary pricing source
	v.BindEnv("kroger.client_id", "KROGER_CLIENT_ID", "KrogerClientId")
	v.BindEnv("kroger.client_secret", "KROGER_CLIENT_SECRET", "KrogerClientSecret")
	v.BindEnv("kroger.base_url", "KROGER_BASE_URL")

	// Places source
	v.BindEnv("places.api_key", "GOOGLE_MAPS_API_KEY", "GoogleMapsApiKey")

	// Telemetry
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.service_name", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.environment", "ENVIRONMENT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Primary source defaults
	k := kroger.DefaultConfig()
	v.SetDefault("kroger.client_id", "")
	v.SetDefault("kroger.client_secret", "")
	v.SetDefault("kroger.base_url", k.BaseURL)
	v.SetDefault("kroger.token_url", "")
	v.SetDefault("kroger.scope", k.Scope)
	v.SetDefault("kroger.radius_miles", k.RadiusMiles)
	v.SetDefault("kroger.timeout", k.Timeout)

	// Places defaults
	p := places.DefaultConfig()
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", p.BaseURL)
	v.SetDefault("places.radius_meters", p.RadiusMeters)
	v.SetDefault("places.type", p.Type)
	v.SetDefault("places.keyword", p.Keyword)
	v.SetDefault("places.timeout", p.Timeout)

	// Search defaults
	s := search.DefaultConfig()
	v.SetDefault("search.max_primary_locations", s.MaxPrimaryLocations)
	v.SetDefault("search.primary_concurrency", s.PrimaryConcurrency)
	v.SetDefault("search.nearest_fallback_stores", s.NearestFallbackStores)
	v.SetDefault("search.unlocated_fallback_stores", s.UnlocatedFallbackStores)

	// Outbound defaults
	u := ratelimit.DefaultConfig()
	v.SetDefault("upstream.requests_per_second", u.RequestsPerSecond)
	v.SetDefault("upstream.burst", u.Burst)
	v.SetDefault("upstream.max_retries", u.MaxRetries)
	v.SetDefault("upstream.initial_backoff_ms", u.InitialBackoffMs)
	v.SetDefault("upstream.max_backoff_ms", u.MaxBackoffMs)

	// Circuit breaker defaults
	cb := resilience.DefaultConfig()
	v.SetDefault("circuit_breaker.max_failures", cb.MaxFailures)
	v.SetDefault("circuit_breaker.reset_timeout", cb.ResetTimeout)
	v.SetDefault("circuit_breaker.half_open_max_calls", cb.HalfOpenMaxCalls)

	// Inbound rate limit is off unless configured; the search API answers
	// every request with 200.
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 0)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "price-search")
	v.SetDefault("telemetry.environment", "production")
}
