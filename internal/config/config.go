// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/tenkimap/tenkimap/internal/database"
)

// Config is the full service configuration.
type Config struct {
	Port       string
	Env        string
	Version    string
	RequireTLS bool

	OTELEnabled     bool
	OTLPEndpoint    string
	OTELSampleRatio float64

	GeocodingBaseURL  string
	GeocodingLanguage string
	ForecastBaseURL   string
	ForecastTimezone  string

	UpstreamTimeout          time.Duration
	UpstreamMaxRetries       int
	UpstreamBreakerThreshold int

	DefaultPlace string
	MapTileURL   string
	MapZoom      int

	SessionTTL time.Duration

	AdminJWTSigningKey string

	Database database.Config
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the given .env files (default ".env") into the environment
// without overriding variables already set, then parses the environment.
// Missing .env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading env file: %w", err)
	}

	p := &parser{}
	cfg := Config{
		Port:       getEnvOrDefault("APP_PORT", "8080"),
		Env:        getEnvOrDefault("APP_ENV", "development"),
		Version:    getEnvOrDefault("APP_VERSION", "dev"),
		RequireTLS: p.bool("REQUIRE_TLS", false),

		OTELEnabled:     p.bool("OTEL_ENABLED", false),
		OTLPEndpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELSampleRatio: p.float("OTEL_SAMPLE_RATIO", 1),

		GeocodingBaseURL:  getEnvOrDefault("GEOCODING_BASE_URL", "https://geocoding-api.open-meteo.com"),
		GeocodingLanguage: getEnvOrDefault("GEOCODING_LANGUAGE", "ja"),
		ForecastBaseURL:   getEnvOrDefault("FORECAST_BASE_URL", "https://api.open-meteo.com"),
		ForecastTimezone:  getEnvOrDefault("FORECAST_TIMEZONE", "Asia/Tokyo"),

		UpstreamTimeout:          p.duration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamMaxRetries:       p.int("UPSTREAM_MAX_RETRIES", 0),
		UpstreamBreakerThreshold: p.int("UPSTREAM_BREAKER_THRESHOLD", 0),

		DefaultPlace: getEnvOrDefault("DEFAULT_PLACE", "東京"),
		MapTileURL:   getEnvOrDefault("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
		MapZoom:      p.int("MAP_ZOOM", 10),

		SessionTTL: p.duration("SESSION_TTL", 30*time.Minute),

		AdminJWTSigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),

		Database: database.Config{
			Host:            os.Getenv("DB_HOST"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnvOrDefault("DB_USER", "tenkimap"),
			Password:        getEnvOrDefault("DB_PASSWORD", "localdev"),
			Database:        getEnvOrDefault("DB_NAME", "tenkimap"),
			SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns:        p.int("DB_MAX_OPEN_CONNS", 10),
			MinConns:        p.int("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}

	if p.err != nil {
		return Config{}, p.err
	}

	if cfg.UpstreamMaxRetries < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative, got %d", cfg.UpstreamMaxRetries)
	}
	if cfg.UpstreamBreakerThreshold < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_BREAKER_THRESHOLD must not be negative, got %d", cfg.UpstreamBreakerThreshold)
	}
	if cfg.MapZoom < 0 || cfg.MapZoom > 19 {
		return Config{}, fmt.Errorf("MAP_ZOOM must be between 0 and 19, got %d", cfg.MapZoom)
	}
	if cfg.IsProduction() && cfg.AdminJWTSigningKey == "" {
		return Config{}, errors.New("ADMIN_JWT_SIGNING_KEY is required in production")
	}

	return cfg, nil
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) float(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
