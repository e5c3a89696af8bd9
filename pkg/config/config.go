package config

import (
	"fmt"
	"time"
)

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Assistant      AssistantConfig      `mapstructure:"assistant"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Events         EventsConfig         `mapstructure:"events"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimiting   RateLimitingConfig   `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Region         RegionConfig         `mapstructure:"region"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AssistantConfig tunes the dialogue sessions
type AssistantConfig struct {
	ReplyDelay     time.Duration `mapstructure:"reply_delay"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
	EvictInterval  time.Duration `mapstructure:"evict_interval"`
	MaxSessions    int           `mapstructure:"max_sessions"`
	CatalogPath    string        `mapstructure:"catalog_path"`
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
	VoiceEnabled   bool          `mapstructure:"voice_enabled"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// EventsConfig selects the broker side-channel events are published to
type EventsConfig struct {
	Driver        string `mapstructure:"driver"` // none, nats or rabbitmq
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Exchange      string `mapstructure:"exchange"`
}

type OpenTelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      int           `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	ExposeHeaders  []string `mapstructure:"expose_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}

// RegionConfig only affects how message timestamps are displayed
type RegionConfig struct {
	Timezone string `mapstructure:"timezone"`
	Locale   string `mapstructure:"locale"`
}

// Location resolves the configured timezone, falling back to UTC
func (r RegionConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Assistant.ReplyDelay < 0 {
		return fmt.Errorf("assistant.reply_delay must not be negative")
	}
	switch c.Events.Driver {
	case "", "none":
	case "nats", "rabbitmq":
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required for driver %q", c.Events.Driver)
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when redis is enabled")
	}
	return nil
}
