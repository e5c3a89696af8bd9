package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads .env (if present), configs/config.yaml (if present) and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/configs")

	return load(v)
}

// LoadFile reads an explicit config file plus the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	_ = v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	_ = v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	_ = v.BindEnv("events.url", "NATS_URL", "AMQP_URL", "APP_EVENTS_URL")
	_ = v.BindEnv("app.environment", "APP_ENVIRONMENT")
	_ = v.BindEnv("logging.level", "LOG_LEVEL", "APP_LOGGING_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "concierge")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("assistant.reply_delay", 1200*time.Millisecond)
	v.SetDefault("assistant.session_idle_ttl", 30*time.Minute)
	v.SetDefault("assistant.evict_interval", time.Minute)
	v.SetDefault("assistant.max_sessions", 10000)
	v.SetDefault("assistant.snapshot_ttl", time.Hour)
	v.SetDefault("assistant.voice_enabled", true)
	v.SetDefault("assistant.catalog_path", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "")

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.url", "")
	v.SetDefault("events.subject_prefix", "concierge.events")
	v.SetDefault("events.exchange", "concierge")

	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("opentelemetry.service_name", "concierge")

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rate_limiting.enabled", true)
	v.SetDefault("rate_limiting.max_requests", 120)
	v.SetDefault("rate_limiting.window", time.Minute)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("region.timezone", "America/Sao_Paulo")
	v.SetDefault("region.locale", "pt-BR")
}
