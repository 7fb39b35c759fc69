// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration for cmd/server and cmd/whalectl.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Storage StorageConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Feed    FeedConfig
	Engine  EngineConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"whale-index-lab"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Addr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	RateLimitRPS float64       `envconfig:"HTTP_RATE_LIMIT_RPS" default:"20"`
	RateBurst    int           `envconfig:"HTTP_RATE_BURST" default:"40"`
	CORSOrigins  []string      `envconfig:"HTTP_CORS_ORIGINS" default:"*"`
}

// StorageConfig selects the persistence backend. With UseMemory unset both
// DSNs are required.
type StorageConfig struct {
	UseMemory     bool   `envconfig:"STORAGE_USE_MEMORY" default:"true"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"`
}

// RedisConfig enables the shared cache when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type CacheConfig struct {
	TTL       time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	KeyPrefix string        `envconfig:"CACHE_KEY_PREFIX" default:"whale:"`
}

type FeedConfig struct {
	MetricsURL      string        `envconfig:"FEED_METRICS_URL"`
	PriceURL        string        `envconfig:"FEED_PRICE_URL"`
	Timeout         time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`
	MaxRetries      int           `envconfig:"FEED_MAX_RETRIES" default:"3"`
	RetryBackoff    time.Duration `envconfig:"FEED_RETRY_BACKOFF" default:"1s"`
	UseFixtures     bool          `envconfig:"FEED_USE_FIXTURES" default:"false"`
	FixtureDays     int           `envconfig:"FEED_FIXTURE_DAYS" default:"365"`
	RefreshInterval time.Duration `envconfig:"FEED_REFRESH_INTERVAL" default:"1h"`
}

// EngineConfig points at an optional YAML file overriding engine defaults.
type EngineConfig struct {
	ConfigPath string `envconfig:"ENGINE_CONFIG"`
}

// Load reads configuration from environment variables and validates it.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv is Load without validation, for callers that apply flag
// overrides first.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "") {
		return fmt.Errorf("config: POSTGRES_DSN and CLICKHOUSE_DSN are required unless STORAGE_USE_MEMORY is set")
	}
	if !c.Feed.UseFixtures && c.Feed.MetricsURL == "" {
		return fmt.Errorf("config: FEED_METRICS_URL is required unless FEED_USE_FIXTURES is set")
	}
	if c.Feed.UseFixtures && c.Feed.FixtureDays < 1 {
		return fmt.Errorf("config: FEED_FIXTURE_DAYS must be >= 1, got %d", c.Feed.FixtureDays)
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateBurst < 1 {
		return fmt.Errorf("config: rate limit must be positive")
	}
	return nil
}
