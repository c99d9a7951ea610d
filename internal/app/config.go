package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Event bus backends.
const (
	EventBusRedis = "redis"
	EventBusLocal = "local"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"0s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	PactumAPIURL      string        `envconfig:"PACTUM_API_URL" default:"http://127.0.0.1:8000/api"`
	PactumAPITimeout  time.Duration `envconfig:"PACTUM_API_TIMEOUT" default:"20s"`
	FinanceAdminEmail string        `envconfig:"FINANCE_ADMIN_EMAIL" default:"admin@pactum.com"`

	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	EventBus           string        `envconfig:"EVENT_BUS" default:"redis"`
	EventHeartbeat     time.Duration `envconfig:"EVENT_HEARTBEAT" default:"25s"`
}

// LoadConfig reads configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	c.PactumAPIURL = strings.TrimRight(c.PactumAPIURL, "/")
	if !strings.HasPrefix(c.PactumAPIURL, "http://") && !strings.HasPrefix(c.PactumAPIURL, "https://") {
		return fmt.Errorf("PACTUM_API_URL must be an http(s) URL, got %q", c.PactumAPIURL)
	}
	switch c.EventBus {
	case EventBusRedis, EventBusLocal:
	default:
		return fmt.Errorf("EVENT_BUS must be %q or %q, got %q", EventBusRedis, EventBusLocal, c.EventBus)
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
