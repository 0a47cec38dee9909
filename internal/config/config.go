package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/creditline/internal/auth"
	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
	"github.com/davidbz/creditline/internal/payment"
	"github.com/davidbz/creditline/internal/upstream"
	"github.com/davidbz/creditline/internal/usage"
)

const (
	environmentProduction  = "production"
	environmentDevelopment = "development"
)

// ErrMissingSetting is returned by Validate when a required value is absent.
var ErrMissingSetting = errors.New("required setting is missing")

// Config represents the service configuration.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	Server   ServerConfig
	CORS     CORSConfig
	Log      observability.LogConfig
	Upstream upstream.Config
	Auth     auth.Config
	Ledger   LedgerConfig
	Pricing  PricingConfig
	Usage    usage.Config
	Payment  payment.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"120"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	ExposedHeaders   []string `env:"CORS_EXPOSED_HEADERS"   envSeparator:"," envDefault:"X-Response-Time,X-User-Remaining,X-Credits-Consumed,X-Request-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// LedgerConfig selects and configures the balance store.
type LedgerConfig struct {
	// Backend is one of "sql", "redis" or "memory".
	Backend        string `env:"LEDGER_BACKEND"         envDefault:"sql"`
	DatabaseURL    string `env:"DATABASE_URL"           envDefault:"file:data/creditline.db"`
	RedisAddr      string `env:"REDIS_ADDR"             envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB"               envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"       envDefault:"balance:"`
	DefaultBalance string `env:"LEDGER_DEFAULT_BALANCE" envDefault:"5"`
}

// PricingConfig points at an optional YAML pricing override file.
type PricingConfig struct {
	File string `env:"PRICING_FILE"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server   *ServerConfig
	CORS     *CORSConfig
	Log      *observability.LogConfig
	Upstream *upstream.Config
	Auth     *auth.Config
	Ledger   *LedgerConfig
	Pricing  *PricingConfig
	Usage    *usage.Config
	Payment  *payment.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Server:   &cfg.Server,
		CORS:     &cfg.CORS,
		Log:      &cfg.Log,
		Upstream: &cfg.Upstream,
		Auth:     &cfg.Auth,
		Ledger:   &cfg.Ledger,
		Pricing:  &cfg.Pricing,
		Usage:    &cfg.Usage,
		Payment:  &cfg.Payment,
	}
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, environmentProduction)
}

// IsDevelopment reports whether local development helpers may be mounted.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, environmentDevelopment)
}

// Validate checks the settings the service cannot start without.
// Error messages name the variable, never its value.
func (c *Config) Validate() error {
	var problems []error

	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, fmt.Errorf("%w: %s", ErrMissingSetting, name))
		}
	}

	require(c.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	require(c.Upstream.APIKey, "UPSTREAM_API_KEY")
	require(c.Upstream.DefaultModel, "UPSTREAM_DEFAULT_MODEL")
	require(c.Auth.JWTSecret, "AUTH_JWT_SECRET")

	if c.Auth.DevBypass && c.IsProduction() {
		problems = append(problems, errors.New("AUTH_DEV_BYPASS cannot be enabled when APP_ENV=production"))
	}

	switch c.Ledger.Backend {
	case "sql":
		require(c.Ledger.DatabaseURL, "DATABASE_URL")
	case "redis":
		require(c.Ledger.RedisAddr, "REDIS_ADDR")
	case "memory":
		if c.IsProduction() {
			problems = append(problems, errors.New("LEDGER_BACKEND=memory cannot be used when APP_ENV=production"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}

	if _, err := domain.ParseAmount(c.Ledger.DefaultBalance); err != nil {
		problems = append(problems, fmt.Errorf("LEDGER_DEFAULT_BALANCE: %w", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(problems...))
	}

	return nil
}
