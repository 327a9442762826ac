package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Mongo   MongoConfig
	Tenant  TenantConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Retry   RetryConfig
	Audit   AuditConfig
	Session SessionConfig
}

// MongoConfig points at the control store.
type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=recordkeeper_control"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

// TenantConfig bounds per-tenant pools. URI defaults to the control store's.
type TenantConfig struct {
	URI         string        `env:"TENANT_MONGO_URI"`
	StorePrefix string        `env:"TENANT_STORE_PREFIX,      default=rk_ws_"`
	PoolSize    uint64        `env:"TENANT_POOL_SIZE,         default=2"`
	Overflow    uint64        `env:"TENANT_POOL_OVERFLOW,     default=3"`
	IdleRecycle time.Duration `env:"TENANT_POOL_IDLE_RECYCLE, default=30m"`
	OpenTimeout time.Duration `env:"TENANT_POOL_OPEN_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type AuthConfig struct {
	CacheSize   int           `env:"AUTH_CACHE_SIZE,    default=1024"`
	CacheTTL    time.Duration `env:"AUTH_CACHE_TTL,     default=5m"`
	OAuthSecret string        `env:"OAUTH_JWT_SECRET"`
	OAuthIssuer string        `env:"OAUTH_ISSUER"`
	TouchEvery  time.Duration `env:"AUTH_TOUCH_INTERVAL, default=1m"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS, default=3"`
	BaseDelay   time.Duration `env:"RETRY_BASE_DELAY,   default=500ms"`
	MaxDelay    time.Duration `env:"RETRY_MAX_DELAY,    default=10s"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS,      default=2"`
	Buffer  int `env:"AUDIT_QUEUE_BUFFER, default=1024"`
}

// SessionConfig selects where active-workspace overrides live:
// "memory" (process-local) or "redis" (shared by all replicas).
type SessionConfig struct {
	Backend     string        `env:"SESSION_BACKEND,      default=memory"`
	OverrideTTL time.Duration `env:"SESSION_OVERRIDE_TTL, default=24h"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	if cfg.Tenant.URI == "" {
		cfg.Tenant.URI = cfg.Mongo.URI
	}
	return &cfg
}

// Validate rejects settings the service must not start with. A missing
// control store is fatal: there is no degraded mode.
func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("control store is not configured (MONGO_URI, MONGO_DB)"))
	}
	if c.Tenant.StorePrefix == "" {
		errs = append(errs, errors.New("TENANT_STORE_PREFIX must not be empty"))
	}
	if c.Tenant.PoolSize == 0 {
		errs = append(errs, errors.New("TENANT_POOL_SIZE must be at least 1"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Auth.OAuthSecret != "" && c.Auth.OAuthIssuer == "" {
		errs = append(errs, errors.New("OAUTH_ISSUER is required when OAUTH_JWT_SECRET is set"))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", c.Session.Backend))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Session.Backend == "redis"
}
