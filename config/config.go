package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: identity provider and role policy
//   - database.go: Postgres and Redis connections
//   - cache.go: per-client session cache backend
//   - profiles.go: profile document store backend
//   - http.go: HTTP server configuration
//   - sessions.go: session registry lifetimes
type AppConfig struct {
	// IsDev switches to console logging and relaxes cookie security.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Cache    LocalCacheConfig `envPrefix:"CACHE_"`
	Profiles ProfilesConfig   `envPrefix:"PROFILES_"`

	HTTP     HTTPConfig
	Sessions SessionsConfig `envPrefix:"SESSIONS_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	c.Auth.Sanitize()
	c.Postgres.Sanitize()
	c.Cache.Sanitize()
	c.Profiles.Sanitize()
	c.HTTP.Sanitize(c.IsDev)
	c.Sessions.Sanitize()
	c.Observability.Sanitize()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// NeedsPostgres reports whether any selected backend stores data in Postgres.
func (c *AppConfig) NeedsPostgres() bool {
	return c.Profiles.Backend == ProfileBackendPostgres
}

// NeedsRedis reports whether any selected backend uses Redis.
func (c *AppConfig) NeedsRedis() bool {
	return c.Cache.Backend == CacheBackendRedis
}
