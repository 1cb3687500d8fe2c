package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheBackend selects where the per-client "current user" snapshot lives.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
	CacheBackendSQLite CacheBackend = "sqlite"
)

// UnmarshalText implements encoding.TextUnmarshaler for CacheBackend.
func (b *CacheBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis", "sqlite":
		*b = CacheBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CacheBackend: %q (valid options: memory, redis, sqlite)", v)
	}
}

// LocalCacheConfig configures the session snapshot cache.
type LocalCacheConfig struct {
	Backend CacheBackend `env:"BACKEND" envDefault:"memory"`

	// TTL bounds how long a snapshot survives without a write. Zero keeps
	// snapshots until removed (memory and sqlite only).
	TTL time.Duration `env:"TTL" envDefault:"720h"`

	// Capacity caps the memory backend.
	Capacity int `env:"CAPACITY" envDefault:"10000"`

	// Prefix namespaces redis keys.
	Prefix string `env:"PREFIX" envDefault:"rejoice:cache:"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"rejoice-cache.db"`

	// PruneInterval is how often the sqlite backend drops expired rows.
	PruneInterval time.Duration `env:"PRUNE_INTERVAL" envDefault:"10m"`
}

// Sanitize applies defaults for unset or invalid values.
func (c *LocalCacheConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = CacheBackendMemory
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = 10 * time.Minute
	}
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
	if c.SQLitePath == "" {
		c.SQLitePath = "rejoice-cache.db"
	}
}
