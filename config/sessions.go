package config

import "time"

// SessionsConfig controls the per-client session registry.
type SessionsConfig struct {
	// IdleTTL closes a client's session store after this long without a request.
	IdleTTL time.Duration `env:"IDLE_TTL" envDefault:"30m"`

	// SweepInterval is how often idle stores are looked for.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize keeps the sweep from running more often than stores can expire.
func (c *SessionsConfig) Sanitize() {
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepInterval > c.IdleTTL {
		c.SweepInterval = c.IdleTTL
	}
}
