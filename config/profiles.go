package config

import (
	"fmt"
	"strings"
	"time"
)

// ProfileBackend selects the durable profile document store.
type ProfileBackend string

const (
	ProfileBackendMemory    ProfileBackend = "memory"
	ProfileBackendPostgres  ProfileBackend = "postgres"
	ProfileBackendFirestore ProfileBackend = "firestore"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileBackend.
func (b *ProfileBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "postgres", "firestore":
		*b = ProfileBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileBackend: %q (valid options: memory, postgres, firestore)", v)
	}
}

// FirestoreConfig configures the Firestore REST profile store.
type FirestoreConfig struct {
	ProjectID       string        `env:"PROJECT_ID"`
	Database        string        `env:"DATABASE"         envDefault:"(default)"`
	Collection      string        `env:"COLLECTION"       envDefault:"users"`
	BaseURL         string        `env:"BASE_URL"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	Timeout         time.Duration `env:"TIMEOUT"          envDefault:"10s"`
}

// ProfilesConfig groups profile store settings.
type ProfilesConfig struct {
	Backend   ProfileBackend  `env:"BACKEND" envDefault:"postgres"`
	Firestore FirestoreConfig `envPrefix:"FIRESTORE_"`
}

// Sanitize applies defaults for unset values.
func (c *ProfilesConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = ProfileBackendPostgres
	}
	c.Firestore.ProjectID = strings.TrimSpace(c.Firestore.ProjectID)
	if c.Firestore.Collection == "" {
		c.Firestore.Collection = "users"
	}
	if c.Firestore.Timeout <= 0 {
		c.Firestore.Timeout = 10 * time.Second
	}
}

// Validate reports settings the selected backend cannot run without.
func (c *ProfilesConfig) Validate() error {
	if c.Backend == ProfileBackendFirestore && c.Firestore.ProjectID == "" {
		return fmt.Errorf("PROFILES_FIRESTORE_PROJECT_ID is required when PROFILES_BACKEND=%s", c.Backend)
	}
	return nil
}
