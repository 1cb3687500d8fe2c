package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the identity provider.
type AuthMode string

const (
	// AuthModeDev uses the in-process account directory (development and tests).
	AuthModeDev AuthMode = "dev"
	// AuthModeIdentityToolkit uses the managed Identity Toolkit REST API.
	AuthModeIdentityToolkit AuthMode = "identitytoolkit"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "dev", "identitytoolkit":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: dev, identitytoolkit)", v)
	}
}

// DevAuthConfig controls the in-process identity provider.
// Used when AUTH_MODE=dev.
type DevAuthConfig struct {
	MinPasswordLength int           `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
	MaxFailedAttempts int           `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutWindow     time.Duration `env:"LOCKOUT_WINDOW"      envDefault:"15m"`
	TokenSecret       string        `env:"TOKEN_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL"           envDefault:"1h"`

	// SeedAccounts are "email:password:role" triples created at startup.
	SeedAccounts []string `env:"SEED_ACCOUNTS" envSeparator:";"`
}

// IdentityToolkitConfig configures the managed identity provider.
// Used when AUTH_MODE=identitytoolkit.
type IdentityToolkitConfig struct {
	APIKey    string        `env:"API_KEY"`
	ProjectID string        `env:"PROJECT_ID"`
	BaseURL   string        `env:"BASE_URL"`
	JWKSURL   string        `env:"JWKS_URL"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"10s"`
}

// RolesConfig controls how an account's role is decided at registration.
type RolesConfig struct {
	// Policy is hybrid, allowlist, or form.
	Policy string `env:"POLICY" envDefault:"hybrid"`

	Admins  []string `env:"ADMIN_EMAILS"  envSeparator:","`
	Authors []string `env:"AUTHOR_EMAILS" envSeparator:","`
	Artists []string `env:"ARTIST_EMAILS" envSeparator:","`

	// AllowlistFile is an optional YAML allowlist reloaded on change.
	AllowlistFile string `env:"ALLOWLIST_FILE"`

	// ClaimExpr is a JMESPath expression over identity token claims.
	ClaimExpr string `env:"CLAIM_EXPR"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"dev"`

	DevAuth         DevAuthConfig         `envPrefix:"DEV_AUTH_"`
	IdentityToolkit IdentityToolkitConfig `envPrefix:"IDENTITY_TOOLKIT_"`
	Roles           RolesConfig           `envPrefix:"ROLES_"`
}

// Sanitize trims list entries and clamps provider limits.
func (c *AuthConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = AuthModeDev
	}
	if c.DevAuth.MinPasswordLength < 6 {
		c.DevAuth.MinPasswordLength = 6
	}
	if c.DevAuth.MaxFailedAttempts <= 0 {
		c.DevAuth.MaxFailedAttempts = 5
	}
	if c.IdentityToolkit.Timeout <= 0 {
		c.IdentityToolkit.Timeout = 10 * time.Second
	}
	c.IdentityToolkit.APIKey = strings.TrimSpace(c.IdentityToolkit.APIKey)
	c.IdentityToolkit.ProjectID = strings.TrimSpace(c.IdentityToolkit.ProjectID)

	c.Roles.Policy = strings.ToLower(strings.TrimSpace(c.Roles.Policy))
	c.Roles.Admins = compact(c.Roles.Admins)
	c.Roles.Authors = compact(c.Roles.Authors)
	c.Roles.Artists = compact(c.Roles.Artists)
	c.Roles.AllowlistFile = strings.TrimSpace(c.Roles.AllowlistFile)
	c.Roles.ClaimExpr = strings.TrimSpace(c.Roles.ClaimExpr)
	c.DevAuth.SeedAccounts = compact(c.DevAuth.SeedAccounts)
}

// Validate reports settings the selected mode cannot run without.
func (c *AuthConfig) Validate() error {
	if c.Mode == AuthModeIdentityToolkit {
		if c.IdentityToolkit.APIKey == "" {
			return fmt.Errorf("IDENTITY_TOOLKIT_API_KEY is required when AUTH_MODE=%s", c.Mode)
		}
		if c.IdentityToolkit.ProjectID == "" {
			return fmt.Errorf("IDENTITY_TOOLKIT_PROJECT_ID is required when AUTH_MODE=%s", c.Mode)
		}
	}
	return nil
}

// compact trims entries and drops empty ones.
func compact(list []string) []string {
	out := list[:0]
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
