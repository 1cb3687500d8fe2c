package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parse(t *testing.T) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse: %v", err)
	}
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("DEV", "false")

	cfg := parse(t)

	if cfg.IsDev {
		t.Fatalf("expected production mode by default")
	}
	if cfg.Auth.Mode != AuthModeDev {
		t.Errorf("expected auth mode dev, got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.Roles.Policy != "hybrid" {
		t.Errorf("expected hybrid role policy, got %q", cfg.Auth.Roles.Policy)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Backend)
	}
	if cfg.Profiles.Backend != ProfileBackendPostgres {
		t.Errorf("expected postgres profiles, got %q", cfg.Profiles.Backend)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.PagesPrefix != "/pages/" {
		t.Errorf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Sessions.IdleTTL != 30*time.Minute || cfg.Sessions.SweepInterval != time.Minute {
		t.Errorf("unexpected session defaults: %+v", cfg.Sessions)
	}
	if len(cfg.HTTP.WebsocketOrigins) != 0 {
		t.Errorf("expected no websocket origins outside dev, got %v", cfg.HTTP.WebsocketOrigins)
	}
	if !cfg.NeedsPostgres() || cfg.NeedsRedis() {
		t.Errorf("expected postgres only, got postgres=%v redis=%v", cfg.NeedsPostgres(), cfg.NeedsRedis())
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "IdentityToolkit")
	t.Setenv("IDENTITY_TOOLKIT_API_KEY", " key-123 ")
	t.Setenv("IDENTITY_TOOLKIT_PROJECT_ID", "rejoice-house")
	t.Setenv("ROLES_POLICY", " Allowlist ")
	t.Setenv("ROLES_ADMIN_EMAILS", " admin@rejoice.org , ,ops@rejoice.org")
	t.Setenv("ROLES_AUTHOR_EMAILS", "author@rejoice.org")
	t.Setenv("ROLES_CLAIM_EXPR", " custom_role ")
	t.Setenv("DEV_AUTH_SEED_ACCOUNTS", "a@rejoice.org:secret1:admin; ;b@rejoice.org:secret2:")

	cfg := parse(t)

	if cfg.Auth.Mode != AuthModeIdentityToolkit {
		t.Fatalf("expected identitytoolkit mode, got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.IdentityToolkit.APIKey != "key-123" {
		t.Errorf("expected trimmed API key, got %q", cfg.Auth.IdentityToolkit.APIKey)
	}
	if cfg.Auth.Roles.Policy != "allowlist" {
		t.Errorf("expected normalized policy, got %q", cfg.Auth.Roles.Policy)
	}
	wantAdmins := []string{"admin@rejoice.org", "ops@rejoice.org"}
	if len(cfg.Auth.Roles.Admins) != len(wantAdmins) {
		t.Fatalf("expected admins %v, got %v", wantAdmins, cfg.Auth.Roles.Admins)
	}
	for i, a := range wantAdmins {
		if cfg.Auth.Roles.Admins[i] != a {
			t.Errorf("admin %d: expected %q, got %q", i, a, cfg.Auth.Roles.Admins[i])
		}
	}
	if cfg.Auth.Roles.Artists != nil {
		t.Errorf("expected no artists, got %v", cfg.Auth.Roles.Artists)
	}
	if cfg.Auth.Roles.ClaimExpr != "custom_role" {
		t.Errorf("expected trimmed claim expression, got %q", cfg.Auth.Roles.ClaimExpr)
	}
	if len(cfg.Auth.DevAuth.SeedAccounts) != 2 {
		t.Errorf("expected 2 seed accounts, got %v", cfg.Auth.DevAuth.SeedAccounts)
	}
	if err := cfg.Auth.Validate(); err != nil {
		t.Errorf("expected valid auth config, got %v", err)
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModeIdentityToolkit}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without API key")
	}
	cfg.IdentityToolkit.APIKey = "key"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without project id")
	}
	cfg.IdentityToolkit.ProjectID = "p"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dev := AuthConfig{Mode: AuthModeDev}
	if err := dev.Validate(); err != nil {
		t.Fatalf("dev mode needs no settings, got %v", err)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"AUTH_MODE", "oauth"},
		{"CACHE_BACKEND", "memcached"},
		{"PROFILES_BACKEND", "mongo"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			var cfg AppConfig
			if err := env.Parse(&cfg); err == nil {
				t.Fatalf("expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestAppConfig_Backends(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("PROFILES_BACKEND", "firestore")
	t.Setenv("PROFILES_FIRESTORE_PROJECT_ID", " rejoice-house ")

	cfg := parse(t)

	if !cfg.NeedsRedis() || cfg.NeedsPostgres() {
		t.Fatalf("expected redis only, got postgres=%v redis=%v", cfg.NeedsPostgres(), cfg.NeedsRedis())
	}
	if cfg.Profiles.Firestore.ProjectID != "rejoice-house" {
		t.Errorf("expected trimmed project id, got %q", cfg.Profiles.Firestore.ProjectID)
	}
	if cfg.Profiles.Firestore.Collection != "users" {
		t.Errorf("expected users collection, got %q", cfg.Profiles.Firestore.Collection)
	}
	if err := cfg.Profiles.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := ProfilesConfig{Backend: ProfileBackendFirestore}
	if err := missing.Validate(); err == nil {
		t.Errorf("expected error without firestore project id")
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("DEV", "false")
	t.Setenv("NODE_ENV", "Development")

	cfg := parse(t)

	if !cfg.IsDev {
		t.Fatalf("expected NODE_ENV=development to enable dev mode")
	}
	if len(cfg.HTTP.WebsocketOrigins) == 0 {
		t.Errorf("expected local websocket origins in dev mode")
	}
}

func TestAppConfig_LogLevel(t *testing.T) {
	cfg := AppConfig{LogLevel: " DEBUG "}
	cfg.Sanitize()
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %q", cfg.LogLevel)
	}

	cfg = AppConfig{LogLevel: "verbose"}
	cfg.Sanitize()
	if cfg.LogLevel != "info" {
		t.Errorf("expected unknown level to fall back to info, got %q", cfg.LogLevel)
	}
}

func TestSessionsConfig_Sanitize(t *testing.T) {
	cfg := SessionsConfig{IdleTTL: 5 * time.Minute, SweepInterval: time.Hour}
	cfg.Sanitize()
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("expected sweep clamped to idle ttl, got %s", cfg.SweepInterval)
	}

	cfg = SessionsConfig{}
	cfg.Sanitize()
	if cfg.IdleTTL != 30*time.Minute || cfg.SweepInterval != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	cfg := DBConfig{MaxOpenConns: 4, MaxIdleConns: 9}
	cfg.Sanitize()
	if cfg.MaxIdleConns != 4 {
		t.Errorf("expected idle conns capped at open conns, got %d", cfg.MaxIdleConns)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("expected disable ssl mode default, got %q", cfg.SSLMode)
	}
}

func TestLocalCacheConfig_Sanitize(t *testing.T) {
	cfg := LocalCacheConfig{TTL: -time.Second, SQLitePath: "  "}
	cfg.Sanitize()
	if cfg.Backend != CacheBackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.Backend)
	}
	if cfg.TTL != 0 {
		t.Errorf("expected negative ttl to disable expiry, got %s", cfg.TTL)
	}
	if cfg.Capacity != 10000 || cfg.SQLitePath != "rejoice-cache.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".rejoice.web.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "rejoice.web" {
		t.Fatalf("expected prefix dots trimmed, got %q", cfg.Prefix)
	}
}
