package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rejoiceinstitute/rejoice-web/config"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/authroles"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/devauth"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/firestore"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/identitytoolkit"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/memory"
	redisadapter "github.com/rejoiceinstitute/rejoice-web/internal/adapters/redis"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/sqlite"
	"github.com/rejoiceinstitute/rejoice-web/internal/data"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/statsd"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// BuildConnector creates the identity provider selected by cfg.Mode.
//
//nolint:ireturn // provider chosen at runtime.
func BuildConnector(cfg config.AuthConfig) (ports.IdentityConnector, error) {
	switch cfg.Mode {
	case config.AuthModeIdentityToolkit:
		it := cfg.IdentityToolkit
		client, err := identitytoolkit.NewClient(identitytoolkit.Config{
			APIKey:    it.APIKey,
			ProjectID: it.ProjectID,
			BaseURL:   it.BaseURL,
			JWKSURL:   it.JWKSURL,
			Timeout:   it.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("identity toolkit provider: %w", err)
		}
		return client, nil

	case config.AuthModeDev, "":
		dev := cfg.DevAuth
		dir, err := devauth.NewDirectory(devauth.Config{
			MinPasswordLength: dev.MinPasswordLength,
			MaxFailedAttempts: dev.MaxFailedAttempts,
			LockoutWindow:     dev.LockoutWindow,
			TokenSecret:       []byte(dev.TokenSecret),
			TokenTTL:          dev.TokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		return dir, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// SeedAccount is a dev account created at startup.
type SeedAccount struct {
	Email    string
	Password string
	Role     domainauth.Role
}

// ParseSeedAccount parses "email:password[:role]". The role defaults to reader.
func ParseSeedAccount(s string) (SeedAccount, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return SeedAccount{}, fmt.Errorf("seed account %q: want email:password[:role]", s)
	}
	acct := SeedAccount{Email: parts[0], Password: parts[1], Role: domainauth.RoleReader}
	if len(parts) == 3 && parts[2] != "" {
		role := domainauth.Role(strings.ToLower(parts[2]))
		if !role.IsKnown() {
			return SeedAccount{}, fmt.Errorf("seed account %q: unknown role %q", parts[0], parts[2])
		}
		acct.Role = role
	}
	return acct, nil
}

// SeedDevAccounts creates each account in dir and writes a profile for any
// account that has none yet.
func SeedDevAccounts(ctx context.Context, dir *devauth.Directory, profiles ports.ProfileStore, seeds []string, logger *slog.Logger) error {
	for _, raw := range seeds {
		acct, err := ParseSeedAccount(raw)
		if err != nil {
			return err
		}
		id, err := dir.Seed(acct.Email, acct.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", acct.Email, err)
		}
		existing, err := profiles.ReadProfile(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("seed %s: read profile: %w", acct.Email, err)
		}
		if existing != nil {
			continue
		}
		if _, err := profiles.WriteProfile(ctx, id.UserID, domainauth.Profile{
			Email:    id.Email,
			Role:     acct.Role,
			IsActive: true,
		}); err != nil {
			return fmt.Errorf("seed %s: write profile: %w", acct.Email, err)
		}
		logger.Info("seeded dev account", "email", id.Email, "role", acct.Role)
	}
	return nil
}

// BuildRoles creates the role resolver. When an allowlist file is configured
// it is loaded now and the returned watcher keeps it current.
func BuildRoles(cfg config.RolesConfig, logger *slog.Logger) (*authroles.Resolver, *authroles.FileWatcher, error) {
	policy, err := authroles.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, nil, err
	}
	static := authroles.NewAllowlist(cfg.Admins, cfg.Authors, cfg.Artists)
	resolver, err := authroles.NewResolver(authroles.Options{
		Policy:    policy,
		Allowlist: static,
		ClaimExpr: cfg.ClaimExpr,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.AllowlistFile == "" {
		return resolver, nil, nil
	}

	watcher := authroles.NewFileWatcher(authroles.FileWatcherOptions{
		Path:     cfg.AllowlistFile,
		Static:   static,
		Resolver: resolver,
		Logger:   logger,
	})
	if err := watcher.Load(); err != nil {
		return nil, nil, err
	}
	return resolver, watcher, nil
}

// BuildProfileStore creates the profile store selected by cfg.Backend.
// The postgres backend needs db.
//
//nolint:ireturn // backend chosen at runtime.
func BuildProfileStore(ctx context.Context, cfg config.ProfilesConfig, db *sql.DB) (ports.ProfileStore, error) {
	switch cfg.Backend {
	case config.ProfileBackendMemory:
		return memory.NewProfileStore(nil), nil
	case config.ProfileBackendPostgres, "":
		if db == nil {
			return nil, errors.New("postgres profile store: database not connected")
		}
		return data.NewProfileRepo(db), nil
	case config.ProfileBackendFirestore:
		fs := cfg.Firestore
		store, err := firestore.New(ctx, firestore.Config{
			ProjectID:       fs.ProjectID,
			Database:        fs.Database,
			Collection:      fs.Collection,
			BaseURL:         fs.BaseURL,
			CredentialsFile: fs.CredentialsFile,
			Timeout:         fs.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("firestore profile store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported profile backend %q", cfg.Backend)
	}
}

// BuildLocalCache creates the session snapshot cache selected by cfg.Backend.
// The redis backend needs rdb.
//
//nolint:ireturn // backend chosen at runtime.
func BuildLocalCache(cfg config.LocalCacheConfig, rdb redis.UniversalClient) (ports.LocalCache, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return memory.NewLocalCache(memory.LocalCacheConfig{Capacity: cfg.Capacity, TTL: cfg.TTL}), nil
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis cache: redis not connected")
		}
		return redisadapter.NewLocalCache(rdb, redisadapter.LocalCacheOptions{Prefix: cfg.Prefix, TTL: cfg.TTL}), nil
	case config.CacheBackendSQLite:
		cache, err := sqlite.Open(cfg.SQLitePath, sqlite.Options{TTL: cfg.TTL})
		if err != nil {
			return nil, fmt.Errorf("sqlite cache: %w", err)
		}
		return cache, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// BuildMetrics dials StatsD when metrics are enabled. The returned sink is
// nil when they are not.
//
//nolint:ireturn // nil interface signals metrics off.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, func() error, error) {
	if !cfg.IsEnabled() {
		return nil, func() error { return nil }, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("statsd client: %w", err)
	}
	logger.Info("metrics enabled", "statsd", cfg.StatsdAddress, "prefix", cfg.Prefix)
	return client, client.Close, nil
}
