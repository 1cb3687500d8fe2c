package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rejoiceinstitute/rejoice-web/config"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/authroles"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/devauth"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/memory"
	httpx "github.com/rejoiceinstitute/rejoice-web/internal/http"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/metrics"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/statsd"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// App is the assembled site: backends, the session registry, and the HTTP handler.
type App struct {
	Config   config.AppConfig
	Logger   *slog.Logger
	DB       *sql.DB
	Redis    redis.UniversalClient
	Profiles ports.ProfileStore
	Cache    ports.LocalCache
	Roles    *authroles.Resolver
	Registry *service.SessionRegistry
	Handler  http.Handler

	watcher *authroles.FileWatcher
	metrics statsd.Sink
	closers []func() error
}

// Options lets callers replace backends; tests use it to avoid real services.
type Options struct {
	Connector ports.IdentityConnector
	Profiles  ports.ProfileStore
	Cache     ports.LocalCache
	Files     http.Handler
}

// New connects the configured backends and builds the HTTP handler.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg config.AppConfig, logger *slog.Logger, opts Options) (app *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close())
			app = nil
		}
	}()

	if opts.Profiles == nil && cfg.NeedsPostgres() {
		if app.DB, err = ConnectDB(ctx, cfg.Postgres, logger); err != nil {
			return app, err
		}
		app.closers = append(app.closers, app.DB.Close)
	}
	if opts.Cache == nil && cfg.NeedsRedis() {
		if app.Redis, err = ConnectRedis(ctx, cfg.Redis, logger); err != nil {
			return app, err
		}
		app.closers = append(app.closers, app.Redis.Close)
	}

	app.Profiles = opts.Profiles
	if app.Profiles == nil {
		if app.Profiles, err = BuildProfileStore(ctx, cfg.Profiles, app.DB); err != nil {
			return app, err
		}
	}

	app.Cache = opts.Cache
	if app.Cache == nil {
		if app.Cache, err = BuildLocalCache(cfg.Cache, app.Redis); err != nil {
			return app, err
		}
		if c, ok := app.Cache.(interface{ Close() error }); ok {
			app.closers = append(app.closers, c.Close)
		}
	}

	if app.Roles, app.watcher, err = BuildRoles(cfg.Auth.Roles, logger); err != nil {
		return app, fmt.Errorf("role resolver: %w", err)
	}

	connector := opts.Connector
	if connector == nil {
		if connector, err = BuildConnector(cfg.Auth); err != nil {
			return app, err
		}
	}
	if dir, ok := connector.(*devauth.Directory); ok {
		if err = SeedDevAccounts(ctx, dir, app.Profiles, cfg.Auth.DevAuth.SeedAccounts, logger); err != nil {
			return app, err
		}
	}

	sink, closeMetrics, err := BuildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, closeMetrics)
	app.metrics = sink

	app.Registry = service.NewSessionRegistry(service.SessionRegistryOptions{
		Connector:     connector,
		Profiles:      app.Profiles,
		Cache:         app.Cache,
		Roles:         app.Roles,
		IdleTTL:       cfg.Sessions.IdleTTL,
		SweepInterval: cfg.Sessions.SweepInterval,
		Metrics:       sink,
		Logger:        logger,
	})

	lister, _ := app.Profiles.(ports.ProfileLister)
	app.Handler = httpx.NewRouter(httpx.RouterServices{
		Sessions:  app.Registry,
		Router:    service.NewRoleRouter(service.RoleRouterOptions{Logger: logger}),
		Pages:     httpx.DefaultPageURLs(cfg.HTTP.PagesPrefix),
		Profiles:  lister,
		StaticDir: cfg.HTTP.StaticDir,
		Files:     opts.Files,
		ClientCookie: httpx.ClientCookieConfig{
			Domain: cfg.HTTP.CookieDomain,
			TTL:    cfg.HTTP.ClientCookieTTL,
		},
		CSRF: httpx.CSRFConfig{
			CookieDomain:   cfg.HTTP.CookieDomain,
			TrustedOrigins: cfg.HTTP.TrustedOrigins,
		},
		OriginPatterns: cfg.HTTP.WebsocketOrigins,
		Logger:         logger,
	})

	logger.Info("site assembled",
		"auth_mode", cfg.Auth.Mode,
		"role_policy", app.Roles.Policy(),
		"profiles", cfg.Profiles.Backend,
		"cache", cfg.Cache.Backend,
	)
	return app, nil
}

// Run listens on the configured address and serves until ctx ends.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln alongside the registry sweeper, the
// allowlist watcher, and cache pruning. It returns after a graceful shutdown.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	hc := a.Config.HTTP
	server := &http.Server{
		Handler:      a.Handler,
		ReadTimeout:  hc.ReadTimeout,
		WriteTimeout: hc.WriteTimeout,
		IdleTimeout:  hc.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down HTTP server")
		timeout := hc.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error { return a.Registry.Run(gctx) })

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	if p, ok := a.Cache.(pruner); ok {
		g.Go(func() error {
			runPruner(gctx, p, a.Config.Cache.PruneInterval, a.Logger)
			return nil
		})
	}

	if f, ok := a.metrics.(flusher); ok {
		report := cacheStatsReporter(a.Cache, a.metrics)
		g.Go(func() error {
			every(gctx, metricsFlushInterval, func() {
				report()
				f.Flush()
			})
			return nil
		})
	}

	err := g.Wait()
	a.Registry.Close()
	a.Logger.Info("HTTP server stopped")
	return err
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

const metricsFlushInterval = time.Second

type flusher interface{ Flush() }

// cacheStatsReporter returns a func that emits the in-memory cache's counters
// as deltas since its previous call. Other caches report nothing.
func cacheStatsReporter(cache ports.LocalCache, sink statsd.Sink) func() {
	lru, ok := cache.(*memory.LocalCache)
	if !ok || sink == nil {
		return func() {}
	}
	var last memory.LocalCacheStats
	return func() {
		st := lru.Stats()
		metrics.EmitCacheStats(sink, "memory", metrics.CacheStats{
			Hits:      st.Hits - last.Hits,
			Misses:    st.Misses - last.Misses,
			Evictions: st.Evictions - last.Evictions,
			Size:      st.Size,
			Capacity:  st.Capacity,
		})
		last = st
	}
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

type pruner interface {
	Prune(ctx context.Context) (int64, error)
}

func runPruner(ctx context.Context, p pruner, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	every(ctx, interval, func() {
		n, err := p.Prune(ctx)
		if err != nil {
			logger.Warn("cache prune failed", "error", err)
			return
		}
		if n > 0 {
			logger.Debug("pruned expired cache entries", "count", n)
		}
	})
}
