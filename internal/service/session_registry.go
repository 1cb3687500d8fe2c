package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rejoiceinstitute/rejoice-web/internal/observability/metrics"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/statsd"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// ErrClientIDRequired is returned when a lookup has no client id.
var ErrClientIDRequired = errors.New("client id is required")

// SessionRegistryOptions groups dependencies for SessionRegistry.
type SessionRegistryOptions struct {
	Connector      ports.IdentityConnector
	Profiles       ports.ProfileStore
	Cache          ports.LocalCache
	Roles          ports.RoleResolver
	CacheKeyPrefix string        // default DefaultCacheKey
	IdleTTL        time.Duration // default 30m
	SweepInterval  time.Duration // default 1m
	Metrics        statsd.Sink
	Logger         *slog.Logger
	Now            func() time.Time
}

type registryEntry struct {
	store    *SessionStore
	lastUsed time.Time
}

// SessionRegistry owns one SessionStore per browser client. Stores are created
// on first use and closed after sitting idle.
type SessionRegistry struct {
	opts   SessionRegistryOptions
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

// NewSessionRegistry constructs a SessionRegistry.
func NewSessionRegistry(opts SessionRegistryOptions) *SessionRegistry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheKeyPrefix == "" {
		opts.CacheKeyPrefix = DefaultCacheKey
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{
		opts:    opts,
		logger:  opts.Logger.With("component", "session_registry"),
		now:     now,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the client's store, creating and initializing it on first use.
// Concurrent first calls for the same client share one initialization.
func (r *SessionRegistry) Get(ctx context.Context, clientID string) (*SessionStore, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	if store, ok := r.touch(clientID); ok {
		return store, nil
	}

	v, err, _ := r.group.Do(clientID, func() (any, error) {
		if store, ok := r.touch(clientID); ok {
			return store, nil
		}
		return r.create(ctx, clientID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionStore), nil
}

// Lookup returns the client's store without creating one.
func (r *SessionRegistry) Lookup(clientID string) (*SessionStore, bool) {
	return r.touch(clientID)
}

func (r *SessionRegistry) touch(clientID string) (*SessionStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[clientID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

func (r *SessionRegistry) create(ctx context.Context, clientID string) (*SessionStore, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrStoreClosed
	}

	provider, err := r.opts.Connector.Connect(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("connect identity provider: %w", err)
	}

	store := NewSessionStore(SessionStoreOptions{
		Provider: provider,
		Profiles: r.opts.Profiles,
		Cache:    r.opts.Cache,
		CacheKey: r.opts.CacheKeyPrefix + ":" + clientID,
		Roles:    r.opts.Roles,
		Metrics:  r.opts.Metrics,
		Logger:   r.opts.Logger.With("client_id", clientID),
	})
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize session store: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		store.Close()
		return nil, ErrStoreClosed
	}
	r.entries[clientID] = &registryEntry{store: store, lastUsed: r.now()}
	n := len(r.entries)
	r.mu.Unlock()

	metrics.EmitActiveSessions(r.opts.Metrics, n)
	return store, nil
}

// Len returns the number of live stores.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes stores idle for longer than IdleTTL and returns how many it closed.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var idle []*SessionStore
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.store)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		r.logger.Debug("evicted idle session stores", "count", len(idle), "remaining", n)
		metrics.EmitActiveSessions(r.opts.Metrics, n)
	}
	return len(idle)
}

// Run sweeps idle stores until ctx ends.
func (r *SessionRegistry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every store. Later Get calls fail.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	stores := make([]*SessionStore, 0, len(r.entries))
	for id, e := range r.entries {
		stores = append(stores, e.store)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
