package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/metrics"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/statsd"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// DefaultCacheKey is the local cache key used when none is configured.
const DefaultCacheKey = "currentUser"

var (
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("session store already initialized")
	// ErrStoreClosed is returned by Initialize after Close.
	ErrStoreClosed = errors.New("session store closed")
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Provider ports.IdentityProvider
	Profiles ports.ProfileStore
	Cache    ports.LocalCache
	CacheKey string
	Roles    ports.RoleResolver
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// AuthResult is returned by successful Register and Login calls.
type AuthResult struct {
	Identity domainauth.Identity
	Role     domainauth.Role
	Profile  *domainauth.Profile
}

// SessionStore is the authoritative view of who is signed in on one client.
// It mirrors every change to the local cache so a reload can render a plausible
// session before the identity provider reports in.
//
// Reads (IsAuthenticated, Current, State) never block on I/O. Installs and
// clears are serialized; the in-memory session is swapped only after the cache
// write, so readers never observe an identity without its profile fetch settled.
//
// A session restored from the cache is unconfirmed until the provider reports
// in or the client signs in locally. Verified and Confirmed gate access on that.
type SessionStore struct {
	provider ports.IdentityProvider
	profiles ports.ProfileStore
	cache    ports.LocalCache
	cacheKey string
	roles    ports.RoleResolver
	metrics  statsd.Sink
	logger   *slog.Logger

	writeMu sync.Mutex // serializes install/clear including the cache write

	mu          sync.RWMutex
	session     domainauth.Session
	verified    bool
	loggedOut   string // uid signed out locally; its queued sign-ins are ignored
	pending     int
	epoch       uint64
	synced      chan struct{}
	syncOnce    sync.Once
	watchers    map[int]chan domainauth.Session
	nextWatcher int
	started     bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSessionStore constructs a SessionStore. Initialize must be called before the
// store follows provider notifications.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	key := opts.CacheKey
	if key == "" {
		key = DefaultCacheKey
	}
	roles := opts.Roles
	if roles == nil {
		roles = formRoleResolver{}
	}
	return &SessionStore{
		provider: opts.Provider,
		profiles: opts.Profiles,
		cache:    opts.Cache,
		cacheKey: key,
		roles:    roles,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "session_store"),
		watchers: make(map[int]chan domainauth.Session),
		synced:   make(chan struct{}),
	}
}

// Initialize pre-populates the session from the local cache, then subscribes to
// provider notifications. The subscription outlives ctx and ends on Close.
func (s *SessionStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.started = true
	s.mu.Unlock()

	s.restoreFromCache(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	changes, err := s.provider.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to identity provider: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer s.markSynced()
		for change := range changes {
			s.handleStateChange(runCtx, change)
			s.markSynced()
		}
	}()
	return nil
}

func (s *SessionStore) restoreFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	raw, ok, err := s.cache.Get(ctx, s.cacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached session", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var entry domainauth.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.UID == "" {
		s.logger.WarnContext(ctx, "discarding unreadable cached session", "error", err)
		return
	}

	s.mu.Lock()
	if s.session.Identity == nil {
		s.session = entry.Session()
	}
	s.mu.Unlock()
}

func (s *SessionStore) markSynced() {
	s.syncOnce.Do(func() { close(s.synced) })
}

func (s *SessionStore) handleStateChange(ctx context.Context, change domainauth.StateChange) {
	if change.Identity == nil {
		s.clear(ctx, false)
		metrics.EmitStateChange(s.metrics, false, false)
		return
	}

	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	id := *change.Identity
	profile, err := s.fetchProfile(ctx, id.UserID)
	if err != nil {
		// No user action to report to; treat as no profile available.
		s.logger.WarnContext(ctx, "profile fetch failed after state change",
			"user_id", id.UserID, "error", err)
		profile = nil
	}

	if !s.installIf(ctx, domainauth.Session{Identity: &id, Profile: profile}, epoch) {
		s.logger.DebugContext(ctx, "dropping stale state change", "user_id", id.UserID)
		return
	}
	metrics.EmitStateChange(s.metrics, true, profile != nil)
}

func (s *SessionStore) fetchProfile(ctx context.Context, uid string) (*domainauth.Profile, error) {
	p, err := s.profiles.ReadProfile(ctx, uid)
	if err != nil {
		return nil, &domainauth.ProfileError{UserID: uid, Op: "read", Err: err}
	}
	return p, nil
}

// Register creates an account, writes its profile, and signs the client in
// without waiting for the provider notification.
func (s *SessionStore) Register(ctx context.Context, form domainauth.RegistrationForm) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.emit(domainauth.OpRegister, res, err, start) }()

	form.Normalize()
	if vErr := form.Validate(); vErr != nil {
		return nil, domainauth.NewOperationError(domainauth.OpRegister, vErr)
	}

	s.beginPending()
	defer s.endPending()

	id, err := s.provider.CreateAccount(ctx, form.Email, form.Password)
	if err != nil {
		return nil, domainauth.NewOperationError(domainauth.OpRegister, fmt.Errorf("create account: %w", err))
	}

	role := s.roles.Resolve(ports.RoleInput{
		Email:    form.Email,
		Selected: form.SelectedRole(),
		Claims:   id.Claims,
	})
	profile := domainauth.Profile{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Role:      role,
		IsActive:  true,
	}

	written, err := s.profiles.WriteProfile(ctx, id.UserID, profile)
	if err != nil {
		pErr := &domainauth.ProfileError{UserID: id.UserID, Op: "write", Err: err}
		return nil, domainauth.NewOperationError(domainauth.OpRegister, pErr)
	}
	if written == nil {
		written = &profile
	}

	s.install(ctx, domainauth.Session{Identity: &id, Profile: written})
	s.logger.InfoContext(ctx, "account registered", "user_id", id.UserID, "role", role)

	return &AuthResult{Identity: id, Role: role, Profile: written}, nil
}

// Login verifies credentials, fetches the profile, and installs the session.
// A failed profile fetch degrades to a session without profile.
func (s *SessionStore) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.emit(domainauth.OpLogin, res, err, start) }()

	form := domainauth.LoginForm{Email: email, Password: password}
	form.Normalize()
	if vErr := form.Validate(); vErr != nil {
		return nil, domainauth.NewOperationError(domainauth.OpLogin, vErr)
	}

	s.beginPending()
	defer s.endPending()

	id, err := s.provider.VerifyCredentials(ctx, form.Email, form.Password)
	if err != nil {
		return nil, domainauth.NewOperationError(domainauth.OpLogin, fmt.Errorf("verify credentials: %w", err))
	}

	profile, pErr := s.fetchProfile(ctx, id.UserID)
	if pErr != nil {
		s.logger.WarnContext(ctx, "profile fetch failed after login", "user_id", id.UserID, "error", pErr)
		profile = nil
	}

	sess := domainauth.Session{Identity: &id, Profile: profile}
	s.install(ctx, sess)

	return &AuthResult{Identity: id, Role: sess.Role(), Profile: profile}, nil
}

// Logout signs the client out at the provider and always clears local state.
// A provider failure is returned as a logout error after the local clear.
// Sign-in notifications for the departing account that are still queued are
// ignored until the client signs in again.
func (s *SessionStore) Logout(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.emit(domainauth.OpLogout, nil, err, start) }()

	invErr := s.provider.Invalidate(ctx)
	s.clear(ctx, true)
	if invErr != nil {
		return domainauth.NewOperationError(domainauth.OpLogout, fmt.Errorf("invalidate: %w", invErr))
	}
	return nil
}

// UpdateProfile applies a partial change to the signed-in account's profile and
// refreshes the session with the result.
func (s *SessionStore) UpdateProfile(ctx context.Context, u domainauth.ProfileUpdate) (p *domainauth.Profile, err error) {
	start := time.Now()
	defer func() { s.emit(domainauth.OpProfile, nil, err, start) }()

	s.mu.RLock()
	ident := s.session.Identity
	verified := s.verified
	epoch := s.epoch
	s.mu.RUnlock()
	if ident == nil || !verified {
		return nil, domainauth.NewOperationError(domainauth.OpProfile,
			domainauth.NewProviderError(domainauth.CodeNotSignedIn, "Please sign in first."))
	}

	updated, err := s.profiles.UpdateProfile(ctx, ident.UserID, u)
	if err != nil {
		pErr := &domainauth.ProfileError{UserID: ident.UserID, Op: "update", Err: err}
		return nil, domainauth.NewOperationError(domainauth.OpProfile, pErr)
	}

	id := *ident
	s.installIf(ctx, domainauth.Session{Identity: &id, Profile: updated}, epoch)
	return updated, nil
}

// IsAuthenticated reports whether an identity is installed.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Identity != nil
}

// Verified reports whether the installed identity was confirmed by the provider
// or a local sign-in rather than restored from the cache.
func (s *SessionStore) Verified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Identity != nil && s.verified
}

// Confirmed waits, for an unconfirmed cached session, until the provider's first
// notification has been handled or ctx ends. It then reports Verified.
func (s *SessionStore) Confirmed(ctx context.Context) bool {
	s.mu.RLock()
	waiting := s.session.Identity != nil && !s.verified
	s.mu.RUnlock()
	if waiting {
		select {
		case <-s.synced:
		case <-ctx.Done():
		}
	}
	return s.Verified()
}

// Current returns a copy of the current session.
func (s *SessionStore) Current() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

// State returns the explicit sign-in state. Pending covers in-flight register
// and login calls.
func (s *SessionStore) State() domainauth.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.pending > 0:
		return domainauth.StatePending
	case s.session.Identity != nil:
		return domainauth.StateSignedIn
	default:
		return domainauth.StateSignedOut
	}
}

// Watch returns a channel that receives the current session and then a snapshot
// after every change. Slow receivers only see the latest snapshot. The channel
// is closed when ctx ends or the store closes.
func (s *SessionStore) Watch(ctx context.Context) <-chan domainauth.Session {
	ch := make(chan domainauth.Session, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	ch <- copySession(s.session)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}()
	return ch
}

// Close ends the provider subscription and closes all watchers.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	for id, w := range s.watchers {
		delete(s.watchers, id)
		close(w)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *SessionStore) install(ctx context.Context, sess domainauth.Session) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.writeCache(ctx, sess)
	s.mu.Lock()
	s.epoch++
	s.verified = true
	s.loggedOut = ""
	s.setLocked(sess)
	s.mu.Unlock()
}

// installIf installs sess only when no install or clear happened since epoch was
// read and sess is not the account the client just logged out of.
func (s *SessionStore) installIf(ctx context.Context, sess domainauth.Session, epoch uint64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	stale := s.epoch != epoch || (s.loggedOut != "" && sess.Identity.UserID == s.loggedOut)
	s.mu.RUnlock()
	if stale {
		return false
	}

	s.writeCache(ctx, sess)
	s.mu.Lock()
	s.epoch++
	s.verified = true
	s.setLocked(sess)
	s.mu.Unlock()
	return true
}

// clear drops the session. A local logout remembers the departing uid.
func (s *SessionStore) clear(ctx context.Context, logout bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.cache != nil {
		if err := s.cache.Remove(ctx, s.cacheKey); err != nil {
			s.logger.WarnContext(ctx, "remove cached session", "error", err)
		}
	}
	s.mu.Lock()
	if logout && s.session.Identity != nil {
		s.loggedOut = s.session.Identity.UserID
	}
	s.epoch++
	s.verified = false
	s.setLocked(domainauth.Session{})
	s.mu.Unlock()
}

func (s *SessionStore) writeCache(ctx context.Context, sess domainauth.Session) {
	if s.cache == nil {
		return
	}
	entry := domainauth.NewCacheEntry(sess)
	if entry == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.WarnContext(ctx, "encode cached session", "error", err)
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey, string(raw)); err != nil {
		s.logger.WarnContext(ctx, "write cached session", "error", err)
	}
}

// setLocked swaps the session and notifies watchers. Caller holds s.mu.
func (s *SessionStore) setLocked(sess domainauth.Session) {
	s.session = sess
	for _, w := range s.watchers {
		snapshot := copySession(sess)
		select {
		case w <- snapshot:
		default:
			select {
			case <-w:
			default:
			}
			w <- snapshot
		}
	}
}

func (s *SessionStore) beginPending() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *SessionStore) endPending() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *SessionStore) emit(op domainauth.Op, res *AuthResult, err error, start time.Time) {
	m := metrics.AuthMetric{Op: string(op), Duration: time.Since(start), Err: err}
	if res != nil {
		m.Role = string(res.Role)
	}
	metrics.EmitAuthOperation(s.metrics, m)
}

func copySession(in domainauth.Session) domainauth.Session {
	var out domainauth.Session
	if in.Identity != nil {
		id := *in.Identity
		out.Identity = &id
	}
	if in.Profile != nil {
		p := *in.Profile
		out.Profile = &p
	}
	return out
}

// formRoleResolver records the role picked on the form, reader when none.
type formRoleResolver struct{}

func (formRoleResolver) Resolve(in ports.RoleInput) domainauth.Role {
	if in.Selected == "" {
		return domainauth.RoleReader
	}
	return in.Selected
}
