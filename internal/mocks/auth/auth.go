// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityConnector = (*FakeConnector)(nil)
	_ ports.IdentityProvider  = (*FakeIdentityProvider)(nil)
	_ ports.ProfileStore      = (*MemoryProfileStore)(nil)
	_ ports.LocalCache        = (*MemoryLocalCache)(nil)
	_ ports.RoleResolver      = (*StaticRoleResolver)(nil)
	_ ports.Navigator         = (*RecordingNavigator)(nil)
)

type fakeAccount struct {
	identity domainauth.Identity
	password string
}

type fakeSub struct {
	ch  chan domainauth.StateChange
	ctx context.Context
}

// FakeIdentityProvider keeps accounts in memory and lets tests inject state changes.
// Func fields override the default behavior. When AutoNotify is set, successful
// sign-in and sign-out calls also notify subscribers. QuietStart suppresses the
// initial signed-out delivery so tests driving only local state stay deterministic.
type FakeIdentityProvider struct {
	CreateAccountFunc     func(ctx context.Context, email, password string) (domainauth.Identity, error)
	VerifyCredentialsFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)
	InvalidateFunc        func(ctx context.Context) error
	SubscribeErr          error
	AutoNotify            bool
	QuietStart            bool

	mu       sync.Mutex
	accounts map[string]fakeAccount
	current  *domainauth.Identity
	subs     []*fakeSub
	nextID   int
}

// NewFakeIdentityProvider creates an empty provider with nobody signed in.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{accounts: make(map[string]fakeAccount)}
}

// AddAccount seeds an account and returns its identity.
func (f *FakeIdentityProvider) AddAccount(email, password string) domainauth.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(email, password)
}

func (f *FakeIdentityProvider) addLocked(email, password string) domainauth.Identity {
	if f.accounts == nil {
		f.accounts = make(map[string]fakeAccount)
	}
	f.nextID++
	id := domainauth.Identity{UserID: fmt.Sprintf("uid-%d", f.nextID), Email: email}
	f.accounts[email] = fakeAccount{identity: id, password: password}
	return id
}

func (f *FakeIdentityProvider) CreateAccount(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if f.CreateAccountFunc != nil {
		return f.CreateAccountFunc(ctx, email, password)
	}
	f.mu.Lock()
	if _, ok := f.accounts[email]; ok {
		f.mu.Unlock()
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeEmailInUse, "")
	}
	if len(password) < 6 {
		f.mu.Unlock()
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeWeakPassword, "")
	}
	id := f.addLocked(email, password)
	f.mu.Unlock()
	f.signIn(id)
	return id, nil
}

func (f *FakeIdentityProvider) VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if f.VerifyCredentialsFunc != nil {
		return f.VerifyCredentialsFunc(ctx, email, password)
	}
	f.mu.Lock()
	acct, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeUserNotFound, "")
	}
	if acct.password != password {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeWrongPassword, "")
	}
	f.signIn(acct.identity)
	return acct.identity, nil
}

func (f *FakeIdentityProvider) Invalidate(ctx context.Context) error {
	if f.InvalidateFunc != nil {
		return f.InvalidateFunc(ctx)
	}
	f.mu.Lock()
	f.current = nil
	notify := f.AutoNotify
	f.mu.Unlock()
	if notify {
		f.Emit(domainauth.StateChange{})
	}
	return nil
}

func (f *FakeIdentityProvider) signIn(id domainauth.Identity) {
	f.mu.Lock()
	f.current = &id
	notify := f.AutoNotify
	f.mu.Unlock()
	if notify {
		f.Emit(domainauth.StateChange{Identity: &id})
	}
}

// SetCurrent changes the signed-in identity without notifying subscribers.
func (f *FakeIdentityProvider) SetCurrent(id *domainauth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = id
}

func (f *FakeIdentityProvider) Subscribe(ctx context.Context) (<-chan domainauth.StateChange, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	sub := &fakeSub{ch: make(chan domainauth.StateChange, 16), ctx: ctx}
	f.mu.Lock()
	if f.current != nil || !f.QuietStart {
		sub.ch <- domainauth.StateChange{Identity: f.current}
	}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s == sub {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}()
	return sub.ch, nil
}

// Emit delivers a state change to every live subscriber.
func (f *FakeIdentityProvider) Emit(sc domainauth.StateChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		select {
		case s.ch <- sc:
		case <-s.ctx.Done():
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (f *FakeIdentityProvider) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// FakeConnector hands out one FakeIdentityProvider per client id.
type FakeConnector struct {
	ConnectErr error
	Setup      func(clientID string, p *FakeIdentityProvider)

	mu        sync.Mutex
	providers map[string]*FakeIdentityProvider
	connects  int
}

func (c *FakeConnector) Connect(_ context.Context, clientID string) (ports.IdentityProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	if c.providers == nil {
		c.providers = make(map[string]*FakeIdentityProvider)
	}
	p, ok := c.providers[clientID]
	if !ok {
		p = NewFakeIdentityProvider()
		if c.Setup != nil {
			c.Setup(clientID, p)
		}
		c.providers[clientID] = p
	}
	return p, nil
}

// Provider returns the provider created for clientID, or nil.
func (c *FakeConnector) Provider(clientID string) *FakeIdentityProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers[clientID]
}

// Connects returns how many times Connect was called.
func (c *FakeConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// MemoryProfileStore is an in-memory profile store for unit tests.
type MemoryProfileStore struct {
	ReadErr   error
	WriteErr  error
	UpdateErr error
	Now       func() time.Time

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
}

// NewMemoryProfileStore creates an empty store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
}

func (m *MemoryProfileStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Put seeds a profile directly.
func (m *MemoryProfileStore) Put(uid string, p domainauth.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	m.profiles[uid] = p
}

func (m *MemoryProfileStore) ReadProfile(_ context.Context, uid string) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	p, ok := m.profiles[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryProfileStore) WriteProfile(_ context.Context, uid string, p domainauth.Profile) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	p.CreatedAt = m.now()
	m.profiles[uid] = p
	return &p, nil
}

func (m *MemoryProfileStore) UpdateProfile(_ context.Context, uid string, u domainauth.ProfileUpdate) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	p = u.Apply(p)
	p.UpdatedAt = m.now()
	m.profiles[uid] = p
	return &p, nil
}

// MemoryLocalCache is an in-memory local cache for unit tests.
type MemoryLocalCache struct {
	GetErr    error
	SetErr    error
	RemoveErr error

	mu     sync.Mutex
	values map[string]string
}

// NewMemoryLocalCache creates an empty cache.
func NewMemoryLocalCache() *MemoryLocalCache {
	return &MemoryLocalCache{values: make(map[string]string)}
}

func (m *MemoryLocalCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryLocalCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryLocalCache) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.values, key)
	return nil
}

// Has reports whether key is present.
func (m *MemoryLocalCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// StaticRoleResolver returns Role when set, otherwise the selected role or reader.
type StaticRoleResolver struct {
	Role domainauth.Role
}

func (r StaticRoleResolver) Resolve(in ports.RoleInput) domainauth.Role {
	if r.Role != "" {
		return r.Role
	}
	if in.Selected != "" {
		return in.Selected
	}
	return domainauth.RoleReader
}

// RecordingNavigator records every navigation.
type RecordingNavigator struct {
	mu    sync.Mutex
	pages []domainauth.Page
}

func (n *RecordingNavigator) Navigate(page domainauth.Page) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pages = append(n.pages, page)
}

// Pages returns a copy of the recorded navigations.
func (n *RecordingNavigator) Pages() []domainauth.Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domainauth.Page(nil), n.pages...)
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}
