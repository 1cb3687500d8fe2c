package ports

// Package ports defines interfaces (hexagonal ports) for account and session behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// IdentityConnector opens a client-scoped connection to the identity provider.
// Each browser client gets its own connection so sign-in state is per client.
type IdentityConnector interface {
	Connect(ctx context.Context, clientID string) (IdentityProvider, error)
}

// IdentityProvider creates and verifies credentials and reports sign-in state
// for a single client. Failures carry a *domainauth.ProviderError.
type IdentityProvider interface {
	// CreateAccount registers a new credential and signs the client in.
	CreateAccount(ctx context.Context, email, password string) (domainauth.Identity, error)

	// VerifyCredentials checks an email and password and signs the client in.
	VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error)

	// Invalidate signs the client out.
	Invalidate(ctx context.Context) error

	// Subscribe delivers the current state immediately and then every later
	// transition, in order. The channel is closed when ctx ends.
	Subscribe(ctx context.Context) (<-chan domainauth.StateChange, error)
}

// ProfileStore reads and writes the per-account profile document.
type ProfileStore interface {
	// ReadProfile returns nil, nil when no document exists for uid.
	ReadProfile(ctx context.Context, uid string) (*domainauth.Profile, error)

	// WriteProfile creates or replaces the document. The store assigns CreatedAt.
	WriteProfile(ctx context.Context, uid string, p domainauth.Profile) (*domainauth.Profile, error)

	// UpdateProfile applies a partial change and returns the resulting document.
	UpdateProfile(ctx context.Context, uid string, u domainauth.ProfileUpdate) (*domainauth.Profile, error)
}

// ProfileLister pages through stored profiles for administration.
// An empty role lists every profile.
type ProfileLister interface {
	ListProfiles(ctx context.Context, role domainauth.Role, limit, offset int) ([]domainauth.ProfileRecord, error)
}

// LocalCache is a best-effort string store used to survive reloads.
type LocalCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RoleInput carries what is known about an account when its role is decided.
type RoleInput struct {
	Email    string
	Selected domainauth.Role
	Claims   map[string]any
}

// RoleResolver decides the role recorded on a newly registered profile.
type RoleResolver interface {
	Resolve(in RoleInput) domainauth.Role
}

// Navigator performs a full navigation to a page.
type Navigator interface {
	Navigate(page domainauth.Page)
}
