// Package auth contains domain-level types for accounts, profiles, and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import "time"

// Role is the account type recorded on a profile. It decides which dashboard a
// user lands on. Comparison is case-sensitive.
type Role string

const (
	RoleReader       Role = "reader"
	RoleAuthor       Role = "author"
	RoleWriter       Role = "writer"
	RoleArtist       Role = "artist"
	RoleAdmin        Role = "admin"
	RoleStudent      Role = "student"
	RoleProfessional Role = "professional"
)

// SelectableRoles lists the account types a visitor may pick on the registration form.
// Admin is granted by allowlist only.
var SelectableRoles = []Role{
	RoleReader, RoleAuthor, RoleArtist, RoleWriter, RoleStudent, RoleProfessional,
}

// IsSelectable reports whether r may be chosen on the registration form.
func (r Role) IsSelectable() bool {
	for _, s := range SelectableRoles {
		if r == s {
			return true
		}
	}
	return false
}

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	return r == RoleAdmin || r.IsSelectable()
}

// Identity is the opaque handle the identity provider returns for a signed-in account.
// Claims holds verified token claims when the provider issues tokens; it may be nil.
type Identity struct {
	UserID string         `json:"uid"`
	Email  string         `json:"email"`
	Claims map[string]any `json:"-"`
}

// Profile is the per-account document owned by the profile store.
type Profile struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      Role      `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	IsActive  bool      `json:"isActive"`
}

// ProfileRecord pairs a profile with its account uid.
type ProfileRecord struct {
	UID     string  `json:"uid"`
	Profile Profile `json:"profile"`
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Role      *Role   `json:"userType,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Role == nil && u.IsActive == nil
}

// Apply returns a copy of p with the update applied.
func (u ProfileUpdate) Apply(p Profile) Profile {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	return p
}

// Session is the in-memory view of who is signed in on one client.
// The zero value means signed out. Profile is nil until a profile fetch succeeds.
type Session struct {
	Identity *Identity `json:"identity,omitempty"`
	Profile  *Profile  `json:"profile,omitempty"`
}

// SignedIn reports whether the session carries an identity.
func (s Session) SignedIn() bool { return s.Identity != nil }

// Role returns the profile role, falling back to reader when the profile is missing
// or carries no role.
func (s Session) Role() Role {
	if s.Profile == nil || s.Profile.Role == "" {
		return RoleReader
	}
	return s.Profile.Role
}

// DisplayName returns the first name, else the email local part, else "User".
func (s Session) DisplayName() string {
	if s.Profile != nil && s.Profile.FirstName != "" {
		return s.Profile.FirstName
	}
	if s.Identity != nil {
		for i, c := range s.Identity.Email {
			if c == '@' {
				if i > 0 {
					return s.Identity.Email[:i]
				}
				break
			}
		}
	}
	return "User"
}

// AuthState is the explicit sign-in state of a client.
type AuthState int

const (
	StateSignedOut AuthState = iota
	StatePending
	StateSignedIn
)

func (s AuthState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// StateChange is a provider notification. A nil Identity means nobody is signed in.
type StateChange struct {
	Identity *Identity
}

// CacheEntry is the snapshot mirrored to the local cache so a reload can render
// a plausible session before the provider reports in.
type CacheEntry struct {
	UID     string   `json:"uid"`
	Email   string   `json:"email"`
	Profile *Profile `json:"profile"`
}

// NewCacheEntry builds the cache snapshot for a session. It returns nil when signed out.
func NewCacheEntry(s Session) *CacheEntry {
	if s.Identity == nil {
		return nil
	}
	return &CacheEntry{UID: s.Identity.UserID, Email: s.Identity.Email, Profile: s.Profile}
}

// Session restores the session described by the entry.
func (e CacheEntry) Session() Session {
	return Session{
		Identity: &Identity{UserID: e.UID, Email: e.Email},
		Profile:  e.Profile,
	}
}
