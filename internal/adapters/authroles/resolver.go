// Package authroles decides which role a new account is recorded with.
package authroles

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// Policy selects how the role is decided.
type Policy string

const (
	// PolicyHybrid lets the admin allowlist override, then a claim expression,
	// then the form selection.
	PolicyHybrid Policy = "hybrid"
	// PolicyAllowlist uses the admin, author, and artist allowlists only.
	PolicyAllowlist Policy = "allowlist"
	// PolicyForm records the form selection as submitted.
	PolicyForm Policy = "form"
)

// ParsePolicy validates a policy name. Empty selects hybrid.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyHybrid, nil
	case PolicyHybrid, PolicyAllowlist, PolicyForm:
		return p, nil
	default:
		return "", fmt.Errorf("unknown role policy %q (expected hybrid, allowlist, or form)", s)
	}
}

// Options configures a Resolver.
type Options struct {
	Policy    Policy
	Allowlist *Allowlist
	// ClaimExpr is a JMESPath expression evaluated over identity token claims.
	// A string result naming a known role decides the role in hybrid mode.
	ClaimExpr string
	Logger    *slog.Logger
}

// Resolver implements ports.RoleResolver. The allowlist can be swapped at runtime.
type Resolver struct {
	policy    Policy
	claimExpr string
	lists     atomic.Pointer[Allowlist]
	logger    *slog.Logger
}

var _ ports.RoleResolver = (*Resolver)(nil)

// NewResolver constructs a Resolver, validating the claim expression.
func NewResolver(opts Options) (*Resolver, error) {
	policy := opts.Policy
	if policy == "" {
		policy = PolicyHybrid
	}
	expr := strings.TrimSpace(opts.ClaimExpr)
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile role claim expression: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{policy: policy, claimExpr: expr, logger: logger.With("component", "role_resolver")}
	lists := opts.Allowlist
	if lists == nil {
		lists = NewAllowlist(nil, nil, nil)
	}
	r.lists.Store(lists)
	return r, nil
}

// SetAllowlist replaces the allowlist used for later resolutions.
func (r *Resolver) SetAllowlist(a *Allowlist) {
	if a == nil {
		a = NewAllowlist(nil, nil, nil)
	}
	r.lists.Store(a)
}

// Allowlist returns the allowlist currently in use.
func (r *Resolver) Allowlist() *Allowlist { return r.lists.Load() }

// Policy returns the configured policy.
func (r *Resolver) Policy() Policy { return r.policy }

// Resolve decides the role for a new account.
func (r *Resolver) Resolve(in ports.RoleInput) domainauth.Role {
	lists := r.lists.Load()
	switch r.policy {
	case PolicyAllowlist:
		if role := lists.Match(in.Email); role != "" {
			return role
		}
		return domainauth.RoleReader
	case PolicyForm:
		return selectedOrReader(in.Selected)
	default:
		if lists.IsAdmin(in.Email) {
			return domainauth.RoleAdmin
		}
		if role, ok := r.fromClaims(in.Claims); ok {
			return role
		}
		return selectedOrReader(in.Selected)
	}
}

func (r *Resolver) fromClaims(claims map[string]any) (domainauth.Role, bool) {
	if r.claimExpr == "" || len(claims) == 0 {
		return "", false
	}
	out, err := jmespath.Search(r.claimExpr, claims)
	if err != nil {
		r.logger.Warn("role claim expression failed", "error", err)
		return "", false
	}
	s, ok := out.(string)
	if !ok || s == "" {
		return "", false
	}
	role := domainauth.Role(s)
	if role != domainauth.RoleAdmin && !role.IsSelectable() {
		return "", false
	}
	return role, true
}

func selectedOrReader(r domainauth.Role) domainauth.Role {
	if r == "" {
		return domainauth.RoleReader
	}
	return r
}
