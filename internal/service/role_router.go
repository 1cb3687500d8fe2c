package service

import (
	"log/slog"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// SessionView is the read side of a session store.
type SessionView interface {
	IsAuthenticated() bool
	Verified() bool
	Current() domainauth.Session
}

// RoleRouter maps roles to dashboards and decides when to navigate.
type RoleRouter struct {
	table  domainauth.RoleTable
	logger *slog.Logger
}

// RoleRouterOptions groups dependencies for RoleRouter.
type RoleRouterOptions struct {
	Table  *domainauth.RoleTable // defaults to the site table
	Logger *slog.Logger
}

// NewRoleRouter constructs a RoleRouter.
func NewRoleRouter(opts RoleRouterOptions) *RoleRouter {
	table := domainauth.DefaultRoleTable()
	if opts.Table != nil {
		table = *opts.Table
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleRouter{table: table, logger: logger.With("component", "role_router")}
}

// ResolveDestination returns the dashboard for role. Unknown roles get the reader dashboard.
func (r *RoleRouter) ResolveDestination(role domainauth.Role) domainauth.Page {
	return r.table.Lookup(role)
}

// RouteAfterRegistration navigates to the new account's dashboard. On failure it
// does not navigate and returns the message to show.
func (r *RoleRouter) RouteAfterRegistration(nav ports.Navigator, res *AuthResult, err error) string {
	return r.routeResult(nav, res, err)
}

// RouteAfterLogin navigates to the signed-in account's dashboard. On failure it
// does not navigate and returns the message to show.
func (r *RoleRouter) RouteAfterLogin(nav ports.Navigator, res *AuthResult, err error) string {
	return r.routeResult(nav, res, err)
}

func (r *RoleRouter) routeResult(nav ports.Navigator, res *AuthResult, err error) string {
	if err != nil {
		return domainauth.UserMessage(err)
	}
	if res == nil {
		return domainauth.GenericMessage
	}
	nav.Navigate(r.ResolveDestination(res.Role))
	return ""
}

// RouteFromLandingDashboard sends an unauthenticated visitor to the login page and
// everyone else to their role's dashboard. A profile that has not loaded yet
// counts as reader.
func (r *RoleRouter) RouteFromLandingDashboard(nav ports.Navigator, view SessionView) domainauth.Page {
	if view == nil || !view.IsAuthenticated() {
		nav.Navigate(domainauth.PageLogin)
		return domainauth.PageLogin
	}
	sess := view.Current()
	if sess.Profile == nil {
		r.logger.Debug("landing without loaded profile, routing as reader")
	}
	dest := r.ResolveDestination(sess.Role())
	nav.Navigate(dest)
	return dest
}

// CanView reports whether view may see page. Every page needs a confirmed
// signed-in session; the admin dashboard also needs the admin role.
func (r *RoleRouter) CanView(view SessionView, page domainauth.Page) bool {
	if view == nil || !view.Verified() {
		return false
	}
	if page == domainauth.PageAdminDashboard {
		return view.Current().Role() == domainauth.RoleAdmin
	}
	return true
}
