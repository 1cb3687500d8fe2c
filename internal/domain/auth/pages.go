package auth

// Page identifies a navigation destination of the site.
type Page string

const (
	PageReaderDashboard  Page = "reader-dashboard"
	PageAuthorDashboard  Page = "author-dashboard"
	PageArtistDashboard  Page = "artist-dashboard"
	PageAdminDashboard   Page = "admin-dashboard"
	PageLogin            Page = "login"
	PageRegister         Page = "register"
	PageHome             Page = "home"
	PageLandingDashboard Page = "dashboard"
)

// DefaultDashboard is the destination for unknown or absent roles.
const DefaultDashboard = PageReaderDashboard

// RoleTable maps roles to their dashboards. It is built once and never mutated.
type RoleTable struct {
	routes   map[Role]Page
	fallback Page
}

var defaultRoleTable = RoleTable{
	routes: map[Role]Page{
		RoleReader:       PageReaderDashboard,
		RoleAuthor:       PageAuthorDashboard,
		RoleWriter:       PageAuthorDashboard,
		RoleArtist:       PageArtistDashboard,
		RoleAdmin:        PageAdminDashboard,
		RoleStudent:      PageReaderDashboard,
		RoleProfessional: PageReaderDashboard,
	},
	fallback: DefaultDashboard,
}

// DefaultRoleTable returns the site's role to dashboard table.
func DefaultRoleTable() RoleTable { return defaultRoleTable }

// Lookup returns the dashboard for role, or the fallback for unknown roles.
func (t RoleTable) Lookup(role Role) Page {
	if p, ok := t.routes[role]; ok {
		return p
	}
	if t.fallback == "" {
		return DefaultDashboard
	}
	return t.fallback
}
