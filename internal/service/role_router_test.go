package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	fakes "github.com/rejoiceinstitute/rejoice-web/internal/mocks/auth"
)

type staticView struct {
	session domainauth.Session
}

func (v staticView) IsAuthenticated() bool        { return v.session.Identity != nil }
func (v staticView) Verified() bool               { return v.session.Identity != nil }
func (v staticView) Current() domainauth.Session { return v.session }

// restoredView is a session read back from the cache that the provider has not confirmed.
type restoredView struct{ staticView }

func (restoredView) Verified() bool { return false }

func TestRoleRouter_ResolveDestination(t *testing.T) {
	r := NewRoleRouter(RoleRouterOptions{})
	cases := map[domainauth.Role]domainauth.Page{
		"reader":       domainauth.PageReaderDashboard,
		"author":       domainauth.PageAuthorDashboard,
		"writer":       domainauth.PageAuthorDashboard,
		"artist":       domainauth.PageArtistDashboard,
		"admin":        domainauth.PageAdminDashboard,
		"student":      domainauth.PageReaderDashboard,
		"professional": domainauth.PageReaderDashboard,
		"poet":         domainauth.PageReaderDashboard,
		"":             domainauth.PageReaderDashboard,
	}
	for role, want := range cases {
		assert.Equal(t, want, r.ResolveDestination(role), "role %q", role)
	}
}

func TestRoleRouter_RouteAfterLogin(t *testing.T) {
	r := NewRoleRouter(RoleRouterOptions{})

	nav := &fakes.RecordingNavigator{}
	msg := r.RouteAfterLogin(nav, &AuthResult{Role: domainauth.RoleAuthor}, nil)
	assert.Empty(t, msg)
	assert.Equal(t, []domainauth.Page{domainauth.PageAuthorDashboard}, nav.Pages())

	nav = &fakes.RecordingNavigator{}
	err := domainauth.NewOperationError(domainauth.OpLogin, domainauth.NewProviderError(domainauth.CodeUserNotFound, ""))
	msg = r.RouteAfterLogin(nav, nil, err)
	assert.Equal(t, "No account found with this email.", msg)
	assert.Empty(t, nav.Pages())
}

func TestRoleRouter_RouteAfterRegistration(t *testing.T) {
	r := NewRoleRouter(RoleRouterOptions{})

	nav := &fakes.RecordingNavigator{}
	assert.Empty(t, r.RouteAfterRegistration(nav, &AuthResult{Role: domainauth.RoleArtist}, nil))
	assert.Equal(t, []domainauth.Page{domainauth.PageArtistDashboard}, nav.Pages())

	nav = &fakes.RecordingNavigator{}
	assert.Equal(t, domainauth.GenericMessage, r.RouteAfterRegistration(nav, nil, errors.New("boom")))
	assert.Empty(t, nav.Pages())

	nav = &fakes.RecordingNavigator{}
	assert.Equal(t, domainauth.GenericMessage, r.RouteAfterRegistration(nav, nil, nil))
	assert.Empty(t, nav.Pages())
}

func TestRoleRouter_RouteFromLandingDashboard(t *testing.T) {
	r := NewRoleRouter(RoleRouterOptions{})
	signedIn := &domainauth.Identity{UserID: "u1", Email: "jo@x.com"}

	tests := []struct {
		name string
		view SessionView
		want domainauth.Page
	}{
		{"unauthenticated", staticView{}, domainauth.PageLogin},
		{"nil view", nil, domainauth.PageLogin},
		{"profile not loaded", staticView{domainauth.Session{Identity: signedIn}}, domainauth.PageReaderDashboard},
		{"profile without role", staticView{domainauth.Session{Identity: signedIn, Profile: &domainauth.Profile{}}}, domainauth.PageReaderDashboard},
		{"admin", staticView{domainauth.Session{Identity: signedIn, Profile: &domainauth.Profile{Role: domainauth.RoleAdmin}}}, domainauth.PageAdminDashboard},
		{"writer", staticView{domainauth.Session{Identity: signedIn, Profile: &domainauth.Profile{Role: domainauth.RoleWriter}}}, domainauth.PageAuthorDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakes.RecordingNavigator{}
			got := r.RouteFromLandingDashboard(nav, tt.view)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []domainauth.Page{tt.want}, nav.Pages())
		})
	}
}

func TestRoleRouter_CanView(t *testing.T) {
	r := NewRoleRouter(RoleRouterOptions{})
	id := &domainauth.Identity{UserID: "u1"}
	reader := staticView{domainauth.Session{Identity: id}}
	admin := staticView{domainauth.Session{Identity: id, Profile: &domainauth.Profile{Role: domainauth.RoleAdmin}}}

	assert.False(t, r.CanView(staticView{}, domainauth.PageReaderDashboard))
	assert.True(t, r.CanView(reader, domainauth.PageArtistDashboard))
	assert.False(t, r.CanView(reader, domainauth.PageAdminDashboard))
	assert.True(t, r.CanView(admin, domainauth.PageAdminDashboard))

	restored := restoredView{admin}
	assert.False(t, r.CanView(restored, domainauth.PageAdminDashboard))
	assert.False(t, r.CanView(restored, domainauth.PageReaderDashboard))

	nav := &fakes.RecordingNavigator{}
	assert.Equal(t, domainauth.PageAdminDashboard, r.RouteFromLandingDashboard(nav, restored))
}

func TestRoleRouter_CustomTable(t *testing.T) {
	var empty domainauth.RoleTable
	r := NewRoleRouter(RoleRouterOptions{Table: &empty})
	assert.Equal(t, domainauth.PageReaderDashboard, r.ResolveDestination(domainauth.RoleAdmin))
}
