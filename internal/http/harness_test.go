package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/memory"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	fakes "github.com/rejoiceinstitute/rejoice-web/internal/mocks/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

const testClientID = "5f0c7a3e-1b2d-4c5e-8f9a-0b1c2d3e4f5a"

// testSite is the full router over in-memory adapters and a fake identity provider.
type testSite struct {
	t         *testing.T
	handler   http.Handler
	registry  *service.SessionRegistry
	connector *fakes.FakeConnector
	profiles  *memory.ProfileStore
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sitePages() fstest.MapFS {
	page := func(body string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(body)} }
	return fstest.MapFS{
		"index.html":                  page("<h1>Rejoice</h1>"),
		"pages/login.html":            page("<h1>login</h1>"),
		"pages/register.html":         page("<h1>register</h1>"),
		"pages/dashboard-reader.html": page("<h1>reader</h1>"),
		"pages/dashboard-author.html": page("<h1>author</h1>"),
		"pages/dashboard-artist.html": page("<h1>artist</h1>"),
		"pages/dashboard-admin.html":  page("<h1>admin</h1>"),
	}
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	connector := &fakes.FakeConnector{Setup: func(_ string, p *fakes.FakeIdentityProvider) {
		p.QuietStart = true
	}}
	profiles := memory.NewProfileStore(nil)
	reg := service.NewSessionRegistry(service.SessionRegistryOptions{
		Connector: connector,
		Profiles:  profiles,
		Cache:     fakes.NewMemoryLocalCache(),
		Roles:     fakes.StaticRoleResolver{},
		Logger:    testLogger(),
	})
	t.Cleanup(reg.Close)

	handler := NewRouter(RouterServices{
		Sessions: reg,
		Profiles: profiles,
		Files:    http.FileServer(http.FS(sitePages())),
		Logger:   testLogger(),
	})
	return &testSite{t: t, handler: handler, registry: reg, connector: connector, profiles: profiles}
}

// store returns the test client's session store, creating it if needed.
func (s *testSite) store() *service.SessionStore {
	s.t.Helper()
	store, err := s.registry.Get(context.Background(), testClientID)
	require.NoError(s.t, err)
	return store
}

// seedAccount creates a credential and, when role is set, a profile for it.
func (s *testSite) seedAccount(email, password string, role domainauth.Role) domainauth.Identity {
	s.t.Helper()
	s.store()
	id := s.connector.Provider(testClientID).AddAccount(email, password)
	if role != "" {
		_, err := s.profiles.WriteProfile(context.Background(), id.UserID, domainauth.Profile{
			FirstName: "Meg",
			Email:     email,
			Role:      role,
			IsActive:  true,
		})
		require.NoError(s.t, err)
	}
	return id
}

// signIn seeds an account with role and logs the test client in.
func (s *testSite) signIn(role domainauth.Role) domainauth.Identity {
	s.t.Helper()
	email := string(role) + "@rejoice.test"
	id := s.seedAccount(email, "secret1", role)
	_, err := s.store().Login(context.Background(), email, "secret1")
	require.NoError(s.t, err)
	return id
}

func (s *testSite) do(req *http.Request) *httptest.ResponseRecorder {
	s.t.Helper()
	req.AddCookie(&http.Cookie{Name: DefaultClientCookieName, Value: testClientID})
	if req.Method != http.MethodGet && req.Header.Get("Origin") == "" {
		req.Header.Set("Origin", "http://example.com")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// redirectTarget parses the Location header of a 303 response.
func redirectTarget(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, "body: %s", rec.Body.String())
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u
}
