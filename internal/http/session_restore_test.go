package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/devauth"
	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/memory"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// restoredSite serves a client whose cache still holds an admin session while
// the identity provider, like one that just restarted, has nobody signed in.
func restoredSite(t *testing.T) (*testSite, *devauth.Directory) {
	t.Helper()
	dir, err := devauth.NewDirectory(devauth.Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	cache := memory.NewLocalCache(memory.LocalCacheConfig{})
	raw, err := json.Marshal(domainauth.CacheEntry{
		UID:     "u-admin",
		Email:   "admin@rejoice.test",
		Profile: &domainauth.Profile{FirstName: "Ada", Role: domainauth.RoleAdmin},
	})
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), service.DefaultCacheKey+":"+testClientID, string(raw)))

	profiles := memory.NewProfileStore(nil)
	reg := service.NewSessionRegistry(service.SessionRegistryOptions{
		Connector: dir,
		Profiles:  profiles,
		Cache:     cache,
		Logger:    testLogger(),
	})
	t.Cleanup(reg.Close)

	handler := NewRouter(RouterServices{
		Sessions: reg,
		Profiles: profiles,
		Files:    http.FileServer(http.FS(sitePages())),
		Logger:   testLogger(),
	})
	return &testSite{t: t, handler: handler, registry: reg, profiles: profiles}, dir
}

func TestRestoredSession_DoesNotGrantAdminAccess(t *testing.T) {
	site, _ := restoredSite(t)

	rec := site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	rec = site.do(httptest.NewRequest(http.MethodGet, "/pages/dashboard-admin.html", nil))
	assert.Equal(t, "/pages/login.html", redirectTarget(t, rec).Path)
}

func TestRestoredSession_CannotWriteProfile(t *testing.T) {
	site, _ := restoredSite(t)

	rec := site.do(jsonRequest(http.MethodPatch, "/api/profile", `{"lastName":"Lovelace"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	p, err := site.profiles.ReadProfile(context.Background(), "u-admin")
	require.NoError(t, err)
	assert.Nil(t, p, "no profile is written for the cached uid")

	rec = site.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRestoredSession_SignInConfirms(t *testing.T) {
	site, dir := restoredSite(t)
	id, err := dir.Seed("admin@rejoice.test", "secret1")
	require.NoError(t, err)
	_, err = site.profiles.WriteProfile(context.Background(), id.UserID, domainauth.Profile{
		FirstName: "Ada",
		Email:     "admin@rejoice.test",
		Role:      domainauth.RoleAdmin,
		IsActive:  true,
	})
	require.NoError(t, err)
	store := site.store()
	require.Eventually(t, func() bool { return !store.IsAuthenticated() }, 2*time.Second, 5*time.Millisecond,
		"the provider's signed-out report replaces the cached session")

	_, err = store.Login(context.Background(), "admin@rejoice.test", "secret1")
	require.NoError(t, err)

	rec := site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = site.do(httptest.NewRequest(http.MethodGet, "/pages/dashboard-admin.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
