package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

func TestAdminProfiles_AccessControl(t *testing.T) {
	site := newTestSite(t)

	rec := site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	site.signIn(domainauth.RoleAuthor)
	rec = site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminProfiles_List(t *testing.T) {
	site := newTestSite(t)
	admin := site.signIn(domainauth.RoleAdmin)
	for i := range 3 {
		site.seedAccount(fmt.Sprintf("reader%d@example.com", i), "secret1", domainauth.RoleReader)
	}

	rec := site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[profileListResponse](t, rec)
	assert.True(t, body.Success)
	assert.Len(t, body.Profiles, 4)
	assert.Equal(t, defaultProfilePageSize, body.Limit)

	rec = site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles?role=admin", nil))
	body = decodeBody[profileListResponse](t, rec)
	require.Len(t, body.Profiles, 1)
	assert.Equal(t, admin.UserID, body.Profiles[0].UID)

	rec = site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles?role=reader&limit=2&offset=0", nil))
	body = decodeBody[profileListResponse](t, rec)
	assert.Len(t, body.Profiles, 2)
	assert.Equal(t, 2, body.Limit)

	rec = site.do(httptest.NewRequest(http.MethodGet, "/api/admin/profiles?role=wizard", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProfiles_NoLister(t *testing.T) {
	site := newTestSite(t)
	site.signIn(domainauth.RoleAdmin)
	h := &AdminHandlers{Sessions: site.registry, Logger: testLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil)
	req = req.WithContext(SetClientIDInContext(req.Context(), testClientID))
	rec := httptest.NewRecorder()
	h.ListProfiles(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0&offset=-5", 1, 0},
		{"limit=1000", 200, 0},
		{"limit=abc", 50, 0},
	}
	for _, tt := range tests {
		q, err := url.ParseQuery(tt.query)
		require.NoError(t, err)
		limit, offset := pageParams(q, 50, 200)
		assert.Equal(t, tt.wantLimit, limit, tt.query)
		assert.Equal(t, tt.wantOffset, offset, tt.query)
	}
}
