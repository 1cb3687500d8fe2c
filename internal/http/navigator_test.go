package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

func TestDefaultPageURLs_Prefix(t *testing.T) {
	for _, prefix := range []string{"site", "/site", "/site/"} {
		urls := DefaultPageURLs(prefix)
		assert.Equal(t, "/site/login.html", urls.URL(domainauth.PageLogin), prefix)
		assert.Equal(t, "/", urls.URL(domainauth.PageHome), prefix)
	}
	assert.Equal(t, "/pages/dashboard-admin.html", DefaultPageURLs("").URL(domainauth.PageAdminDashboard))
}

func TestPageURLs_PageFor(t *testing.T) {
	urls := DefaultPageURLs(DefaultPagesPrefix)

	page, ok := urls.PageFor("/pages/../pages/dashboard-author.html")
	require.True(t, ok)
	assert.Equal(t, domainauth.PageAuthorDashboard, page)

	_, ok = urls.PageFor("/pages/unknown.html")
	assert.False(t, ok)
	assert.Equal(t, "/", urls.URL(domainauth.Page("nowhere")))
}

func TestPageURLs_WithError(t *testing.T) {
	urls := DefaultPageURLs(DefaultPagesPrefix)

	raw := urls.WithError(domainauth.PageRegister, "Passwords do not match!")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/pages/register.html", u.Path)
	assert.Equal(t, "Passwords do not match!", u.Query().Get("error"))
}

func TestResponseNavigator_Respond(t *testing.T) {
	nav := newResponseNavigator(DefaultPageURLs(DefaultPagesPrefix))
	nav.Navigate(domainauth.PageReaderDashboard)

	rec := httptest.NewRecorder()
	nav.respond(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pages/dashboard-reader.html", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec = httptest.NewRecorder()
	nav.respond(rec, req, "welcome")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[navigationResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "/pages/dashboard-reader.html", body.RedirectTo)
	assert.Equal(t, "welcome", body.Message)
}
