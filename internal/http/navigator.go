package httpx

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// DefaultPagesPrefix is where the site's secondary pages live.
const DefaultPagesPrefix = "/pages/"

// PageURLs maps navigation destinations to site paths.
type PageURLs map[domainauth.Page]string

// DefaultPageURLs returns the site's page layout under prefix.
func DefaultPageURLs(prefix string) PageURLs {
	if prefix == "" {
		prefix = DefaultPagesPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return PageURLs{
		domainauth.PageReaderDashboard:  prefix + "dashboard-reader.html",
		domainauth.PageAuthorDashboard:  prefix + "dashboard-author.html",
		domainauth.PageArtistDashboard:  prefix + "dashboard-artist.html",
		domainauth.PageAdminDashboard:   prefix + "dashboard-admin.html",
		domainauth.PageLogin:            prefix + "login.html",
		domainauth.PageRegister:         prefix + "register.html",
		domainauth.PageLandingDashboard: prefix + "dashboard.html",
		domainauth.PageHome:             "/",
	}
}

// URL returns the path for page, or "/" for pages without one.
func (p PageURLs) URL(page domainauth.Page) string {
	if u, ok := p[page]; ok {
		return u
	}
	return "/"
}

// PageFor returns the page served at urlPath.
func (p PageURLs) PageFor(urlPath string) (domainauth.Page, bool) {
	clean := path.Clean("/" + urlPath)
	for page, u := range p {
		if u == clean {
			return page, true
		}
	}
	return "", false
}

// WithError returns the page path with an error query parameter.
func (p PageURLs) WithError(page domainauth.Page, message string) string {
	q := url.Values{}
	q.Set("error", message)
	return p.URL(page) + "?" + q.Encode()
}

// responseNavigator records a navigation so the handler can turn it into a
// redirect or a JSON redirect_to once the operation returns.
type responseNavigator struct {
	urls PageURLs
	page domainauth.Page
	set  bool
}

var _ ports.Navigator = (*responseNavigator)(nil)

func newResponseNavigator(urls PageURLs) *responseNavigator {
	return &responseNavigator{urls: urls}
}

func (n *responseNavigator) Navigate(page domainauth.Page) {
	n.page = page
	n.set = true
}

// navigationResponse is the JSON body for script clients.
type navigationResponse struct {
	Success    bool   `json:"success"`
	RedirectTo string `json:"redirect_to"`
	Message    string `json:"message,omitempty"`
}

// respond performs the recorded navigation. Browsers get a 303; script clients
// get the destination as JSON.
func (n *responseNavigator) respond(w http.ResponseWriter, r *http.Request, message string) {
	target := n.urls.URL(n.page)
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, navigationResponse{Success: true, RedirectTo: target, Message: message})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
