package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// PageHandlers routes and guards the site's HTML pages.
type PageHandlers struct {
	Sessions SessionProvider
	Router   *service.RoleRouter
	Pages    PageURLs
	Files    http.Handler // serves the static site
	Logger   *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Landing never renders; it sends visitors to login or to their role's dashboard.
// GET {pages}dashboard.html.
func (h *PageHandlers) Landing(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.Sessions, h.logger())
	if !ok {
		return
	}
	nav := newResponseNavigator(h.Pages)
	h.Router.RouteFromLandingDashboard(nav, store)
	nav.respond(w, r, "")
}

// Dashboard serves a role dashboard to sessions allowed to see it. Visitors
// without a confirmed session go to login; signed-in visitors without access go
// to their own dashboard.
func (h *PageHandlers) Dashboard(page domainauth.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := lookupStore(w, r, h.Sessions, h.logger())
		if !ok {
			return
		}
		if confirmed(r, store) && h.Router.CanView(store, page) {
			w.Header().Set("Cache-Control", "no-store")
			h.Files.ServeHTTP(w, r)
			return
		}

		nav := newResponseNavigator(h.Pages)
		if !store.Verified() {
			if wantsJSON(r) {
				WriteFailure(w, http.StatusUnauthorized, "Please sign in first.")
				return
			}
			nav.Navigate(domainauth.PageLogin)
		} else {
			if wantsJSON(r) {
				WriteFailure(w, http.StatusForbidden, "You do not have access to this page.")
				return
			}
			nav.Navigate(h.Router.ResolveDestination(store.Current().Role()))
		}
		nav.respond(w, r, "")
	}
}
