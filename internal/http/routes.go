package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions SessionProvider
	Router   *service.RoleRouter
	Pages    PageURLs            // defaults to DefaultPageURLs(DefaultPagesPrefix)
	Profiles ports.ProfileLister // optional, enables GET /api/admin/profiles

	// StaticDir is the directory holding the site's HTML, CSS and scripts.
	StaticDir string
	// Files overrides the static file handler; tests use it to serve from memory.
	Files http.Handler

	ClientCookie   ClientCookieConfig
	CSRF           CSRFConfig
	OriginPatterns []string // websocket origins besides the serving host
	Logger         *slog.Logger
}

var dashboards = []domainauth.Page{
	domainauth.PageReaderDashboard,
	domainauth.PageAuthorDashboard,
	domainauth.PageArtistDashboard,
	domainauth.PageAdminDashboard,
}

// NewRouter creates and configures the HTTP handler for the site.
func NewRouter(s RouterServices) http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pages := s.Pages
	if pages == nil {
		pages = DefaultPageURLs(DefaultPagesPrefix)
	}
	files := s.Files
	if files == nil {
		files = http.FileServer(http.Dir(s.StaticDir))
	}
	router := s.Router
	if router == nil {
		router = service.NewRoleRouter(service.RoleRouterOptions{Logger: logger})
	}

	authHandlers := &AuthHandlers{Sessions: s.Sessions, Router: router, Pages: pages, Logger: logger}
	profileHandlers := &ProfileHandlers{Sessions: s.Sessions, Logger: logger}
	eventHandlers := &EventHandlers{
		Sessions:       s.Sessions,
		Router:         router,
		Pages:          pages,
		OriginPatterns: s.OriginPatterns,
		Logger:         logger,
	}
	adminHandlers := &AdminHandlers{Sessions: s.Sessions, Profiles: s.Profiles, Logger: logger}
	pageHandlers := &PageHandlers{Sessions: s.Sessions, Router: router, Pages: pages, Files: files, Logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", authHandlers.Register)
	mux.HandleFunc("POST /auth/login", authHandlers.Login)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/status", authHandlers.Status)
	mux.HandleFunc("GET /auth/events", eventHandlers.Stream)

	mux.HandleFunc("GET /api/profile", profileHandlers.Get)
	mux.HandleFunc("PATCH /api/profile", profileHandlers.Update)
	mux.HandleFunc("GET /api/admin/profiles", adminHandlers.ListProfiles)

	health := &HealthHandlers{}
	if counter, ok := s.Sessions.(SessionCounter); ok {
		health.Sessions = counter
	}
	mux.HandleFunc("GET /healthz", health.Health)

	mux.HandleFunc("GET "+pages.URL(domainauth.PageLandingDashboard), pageHandlers.Landing)
	for _, page := range dashboards {
		mux.Handle("GET "+pages.URL(page), pageHandlers.Dashboard(page))
	}
	mux.Handle("GET /", files)

	var handler http.Handler = mux
	handler = ClientIdentity(s.ClientCookie)(handler)
	handler = CSRFProtection(s.CSRF)(handler)
	handler = SecurityHeaders()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
