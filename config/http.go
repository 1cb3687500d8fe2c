package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for client and CSRF cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// StaticDir holds the site's HTML, CSS, and script files.
	StaticDir string `env:"HTTP_STATIC_DIR" envDefault:"./web"`

	// PagesPrefix is the URL directory holding the dashboard and form pages.
	PagesPrefix string `env:"HTTP_PAGES_PREFIX" envDefault:"/pages/"`

	// ClientCookieTTL is how long a browser keeps its client id.
	ClientCookieTTL time.Duration `env:"HTTP_CLIENT_COOKIE_TTL" envDefault:"720h"`

	// TrustedOrigins may post forms without a CSRF token (scheme://host[:port]).
	TrustedOrigins []string `env:"HTTP_TRUSTED_ORIGINS" envSeparator:","`

	// WebsocketOrigins are host patterns allowed to open /auth/events.
	WebsocketOrigins []string `env:"HTTP_WEBSOCKET_ORIGINS" envSeparator:","`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize(isDev bool) {
	if strings.TrimSpace(h.Addr) == "" {
		h.Addr = ":8080"
	}
	if h.StaticDir == "" {
		h.StaticDir = "./web"
	}
	if h.PagesPrefix == "" {
		h.PagesPrefix = "/pages/"
	}
	if h.ClientCookieTTL <= 0 {
		h.ClientCookieTTL = 30 * 24 * time.Hour
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	h.TrustedOrigins = compact(h.TrustedOrigins)
	h.WebsocketOrigins = compact(h.WebsocketOrigins)
	if isDev && len(h.WebsocketOrigins) == 0 {
		h.WebsocketOrigins = []string{"localhost:*", "127.0.0.1:*"}
	}
}
