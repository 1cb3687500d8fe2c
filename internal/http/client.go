package httpx

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultClientCookieName names the cookie identifying a browser client.
	DefaultClientCookieName = "client_id"
	// DefaultClientCookieTTL is how long a browser keeps its client id.
	DefaultClientCookieTTL = 30 * 24 * time.Hour
)

// ClientCookieConfig configures the ClientIdentity middleware.
type ClientCookieConfig struct {
	Name   string        // default DefaultClientCookieName
	Domain string        // optional cookie domain
	TTL    time.Duration // default DefaultClientCookieTTL
}

func (c ClientCookieConfig) withDefaults() ClientCookieConfig {
	if c.Name == "" {
		c.Name = DefaultClientCookieName
	}
	if c.TTL <= 0 {
		c.TTL = DefaultClientCookieTTL
	}
	return c
}

// ClientIdentity returns a middleware that makes sure every request carries a
// client id. A missing or malformed cookie is replaced with a fresh UUID; the id
// is placed in the request context for downstream handlers.
func ClientIdentity(cfg ClientCookieConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.Name); err == nil {
				if parsed, perr := uuid.Parse(c.Value); perr == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    id,
					Path:     "/",
					Domain:   cfg.Domain,
					HttpOnly: true,
					Secure:   isSecureRequest(r),
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(cfg.TTL.Seconds()),
				})
			}
			next.ServeHTTP(w, r.WithContext(SetClientIDInContext(r.Context(), id)))
		})
	}
}
