package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// SessionProvider returns the session store for a browser client.
type SessionProvider interface {
	Get(ctx context.Context, clientID string) (*service.SessionStore, error)
}

// AuthHandlers provides HTTP handlers for account operations.
type AuthHandlers struct {
	Sessions SessionProvider
	Router   *service.RoleRouter
	Pages    PageURLs
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// store resolves the caller's session store, writing an error response on failure.
func (h *AuthHandlers) store(w http.ResponseWriter, r *http.Request) (*service.SessionStore, bool) {
	return lookupStore(w, r, h.Sessions, h.logger())
}

func lookupStore(w http.ResponseWriter, r *http.Request, sessions SessionProvider, logger *slog.Logger) (*service.SessionStore, bool) {
	clientID, _ := ClientIDFromContext(r.Context())
	store, err := sessions.Get(r.Context(), clientID)
	if err != nil {
		logger.ErrorContext(r.Context(), "session lookup failed", "client_id", clientID, "error", err)
		if wantsJSON(r) {
			WriteFailure(w, http.StatusServiceUnavailable, domainauth.GenericMessage)
		} else {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		}
		return nil, false
	}
	return store, true
}

// confirmWait bounds how long a gated request waits for the identity provider
// to report on a session restored from the cache.
const confirmWait = 2 * time.Second

// confirmed reports whether store holds a session the provider or a local
// sign-in has confirmed. Cached sessions alone never pass.
func confirmed(r *http.Request, store *service.SessionStore) bool {
	ctx, cancel := context.WithTimeout(r.Context(), confirmWait)
	defer cancel()
	return store.Confirmed(ctx)
}

// Register handles the sign-up form.
// POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeRegistration(w, r)
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	res, err := store.Register(r.Context(), form)
	nav := newResponseNavigator(h.Pages)
	if msg := h.Router.RouteAfterRegistration(nav, res, err); msg != "" {
		h.logger().InfoContext(r.Context(), "registration failed", "error", err)
		h.fail(w, r, domainauth.PageRegister, msg, statusFor(err))
		return
	}
	nav.respond(w, r, "")
}

// Login handles the sign-in form.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	res, err := store.Login(r.Context(), form.Email, form.Password)
	nav := newResponseNavigator(h.Pages)
	if msg := h.Router.RouteAfterLogin(nav, res, err); msg != "" {
		h.logger().InfoContext(r.Context(), "login failed", "error", err)
		h.fail(w, r, domainauth.PageLogin, msg, statusFor(err))
		return
	}
	nav.respond(w, r, "")
}

// Logout signs the client out and navigates home. A provider failure is
// logged; local state is cleared regardless.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	msg := ""
	if err := store.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		msg = domainauth.UserMessage(err)
	}
	nav := newResponseNavigator(h.Pages)
	nav.Navigate(domainauth.PageHome)
	nav.respond(w, r, msg)
}

// Status reports the client's session.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, newSessionPayload(store.Current(), store.State(), h.Router, h.Pages))
}

// fail sends a failed form submission back to its page, or returns it as JSON.
func (h *AuthHandlers) fail(w http.ResponseWriter, r *http.Request, page domainauth.Page, msg string, code int) {
	if wantsJSON(r) {
		WriteFailure(w, code, msg)
		return
	}
	http.Redirect(w, r, h.Pages.WithError(page, msg), http.StatusSeeOther)
}

func (h *AuthHandlers) decodeRegistration(w http.ResponseWriter, r *http.Request) (domainauth.RegistrationForm, bool) {
	var form domainauth.RegistrationForm
	if isJSONBody(r) {
		return form, DecodeJSON(w, r, &form)
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, domainauth.PageRegister, "Invalid form submission.", http.StatusBadRequest)
		return form, false
	}
	form = domainauth.RegistrationForm{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Email:           r.PostFormValue("email"),
		UserType:        r.PostFormValue("user_type"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		AcceptTerms:     checkboxValue(r.PostFormValue("terms")),
	}
	return form, true
}

func (h *AuthHandlers) decodeLogin(w http.ResponseWriter, r *http.Request) (domainauth.LoginForm, bool) {
	var form domainauth.LoginForm
	if isJSONBody(r) {
		ok := DecodeJSON(w, r, &form)
		form.Email = strings.TrimSpace(form.Email)
		return form, ok
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, domainauth.PageLogin, "Invalid form submission.", http.StatusBadRequest)
		return form, false
	}
	form.Email = strings.TrimSpace(r.PostFormValue("email"))
	form.Password = r.PostFormValue("password")
	return form, true
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// checkboxValue interprets an HTML checkbox submission.
func checkboxValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// statusFor maps an operation failure to an HTTP status for script clients.
func statusFor(err error) int {
	var ve *domainauth.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	switch domainauth.ProviderCode(err) {
	case domainauth.CodeEmailInUse:
		return http.StatusConflict
	case domainauth.CodeInvalidEmail, domainauth.CodeWeakPassword:
		return http.StatusBadRequest
	case domainauth.CodeUserNotFound, domainauth.CodeWrongPassword,
		domainauth.CodeInvalidCredential, domainauth.CodeNotSignedIn:
		return http.StatusUnauthorized
	case domainauth.CodeTooManyRequests:
		return http.StatusTooManyRequests
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
