package httpx

import (
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

// sessionPayload is the JSON shape of a client's session, shared by
// /auth/status and the /auth/events stream.
type sessionPayload struct {
	Authenticated bool         `json:"authenticated"`
	State         string       `json:"state"`
	User          *userPayload `json:"user,omitempty"`
}

type userPayload struct {
	UID         string              `json:"uid"`
	Email       string              `json:"email"`
	DisplayName string              `json:"displayName"`
	Role        domainauth.Role     `json:"role"`
	Dashboard   string              `json:"dashboard"`
	Profile     *domainauth.Profile `json:"profile,omitempty"`
}

func newSessionPayload(
	sess domainauth.Session,
	state domainauth.AuthState,
	router *service.RoleRouter,
	pages PageURLs,
) sessionPayload {
	out := sessionPayload{Authenticated: sess.SignedIn(), State: state.String()}
	if !sess.SignedIn() {
		return out
	}
	role := sess.Role()
	out.User = &userPayload{
		UID:         sess.Identity.UserID,
		Email:       sess.Identity.Email,
		DisplayName: sess.DisplayName(),
		Role:        role,
		Dashboard:   pages.URL(router.ResolveDestination(role)),
		Profile:     sess.Profile,
	}
	return out
}
