package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/http/validation"
)

const maxNameLength = 50

// ProfileHandlers serves the signed-in account's profile.
type ProfileHandlers struct {
	Sessions SessionProvider
	Logger   *slog.Logger
}

func (h *ProfileHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type profileResponse struct {
	Success bool                `json:"success"`
	Profile *domainauth.Profile `json:"profile"`
}

// Update applies a partial profile change. Role changes are limited to the
// account types a visitor could pick at sign-up.
// PATCH /api/profile.
func (h *ProfileHandlers) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.Sessions, h.logger())
	if !ok {
		return
	}
	if !confirmed(r, store) {
		WriteFailure(w, http.StatusUnauthorized, "Please sign in first.")
		return
	}

	var upd domainauth.ProfileUpdate
	if !DecodeJSON(w, r, &upd) {
		return
	}
	if upd.Empty() {
		WriteFailure(w, http.StatusBadRequest, "Nothing to update.")
		return
	}
	if msg := validateNames(upd); msg != "" {
		WriteFailure(w, http.StatusBadRequest, msg)
		return
	}
	if upd.Role != nil && !upd.Role.IsSelectable() {
		WriteFailure(w, http.StatusBadRequest, domainauth.MsgInvalidUserType)
		return
	}

	p, err := store.UpdateProfile(r.Context(), upd)
	if err != nil {
		h.logger().WarnContext(r.Context(), "profile update failed", "error", err)
		WriteFailure(w, statusFor(err), profileErrorMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, profileResponse{Success: true, Profile: p})
}

// Get returns the signed-in account's profile.
// GET /api/profile.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.Sessions, h.logger())
	if !ok {
		return
	}
	if !confirmed(r, store) {
		WriteFailure(w, http.StatusUnauthorized, "Please sign in first.")
		return
	}
	WriteJSON(w, http.StatusOK, profileResponse{Success: true, Profile: store.Current().Profile})
}

// profileErrorMessage prefers the store's own message for storage failures
// it classified, keeping internal ones generic.
func profileErrorMessage(err error) string {
	switch apperrors.GetCode(err) {
	case "", apperrors.ErrCodeInternal:
		return domainauth.UserMessage(err)
	}
	return apperrors.Message(err)
}

func validateNames(upd domainauth.ProfileUpdate) string {
	fv := validation.New()
	if upd.FirstName != nil {
		fv.Validate("firstName", *upd.FirstName,
			validation.Required("First name"),
			validation.MaxLen("First name", maxNameLength),
			validation.PrintableText("First name"))
	}
	if upd.LastName != nil {
		fv.Validate("lastName", *upd.LastName,
			validation.MaxLen("Last name", maxNameLength),
			validation.PrintableText("Last name"))
	}
	return fv.First()
}
