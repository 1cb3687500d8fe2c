package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const (
	defaultProfilePageSize = 50
	maxProfilePageSize     = 200
)

// AdminHandlers serves the admin dashboard's data.
type AdminHandlers struct {
	Sessions SessionProvider
	Profiles ports.ProfileLister // nil disables listing
	Logger   *slog.Logger
}

type profileListResponse struct {
	Success  bool                       `json:"success"`
	Profiles []domainauth.ProfileRecord `json:"profiles"`
	Limit    int                        `json:"limit"`
	Offset   int                        `json:"offset"`
}

// ListProfiles pages through stored profiles. Admins only.
// GET /api/admin/profiles?role=&limit=&offset=.
func (h *AdminHandlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store, ok := lookupStore(w, r, h.Sessions, logger)
	if !ok {
		return
	}
	if !confirmed(r, store) {
		WriteFailure(w, http.StatusUnauthorized, "Please sign in first.")
		return
	}
	if store.Current().Role() != domainauth.RoleAdmin {
		WriteFailure(w, http.StatusForbidden, "You do not have access to this page.")
		return
	}
	if h.Profiles == nil {
		WriteFailure(w, http.StatusNotImplemented, "Profile listing is not available.")
		return
	}

	role := domainauth.Role(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))))
	if role != "" && !role.IsKnown() {
		WriteFailure(w, http.StatusBadRequest, "Unknown account type.")
		return
	}
	limit, offset := pageParams(r.URL.Query(), defaultProfilePageSize, maxProfilePageSize)

	records, err := h.Profiles.ListProfiles(r.Context(), role, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "list profiles failed", "error", err)
		WriteFailure(w, http.StatusInternalServerError, domainauth.GenericMessage)
		return
	}
	if records == nil {
		records = []domainauth.ProfileRecord{}
	}
	WriteJSON(w, http.StatusOK, profileListResponse{Success: true, Profiles: records, Limit: limit, Offset: offset})
}

// pageParams reads limit and offset from q. Missing or malformed values take
// the defaults; limit is clamped to [1, maxLimit] and offset to >= 0.
func pageParams(q url.Values, defLimit, maxLimit int) (limit, offset int) {
	limit, offset = defLimit, 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = n
	}
	limit = min(max(limit, 1), max(maxLimit, 1))
	return limit, max(offset, 0)
}
