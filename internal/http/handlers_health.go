package httpx

import (
	"net/http"
)

// SessionCounter reports how many client sessions are live.
type SessionCounter interface {
	Len() int
}

// HealthHandlers serves readiness/liveness checks.
type HealthHandlers struct {
	Sessions SessionCounter // optional
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions *int   `json:"sessions,omitempty"`
}

// Health returns a simple 200 OK status, with the live session count when known.
// GET /healthz.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	out := healthResponse{Status: "ok"}
	if h != nil && h.Sessions != nil {
		n := h.Sessions.Len()
		out.Sessions = &n
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
