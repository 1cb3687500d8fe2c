package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxJSONBody = 64 << 10

// DecodeJSON decodes a JSON request body into dst. It returns false after
// writing an error response when the body is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body."
		if errors.Is(err, io.EOF) {
			msg = "Request body is empty."
		}
		WriteFailure(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Client went away; nothing to recover.
		return
	}
}

// failureResponse is the body returned to script clients when an operation fails.
type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteFailure writes {"success":false,"message":...} with code.
func WriteFailure(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, failureResponse{Success: false, Message: message})
}
