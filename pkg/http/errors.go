package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse is the wire format for every failed request. The error text
// is safe for end users; operator detail stays in the server log.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes an arbitrary payload as a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// An encode failure here leaves nothing useful to send the client
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes a JSON error body with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteRateLimited writes a 429 with the lockout length mirrored in both the
// Retry-After header (whole seconds) and the JSON body.
func WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int, message string) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	WriteJSON(w, http.StatusTooManyRequests, struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retryAfter"`
	}{Error: message, RetryAfter: retryAfterSeconds})
}
