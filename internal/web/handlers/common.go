package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst. On failure it writes the error
// response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, "request body is empty")
		default:
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		}
		return false
	}
	return true
}

// fieldError names one rejected request field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationErrors collects every problem found in a request body so the
// client sees all of them at once.
type validationErrors []fieldError

func (v *validationErrors) add(field, format string, args ...any) {
	*v = append(*v, fieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// respond writes a 400 listing the errors and reports whether there were any.
func (v validationErrors) respond(w http.ResponseWriter) bool {
	if len(v) == 0 {
		return false
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "validation failed",
		"details": v,
	})
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// MethodNotAllowed replaces chi's plain-text 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// NotFound replaces chi's plain-text 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}
