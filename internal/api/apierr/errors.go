package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/battlerelay/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError. Endpoints is filled for routing errors
// so clients can discover what the relay serves.
type ErrorResponse struct {
	Success   bool     `json:"success"`
	Error     APIError `json:"error"`
	Endpoints []string `json:"endpoints,omitempty"`
}

// Common error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeWeaponNotFound     = "WEAPON_NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	write(w, toHTTPError(err), nil)
}

// WriteRoutingError writes a 404 or 405 listing the available endpoints
func WriteRoutingError(w http.ResponseWriter, err error, endpoints []string) {
	write(w, toHTTPError(err), endpoints)
}

func write(w http.ResponseWriter, he *httpError, endpoints []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError, Endpoints: endpoints})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrInvalidWeapon):
		return &httpError{http.StatusNotFound, APIError{CodeWeaponNotFound, "Weapon not found"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewNotFoundError creates a route not found error
func NewNotFoundError(path string) error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Route " + path + " not found"}}
}

// NewMethodNotAllowedError creates a method not allowed error
func NewMethodNotAllowedError(method, path string) error {
	return &httpError{http.StatusMethodNotAllowed, APIError{CodeMethodNotAllowed, "Method " + method + " not allowed on " + path}}
}

// NewServiceUnavailableError reports a dependency the relay could not reach
func NewServiceUnavailableError(message string) error {
	return &httpError{http.StatusServiceUnavailable, APIError{CodeServiceUnavailable, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
