package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-200 response from the platform backend.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the backend error code (e.g., "not_found")
	Code string `json:"error"`

	// Message is a human-readable description of the error
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// parseErrorResponse decodes the backend's error body, falling back to a
// generic error built from the status code.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       errResp.Error,
			Message:    errResp.Message,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Code:       "unexpected_status",
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}
