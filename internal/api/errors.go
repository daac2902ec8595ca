package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned by the dispatcher for any non-2xx final status. It
// carries the HTTP status and the best-effort response body so callers can
// branch on the failure class without re-parsing.
type Error struct {
	// Status is the final HTTP status code, after any refresh-and-retry.
	Status int
	// Message is the server-provided message or error field when present,
	// else the raw body text, else the status line.
	Message string
	// Body is the raw response body.
	Body []byte
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("portal: HTTP %d: %s", e.Status, e.Message)
}

// StatusCode extracts the HTTP status from a dispatcher error, or 0 when
// err is not one.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsStatus reports whether err is a dispatcher error with the given status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// IsUnauthorized reports whether err is a final 401, meaning the session
// could not be re-established and the caller should clear state and
// re-authenticate.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

func newError(status int, body []byte, data any) *Error {
	message := ""
	if m, ok := data.(map[string]any); ok {
		if s, ok := m["message"].(string); ok && s != "" {
			message = s
		} else if s, ok := m["error"].(string); ok && s != "" {
			message = s
		}
	}
	if message == "" && len(body) > 0 {
		message = string(body)
	}
	if message == "" {
		message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return &Error{Status: status, Message: message, Body: body}
}
