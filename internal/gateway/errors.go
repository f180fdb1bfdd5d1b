package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured means the backend URL is unset or still the placeholder.
// It is fatal for the session and must not be retried.
var ErrNotConfigured = errors.New("backend API URL not configured")

// codeNotConfigured marks proxy error bodies caused by ErrNotConfigured so
// clients can tell them apart from ordinary 500s.
const codeNotConfigured = "not_configured"

// StatusError is a non-2xx response from the gateway.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Code       string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap exposes ErrNotConfigured for proxy configuration failures.
func (e *StatusError) Unwrap() error {
	if e.Code == codeNotConfigured {
		return ErrNotConfigured
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the gateway.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
