package books

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 4096

// ErrInvalidInput is wrapped by errors returned when a create or update
// payload is missing required fields. No request is sent in that case.
var ErrInvalidInput = errors.New("invalid input")

// APIError is returned for every non-2xx response from a resource endpoint,
// including a 401 that persisted after the token was refreshed.
type APIError struct {
	StatusCode int
	Code       int    // Zoho error code from the response body
	Message    string // Zoho error message from the response body
	Body       string // raw response body, truncated
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("zoho books: %s %s: HTTP %d (code %d): %s", e.Method, e.Path, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("zoho books: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

func newAPIError(method, path string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Method:     method,
		Path:       path,
	}

	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxErrorBodyBytes {
		trimmed = trimmed[:maxErrorBodyBytes]
	}
	apiErr.Body = trimmed

	var payload Message
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	}
	return apiErr
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is an APIError with status 401, which
// means the request was rejected even after a forced token refresh.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsRateLimited reports whether err is an APIError with status 429.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
