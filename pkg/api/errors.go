package api

import (
	"errors"
	"fmt"
)

// RequestError represents a non-2xx response from a platform API.
type RequestError struct {
	StatusCode int
	Message    string
	// Body is the raw response body, kept for diagnostics.
	Body string
}

// Error returns the error message
func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed (status %d)", e.StatusCode)
}

// Retryable reports whether the failure is a server error worth retrying.
func (e *RequestError) Retryable() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// IsServerError returns true if err is a RequestError with a 5xx status.
func IsServerError(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable()
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// RequestError.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// defaultErrorFactory uses the raw body as the error message.
func defaultErrorFactory(statusCode int, body []byte) error {
	return &RequestError{
		StatusCode: statusCode,
		Message:    string(body),
		Body:       string(body),
	}
}
