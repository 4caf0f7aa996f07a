package api

import "fmt"

// Retry invokes op up to maxAttempts times. Only server errors (HTTP 5xx) are
// retried; any other failure propagates immediately. When all attempts are
// exhausted the last failure is wrapped with the message and attempt count.
//
// There is intentionally no backoff between attempts: the policy is
// fixed-count immediate retry.
func Retry[T any](maxAttempts int, message string, op func() (T, error)) (T, error) {
	var zero T

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}

		if !IsServerError(err) {
			return zero, err
		}

		lastErr = err
	}

	return zero, fmt.Errorf("%s after %d attempts: %w", message, maxAttempts, lastErr)
}
