package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	serverErr := &RequestError{StatusCode: 503, Message: "unavailable"}

	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		result, err := Retry(3, "upload failed", func() (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries server errors until success", func(t *testing.T) {
		calls := 0
		result, err := Retry(3, "upload failed", func() (string, error) {
			calls++
			if calls < 3 {
				return "", serverErr
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts attempts on persistent server error", func(t *testing.T) {
		calls := 0
		_, err := Retry(3, "upload failed", func() (string, error) {
			calls++
			return "", serverErr
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "upload failed after 3 attempts")
		assert.True(t, errors.Is(err, serverErr) || errors.As(err, new(*RequestError)))
	})

	t.Run("client error propagates immediately", func(t *testing.T) {
		calls := 0
		clientErr := &RequestError{StatusCode: 400, Message: "bad request"}
		_, err := Retry(3, "upload failed", func() (int, error) {
			calls++
			return 0, clientErr
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Same(t, clientErr, err)
	})

	t.Run("non request errors are not retried", func(t *testing.T) {
		calls := 0
		plain := errors.New("boom")
		_, err := Retry(5, "op failed", func() (int, error) {
			calls++
			return 0, plain
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Same(t, plain, err)
	})

	t.Run("attempt count floor is one", func(t *testing.T) {
		calls := 0
		_, err := Retry(0, "op failed", func() (int, error) {
			calls++
			return 0, serverErr
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(&RequestError{StatusCode: 500}))
	assert.True(t, IsServerError(&RequestError{StatusCode: 599}))
	assert.False(t, IsServerError(&RequestError{StatusCode: 404}))
	assert.False(t, IsServerError(errors.New("plain")))
	assert.False(t, IsServerError(nil))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 418, StatusCode(&RequestError{StatusCode: 418}))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}
