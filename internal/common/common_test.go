package common

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAPIError(t *testing.T) {
	err := fmt.Errorf("classify: %w", &RemoteAPIError{Status: http.StatusServiceUnavailable, Body: "overloaded"})

	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, 0, StatusOf(errors.New("plain")))

	unreachable := &RemoteAPIError{Err: errors.New("dial tcp: refused")}
	assert.Contains(t, unreachable.Error(), "unreachable")
	assert.Equal(t, "remote_unreachable", FailureReason(unreachable))
}

func TestIsRetryableStatus(t *testing.T) {
	for _, status := range []int{429, 500, 503, 504} {
		assert.True(t, IsRetryableStatus(status), "status %d", status)
	}
	for _, status := range []int{0, 400, 401, 403, 404, 502} {
		assert.False(t, IsRetryableStatus(status), "status %d", status)
	}
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "", FailureReason(nil))
	assert.Equal(t, "rate_limit_exceeded", FailureReason(fmt.Errorf("gate: %w", ErrRateLimitExceeded)))
	assert.Equal(t, "circuit_open", FailureReason(ErrCircuitOpen))
	assert.Equal(t, "malformed_response", FailureReason(ErrMalformedResponse))
	assert.Equal(t, "truncated", FailureReason(ErrTruncated))
	assert.Equal(t, "remote_api_error_429", FailureReason(&RemoteAPIError{Status: 429}))
	assert.Equal(t, "empty_result", FailureReason(ErrEmptyResult))
	assert.Equal(t, "validation", FailureReason(NewValidationError("empty")))
	assert.Equal(t, "internal_error", FailureReason(errors.New("boom")))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("text exceeds %d characters", 1000)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "1000")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("parsed", "module", "finance")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"module":"finance"`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
