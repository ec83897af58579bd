// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Gateway errors.
var (
	// ErrValidation marks input rejected before any gateway work.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimitExceeded means the per-minute request budget is spent.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrCircuitOpen means the provider circuit breaker is failing fast.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrMalformedResponse means the model payload could not be decoded into a known shape.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrUpstreamError means the model payload carried an explicit error marker.
	ErrUpstreamError = errors.New("model reported an error")
	// ErrTruncated means the model stopped at its output token limit.
	ErrTruncated = errors.New("model response truncated")
	// ErrRemoteDisabled means no remote provider is configured.
	ErrRemoteDisabled = errors.New("remote provider disabled")
	// ErrEmptyResult means the model answered but extracted nothing.
	ErrEmptyResult = errors.New("model returned no records")
)

// Storage errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RemoteAPIError is returned when the LLM provider answers with a non-2xx status
// or cannot be reached at all (Status 0).
type RemoteAPIError struct {
	Err    error
	Body   string
	Status int
}

func (e *RemoteAPIError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("remote API unreachable: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("remote API error (status %d): %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("remote API error (status %d)", e.Status)
	}
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// StatusOf extracts the HTTP status carried by a RemoteAPIError, or 0.
func StatusOf(err error) int {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsRetryableStatus reports whether a provider status is worth another attempt.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// NewValidationError wraps ErrValidation with a field-specific message.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// FailureReason renders an error as the short reason stored in audit records.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrUpstreamError):
		return "upstream_error"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrRemoteDisabled):
		return "remote_disabled"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	if status := StatusOf(err); status != 0 {
		return fmt.Sprintf("remote_api_error_%d", status)
	}
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return "remote_unreachable"
	}
	return "internal_error"
}
