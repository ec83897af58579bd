package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
)

// RetryPolicy controls how a failed remote call is retried.
type RetryPolicy struct {
	MaxAttempts          int           `json:"max_attempts"`
	RateLimitMaxAttempts int           `json:"rate_limit_max_attempts"`
	BaseDelay            time.Duration `json:"base_delay"`
	RateLimitBaseDelay   time.Duration `json:"rate_limit_base_delay"`
	MaxDelay             time.Duration `json:"max_delay"`
	Jitter               float64       `json:"jitter"`
}

// DefaultRetryPolicy returns two attempts (three on 429) starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          2,
		RateLimitMaxAttempts: 3,
		BaseDelay:            time.Second,
		RateLimitBaseDelay:   2 * time.Second,
		MaxDelay:             10 * time.Second,
		Jitter:               0.3,
	}
}

// NewRetryPolicy derives a policy from the configured attempt cap and base delay.
// Rate-limited responses get one extra attempt and twice the base delay.
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
		p.RateLimitMaxAttempts = maxAttempts + 1
	}
	if baseDelay > 0 {
		p.BaseDelay = baseDelay
		p.RateLimitBaseDelay = 2 * baseDelay
	}
	return p
}

// Executor runs remote calls under a RetryPolicy and feeds the outcome to a CircuitBreaker.
type Executor struct {
	breaker *CircuitBreaker
	clock   Clock
	logger  *slog.Logger
	random  func() float64
	policy  RetryPolicy
}

// NewExecutor creates an executor.
func NewExecutor(policy RetryPolicy, breaker *CircuitBreaker, clock Clock, logger *slog.Logger) *Executor {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		policy:  policy,
		breaker: breaker,
		clock:   clock,
		logger:  logger,
		random:  rand.Float64,
	}
}

// Policy returns the active retry policy.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Execute calls op until it succeeds, fails with a non-retryable status, or
// runs out of attempts. Failures surface as *common.RemoteAPIError. A call
// abandoned because ctx ended is not counted against the breaker.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	hardCap := max(e.policy.MaxAttempts, e.policy.RateLimitMaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= hardCap; attempt++ {
		err := op(ctx)
		if err == nil {
			e.recordSuccess(ctx)
			return nil
		}
		lastErr = err

		status := common.StatusOf(err)
		if !common.IsRetryableStatus(status) || attempt >= e.maxAttempts(status) {
			break
		}

		delay := e.Backoff(status, attempt)
		e.logger.Warn("remote call failed, retrying",
			"attempt", attempt,
			"max_attempts", e.maxAttempts(status),
			"status", status,
			"delay", delay,
			"error", err)

		if sleepErr := e.clock.Sleep(ctx, delay); sleepErr != nil {
			lastErr = fmt.Errorf("backoff interrupted (%v): %w", sleepErr, err)
			break
		}
	}

	if ctx.Err() != nil {
		return asRemoteAPIError(lastErr)
	}
	e.recordFailure(ctx)
	return asRemoteAPIError(lastErr)
}

// Backoff returns the wait before the attempt following attempt.
func (e *Executor) Backoff(status, attempt int) time.Duration {
	base := e.policy.BaseDelay
	if status == http.StatusTooManyRequests {
		base = e.policy.RateLimitBaseDelay
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))
	delay += delay * e.policy.Jitter * e.random()

	if e.policy.MaxDelay > 0 && delay > float64(e.policy.MaxDelay) {
		return e.policy.MaxDelay
	}
	return time.Duration(delay)
}

func (e *Executor) maxAttempts(status int) int {
	if status == http.StatusTooManyRequests {
		return e.policy.RateLimitMaxAttempts
	}
	return e.policy.MaxAttempts
}

func (e *Executor) recordSuccess(ctx context.Context) {
	if e.breaker != nil {
		e.breaker.RecordSuccess(ctx)
	}
}

func (e *Executor) recordFailure(ctx context.Context) {
	if e.breaker != nil {
		e.breaker.RecordFailure(ctx)
	}
}

func asRemoteAPIError(err error) error {
	var apiErr *common.RemoteAPIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &common.RemoteAPIError{Err: err}
}
