package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-gateway/internal/kv"
)

// Circuit breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 300 * time.Second
)

// BreakerStatus is the externally visible breaker state.
type BreakerStatus string

// Breaker states. There is no half-open state: after the cool-down the first
// call simply closes the breaker and proceeds.
const (
	BreakerClosed BreakerStatus = "closed"
	BreakerOpen   BreakerStatus = "open"
)

// BreakerState is a snapshot of one provider's breaker.
type BreakerState struct {
	LastFailureAt *time.Time    `json:"last_failure_at,omitempty"`
	Provider      string        `json:"provider"`
	Status        BreakerStatus `json:"status"`
	FailureCount  int64         `json:"failure_count"`
	Threshold     int           `json:"threshold"`
	ResetTimeout  time.Duration `json:"reset_timeout"`
}

// CircuitBreaker fails fast once a provider has failed threshold times in a row.
type CircuitBreaker struct {
	store        kv.Store
	clock        Clock
	logger       *slog.Logger
	provider     string
	threshold    int
	resetTimeout time.Duration
}

// NewCircuitBreaker creates a breaker for provider.
func NewCircuitBreaker(store kv.Store, provider string, threshold int, resetTimeout time.Duration, clock Clock, logger *slog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		store:        store,
		provider:     provider,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		clock:        clock,
		logger:       logger,
	}
}

// IsOpen reports whether calls must fail fast. Once the cool-down has elapsed
// the breaker is cleared and the caller proceeds normally.
func (b *CircuitBreaker) IsOpen(ctx context.Context) bool {
	state, err := b.State(ctx)
	if err != nil {
		b.logger.Warn("circuit breaker state unavailable, treating as closed",
			"provider", b.provider,
			"error", err)
		return false
	}
	if state.Status != BreakerOpen {
		return false
	}

	if state.LastFailureAt != nil && b.clock.Now().Sub(*state.LastFailureAt) >= b.resetTimeout {
		if err := b.Reset(ctx); err != nil {
			b.logger.Warn("failed to reset circuit breaker", "provider", b.provider, "error", err)
		}
		b.logger.Info("circuit breaker closed after cool-down",
			"provider", b.provider,
			"failures", state.FailureCount)
		return false
	}

	return true
}

// RecordFailure counts one failed remote call.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) {
	count, err := b.store.Increment(ctx, b.failuresKey(), 0)
	if err != nil {
		b.logger.Warn("failed to record breaker failure", "provider", b.provider, "error", err)
		return
	}

	stamp := b.clock.Now().UTC().Format(time.RFC3339Nano)
	if err := b.store.Put(ctx, b.lastFailureKey(), []byte(stamp), 0); err != nil {
		b.logger.Warn("failed to stamp breaker failure", "provider", b.provider, "error", err)
	}

	if count == int64(b.threshold) {
		b.logger.Warn("circuit breaker opened",
			"provider", b.provider,
			"failures", count,
			"reset_timeout", b.resetTimeout)
	}
}

// RecordSuccess resets the failure count.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) {
	if err := b.store.Delete(ctx, b.failuresKey()); err != nil {
		b.logger.Warn("failed to reset breaker failures", "provider", b.provider, "error", err)
	}
}

// Reset clears all breaker state. Used after the cool-down and by administrators.
func (b *CircuitBreaker) Reset(ctx context.Context) error {
	if err := b.store.Delete(ctx, b.failuresKey()); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}
	if err := b.store.Delete(ctx, b.lastFailureKey()); err != nil {
		return fmt.Errorf("failed to clear last failure: %w", err)
	}
	return nil
}

// State returns the current snapshot without side effects.
func (b *CircuitBreaker) State(ctx context.Context) (BreakerState, error) {
	failures, err := readCounter(ctx, b.store, b.failuresKey())
	if err != nil {
		return BreakerState{}, err
	}

	state := BreakerState{
		Provider:     b.provider,
		Status:       BreakerClosed,
		FailureCount: failures,
		Threshold:    b.threshold,
		ResetTimeout: b.resetTimeout,
	}
	if failures >= int64(b.threshold) {
		state.Status = BreakerOpen
	}

	raw, found, err := b.store.Get(ctx, b.lastFailureKey())
	if err != nil {
		return BreakerState{}, fmt.Errorf("failed to read last failure: %w", err)
	}
	if found {
		last, parseErr := time.Parse(time.RFC3339Nano, string(raw))
		if parseErr != nil {
			return BreakerState{}, fmt.Errorf("last failure timestamp is corrupt: %w", parseErr)
		}
		state.LastFailureAt = &last
	}

	return state, nil
}

func (b *CircuitBreaker) failuresKey() string {
	return "breaker:" + b.provider + ":failures"
}

func (b *CircuitBreaker) lastFailureKey() string {
	return "breaker:" + b.provider + ":last_failure"
}
