package gateway

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-gateway/internal/resilience"
)

// UsageStats summarizes the gateway's shared counters.
type UsageStats struct {
	CircuitBreaker       resilience.BreakerState  `json:"circuit_breaker"`
	RetryConfig          resilience.RetryPolicy   `json:"retry_config"`
	Provider             string                   `json:"provider"`
	Model                string                   `json:"model,omitempty"`
	CircuitBreakerStatus resilience.BreakerStatus `json:"circuit_breaker_status"`
	RequestsToday        int64                    `json:"requests_today"`
	RequestsThisMinute   int64                    `json:"requests_this_minute"`
	RateLimit            int                      `json:"rate_limit_per_minute"`
}

// UsageStats reads the rate limiter and circuit breaker counters.
func (g *Gateway) UsageStats(ctx context.Context) (UsageStats, error) {
	usage, err := g.limiter.Usage(ctx, g.provider)
	if err != nil {
		return UsageStats{}, fmt.Errorf("failed to read usage: %w", err)
	}

	state, err := g.breaker.State(ctx)
	if err != nil {
		return UsageStats{}, fmt.Errorf("failed to read circuit breaker: %w", err)
	}

	return UsageStats{
		Provider:             g.provider,
		Model:                g.ModelName(),
		RequestsToday:        usage.Today,
		RequestsThisMinute:   usage.ThisMinute,
		RateLimit:            usage.Limit,
		CircuitBreaker:       state,
		CircuitBreakerStatus: state.Status,
		RetryConfig:          g.executor.Policy(),
	}, nil
}

// HealthCheck reports whether remote extraction is currently possible: a
// provider is configured, shared state is readable and the breaker is not
// failing fast. It never calls the provider.
func (g *Gateway) HealthCheck(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	state, err := g.breaker.State(ctx)
	if err != nil {
		g.logger.Warn("health check could not read breaker state", "error", err)
		return false
	}
	if state.Status != resilience.BreakerOpen {
		return true
	}
	return state.LastFailureAt != nil && g.clock.Now().Sub(*state.LastFailureAt) >= state.ResetTimeout
}

// BreakerState returns the circuit breaker snapshot.
func (g *Gateway) BreakerState(ctx context.Context) (resilience.BreakerState, error) {
	return g.breaker.State(ctx)
}

// ResetCircuitBreaker closes the breaker immediately.
func (g *Gateway) ResetCircuitBreaker(ctx context.Context) error {
	if err := g.breaker.Reset(ctx); err != nil {
		return err
	}
	g.logger.Info("circuit breaker reset", "provider", g.provider)
	return nil
}

// ClearCache drops every cached result and returns how many were removed.
func (g *Gateway) ClearCache(ctx context.Context) (int, error) {
	n, err := g.cache.Clear(ctx)
	if err != nil {
		return 0, err
	}
	g.logger.Info("cache cleared", "entries", n)
	return n, nil
}
