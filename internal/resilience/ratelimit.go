package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/spice-gateway/internal/kv"
)

// DefaultRateLimit is the number of remote calls allowed per calendar minute.
const DefaultRateLimit = 50

const (
	minuteKeyTTL = 2 * time.Minute
	dayKeyTTL    = 48 * time.Hour
)

// RateLimiter counts requests per provider in fixed calendar-minute windows.
type RateLimiter struct {
	store  kv.Store
	clock  Clock
	logger *slog.Logger
	limit  int
}

// Usage reports the counters for one provider.
type Usage struct {
	ThisMinute int64 `json:"requests_this_minute"`
	Today      int64 `json:"requests_today"`
	Limit      int   `json:"limit_per_minute"`
}

// NewRateLimiter creates a limiter allowing limit calls per minute.
func NewRateLimiter(store kv.Store, limit int, clock Clock, logger *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{store: store, limit: limit, clock: clock, logger: logger}
}

// TryAcquire records one request and reports whether it fits in the current window.
// A rejected call still counts against the window. This is the only place the
// minute and daily counters are incremented.
func (rl *RateLimiter) TryAcquire(ctx context.Context, provider string) bool {
	now := rl.clock.Now()

	count, err := rl.store.Increment(ctx, minuteKey(provider, now), minuteKeyTTL)
	if err != nil {
		rl.logger.Warn("rate limit counter unavailable, allowing request",
			"provider", provider,
			"error", err)
		return true
	}

	if _, err := rl.store.Increment(ctx, dayKey(provider, now), dayKeyTTL); err != nil {
		rl.logger.Warn("daily usage counter unavailable",
			"provider", provider,
			"error", err)
	}

	if count > int64(rl.limit) {
		rl.logger.Warn("rate limit exceeded",
			"provider", provider,
			"count", count,
			"limit", rl.limit)
		return false
	}
	return true
}

// Usage reads the current minute and daily counters without incrementing them.
func (rl *RateLimiter) Usage(ctx context.Context, provider string) (Usage, error) {
	now := rl.clock.Now()

	minute, err := readCounter(ctx, rl.store, minuteKey(provider, now))
	if err != nil {
		return Usage{}, err
	}
	today, err := readCounter(ctx, rl.store, dayKey(provider, now))
	if err != nil {
		return Usage{}, err
	}

	return Usage{ThisMinute: minute, Today: today, Limit: rl.limit}, nil
}

// Limit returns the configured requests per minute.
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

func minuteKey(provider string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s", provider, now.UTC().Format("200601021504"))
}

func dayKey(provider string, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", provider, now.UTC().Format("20060102"))
}

func readCounter(ctx context.Context, store kv.Store, key string) (int64, error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s is corrupt: %w", key, err)
	}
	return n, nil
}
