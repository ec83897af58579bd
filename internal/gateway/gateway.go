// Package gateway orchestrates natural-language extraction. Every request goes
// through the result cache, the rate limiter and the circuit breaker before the
// remote model is called, and any failure along the way is absorbed by the
// rule-based fallback so callers always receive a result.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/spice-gateway/internal/cache"
	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/kv"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/Veraticus/spice-gateway/internal/resilience"
	"golang.org/x/sync/singleflight"
)

// Input limits.
const (
	DefaultMaxTextLength = 1000
	DefaultMaxImageBytes = 5 << 20
)

// DefaultFallbackTTL is how long a fallback result stays cached.
const DefaultFallbackTTL = 5 * time.Minute

const offlineProviderName = "offline"

// SupportedImageTypes lists the receipt image formats accepted by ScanReceipt.
var SupportedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// Config tunes the gateway.
type Config struct {
	Retry               resilience.RetryPolicy
	CacheTTL            time.Duration
	FallbackCacheTTL    time.Duration
	BreakerResetTimeout time.Duration
	RateLimit           int
	BreakerThreshold    int
	MaxTextLength       int
	MaxImageBytes       int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Retry:               resilience.DefaultRetryPolicy(),
		CacheTTL:            cache.DefaultTTL,
		FallbackCacheTTL:    DefaultFallbackTTL,
		BreakerResetTimeout: resilience.DefaultResetTimeout,
		RateLimit:           resilience.DefaultRateLimit,
		BreakerThreshold:    resilience.DefaultFailureThreshold,
		MaxTextLength:       DefaultMaxTextLength,
		MaxImageBytes:       DefaultMaxImageBytes,
	}
}

// AuditSink receives one record per gateway invocation.
type AuditSink interface {
	RecordAudit(ctx context.Context, rec model.AuditRecord) error
}

// Deps are the gateway's collaborators. Store is required; a nil Client runs
// every request through the fallback extractor.
type Deps struct {
	Store  kv.Store
	Client llm.Client
	Audit  AuditSink
	Clock  resilience.Clock
	Logger *slog.Logger
}

// Gateway is the resilient extraction entry point.
type Gateway struct {
	client   llm.Client
	audit    AuditSink
	clock    resilience.Clock
	logger   *slog.Logger
	limiter  *resilience.RateLimiter
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
	cache    *cache.ResultCache
	prompts  *llm.PromptBuilder
	provider string
	flights  singleflight.Group
	cfg      Config
}

// New wires a gateway from its configuration and collaborators.
func New(cfg Config, deps Deps) (*Gateway, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: gateway requires a key/value store", common.ErrMissingConfig)
	}

	defaults := DefaultConfig()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = defaults.Retry
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.FallbackCacheTTL <= 0 {
		cfg.FallbackCacheTTL = defaults.FallbackCacheTTL
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaults.MaxTextLength
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaults.MaxImageBytes
	}

	clock := deps.Clock
	if clock == nil {
		clock = resilience.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := offlineProviderName
	if deps.Client != nil {
		provider = deps.Client.Name()
	}

	breaker := resilience.NewCircuitBreaker(deps.Store, provider, cfg.BreakerThreshold, cfg.BreakerResetTimeout, clock, logger)

	return &Gateway{
		client:   deps.Client,
		audit:    deps.Audit,
		clock:    clock,
		logger:   logger,
		limiter:  resilience.NewRateLimiter(deps.Store, cfg.RateLimit, clock, logger),
		breaker:  breaker,
		executor: resilience.NewExecutor(cfg.Retry, breaker, clock, logger),
		cache:    cache.New(deps.Store, cfg.CacheTTL, logger),
		prompts:  llm.NewPromptBuilder(),
		provider: provider,
		cfg:      cfg,
	}, nil
}

// Provider returns the provider key used for limits and the breaker.
func (g *Gateway) Provider() string {
	return g.provider
}

// ModelName returns the remote model name, or "" when offline.
func (g *Gateway) ModelName() string {
	if g.client == nil {
		return ""
	}
	return g.client.Model()
}

// generate runs one gated remote call: rate limiter, circuit breaker, then the
// retrying executor. A truncated answer is reported as common.ErrTruncated.
func (g *Gateway) generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	if g.client == nil {
		return llm.GenerateResponse{}, common.ErrRemoteDisabled
	}
	if !g.limiter.TryAcquire(ctx, g.provider) {
		return llm.GenerateResponse{}, common.ErrRateLimitExceeded
	}
	if g.breaker.IsOpen(ctx) {
		return llm.GenerateResponse{}, common.ErrCircuitOpen
	}

	var resp llm.GenerateResponse
	err := g.executor.Execute(ctx, func(ctx context.Context) error {
		r, err := g.client.GenerateContent(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return llm.GenerateResponse{}, err
	}

	if resp.Truncated() {
		return llm.GenerateResponse{}, fmt.Errorf("%w: finish reason %s", common.ErrTruncated, resp.FinishReason)
	}
	return resp, nil
}

// cacheTTL keeps fallback results briefly so a recovered provider is used soon.
func (g *Gateway) cacheTTL(fallbackUsed bool) time.Duration {
	if fallbackUsed {
		return g.cfg.FallbackCacheTTL
	}
	return g.cfg.CacheTTL
}

// storeResult skips requests the caller abandoned; their fallback result
// says nothing about the provider.
func (g *Gateway) storeResult(ctx context.Context, key string, value any, fallbackUsed bool) {
	if ctx.Err() != nil {
		return
	}
	if err := g.cache.Put(ctx, key, value, g.cacheTTL(fallbackUsed)); err != nil {
		g.logger.Warn("failed to cache result", "key", key, "error", err)
	}
}

func (g *Gateway) logFallback(module model.Module, err error) {
	g.logger.Warn("using fallback extraction",
		"module", module,
		"provider", g.provider,
		"reason", common.FailureReason(err),
		"error", err)
}

func fallbackNote(err error) string {
	return fmt.Sprintf("AI extraction unavailable (%s); parsed with fallback rules", common.FailureReason(err))
}

func validateText(rawText string, maxLength int) (string, error) {
	if !utf8.ValidString(rawText) {
		return "", common.NewValidationError("text is not valid UTF-8")
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		return "", common.NewValidationError("text is required")
	}
	if n := utf8.RuneCountInString(text); n > maxLength {
		return "", common.NewValidationError("text is %d characters, the limit is %d", n, maxLength)
	}
	return text, nil
}

// validateImage checks the mime type and size and returns the normalized
// base64 payload together with its decoded bytes.
func validateImage(imageBase64, mimeType string, maxBytes int) (string, string, []byte, error) {
	data := strings.TrimSpace(imageBase64)
	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if !ok {
			return "", "", nil, common.NewValidationError("image data URL has no payload")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		data = payload
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	supported := false
	for _, t := range SupportedImageTypes {
		if t == mimeType {
			supported = true
			break
		}
	}
	if !supported {
		return "", "", nil, common.NewValidationError("unsupported image type %q", mimeType)
	}

	if data == "" {
		return "", "", nil, common.NewValidationError("image is required")
	}
	if base64.StdEncoding.DecodedLen(len(data)) > maxBytes+3 {
		return "", "", nil, common.NewValidationError("image exceeds %d bytes", maxBytes)
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", nil, common.NewValidationError("image is not valid base64: %v", err)
	}
	if len(decoded) > maxBytes {
		return "", "", nil, common.NewValidationError("image exceeds %d bytes", maxBytes)
	}
	return data, mimeType, decoded, nil
}
