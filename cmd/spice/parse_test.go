package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/config"
	"github.com/Veraticus/spice-gateway/internal/gateway"
	"github.com/Veraticus/spice-gateway/internal/kv"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch(t *testing.T) {
	gw, err := gateway.New(gateway.DefaultConfig(), gateway.Deps{
		Store:  kv.NewMemoryStore(nil),
		Client: llm.NewMockClient(llm.TextResponse(`{"transactions":[{"type":"expense","amount":10,"category":"food","confidence":0.9}]}`)),
		Logger: common.DiscardLogger(),
	})
	require.NoError(t, err)

	lines := []string{"lunch 10 tk", strings.Repeat("x", gateway.DefaultMaxTextLength+1), "coffee 10 tk", "lunch 10 tk"}

	var calls atomic.Int32
	results, err := runBatch(context.Background(), gw, lines, "batch-user", 2, func() { calls.Add(1) })
	require.NoError(t, err)
	require.Len(t, results, len(lines))

	assert.Equal(t, int32(len(lines)), calls.Load())
	for i, r := range results {
		assert.Equal(t, lines[i], r.line, "results keep input order")
	}
	assert.ErrorIs(t, results[1].err, common.ErrValidation)
	assert.NoError(t, results[0].err)

	s := summarize(results)
	assert.Equal(t, batchSummary{total: 4, ai: 3, rejected: 1}, s)

	out := batchJSON(results)
	require.Len(t, out, 4)
	assert.NotEmpty(t, out[1].Error)
	assert.Nil(t, out[1].Result)
	require.NotNil(t, out[0].Result)
	assert.Len(t, out[0].Result.Transactions, 1)
}

type failingParser struct{}

func (failingParser) ParseFinanceText(context.Context, string, string) (model.ParseResult, error) {
	return model.ParseResult{}, errors.New("store offline")
}

func TestRunBatch_InternalErrorStops(t *testing.T) {
	_, err := runBatch(context.Background(), failingParser{}, []string{"a", "b"}, "", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}

func TestRunBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw, err := gateway.New(gateway.DefaultConfig(), gateway.Deps{Store: kv.NewMemoryStore(nil), Logger: common.DiscardLogger()})
	require.NoError(t, err)

	_, err = runBatch(ctx, gw, []string{"lunch 10 tk"}, "", 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("# expenses\nlunch 10 tk\n\n  coffee 5 tk  \n"), 0o600))

	lines, err := readBatchFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lunch 10 tk", "coffee 5 tk"}, lines)

	lines, err = readBatchFile("-", strings.NewReader("tea 3 tk\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tea 3 tk"}, lines)

	_, err = readBatchFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestDetectImageType(t *testing.T) {
	assert.Equal(t, "image/jpeg", detectImageType("receipt.JPG", nil))
	assert.Equal(t, "image/heic", detectImageType("IMG_0001.heic", nil))

	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "image/png", detectImageType("upload", png))
}

func TestGatewayConfig(t *testing.T) {
	cfg := config.Config{
		Resilience: config.ResilienceConfig{
			RateLimit:               20,
			CircuitBreakerThreshold: 3,
			CircuitBreakerReset:     time.Minute,
			MaxRetries:              4,
			RetryBaseDelay:          500 * time.Millisecond,
		},
		Cache: config.CacheConfig{TTL: time.Hour, FallbackTTL: time.Minute},
	}

	gc := gatewayConfig(cfg)
	assert.Equal(t, 20, gc.RateLimit)
	assert.Equal(t, 3, gc.BreakerThreshold)
	assert.Equal(t, time.Minute, gc.BreakerResetTimeout)
	assert.Equal(t, 4, gc.Retry.MaxAttempts)
	assert.Equal(t, 5, gc.Retry.RateLimitMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, gc.Retry.BaseDelay)
	assert.Equal(t, time.Hour, gc.CacheTTL)
	assert.Equal(t, gateway.DefaultMaxTextLength, gc.MaxTextLength)
}
