package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, llm.DefaultGeminiModel, cfg.LLM.Model)
	assert.Equal(t, llm.DefaultMaxTokens, cfg.LLM.MaxTokens)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, llm.DefaultTemperature, *cfg.LLM.Temperature, 1e-9)
	assert.Empty(t, cfg.LLM.APIKey)

	assert.Equal(t, 50, cfg.Resilience.RateLimit)
	assert.Equal(t, 5, cfg.Resilience.CircuitBreakerThreshold)
	assert.Equal(t, 300*time.Second, cfg.Resilience.CircuitBreakerReset)
	assert.Equal(t, 2, cfg.Resilience.MaxRetries)
	assert.Equal(t, time.Second, cfg.Resilience.RetryBaseDelay)

	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.FallbackTTL)

	assert.NotContains(t, cfg.Database.Path, "$HOME")
	assert.True(t, filepath.IsAbs(cfg.Database.Path))
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper()
	v.Set("llm.api_key", "from-config")
	v.Set("llm.model", "gemini-2.0-flash")
	v.Set("resilience.rate_limit", 10)
	v.Set("resilience.circuit_breaker_reset_seconds", 60)
	v.Set("resilience.retry_base_delay_ms", 250)
	v.Set("cache.backend", BackendMemory)
	v.Set("cache.ttl", "1h")
	v.Set("database.path", "/tmp/spice-test.db")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "from-config", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Resilience.RateLimit)
	assert.Equal(t, time.Minute, cfg.Resilience.CircuitBreakerReset)
	assert.Equal(t, 250*time.Millisecond, cfg.Resilience.RetryBaseDelay)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "/tmp/spice-test.db", cfg.Database.Path)
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)

	v := newViper()
	v.Set("llm.api_key", "from-config")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.LLM.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "backend", key: "cache.backend", value: "redis"},
		{name: "rate limit", key: "resilience.rate_limit", value: -1},
		{name: "threshold", key: "resilience.circuit_breaker_threshold", value: -3},
		{name: "retries", key: "resilience.max_retries", value: -1},
		{name: "temperature", key: "llm.temperature", value: 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPICE_DOTENV_TEST_KEY=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SPICE_DOTENV_TEST_KEY") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "loaded", os.Getenv("SPICE_DOTENV_TEST_KEY"))
}

func TestLoadDotEnv_KeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPICE_DOTENV_EXISTING=file\n"), 0o600))
	t.Setenv("SPICE_DOTENV_EXISTING", "process")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "process", os.Getenv("SPICE_DOTENV_EXISTING"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICE_PATH_TEST", "/var/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/spice/gateway.db", want: filepath.Join(home, "spice", "gateway.db")},
		{in: "$SPICE_PATH_TEST/gateway.db", want: "/var/data/gateway.db"},
		{in: "/abs/path.db", want: "/abs/path.db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
