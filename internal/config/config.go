package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/spice/gateway.db"

// Config is the typed view of everything the gateway reads from viper.
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Logging    LoggingConfig
	Cache      CacheConfig
	LLM        llm.Config
	Resilience ResilienceConfig
}

// ResilienceConfig tunes the rate limiter, circuit breaker and retries.
type ResilienceConfig struct {
	CircuitBreakerReset     time.Duration
	RetryBaseDelay          time.Duration
	RateLimit               int
	CircuitBreakerThreshold int
	MaxRetries              int
}

// CacheConfig selects where shared state lives and how long results are kept.
type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	FallbackTTL   time.Duration
	SweepInterval time.Duration
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// ServerConfig configures `spice serve`.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// LoggingConfig mirrors the --log-level and --log-format flags.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", llm.ProviderGemini)
	v.SetDefault("llm.base_url", llm.DefaultGeminiBaseURL)
	v.SetDefault("llm.model", llm.DefaultGeminiModel)
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)

	v.SetDefault("resilience.rate_limit", 50)
	v.SetDefault("resilience.circuit_breaker_threshold", 5)
	v.SetDefault("resilience.circuit_breaker_reset_seconds", 300)
	v.SetDefault("resilience.max_retries", 2)
	v.SetDefault("resilience.retry_base_delay_ms", 1000)

	v.SetDefault("cache.backend", BackendSQLite)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.fallback_ttl", 5*time.Minute)
	v.SetDefault("cache.sweep_interval", 10*time.Minute)

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.body_limit", 8<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadDotEnv loads the given .env files into the process environment. Missing
// files are skipped and variables that are already set are left alone.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		path := ExpandPath(file)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the configuration from v.
// The API key follows this precedence:
// 1. Viper configuration (from config file or SPICE_LLM_API_KEY)
// 2. The GEMINI_API_KEY environment variable.
func Load(v *viper.Viper) (Config, error) {
	temperature := v.GetFloat64("llm.temperature")
	cfg := Config{
		LLM: llm.Config{
			Provider:    v.GetString("llm.provider"),
			BaseURL:     v.GetString("llm.base_url"),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Temperature: &temperature,
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Resilience: ResilienceConfig{
			RateLimit:               v.GetInt("resilience.rate_limit"),
			CircuitBreakerThreshold: v.GetInt("resilience.circuit_breaker_threshold"),
			CircuitBreakerReset:     time.Duration(v.GetInt("resilience.circuit_breaker_reset_seconds")) * time.Second,
			MaxRetries:              v.GetInt("resilience.max_retries"),
			RetryBaseDelay:          time.Duration(v.GetInt("resilience.retry_base_delay_ms")) * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend:       v.GetString("cache.backend"),
			TTL:           v.GetDuration("cache.ttl"),
			FallbackTTL:   v.GetDuration("cache.fallback_ttl"),
			SweepInterval: v.GetDuration("cache.sweep_interval"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			BodyLimit:    v.GetInt("server.body_limit"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = ExpandPath(DefaultDatabasePath)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the gateway cannot run with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", common.ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Resilience.RateLimit < 0 {
		return fmt.Errorf("%w: resilience.rate_limit must not be negative", common.ErrInvalidConfig)
	}
	if c.Resilience.CircuitBreakerThreshold < 0 {
		return fmt.Errorf("%w: resilience.circuit_breaker_threshold must not be negative", common.ErrInvalidConfig)
	}
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("%w: resilience.max_retries must not be negative", common.ErrInvalidConfig)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}
	return nil
}
