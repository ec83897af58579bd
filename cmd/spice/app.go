package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/spice-gateway/internal/config"
	"github.com/Veraticus/spice-gateway/internal/gateway"
	"github.com/Veraticus/spice-gateway/internal/kv"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/resilience"
	"github.com/Veraticus/spice-gateway/internal/storage"
	"github.com/spf13/viper"
)

// application bundles what every command needs: the SQLite database (audit
// log, and shared state when cache.backend is sqlite) and the gateway.
type application struct {
	gateway *gateway.Gateway
	db      *storage.SQLiteStorage
	memory  *kv.MemoryStore
	cfg     config.Config
}

// newApplication loads the configuration, opens and migrates the database and
// wires the gateway.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	db, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	app := &application{cfg: cfg, db: db}

	var store kv.Store = db
	if cfg.Cache.Backend == config.BackendMemory {
		app.memory = kv.NewMemoryStore(nil)
		store = app.memory
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		slog.Warn("remote model unavailable, using fallback extraction only", "error", err)
		client = nil
	}

	app.gateway, err = gateway.New(gatewayConfig(cfg), gateway.Deps{
		Store:  store,
		Client: client,
		Audit:  db,
		Logger: slog.Default(),
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	slog.Debug("gateway ready",
		"provider", app.gateway.Provider(),
		"model", app.gateway.ModelName(),
		"backend", cfg.Cache.Backend,
		"database", cfg.Database.Path)

	return app, nil
}

// initStorage opens the database and applies pending migrations.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func gatewayConfig(cfg config.Config) gateway.Config {
	return gateway.Config{
		Retry:               resilience.NewRetryPolicy(cfg.Resilience.MaxRetries, cfg.Resilience.RetryBaseDelay),
		CacheTTL:            cfg.Cache.TTL,
		FallbackCacheTTL:    cfg.Cache.FallbackTTL,
		BreakerResetTimeout: cfg.Resilience.CircuitBreakerReset,
		RateLimit:           cfg.Resilience.RateLimit,
		BreakerThreshold:    cfg.Resilience.CircuitBreakerThreshold,
		MaxTextLength:       gateway.DefaultMaxTextLength,
		MaxImageBytes:       gateway.DefaultMaxImageBytes,
	}
}

func (a *application) Close() error {
	if a.memory != nil {
		_ = a.memory.Close()
	}
	return a.db.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
