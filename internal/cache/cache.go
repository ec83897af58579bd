// Package cache memoizes gateway results by module and normalized input text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/spice-gateway/internal/kv"
	"github.com/Veraticus/spice-gateway/internal/model"
)

// DefaultTTL is how long a parse result stays cached.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "cache:"

// ResultCache stores JSON-encoded results in a kv.Store.
type ResultCache struct {
	store  kv.Store
	logger *slog.Logger
	ttl    time.Duration
}

// New creates a cache with the given default TTL.
func New(store kv.Store, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// Key hashes the module together with the normalized text, so identical input
// within one module always lands on the same entry.
func Key(module model.Module, rawText string) string {
	sum := sha256.Sum256([]byte(string(module) + "\x00" + Normalize(rawText)))
	return keyPrefix + string(module) + ":" + hex.EncodeToString(sum[:])
}

// Normalize lower-cases, trims and collapses whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// TTL returns the default entry lifetime.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Get decodes the entry at key into dst. It consults the request memo first.
func (c *ResultCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	m := memoFrom(ctx)
	if raw, ok := m.get(key); ok {
		return true, json.Unmarshal(raw, dst)
	}

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_ = c.store.Delete(ctx, key)
		return false, nil
	}

	m.put(key, raw)
	return true, nil
}

// Put encodes value and stores it for ttl (the default TTL when ttl is zero).
func (c *ResultCache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := c.store.Put(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	memoFrom(ctx).put(key, raw)
	return nil
}

// Delete removes one entry.
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	memoFrom(ctx).delete(key)
	return c.store.Delete(ctx, key)
}

// Clear drops every cached result and reports how many were removed.
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	n, err := c.store.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return n, nil
}

type memoKey struct{}

// memo is a request-scoped copy of entries already read or written, so a single
// logical operation never fetches the same key from the backend twice.
type memo struct {
	entries map[string][]byte
	mu      sync.Mutex
}

// WithMemo attaches a fresh request-scoped memo to ctx.
func WithMemo(ctx context.Context) context.Context {
	if _, ok := ctx.Value(memoKey{}).(*memo); ok {
		return ctx
	}
	return context.WithValue(ctx, memoKey{}, &memo{entries: make(map[string][]byte)})
}

func memoFrom(ctx context.Context) *memo {
	m, _ := ctx.Value(memoKey{}).(*memo)
	return m
}

func (m *memo) get(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	return raw, ok
}

func (m *memo) put(key string, raw []byte) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
}

func (m *memo) delete(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}
