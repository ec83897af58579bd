package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNow struct {
	t  time.Time
	mu sync.Mutex
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		s := NewMemoryStore(nil)
		defer func() { _ = s.Close() }()

		_, found, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, s.Put(ctx, "k", []byte("v"), 0))
		got, found, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("v"), got)

		require.NoError(t, s.Delete(ctx, "k"))
		_, found, _ = s.Get(ctx, "k")
		assert.False(t, found)
	})

	t.Run("expiry", func(t *testing.T) {
		clock := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		s := NewMemoryStore(clock.Now)

		require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Minute))
		clock.Advance(59 * time.Second)
		_, found, _ := s.Get(ctx, "k")
		assert.True(t, found)

		clock.Advance(time.Second)
		_, found, _ = s.Get(ctx, "k")
		assert.False(t, found)
	})

	t.Run("increment keeps original ttl", func(t *testing.T) {
		clock := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		s := NewMemoryStore(clock.Now)

		n, err := s.Increment(ctx, "c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		clock.Advance(30 * time.Second)
		n, err = s.Increment(ctx, "c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		clock.Advance(30 * time.Second)
		n, err = s.Increment(ctx, "c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "counter should restart once the first ttl elapsed")
	})

	t.Run("increment non counter", func(t *testing.T) {
		s := NewMemoryStore(nil)
		require.NoError(t, s.Put(ctx, "k", []byte("text"), 0))
		_, err := s.Increment(ctx, "k", 0)
		assert.Error(t, err)
	})

	t.Run("delete prefix", func(t *testing.T) {
		s := NewMemoryStore(nil)
		require.NoError(t, s.Put(ctx, "cache:a", []byte("1"), 0))
		require.NoError(t, s.Put(ctx, "cache:b", []byte("2"), 0))
		require.NoError(t, s.Put(ctx, "breaker:x", []byte("3"), 0))

		n, err := s.DeletePrefix(ctx, "cache:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("concurrent increments", func(t *testing.T) {
		s := NewMemoryStore(nil)
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Increment(ctx, "c", 0)
			}()
		}
		wg.Wait()

		got, _, err := s.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "100", string(got))
	})

	t.Run("sweeper stops on close", func(t *testing.T) {
		s := NewMemoryStore(nil)
		s.StartSweeper(10 * time.Millisecond)
		require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Millisecond))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, s.Len())
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
	})
}
