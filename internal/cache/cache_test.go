package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fin-analysis/internal/store"
)

// brokenStore fails every operation, like an unreachable server
type brokenStore struct {
	gets, sets int
}

func (b *brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	b.gets++
	return nil, false, errors.New("connection refused")
}

func (b *brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	b.sets++
	return errors.New("connection refused")
}

func (b *brokenStore) Close() error { return nil }

func countingFetch(calls *int32, payload string) FetchFunc {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(payload), nil
	}
}

func TestGetOrFetchColdThenWarm(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), time.Hour)
	var calls int32

	first, err := c.GetOrFetch(ctx, "sec:facts:0000320193", countingFetch(&calls, `{"facts":1}`))
	require.NoError(t, err)
	second, err := c.GetOrFetch(ctx, "sec:facts:0000320193", countingFetch(&calls, `{"facts":2}`))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
	assert.JSONEq(t, `{"facts":1}`, string(first))
	assert.JSONEq(t, string(first), string(second))
}

func TestGetOrFetchExpiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	c := New(mem, time.Hour)
	var calls int32

	_, err := c.GetOrFetch(ctx, "k", countingFetch(&calls, `1`))
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.GetOrFetch(ctx, "k", countingFetch(&calls, `2`))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls)
}

func TestGetOrFetchUnavailableStoreStillFetches(t *testing.T) {
	ctx := context.Background()
	broken := &brokenStore{}
	c := New(broken, time.Hour)
	var calls int32

	for i := 0; i < 3; i++ {
		data, err := c.GetOrFetch(ctx, "k", countingFetch(&calls, `{"ok":true}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(data))
	}

	assert.Equal(t, int32(3), calls)
	assert.Equal(t, 3, broken.gets)
	// An unreachable store is not written to.
	assert.Equal(t, 0, broken.sets)
}

func TestGetOrFetchMalformedEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Set(ctx, "k", []byte("not json"), time.Hour))
	c := New(mem, time.Hour)
	var calls int32

	data, err := c.GetOrFetch(ctx, "k", countingFetch(&calls, `[1,2]`))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
	assert.JSONEq(t, `[1,2]`, string(data))

	stored, found, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[1,2]`, string(stored))
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	boom := errors.New("upstream 503")

	_, err := c.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestGetOrFetchRejectsNonJSONPayload(t *testing.T) {
	mem := NewMemoryStore()
	c := New(mem, time.Hour)

	_, err := c.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("<html>rate limited</html>"), nil
	})

	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, found, _ := mem.Get(context.Background(), "k")
	assert.False(t, found)
}

func TestNilStoreNeverCaches(t *testing.T) {
	c := New(nil, 0)
	var calls int32

	for i := 0; i < 2; i++ {
		_, err := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, `{}`))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sec:cik_map", Key("sec", "cik_map"))
	assert.Equal(t, "alphavantage:OVERVIEW:IBM", Key("alphavantage", "OVERVIEW", "IBM"))
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()
	cfg := store.Default()

	cfg.Cache.Backend = "memory"
	s, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Cache.Backend = "none"
	s, err = OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	cfg.Cache.Backend = "file"
	cfg.Cache.FileDir = t.TempDir()
	s, err = OpenStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Cache.Backend = "memcached"
	_, err = OpenStore(ctx, cfg)
	assert.Error(t, err)
}

func TestNewFromConfigFallsBackWhenBackendUnreachable(t *testing.T) {
	cfg := store.Default()
	cfg.Cache.Backend = "redis"
	// Nothing listens on port 1.
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	c := NewFromConfig(context.Background(), cfg)
	var calls int32
	data, err := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, `"v"`))

	require.NoError(t, err)
	assert.JSONEq(t, `"v"`, string(data))
	assert.IsType(t, NopStore{}, c.store)
}
