package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, found, err := fs.Get(ctx, "sec:cik_map")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, fs.Set(ctx, "sec:cik_map", []byte(`{"0":{"ticker":"AAPL"}}`), time.Hour))

	data, found, err := fs.Get(ctx, "sec:cik_map")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"0":{"ticker":"AAPL"}}`, string(data))
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return now }

	require.NoError(t, fs.Set(ctx, "a", []byte(`1`), time.Hour))
	require.NoError(t, fs.Set(ctx, "b", []byte(`2`), 48*time.Hour))

	now = now.Add(2 * time.Hour)

	_, found, err := fs.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := fs.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 0, removed) // "a" was already removed by Get

	now = now.Add(72 * time.Hour)
	removed, err = fs.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestFileStoreCorruptFileIsMiss(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(fs.path("k"), []byte("garbage"), 0644))

	_, found, err := fs.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreExpiredReadKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var beforeCheck func()
	m.now = func() time.Time {
		if f := beforeCheck; f != nil {
			beforeCheck = nil
			f()
		}
		return clock
	}

	require.NoError(t, m.Set(ctx, "k", []byte(`"stale"`), time.Minute))
	clock = clock.Add(time.Hour)
	// Another writer refreshes the key between the read and the eviction.
	beforeCheck = func() {
		require.NoError(t, m.Set(ctx, "k", []byte(`"fresh"`), time.Hour))
	}

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"fresh"`, string(got))
}

func TestBadgerStoreInMemory(t *testing.T) {
	ctx := context.Background()
	bs, err := NewBadgerStore("")
	require.NoError(t, err)
	defer bs.Close()

	_, found, err := bs.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, bs.Set(ctx, "sec:facts:1", []byte(`{"cik":1}`), time.Hour))

	data, found, err := bs.Get(ctx, "sec:facts:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"cik":1}`, string(data))
}

func TestBadgerStoreBehindCache(t *testing.T) {
	bs, err := NewBadgerStore("")
	require.NoError(t, err)
	c := New(bs, time.Hour)
	defer c.Close()

	var calls int32
	for i := 0; i < 2; i++ {
		_, err := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, `{"n":1}`))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
