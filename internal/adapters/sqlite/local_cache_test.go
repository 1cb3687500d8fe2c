package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, opts Options) *LocalCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLocalCache_RoundTrip(t *testing.T) {
	c := openTestCache(t, Options{})
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "currentUser:c1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "currentUser:c1", `{"uid":"u1"}`))
	require.NoError(t, c.Set(ctx, "currentUser:c1", `{"uid":"u2"}`))
	v, ok, err := c.Get(ctx, "currentUser:c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"uid":"u2"}`, v)

	require.NoError(t, c.Remove(ctx, "currentUser:c1"))
	_, ok, err = c.Get(ctx, "currentUser:c1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, c.Set(ctx, "", "v"))
}

func TestLocalCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", "v"))
	require.NoError(t, c.Close())

	c, err = Open(path, Options{})
	require.NoError(t, err)
	defer c.Close()
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestLocalCache_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	c := openTestCache(t, Options{TTL: time.Hour, Now: clock})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", "1"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, c.Set(ctx, "fresh", "2"))
	now = now.Add(45 * time.Minute)

	_, ok, err := c.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than TTL is gone")

	_, ok, err = c.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	n, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
