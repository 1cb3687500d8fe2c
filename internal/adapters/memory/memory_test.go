package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

func TestLocalCache_GetSetRemove(t *testing.T) {
	c := NewLocalCache(LocalCacheConfig{})
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v1"))
	require.NoError(t, c.Set(ctx, "k", "v2"))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Remove(ctx, "k"))
	require.NoError(t, c.Remove(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	assert.Error(t, c.Set(ctx, "", "v"))

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(2), st.Misses)
}

func TestLocalCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLocalCache(LocalCacheConfig{Capacity: 2})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", "3"))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLocalCache_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewLocalCache(LocalCacheConfig{TTL: time.Minute, Now: func() time.Time { return now }})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	now = now.Add(59 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestProfileStore(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewProfileStore(func() time.Time { return now })
	ctx := context.Background()

	p, err := s.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	written, err := s.WriteProfile(ctx, "u1", domainauth.Profile{FirstName: "Jo", Email: "jo@example.com", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, now, written.CreatedAt)
	assert.Equal(t, domainauth.RoleReader, written.Role)

	now = now.Add(time.Hour)
	role := domainauth.RoleAuthor
	updated, err := s.UpdateProfile(ctx, "u1", domainauth.ProfileUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAuthor, updated.Role)
	assert.Equal(t, "Jo", updated.FirstName)
	assert.Equal(t, now, updated.UpdatedAt)

	_, err = s.UpdateProfile(ctx, "missing", domainauth.ProfileUpdate{Role: &role})
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = s.WriteProfile(ctx, "", domainauth.Profile{})
	require.Error(t, err)
}

func TestProfileStore_ReturnsCopies(t *testing.T) {
	s := NewProfileStore(nil)
	ctx := context.Background()
	_, err := s.WriteProfile(ctx, "u1", domainauth.Profile{FirstName: "Jo"})
	require.NoError(t, err)

	p, _ := s.ReadProfile(ctx, "u1")
	p.FirstName = "Meg"

	again, _ := s.ReadProfile(ctx, "u1")
	assert.Equal(t, "Jo", again.FirstName)
}

func TestProfileStore_UIDs(t *testing.T) {
	s := NewProfileStore(nil)
	for i := 3; i > 0; i-- {
		_, err := s.WriteProfile(context.Background(), fmt.Sprintf("u%d", i), domainauth.Profile{})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, s.UIDs())
}

func TestProfileStore_ListProfiles(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := NewProfileStore(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	ctx := context.Background()

	_, err := s.WriteProfile(ctx, "u1", domainauth.Profile{Email: "a@example.com", Role: domainauth.RoleReader})
	require.NoError(t, err)
	_, err = s.WriteProfile(ctx, "u2", domainauth.Profile{Email: "b@example.com", Role: domainauth.RoleAuthor})
	require.NoError(t, err)
	_, err = s.WriteProfile(ctx, "u3", domainauth.Profile{Email: "c@example.com", Role: domainauth.RoleReader})
	require.NoError(t, err)

	all, err := s.ListProfiles(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "u3", all[0].UID, "newest first")
	assert.Equal(t, "u1", all[2].UID)

	readers, err := s.ListProfiles(ctx, domainauth.RoleReader, 10, 0)
	require.NoError(t, err)
	require.Len(t, readers, 2)

	page, err := s.ListProfiles(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "u2", page[0].UID)

	empty, err := s.ListProfiles(ctx, "", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
