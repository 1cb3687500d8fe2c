package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/testutil"
)

func TestBuildProfileUpdate(t *testing.T) {
	first := "Ada"
	role := domainauth.RoleArtist
	active := false

	sets, args := buildProfileUpdate(domainauth.ProfileUpdate{
		FirstName: &first,
		Role:      &role,
		IsActive:  &active,
	})
	assert.Equal(t, []string{"first_name = $1", "user_type = $2", "is_active = $3"}, sets)
	assert.Equal(t, []any{"Ada", "artist", false}, args)

	sets, args = buildProfileUpdate(domainauth.ProfileUpdate{})
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func TestProfileRepo_RequiresUID(t *testing.T) {
	repo := NewProfileRepo(nil)
	ctx := context.Background()

	_, err := repo.ReadProfile(ctx, " ")
	require.ErrorIs(t, err, ErrUIDRequired)
	_, err = repo.WriteProfile(ctx, "", domainauth.Profile{})
	require.ErrorIs(t, err, ErrUIDRequired)
	_, err = repo.UpdateProfile(ctx, "", domainauth.ProfileUpdate{})
	require.ErrorIs(t, err, ErrUIDRequired)
}

func TestProfileRepo_ListProfilesMapsErrors(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://rejoice@127.0.0.1:1/rejoice?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewProfileRepo(db).ListProfiles(ctx, "", 10, 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCanceled, apperrors.GetCode(err))
}

func TestProfileRepo_WriteReadUpdate(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := NewFixedTimeProvider(now)
		repo := NewProfileRepoWithTimeProvider(db, clock)
		uid := fmt.Sprintf("uid-%d", time.Now().UnixNano())

		missing, err := repo.ReadProfile(ctx, uid)
		require.NoError(t, err)
		assert.Nil(t, missing)

		written, err := repo.WriteProfile(ctx, uid, testutil.NewProfile("jo@example.com", domainauth.RoleAuthor))
		require.NoError(t, err)
		assert.True(t, written.CreatedAt.Equal(now))
		assert.True(t, written.UpdatedAt.IsZero())

		got, err := repo.ReadProfile(ctx, uid)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Jo", got.FirstName)
		assert.Equal(t, domainauth.RoleAuthor, got.Role)
		assert.True(t, got.IsActive)

		clock.Advance(time.Hour)
		last := "Bhaer"
		updated, err := repo.UpdateProfile(ctx, uid, domainauth.ProfileUpdate{LastName: &last})
		require.NoError(t, err)
		assert.Equal(t, "Jo", updated.FirstName)
		assert.Equal(t, "Bhaer", updated.LastName)
		assert.True(t, updated.UpdatedAt.Equal(now.Add(time.Hour)))
		assert.True(t, updated.CreatedAt.Equal(now))

		list, err := repo.ListProfiles(ctx, domainauth.RoleAuthor, 10, 0)
		require.NoError(t, err)
		var found bool
		for _, rec := range list {
			if rec.UID == uid {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestProfileRepo_UpdateMissing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewProfileRepo(db)
		first := "Meg"
		_, err := repo.UpdateProfile(context.Background(), "no-such-uid", domainauth.ProfileUpdate{FirstName: &first})
		require.ErrorIs(t, err, ErrProfileNotFound)

		_, err = repo.UpdateProfile(context.Background(), "no-such-uid", domainauth.ProfileUpdate{})
		require.ErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestProfileRepo_RejectsUnknownRole(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewProfileRepo(db)
		_, err := repo.WriteProfile(context.Background(), fmt.Sprintf("uid-%d", time.Now().UnixNano()),
			domainauth.Profile{Email: "x@example.com", Role: domainauth.Role("wizard")})
		require.Error(t, err)
	})
}
