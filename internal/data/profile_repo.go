package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rejoiceinstitute/rejoice-web/internal/data/pgxutil"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const profileColumns = `uid, first_name, last_name, email, user_type, is_active, created_at, updated_at`

const (
	profileGetQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE uid = $1`

	profileUpsertQuery = `
		INSERT INTO profiles (uid, first_name, last_name, email, user_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (uid) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			user_type = EXCLUDED.user_type,
			is_active = EXCLUDED.is_active,
			created_at = EXCLUDED.created_at,
			updated_at = NULL
		RETURNING ` + profileColumns

	profileListQuery = `SELECT ` + profileColumns + ` FROM profiles
		WHERE ($1 = '' OR user_type = $1)
		ORDER BY created_at DESC, uid
		LIMIT $2 OFFSET $3`
)

// profileRow mirrors the profiles table.
type profileRow struct {
	UID       string     `db:"uid"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Email     string     `db:"email"`
	UserType  string     `db:"user_type"`
	IsActive  bool       `db:"is_active"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

func (r profileRow) toDomain() *domainauth.Profile {
	p := &domainauth.Profile{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Role:      domainauth.Role(r.UserType),
		CreatedAt: r.CreatedAt.UTC(),
		IsActive:  r.IsActive,
	}
	if r.UpdatedAt != nil {
		p.UpdatedAt = r.UpdatedAt.UTC()
	}
	return p
}

// ProfileRepo stores account profiles in Postgres.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider.
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// ReadProfile returns nil, nil when uid has no profile.
func (r *ProfileRepo) ReadProfile(ctx context.Context, uid string) (*domainauth.Profile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, ErrUIDRequired
	}
	row, err := r.queryOne(ctx, profileGetQuery, uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", apperrors.MapDBError(err))
	}
	return row.toDomain(), nil
}

// WriteProfile creates or replaces the profile for uid and stamps CreatedAt.
func (r *ProfileRepo) WriteProfile(
	ctx context.Context,
	uid string,
	p domainauth.Profile,
) (*domainauth.Profile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, ErrUIDRequired
	}
	role := p.Role
	if role == "" {
		role = domainauth.RoleReader
	}
	row, err := r.queryOne(ctx, profileUpsertQuery,
		uid,
		p.FirstName,
		p.LastName,
		p.Email,
		string(role),
		p.IsActive,
		r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write profile: %w", apperrors.MapDBError(err))
	}
	return row.toDomain(), nil
}

// UpdateProfile applies u to the stored profile and returns the result.
func (r *ProfileRepo) UpdateProfile(
	ctx context.Context,
	uid string,
	u domainauth.ProfileUpdate,
) (*domainauth.Profile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, ErrUIDRequired
	}
	if u.Empty() {
		p, err := r.ReadProfile(ctx, uid)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrProfileNotFound
		}
		return p, nil
	}

	sets, args := buildProfileUpdate(u)
	args = append(args, r.timeProvider.Now().UTC(), uid)
	query := fmt.Sprintf(
		`UPDATE profiles SET %s, updated_at = $%d WHERE uid = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), profileColumns,
	)

	row, err := r.queryOne(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", apperrors.MapDBError(err))
	}
	return row.toDomain(), nil
}

// ListProfiles returns profiles newest first, optionally filtered by role.
func (r *ProfileRepo) ListProfiles(
	ctx context.Context,
	role domainauth.Role,
	limit, offset int,
) ([]domainauth.ProfileRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []profileRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, profileListQuery, string(role), limit, offset)
		if err != nil {
			return err
		}
		defer res.Close()
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[profileRow])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", apperrors.MapDBError(err))
	}

	out := make([]domainauth.ProfileRecord, len(rows))
	for i, row := range rows {
		out[i] = domainauth.ProfileRecord{UID: row.UID, Profile: *row.toDomain()}
	}
	return out, nil
}

func (r *ProfileRepo) queryOne(ctx context.Context, query string, args ...any) (profileRow, error) {
	var out profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	return out, err
}

func buildProfileUpdate(u domainauth.ProfileUpdate) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Role != nil {
		add("user_type", string(*u.Role))
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	return sets, args
}
