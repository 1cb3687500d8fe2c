// Package sqlite provides a single-node LocalCache backed by an embedded
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_cache (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// LocalCache implements ports.LocalCache on SQLite.
type LocalCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ ports.LocalCache = (*LocalCache)(nil)

// Options configures Open. Zero TTL keeps entries until removed.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, opts Options) (*LocalCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database %s: %w", path, err)
	}
	// One writer at a time; avoids SQLITE_BUSY under concurrent Set calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LocalCache{db: db, ttl: opts.TTL, now: now}, nil
}

// Close closes the database.
func (c *LocalCache) Close() error { return c.db.Close() }

func (c *LocalCache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var updated int64
	err := c.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM local_cache WHERE key = ?`, key).Scan(&value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get: %w", err)
	}
	if c.expired(updated) {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM local_cache WHERE key = ? AND updated_at = ?`, key, updated); err != nil {
			return "", false, fmt.Errorf("sqlite expire: %w", err)
		}
		return "", false, nil
	}
	return value, true, nil
}

func (c *LocalCache) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO local_cache (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (c *LocalCache) Remove(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM local_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite remove: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *LocalCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).UnixNano()
	res, err := c.db.ExecContext(ctx, `DELETE FROM local_cache WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite prune: %w", err)
	}
	return res.RowsAffected()
}

func (c *LocalCache) expired(updated int64) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Unix(0, updated).Before(c.now().Add(-c.ttl))
}
