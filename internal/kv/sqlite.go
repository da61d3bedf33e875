package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/and161185/drinkless/internal/migrate"
)

// SQLite is the default device cache: a single-table key-value file.
type SQLite struct{ db *sql.DB }

// OpenSQLite opens (or creates) the cache file at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate.UpSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite cache: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (c *SQLite) Close() error { return c.db.Close() }

func (c *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return v, true, nil
}

func (c *SQLite) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := c.db.ExecContext(ctx, q, key, value)
	return err
}

func (c *SQLite) Remove(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (c *SQLite) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}
