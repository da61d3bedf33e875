// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/drinkless/migrations"
)

// Up runs all pending server migrations against the postgres DSN.
func Up(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return run(ctx, goose.DialectPostgres, db, "postgres")
}

// UpSQLite runs the device cache migrations on an open sqlite handle.
func UpSQLite(ctx context.Context, db *sql.DB) error {
	return run(ctx, goose.DialectSQLite3, db, "sqlite")
}

func run(ctx context.Context, dialect goose.Dialect, db *sql.DB, dir string) error {
	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}
