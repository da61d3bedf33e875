package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the part of a pgx pool the limiter uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is a PostgreSQL-backed Limiter shared by every server instance.
type PG struct {
	q      Querier
	policy Policy
	now    func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter over the login_attempts table.
func NewPG(q Querier, p Policy) *PG {
	return &PG{q: q, policy: p, now: time.Now}
}

// Allow implements Limiter.
func (l *PG) Allow(ctx context.Context, username string, client []byte) (time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE username=$1 AND client_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, username, client).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, err
	}
	if wait := blockedUntil.Sub(l.now()); wait > 0 {
		return wait, nil
	}
	return 0, nil
}

// Failure implements Limiter. The counter restarts when the previous
// failure is older than the policy window.
func (l *PG) Failure(ctx context.Context, username string, client []byte) (time.Duration, error) {
	const q = `
INSERT INTO login_attempts (username, client_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', now())
ON CONFLICT (username, client_hash) DO UPDATE
SET
  fail_count = CASE WHEN now() - login_attempts.updated_at > $3::interval THEN 1 ELSE login_attempts.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, username, client, l.policy.Window).Scan(&fails); err != nil {
		return 0, err
	}
	if fails < l.policy.MaxFails {
		return 0, nil
	}
	const upd = `UPDATE login_attempts SET blocked_until=$3, fail_count=0 WHERE username=$1 AND client_hash=$2`
	if _, err := l.q.Exec(ctx, upd, username, client, l.now().Add(l.policy.BlockFor)); err != nil {
		return 0, err
	}
	return l.policy.BlockFor, nil
}

// Success implements Limiter.
func (l *PG) Success(ctx context.Context, username string, client []byte) error {
	const q = `DELETE FROM login_attempts WHERE username=$1 AND client_hash=$2`
	_, err := l.q.Exec(ctx, q, username, client)
	return err
}
