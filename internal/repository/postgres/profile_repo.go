package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileCols = `current_streak, longest_streak, last_check_in, coins, badges, ver, updated_at`

func scanProfile(row pgx.Row, userID uuid.UUID) (*model.Profile, error) {
	p := model.Profile{UserID: userID}
	if err := row.Scan(&p.CurrentStreak, &p.LongestStreak, &p.LastCheckIn, &p.Coins, &p.Badges, &p.Ver, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return &p, nil
}

// Get returns a single profile by user id.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE user_id=$1`
	p, err := scanProfile(r.db.Pool.QueryRow(ctx, q, userID), userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return p, err
}

// Upsert locks the row, merges the patch field by field and writes the result with ver+1.
func (r *ProfileRepo) Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error) {
	var out *model.Profile
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		sel := `SELECT ` + profileCols + ` FROM profiles WHERE user_id=$1 FOR UPDATE`
		cur, err := scanProfile(tx.QueryRow(ctx, sel, userID), userID)
		exists := true
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			exists = false
			cur = &model.Profile{UserID: userID, Badges: []string{}}
		case err != nil:
			return err
		}

		if patch.BaseVer != nil && *patch.BaseVer != cur.Ver {
			return fmt.Errorf("profile base %d, stored %d: %w", *patch.BaseVer, cur.Ver, errs.ErrVersionConflict)
		}
		next, err := cur.Apply(patch)
		if err != nil {
			return err
		}
		next.Ver = cur.Ver + 1

		const ins = `
INSERT INTO profiles (user_id, current_streak, longest_streak, last_check_in, coins, badges, ver)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING updated_at`
		const upd = `
UPDATE profiles
SET current_streak=$2, longest_streak=$3, last_check_in=$4, coins=$5, badges=$6, ver=$7, updated_at=now()
WHERE user_id=$1
RETURNING updated_at`
		q := upd
		if !exists {
			q = ins
		}
		err = tx.QueryRow(ctx, q, userID, next.CurrentStreak, next.LongestStreak, next.LastCheckIn,
			next.Coins, next.Badges, next.Ver).Scan(&next.UpdatedAt)
		if isUniqueViolation(err) {
			return errs.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a profile row.
func (r *ProfileRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM profiles WHERE user_id=$1`, userID)
	return err
}
