package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var profileRowCols = []string{"current_streak", "longest_streak", "last_check_in", "coins", "badges", "ver", "updated_at"}

const selectForUpdate = `SELECT current_streak, longest_streak, last_check_in, coins, badges, ver, updated_at FROM profiles WHERE user_id=\$1 FOR UPDATE`

func TestProfileRepo_Get_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT current_streak, longest_streak, last_check_in, coins, badges, ver, updated_at FROM profiles WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(profileRowCols).
			AddRow(3, 7, &day, 120, []string{"bronze"}, int64(9), time.Now()))
	p, err := r.Get(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, uid, p.UserID)
	require.Equal(t, 3, p.CurrentStreak)
	require.Equal(t, 7, p.LongestStreak)
	require.Equal(t, 120, p.Coins)
	require.Equal(t, []string{"bronze"}, p.Badges)
	require.Equal(t, int64(9), p.Ver)
	require.True(t, p.LastCheckIn.Equal(day))

	mock.ExpectQuery(`SELECT current_streak, longest_streak, last_check_in, coins, badges, ver, updated_at FROM profiles WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, uid)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProfileRepo_Upsert_Update_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(profileRowCols).
			AddRow(4, 4, nil, 10, []string{}, int64(2), now))
	mock.ExpectQuery(`UPDATE profiles SET current_streak=\$2, longest_streak=\$3, last_check_in=\$4, coins=\$5, badges=\$6, ver=\$7, updated_at=now\(\) WHERE user_id=\$1 RETURNING updated_at`).
		WithArgs(uid, 5, 5, pgxmock.AnyArg(), 60, []string{}, int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	p, err := r.Upsert(ctx, uid, model.ProfilePatch{CurrentStreak: model.Int(5), Coins: model.Int(60), LastCheckIn: model.Time(now)})
	require.NoError(t, err)
	require.Equal(t, 5, p.CurrentStreak)
	require.Equal(t, 5, p.LongestStreak, "longest follows current upward")
	require.Equal(t, 60, p.Coins)
	require.Equal(t, int64(3), p.Ver)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Upsert_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).WithArgs(uid).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO profiles \(user_id, current_streak, longest_streak, last_check_in, coins, badges, ver\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7\) RETURNING updated_at`).
		WithArgs(uid, 0, 0, pgxmock.AnyArg(), 25, []string{}, int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	p, err := r.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(25)})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Ver)
	require.Equal(t, 25, p.Coins)
}

func TestProfileRepo_Upsert_VersionConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	base := int64(1)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(profileRowCols).
			AddRow(0, 0, nil, 0, []string{}, int64(2), time.Now()))
	mock.ExpectRollback()

	_, err := r.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(5), BaseVer: &base})
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestProfileRepo_Upsert_ConcurrentCreateIsConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).WithArgs(uid).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(uid, 0, 0, pgxmock.AnyArg(), 5, []string{}, int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := r.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(5)})
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestProfileRepo_Upsert_RejectsNegative(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(profileRowCols).
			AddRow(0, 0, nil, 10, []string{}, int64(1), time.Now()))
	mock.ExpectRollback()

	_, err := r.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(-1)})
	require.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestProfileRepo_Upsert_TxBeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("boom"))
	_, err := r.Upsert(context.Background(), uuid.Must(uuid.NewV4()), model.ProfilePatch{})
	require.Error(t, err)
}

func TestProfileRepo_Upsert_CommitErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).WithArgs(uid).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(uid, 0, 0, pgxmock.AnyArg(), 0, []string{}, int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))

	_, err := r.Upsert(ctx, uid, model.ProfilePatch{})
	require.Error(t, err)
}

func TestProfileRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProfileRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM profiles WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(context.Background(), uid))
}
