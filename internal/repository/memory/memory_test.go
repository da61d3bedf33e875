package memory

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

func TestUsers_CreateGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewUsers()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}

	require.NoError(t, s.Create(ctx, u))
	require.ErrorIs(t, s.Create(ctx, &model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}), errs.ErrAlreadyExists)

	got, err := s.GetByUsername(ctx, "ann")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, u.ID), errs.ErrNotFound)
}

func TestProfiles_UpsertCreatesAndBumpsVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewProfiles()
	uid := uuid.Must(uuid.NewV4())

	_, err := s.Get(ctx, uid)
	require.ErrorIs(t, err, errs.ErrNotFound)

	p, err := s.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(50)})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Ver)
	require.Equal(t, []string{}, p.Badges)

	p, err = s.Upsert(ctx, uid, model.ProfilePatch{CurrentStreak: model.Int(3)})
	require.NoError(t, err)
	require.Equal(t, int64(2), p.Ver)
	require.Equal(t, 50, p.Coins, "untouched fields survive")
	require.Equal(t, 3, p.LongestStreak)
}

func TestProfiles_BaseVerConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewProfiles()
	uid := uuid.Must(uuid.NewV4())
	_, err := s.Upsert(ctx, uid, model.ProfilePatch{})
	require.NoError(t, err)

	stale := int64(0)
	_, err = s.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(1), BaseVer: &stale})
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	cur := int64(1)
	_, err = s.Upsert(ctx, uid, model.ProfilePatch{Coins: model.Int(1), BaseVer: &cur})
	require.NoError(t, err)
}

func TestProfiles_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewProfiles()
	uid := uuid.Must(uuid.NewV4())
	_, err := s.Upsert(ctx, uid, model.ProfilePatch{Badges: []string{"bronze"}})
	require.NoError(t, err)

	p, _ := s.Get(ctx, uid)
	p.Badges[0] = "mutated"
	again, _ := s.Get(ctx, uid)
	require.Equal(t, []string{"bronze"}, again.Badges)
}
