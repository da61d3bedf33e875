package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/repository"
)

// ProfileService defines operations over the remote engagement profile.
type ProfileService interface {
	// Get returns the stored profile or errs.ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// Upsert merges a partial update, creating the profile if absent.
	Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error)
}

type ProfileServiceImpl struct {
	repo repository.ProfileRepository
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo repository.ProfileRepository) *ProfileServiceImpl {
	return &ProfileServiceImpl{repo: repo}
}

// Get validates the id and delegates to the repository.
func (s *ProfileServiceImpl) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.repo.Get(ctx, userID)
}

// Upsert validates input and delegates the versioned merge to the repository.
// Validation rules:
// - userID != uuid.Nil
// - no negative counters
// - base_ver >= 0 when present
// - badge ids non-blank
func (s *ProfileServiceImpl) Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	for name, v := range map[string]*int{
		"current_streak": patch.CurrentStreak,
		"longest_streak": patch.LongestStreak,
		"coins":          patch.Coins,
	} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: negative %s", errs.ErrValidation, name)
		}
	}
	if patch.BaseVer != nil && *patch.BaseVer < 0 {
		return nil, fmt.Errorf("%w: negative base_ver", errs.ErrValidation)
	}
	for i, b := range patch.Badges {
		if b == "" {
			return nil, fmt.Errorf("%w: badge[%d] empty", errs.ErrValidation, i)
		}
	}
	return s.repo.Upsert(ctx, userID, patch)
}
