package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/drinkless/internal/model"
)

// ProfileRepository is the remote, authoritative profile record store.
type ProfileRepository interface {
	// Get returns the profile of a user or errs.ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)

	// Upsert merges patch into the stored profile (creating it if absent),
	// bumps the version and returns the stored result. A set BaseVer that does
	// not match the stored version fails with errs.ErrVersionConflict.
	Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error)

	// Delete removes the profile; deleting a missing profile is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error
}
