package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

// UserRepo implements UserRepository on the users collection.
type UserRepo struct{ col *mongo.Collection }

// NewUserRepo constructs a user repository.
func NewUserRepo(s *Store) *UserRepo { return &UserRepo{col: s.db.Collection(usersColl)} }

// Create inserts a user document.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	d := toUserDoc(u)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID finds a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByUsername finds a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return d.model()
}

// Delete removes a user document. Profiles are removed by the service.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ProfileRepo implements ProfileRepository on the profiles collection.
// Writes are compare-and-swap on the ver field.
type ProfileRepo struct {
	col *mongo.Collection
	now func() time.Time
}

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(s *Store) *ProfileRepo {
	return &ProfileRepo{col: s.db.Collection(profilesColl), now: time.Now}
}

// Get returns the profile of userID.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var d profileDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return d.model()
}

// Upsert reads the current document, merges the patch and replaces it
// only if nobody bumped ver in between.
func (r *ProfileRepo) Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error) {
	cur, err := r.Get(ctx, userID)
	exists := true
	switch {
	case errors.Is(err, errs.ErrNotFound):
		exists = false
		cur = &model.Profile{UserID: userID, Badges: []string{}}
	case err != nil:
		return nil, err
	}
	if patch.BaseVer != nil && *patch.BaseVer != cur.Ver {
		return nil, fmt.Errorf("profile base %d, stored %d: %w", *patch.BaseVer, cur.Ver, errs.ErrVersionConflict)
	}
	next, err := cur.Apply(patch)
	if err != nil {
		return nil, err
	}
	next.Ver = cur.Ver + 1
	next.UpdatedAt = r.now().UTC()
	doc := toProfileDoc(next)

	if !exists {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, errs.ErrVersionConflict
			}
			return nil, err
		}
		return &next, nil
	}

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.UserID, "ver": cur.Ver}, doc, options.Replace())
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, errs.ErrVersionConflict
	}
	return &next, nil
}

// Delete removes the profile document if present.
func (r *ProfileRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": userID.String()})
	return err
}
