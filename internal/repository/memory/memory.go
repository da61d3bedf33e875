// Package memory provides in-process repository implementations used by
// -store=memory and by tests that need a real remote store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

// Users is a map-backed UserRepository.
type Users struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]model.User
	byName map[string]uuid.UUID
}

// NewUsers returns an empty user store.
func NewUsers() *Users {
	return &Users{byID: map[uuid.UUID]model.User{}, byName: map[string]uuid.UUID{}}
}

// Create stores u unless the username is taken.
func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.byID[cp.ID] = cp
	s.byName[cp.Username] = cp.ID
	return nil
}

// GetByID returns the user with id.
func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByUsername returns the user with username.
func (s *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.byName[username]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes the user.
func (s *Users) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byName, u.Username)
	return nil
}

// Profiles is a map-backed ProfileRepository with the same versioning
// rules as the database stores.
type Profiles struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Profile
	now  func() time.Time
}

// NewProfiles returns an empty profile store.
func NewProfiles() *Profiles {
	return &Profiles{rows: map[uuid.UUID]model.Profile{}, now: time.Now}
}

// Get returns a copy of the stored profile.
func (s *Profiles) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

// Upsert merges patch into the stored profile, creating it when absent.
func (s *Profiles) Upsert(_ context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[userID]
	if !ok {
		cur = model.Profile{UserID: userID, Badges: []string{}}
	}
	if patch.BaseVer != nil && *patch.BaseVer != cur.Ver {
		return nil, fmt.Errorf("profile base %d, stored %d: %w", *patch.BaseVer, cur.Ver, errs.ErrVersionConflict)
	}
	next, err := cur.Apply(patch)
	if err != nil {
		return nil, err
	}
	next.Ver = cur.Ver + 1
	next.UpdatedAt = s.now().UTC()
	s.rows[userID] = next
	out := next.Clone()
	return &out, nil
}

// Delete removes the profile if present.
func (s *Profiles) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID)
	return nil
}
