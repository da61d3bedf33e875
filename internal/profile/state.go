// Package profile owns the device's copy of the engagement profile.
//
// State is the single read/write entry point for streak, coins and badges.
// Signed-in users write to the remote store first and the local copy follows
// only after the remote confirms; anonymous users keep the profile in the
// device cache alone.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/identity"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/model"
)

// CacheKey is where the profile mirror lives in the device cache.
const CacheKey = "profile"

// DefaultTimeout bounds every remote or cache call made by State.
const DefaultTimeout = 10 * time.Second

// Remote is the remote profile store as seen from the device.
type Remote interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Options tune a State.
type Options struct {
	Timeout time.Duration
	Log     *zap.Logger
	Now     func() time.Time
}

// State is the explicit application state shared by wallet, streak, jar and ledger.
type State struct {
	cache   kv.Cache
	remote  Remote
	who     identity.Provider
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time

	writeMu sync.Mutex // serializes read-modify-write cycles

	mu  sync.RWMutex
	cur *model.Profile

	pending atomic.Bool
	loads   singleflight.Group
}

// New constructs a State. remote may be nil when the device never signs in.
func New(cache kv.Cache, remote Remote, who identity.Provider, opt Options) *State {
	if who == nil {
		who = identity.Anonymous{}
	}
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &State{cache: cache, remote: remote, who: who, timeout: opt.Timeout, log: opt.Log, now: opt.Now}
}

func (s *State) userID() (uuid.UUID, bool) {
	id, ok := s.who.UserID()
	if !ok || s.remote == nil {
		return uuid.Nil, false
	}
	return id, true
}

// Authenticated reports whether writes go to the remote store.
func (s *State) Authenticated() bool {
	_, ok := s.userID()
	return ok
}

// Load reads the profile and keeps it as the in-memory copy.
// Concurrent callers share one read.
func (s *State) Load(ctx context.Context) (model.Profile, error) {
	v, err, _ := s.loads.Do("load", func() (any, error) {
		return s.Fresh(ctx)
	})
	if err != nil {
		return model.Profile{}, err
	}
	return v.(model.Profile).Clone(), nil
}

// Fresh reads the authoritative copy, bypassing memory, and refreshes the
// in-memory copy with it. Decisions about rewards must be made on Fresh reads.
func (s *State) Fresh(ctx context.Context) (model.Profile, error) {
	var (
		p   model.Profile
		err error
	)
	if id, ok := s.userID(); ok {
		p, err = s.fetchRemote(ctx, id)
	} else {
		p, err = s.readCache(ctx, true)
	}
	if err != nil {
		return model.Profile{}, err
	}
	s.remember(p)
	return p, nil
}

func (s *State) fetchRemote(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.remote.Get(rctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		p, err = s.remote.Upsert(rctx, id, model.ProfilePatch{})
		if errors.Is(err, errs.ErrVersionConflict) {
			// another device created it first
			p, err = s.remote.Get(rctx, id)
		}
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	s.mirror(ctx, *p)
	return *p, nil
}

// readCache returns the cached profile. A missing entry yields the zero
// profile, persisted when create is set; a corrupt one yields zero.
func (s *State) readCache(ctx context.Context, create bool) (model.Profile, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var p model.Profile
	found, err := kv.GetJSON(cctx, s.cache, CacheKey, &p)
	switch {
	case errors.Is(err, errs.ErrCorrupt):
		s.log.Warn("profile cache unreadable, using zero state", zap.Error(err))
		return zeroProfile(), nil
	case err != nil:
		return model.Profile{}, fmt.Errorf("read profile cache: %w", err)
	case !found:
		p = zeroProfile()
		if create {
			if err := kv.SetJSON(cctx, s.cache, CacheKey, p); err != nil {
				return model.Profile{}, fmt.Errorf("create profile cache: %w", err)
			}
		}
		return p, nil
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return p, nil
}

func zeroProfile() model.Profile { return model.Profile{Badges: []string{}} }

// mirror copies a confirmed remote profile into the cache. The remote copy
// is authoritative, so a failed mirror is logged and not returned.
func (s *State) mirror(ctx context.Context, p model.Profile) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := kv.SetJSON(cctx, s.cache, CacheKey, p); err != nil {
		s.log.Warn("profile mirror failed", zap.Error(err))
	}
}

func (s *State) remember(p model.Profile) {
	cp := p.Clone()
	s.mu.Lock()
	s.cur = &cp
	s.mu.Unlock()
}

// Snapshot returns the in-memory copy and whether a profile was loaded.
func (s *State) Snapshot() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return model.Profile{}, false
	}
	return s.cur.Clone(), true
}

// Pending reports whether a write is waiting for confirmation.
func (s *State) Pending() bool { return s.pending.Load() }

// Update performs a serialized read-modify-write: fn sees a fresh profile and
// returns the patch to apply. An error from fn aborts without writing; an
// empty patch returns the fresh profile unchanged. The write is conditional
// on the version fn saw, so a concurrent writer on another device or process
// makes it fail with errs.ErrVersionConflict. It is not retried.
func (s *State) Update(ctx context.Context, fn func(model.Profile) (model.ProfilePatch, error)) (model.Profile, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, err := s.Fresh(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	patch, err := fn(cur.Clone())
	if err != nil {
		return cur, err
	}
	if patch.Empty() {
		return cur, nil
	}
	if patch.BaseVer == nil {
		patch.BaseVer = &cur.Ver
	}
	return s.apply(ctx, patch)
}

// Apply writes patch as one update.
func (s *State) Apply(ctx context.Context, patch model.ProfilePatch) (model.Profile, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.apply(ctx, patch)
}

func (s *State) apply(ctx context.Context, patch model.ProfilePatch) (model.Profile, error) {
	s.pending.Store(true)
	defer s.pending.Store(false)

	if id, ok := s.userID(); ok {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		p, err := s.remote.Upsert(rctx, id, patch)
		if err != nil {
			return model.Profile{}, fmt.Errorf("write profile: %w", err)
		}
		s.mirror(ctx, *p)
		s.remember(*p)
		return p.Clone(), nil
	}

	cur, err := s.readCache(ctx, false)
	if err != nil {
		return model.Profile{}, err
	}
	if patch.BaseVer != nil && *patch.BaseVer != cur.Ver {
		return model.Profile{}, fmt.Errorf("profile base %d, stored %d: %w", *patch.BaseVer, cur.Ver, errs.ErrVersionConflict)
	}
	next, err := cur.Apply(patch)
	if err != nil {
		return model.Profile{}, err
	}
	next.Ver = cur.Ver + 1
	next.UpdatedAt = s.now().UTC()

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := kv.SetJSON(cctx, s.cache, CacheKey, next); err != nil {
		return model.Profile{}, fmt.Errorf("write profile cache: %w", err)
	}
	s.remember(next)
	return next.Clone(), nil
}

// DeleteAccount removes the remote account (when signed in) and clears the
// whole device cache.
func (s *State) DeleteAccount(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if id, ok := s.userID(); ok {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.remote.Delete(rctx, id); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("delete account: %w", err)
		}
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.cache.Clear(cctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
	return nil
}
