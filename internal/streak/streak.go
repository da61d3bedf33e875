// Package streak tracks consecutive qualifying days.
//
// The profile holds the authoritative numbers. A local snapshot bridges the
// time before the profile is loaded and is written only after a profile
// write has been confirmed.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/model"
)

// SnapshotKey is the cache key of the local streak snapshot.
const SnapshotKey = "streak-snapshot"

// Snapshot is the displayable streak.
type Snapshot struct {
	Current   int       `json:"current"`
	Longest   int       `json:"longest"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Source tells where a Snapshot came from.
type Source int

const (
	SourceNone Source = iota
	SourceSnapshot
	SourceProfile
)

func (s Source) String() string {
	switch s {
	case SourceProfile:
		return "profile"
	case SourceSnapshot:
		return "snapshot"
	default:
		return "none"
	}
}

// Profile is the subset of profile.State the tracker needs.
type Profile interface {
	Snapshot() (model.Profile, bool)
	Update(ctx context.Context, fn func(model.Profile) (model.ProfilePatch, error)) (model.Profile, error)
}

// Tracker reads and advances the streak.
type Tracker struct {
	profile Profile
	cache   kv.Cache
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

// New constructs a Tracker. loc is the user's time zone (time.Local when nil).
func New(p Profile, cache kv.Cache, loc *time.Location, now func() time.Time, log *zap.Logger) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{profile: p, cache: cache, loc: loc, now: now, log: log}
}

// Current returns the loaded profile's streak, else a snapshot no older
// than one calendar day, else zero.
func (t *Tracker) Current(ctx context.Context) (Snapshot, Source) {
	if p, ok := t.profile.Snapshot(); ok {
		return Snapshot{Current: p.CurrentStreak, Longest: p.LongestStreak, UpdatedAt: p.UpdatedAt}, SourceProfile
	}
	var s Snapshot
	found, err := kv.GetJSON(ctx, t.cache, SnapshotKey, &s)
	if err != nil {
		if !errors.Is(err, errs.ErrCorrupt) {
			t.log.Warn("streak snapshot read failed", zap.Error(err))
		}
		return Snapshot{}, SourceNone
	}
	if !found || model.DaysBetween(s.UpdatedAt, t.now(), t.loc) > 1 {
		return Snapshot{}, SourceNone
	}
	return s, SourceSnapshot
}

// Advance computes the check-in patch for p at now. The streak grows at
// most once per calendar day; longest never falls below current.
func Advance(p model.Profile, now time.Time, loc *time.Location) model.ProfilePatch {
	next := p.CurrentStreak
	if p.LastCheckIn == nil || !model.SameDay(*p.LastCheckIn, now, loc) {
		next++
	}
	return model.ProfilePatch{
		CurrentStreak: model.Int(next),
		LongestStreak: model.Int(max(next, p.LongestStreak)),
		LastCheckIn:   model.Time(now),
	}
}

// CheckIn advances the streak for today in one write.
func (t *Tracker) CheckIn(ctx context.Context) (model.Profile, error) {
	p, err := t.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		return Advance(cur, t.now(), t.loc), nil
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("check in: %w", err)
	}
	t.Remember(ctx, p)
	return p, nil
}

// Reset zeroes the current streak and keeps the longest.
func (t *Tracker) Reset(ctx context.Context) (model.Profile, error) {
	p, err := t.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		if cur.CurrentStreak == 0 {
			return model.ProfilePatch{}, nil
		}
		return model.ProfilePatch{CurrentStreak: model.Int(0)}, nil
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("reset streak: %w", err)
	}
	t.Remember(ctx, p)
	return p, nil
}

// Remember stores a snapshot of a confirmed profile.
func (t *Tracker) Remember(ctx context.Context, p model.Profile) {
	s := Snapshot{Current: p.CurrentStreak, Longest: p.LongestStreak, UpdatedAt: t.now()}
	if err := kv.SetJSON(ctx, t.cache, SnapshotKey, s); err != nil {
		t.log.Warn("streak snapshot write failed", zap.Error(err))
	}
}
