// Package model defines domain entities used by services, repositories and the reward ledger.
package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/drinkless/internal/errs"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}

// Profile is the engagement record of one identity: streak, coins and badges.
type Profile struct {
	UserID        uuid.UUID  `json:"user_id"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"` // most recent streak-qualifying day
	Coins         int        `json:"coins"`
	Badges        []string   `json:"badges"`
	Ver           int64      `json:"ver"` // bumped by the remote store on every write
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	CurrentStreak *int       `json:"current_streak,omitempty"`
	LongestStreak *int       `json:"longest_streak,omitempty"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
	Coins         *int       `json:"coins,omitempty"`
	Badges        []string   `json:"badges,omitempty"` // empty = unchanged
	// BaseVer, when set, makes the write conditional on the stored version.
	BaseVer *int64 `json:"base_ver,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.CurrentStreak == nil && p.LongestStreak == nil && p.LastCheckIn == nil &&
		p.Coins == nil && len(p.Badges) == 0
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Badges = slices.Clone(p.Badges)
	if p.LastCheckIn != nil {
		t := *p.LastCheckIn
		out.LastCheckIn = &t
	}
	return out
}

// HasBadge reports whether the badge is owned.
func (p Profile) HasBadge(id string) bool {
	return slices.Contains(p.Badges, id)
}

// Apply merges the patch into the profile field by field (last write wins)
// and re-establishes longest >= current. Negative values are rejected.
func (p Profile) Apply(patch ProfilePatch) (Profile, error) {
	out := p.Clone()
	if patch.CurrentStreak != nil {
		out.CurrentStreak = *patch.CurrentStreak
	}
	if patch.LongestStreak != nil {
		out.LongestStreak = *patch.LongestStreak
	}
	if patch.LastCheckIn != nil {
		t := *patch.LastCheckIn
		out.LastCheckIn = &t
	}
	if patch.Coins != nil {
		out.Coins = *patch.Coins
	}
	if len(patch.Badges) > 0 {
		out.Badges = NormalizeBadges(patch.Badges)
	}
	switch {
	case out.Coins < 0:
		return p, fmt.Errorf("%w: coins %d", errs.ErrInvalidAmount, out.Coins)
	case out.CurrentStreak < 0 || out.LongestStreak < 0:
		return p, fmt.Errorf("%w: streak %d/%d", errs.ErrInvalidAmount, out.CurrentStreak, out.LongestStreak)
	}
	if out.LongestStreak < out.CurrentStreak {
		out.LongestStreak = out.CurrentStreak
	}
	if out.Badges == nil {
		out.Badges = []string{}
	}
	return out, nil
}

// NormalizeBadges returns a sorted copy without duplicates or blanks.
func NormalizeBadges(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if b != "" {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Int returns a pointer to v; handy when building patches.
func Int(v int) *int { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
