package mongo

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/drinkless/internal/model"
)

type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	PwdHash   []byte    `bson:"pwd_hash"`
	SaltAuth  []byte    `bson:"salt_auth"`
	CreatedAt time.Time `bson:"created_at"`
}

type profileDoc struct {
	UserID        string     `bson:"_id"`
	CurrentStreak int        `bson:"current_streak"`
	LongestStreak int        `bson:"longest_streak"`
	LastCheckIn   *time.Time `bson:"last_check_in,omitempty"`
	Coins         int        `bson:"coins"`
	Badges        []string   `bson:"badges"`
	Ver           int64      `bson:"ver"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toUserDoc(u *model.User) userDoc {
	return userDoc{
		ID:        u.ID.String(),
		Username:  u.Username,
		PwdHash:   u.PwdHash,
		SaltAuth:  u.SaltAuth,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func (d userDoc) model() (*model.User, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:        id,
		Username:  d.Username,
		PwdHash:   d.PwdHash,
		SaltAuth:  d.SaltAuth,
		CreatedAt: d.CreatedAt,
	}, nil
}

func toProfileDoc(p model.Profile) profileDoc {
	d := profileDoc{
		UserID:        p.UserID.String(),
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
		Coins:         p.Coins,
		Badges:        p.Badges,
		Ver:           p.Ver,
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
	if p.LastCheckIn != nil {
		t := p.LastCheckIn.UTC()
		d.LastCheckIn = &t
	}
	if d.Badges == nil {
		d.Badges = []string{}
	}
	return d
}

func (d profileDoc) model() (*model.Profile, error) {
	id, err := uuid.FromString(d.UserID)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{
		UserID:        id,
		CurrentStreak: d.CurrentStreak,
		LongestStreak: d.LongestStreak,
		LastCheckIn:   d.LastCheckIn,
		Coins:         d.Coins,
		Badges:        d.Badges,
		Ver:           d.Ver,
		UpdatedAt:     d.UpdatedAt,
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return p, nil
}
