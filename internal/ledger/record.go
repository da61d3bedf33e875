package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/kv"
)

// State is the settlement state of one day.
type State string

const (
	StatePending State = "pending"
	StateClaimed State = "claimed" // settlement started, reward not yet confirmed
	StateSettled State = "settled"
)

// DrinkStatus is what the user reported about drinking today.
type DrinkStatus string

const (
	DrinkUnset  DrinkStatus = ""
	DrinkNone   DrinkStatus = "none"
	DrinkLogged DrinkStatus = "logged"
)

// Drink is today's drink report.
type Drink struct {
	Status   DrinkStatus `json:"status,omitempty"`
	Count    int         `json:"count"`
	LoggedAt *time.Time  `json:"logged_at,omitempty"`
}

// Record holds every per-day marker in one cache entry.
type Record struct {
	Day             string     `json:"day"`
	State           State      `json:"state"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
	Drink           Drink      `json:"drink"`
	NoDrinkRewarded bool       `json:"no_drink_rewarded"`
}

// AlcoholFree reports whether the day qualifies for the calorie credit.
func (r Record) AlcoholFree(drinkLogDone bool) bool {
	switch r.Drink.Status {
	case DrinkNone:
		return true
	case DrinkLogged:
		return r.Drink.Count == 0 && drinkLogDone
	}
	return false
}

// RecordKey returns the cache key of a day's record.
func RecordKey(day string) string { return "settlement:" + day }

// loadRecord reads a day's record. A missing record is pending. An
// unreadable one is treated as claimed with the no-drink reward granted:
// the settlement then falls back to the profile's last check-in, and no
// reward whose marker was lost can be paid twice.
func (l *Ledger) loadRecord(ctx context.Context, day string) (Record, error) {
	var r Record
	found, err := kv.GetJSON(ctx, l.cache, RecordKey(day), &r)
	switch {
	case errors.Is(err, errs.ErrCorrupt):
		l.log.Warn("settlement record unreadable, failing closed", zap.String("day", day), zap.Error(err))
		return Record{Day: day, State: StateClaimed, NoDrinkRewarded: true}, nil
	case err != nil:
		return Record{}, fmt.Errorf("load settlement: %w", err)
	case !found:
		return Record{Day: day, State: StatePending}, nil
	}
	if r.State == "" {
		r.State = StatePending
	}
	r.Day = day
	return r, nil
}

func (l *Ledger) saveRecord(ctx context.Context, r Record) error {
	if err := kv.SetJSON(ctx, l.cache, RecordKey(r.Day), r); err != nil {
		return fmt.Errorf("save settlement: %w", err)
	}
	return nil
}
