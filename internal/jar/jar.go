// Package jar accumulates saved calories and pays one-time milestone rewards.
package jar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/kv"
)

const (
	// Key is the cache key of the jar record.
	Key = "calorie-jar"
	// Threshold is the number of calories in one milestone.
	Threshold = 3500
	// MilestoneReward is paid once per new milestone index.
	MilestoneReward = 50
	// DailyCredit is added for every alcohol-free settled day.
	DailyCredit = 280
)

// State is the persisted jar. Every field lives in one record so related
// values change in one cache write.
type State struct {
	Total int `json:"total"`
	// RewardedPounds is the highest milestone index already paid. It is
	// never lowered, so each index pays at most once per device.
	RewardedPounds int `json:"rewarded_pounds"`
	// CreditDay is the last day credited by CreditDay; CreditMilestone is
	// the milestone that credit reached, 0 for none.
	CreditDay       string `json:"credit_day,omitempty"`
	CreditMilestone int    `json:"credit_milestone,omitempty"`
	NoticeIndex     int    `json:"notice_index,omitempty"`
	DismissedIndex  int    `json:"dismissed_index,omitempty"`
}

// Progress is the display form of a total.
type Progress struct {
	InCycle    int
	Fraction   float64 // [0, 1)
	Milestones int
}

// ProgressOf derives the display progress of total.
func ProgressOf(total int) Progress {
	if total < 0 {
		total = 0
	}
	in := total % Threshold
	return Progress{InCycle: in, Fraction: float64(in) / Threshold, Milestones: total / Threshold}
}

// Milestone is the outcome of a milestone check.
type Milestone struct {
	Reached bool
	Index   int
}

// Credit is the outcome of CreditDay.
type Credit struct {
	Applied   bool // false when the day was already credited
	Total     int
	Milestone Milestone
}

// Coins receives milestone rewards.
type Coins interface {
	Add(ctx context.Context, amount int) (int, error)
}

// Jar serializes every read-modify-write of the jar record.
type Jar struct {
	cache kv.Cache
	coins Coins
	log   *zap.Logger
	mu    sync.Mutex
}

// New constructs a Jar.
func New(cache kv.Cache, coins Coins, log *zap.Logger) *Jar {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jar{cache: cache, coins: coins, log: log}
}

// load returns the stored state; errs.ErrCorrupt when it cannot be parsed.
func (j *Jar) load(ctx context.Context) (State, error) {
	var st State
	if _, err := kv.GetJSON(ctx, j.cache, Key, &st); err != nil {
		return State{}, fmt.Errorf("load jar: %w", err)
	}
	return st, nil
}

func (j *Jar) save(ctx context.Context, st State) error {
	if err := kv.SetJSON(ctx, j.cache, Key, st); err != nil {
		return fmt.Errorf("save jar: %w", err)
	}
	return nil
}

// State returns the jar for display. An unreadable record shows as empty.
func (j *Jar) State(ctx context.Context) State {
	st, err := j.load(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrCorrupt) {
			j.log.Warn("calorie jar unreadable", zap.Error(err))
		} else {
			j.log.Warn("calorie jar read failed", zap.Error(err))
		}
		return State{}
	}
	return st
}

// Add puts amount calories into the jar and runs the milestone check.
func (j *Jar) Add(ctx context.Context, amount int) (Milestone, error) {
	if amount < 0 {
		return Milestone{}, fmt.Errorf("%w: calories %d", errs.ErrInvalidAmount, amount)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.load(ctx)
	if err != nil {
		return Milestone{}, err
	}
	st.Total += amount
	if err := j.save(ctx, st); err != nil {
		return Milestone{}, err
	}
	return j.checkLocked(ctx, st)
}

// CheckMilestone pays the milestone reward if the total crossed a new
// milestone. The new index is persisted before the reward is paid.
func (j *Jar) CheckMilestone(ctx context.Context) (Milestone, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.load(ctx)
	if err != nil {
		return Milestone{}, err
	}
	return j.checkLocked(ctx, st)
}

func (j *Jar) checkLocked(ctx context.Context, st State) (Milestone, error) {
	m, ok := advance(&st)
	if !ok {
		return Milestone{}, nil
	}
	if err := j.save(ctx, st); err != nil {
		return Milestone{}, err
	}
	if j.coins != nil {
		if _, err := j.coins.Add(ctx, MilestoneReward); err != nil {
			// the index is already recorded, the reward for it is lost
			j.log.Error("milestone reward not paid", zap.Int("milestone", m), zap.Error(err))
			return Milestone{Reached: true, Index: m}, fmt.Errorf("pay milestone %d: %w", m, err)
		}
	}
	j.log.Info("calorie milestone reached", zap.Int("milestone", m), zap.Int("total", st.Total))
	return Milestone{Reached: true, Index: m}, nil
}

// advance records a new milestone in st and reports it.
func advance(st *State) (int, bool) {
	m := st.Total / Threshold
	if m <= 0 || m <= st.RewardedPounds {
		return 0, false
	}
	st.RewardedPounds = m
	st.NoticeIndex = m
	return m, true
}

// CreditDay adds amount for day at most once. The milestone it reaches is
// recorded with the credit in one write but not paid; the caller pays it
// inside its own profile write. A repeated call for the same day returns
// the recorded outcome so an interrupted caller can finish paying.
func (j *Jar) CreditDay(ctx context.Context, day string, amount int) (Credit, error) {
	if amount < 0 {
		return Credit{}, fmt.Errorf("%w: calories %d", errs.ErrInvalidAmount, amount)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.load(ctx)
	if err != nil {
		return Credit{}, err
	}
	if st.CreditDay == day {
		return Credit{Total: st.Total, Milestone: Milestone{Reached: st.CreditMilestone > 0, Index: st.CreditMilestone}}, nil
	}
	st.Total += amount
	st.CreditDay = day
	st.CreditMilestone = 0
	m, reached := advance(&st)
	if reached {
		st.CreditMilestone = m
	}
	if err := j.save(ctx, st); err != nil {
		return Credit{}, err
	}
	return Credit{Applied: true, Total: st.Total, Milestone: Milestone{Reached: reached, Index: m}}, nil
}

// Notice returns the milestone index waiting to be shown.
func (j *Jar) Notice(ctx context.Context) (int, bool) {
	st := j.State(ctx)
	if st.NoticeIndex > st.DismissedIndex {
		return st.NoticeIndex, true
	}
	return 0, false
}

// Dismiss marks the notification of index as shown.
func (j *Jar) Dismiss(ctx context.Context, index int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.load(ctx)
	if err != nil {
		return err
	}
	if index <= st.DismissedIndex {
		return nil
	}
	st.DismissedIndex = index
	return j.save(ctx, st)
}

// Reset empties the jar. Paid milestone indexes stay recorded. Reset also
// repairs an unreadable record.
func (j *Jar) Reset(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.load(ctx)
	if err != nil && !errors.Is(err, errs.ErrCorrupt) {
		return err
	}
	return j.save(ctx, State{
		RewardedPounds: st.RewardedPounds,
		CreditDay:      st.CreditDay,
		NoticeIndex:    st.NoticeIndex,
		DismissedIndex: max(st.DismissedIndex, st.NoticeIndex),
	})
}
