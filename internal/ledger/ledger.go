// Package ledger turns completed daily tasks into rewards, exactly once per day.
//
// Every per-day marker lives in one settlement record. Markers are written
// before rewards are dispatched; a reward write that fails rolls its marker
// back so the day can be retried.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/jar"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/streak"
	"github.com/and161185/drinkless/internal/tasks"
)

const (
	// SettlementReward is paid when today's checklist is completed.
	SettlementReward = 50
	// NoDrinkReward is paid for the first "no drinks today" of a day.
	NoDrinkReward = 25
	// DefaultWriteTimeout bounds a settlement that outlives its caller.
	DefaultWriteTimeout = 30 * time.Second
)

// Profile is the subset of profile.State the ledger needs.
type Profile interface {
	Fresh(ctx context.Context) (model.Profile, error)
	Update(ctx context.Context, fn func(model.Profile) (model.ProfilePatch, error)) (model.Profile, error)
}

// Coins pays flat rewards.
type Coins interface {
	Add(ctx context.Context, amount int) (int, error)
}

// Options tune a Ledger.
type Options struct {
	Catalog      *content.Catalog
	Location     *time.Location
	Now          func() time.Time
	WriteTimeout time.Duration
	Log          *zap.Logger
}

// Ledger settles days. It is safe for concurrent use.
type Ledger struct {
	cache   kv.Cache
	profile Profile
	coins   Coins
	jar     *jar.Jar
	streak  *streak.Tracker
	flags   *tasks.Store

	catalog *content.Catalog
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
	log     *zap.Logger

	mu sync.Mutex // serializes every read-modify-write of a settlement record
}

// New wires a Ledger.
func New(cache kv.Cache, p Profile, coins Coins, j *jar.Jar, tr *streak.Tracker, flags *tasks.Store, opt Options) *Ledger {
	if opt.Catalog == nil {
		opt.Catalog = content.Default()
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = DefaultWriteTimeout
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	return &Ledger{
		cache: cache, profile: p, coins: coins, jar: j, streak: tr, flags: flags,
		catalog: opt.Catalog, loc: opt.Location, now: opt.Now, timeout: opt.WriteTimeout, log: opt.Log,
	}
}

// Outcome reports what a call granted. Notify is false when the caller's
// context ended before the work finished; the work itself still completed.
type Outcome struct {
	Settled   bool
	Coins     int
	Calories  int
	Milestone jar.Milestone
	Streak    int
	Notify    bool
}

// Today is the ledger view of the current day.
type Today struct {
	Day             string
	Phase           Phase
	Tasks           []model.DailyTask
	Drink           Drink
	NoDrinkRewarded bool
}

// Phase is the displayed progress of a day.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseEligible Phase = "eligible"
	PhaseSettled  Phase = "settled"
)

func (l *Ledger) today() string { return model.DayKey(l.now(), l.loc) }

// detach keeps reward work running after the caller goes away.
func (l *Ledger) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
}

// Toggle records a task flag and settles today if the checklist is complete.
func (l *Ledger) Toggle(ctx context.Context, taskID string, done bool) (Outcome, error) {
	kind, offset, err := model.ParseTaskID(taskID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	norm, err := tasks.Normalize(offset)
	if err != nil {
		return Outcome{}, err
	}
	if norm != offset {
		return Outcome{}, fmt.Errorf("%w: task %q", errs.ErrValidation, taskID)
	}
	if offset > 0 {
		return Outcome{}, fmt.Errorf("task %q: %w", taskID, errs.ErrNotActionable)
	}
	list, err := tasks.ForDay(offset, nil, l.catalog)
	if err != nil {
		return Outcome{}, err
	}
	if !contains(list, taskID) {
		return Outcome{}, fmt.Errorf("task %q: %w", taskID, errs.ErrNotFound)
	}

	wctx, cancel := l.detach(ctx)
	defer cancel()

	if _, err := l.flags.Set(wctx, l.today(), taskID, done); err != nil {
		return Outcome{}, err
	}
	l.log.Debug("task toggled", zap.String("task", taskID), zap.String("kind", string(kind)), zap.Bool("done", done))
	out, err := l.evaluate(wctx)
	out.Notify = ctx.Err() == nil
	return out, err
}

// Settle settles today if every task of today's checklist is complete.
// Calling it again after a settlement is a no-op.
func (l *Ledger) Settle(ctx context.Context) (Outcome, error) {
	wctx, cancel := l.detach(ctx)
	defer cancel()
	out, err := l.evaluate(wctx)
	out.Notify = ctx.Err() == nil
	return out, err
}

func (l *Ledger) evaluate(ctx context.Context) (Outcome, error) {
	now := l.now()
	day := model.DayKey(now, l.loc)
	flags, err := l.flags.Load(ctx, day)
	if err != nil {
		return Outcome{}, err
	}
	list, err := tasks.ForDay(0, flags, l.catalog)
	if err != nil {
		return Outcome{}, err
	}
	if !tasks.AllDone(list, flags) {
		return Outcome{}, nil
	}
	return l.settle(ctx, day, now, flags[model.TaskID(model.TaskDrinkLog, 0)])
}

// settle pays day once. The profile's last_check_in is the authority on
// whether the day was paid, since the local record is not shared between
// devices and a claim may belong to another process still running.
func (l *Ledger) settle(ctx context.Context, day string, now time.Time, drinkLogDone bool) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.loadRecord(ctx, day)
	if err != nil {
		return Outcome{}, err
	}
	if rec.State == StateSettled {
		return Outcome{}, nil
	}

	if rec.State == StateClaimed {
		p, err := l.profile.Fresh(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if p.LastCheckIn != nil && model.SameDay(*p.LastCheckIn, now, l.loc) {
			// the reward write of an earlier attempt landed
			return Outcome{}, l.finalize(ctx, rec, now)
		}
		l.log.Info("retrying unfinished settlement", zap.String("day", day))
	}

	rec.State, rec.ClaimedAt = StateClaimed, model.Time(now)
	if err := l.saveRecord(ctx, rec); err != nil {
		return Outcome{}, err
	}

	var out Outcome
	if rec.AlcoholFree(drinkLogDone) {
		credit, err := l.jar.CreditDay(ctx, day, jar.DailyCredit)
		if err != nil {
			l.release(ctx, rec)
			return Outcome{}, fmt.Errorf("credit calories: %w", err)
		}
		if credit.Applied {
			out.Calories = jar.DailyCredit
		}
		out.Milestone = credit.Milestone
	}

	bonus := SettlementReward
	if out.Milestone.Reached {
		bonus += jar.MilestoneReward
	}
	p, err := l.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		if cur.LastCheckIn != nil && model.SameDay(*cur.LastCheckIn, now, l.loc) {
			return model.ProfilePatch{}, errs.ErrAlreadySettled
		}
		patch := streak.Advance(cur, now, l.loc)
		patch.Coins = model.Int(cur.Coins + bonus)
		return patch, nil
	})
	if errors.Is(err, errs.ErrAlreadySettled) {
		// another device or process paid the day first
		return Outcome{}, l.finalize(ctx, rec, now)
	}
	if err != nil {
		l.release(ctx, rec)
		return Outcome{}, fmt.Errorf("settle %s: %w", day, err)
	}
	l.streak.Remember(ctx, p)

	rec.State, rec.SettledAt = StateSettled, model.Time(now)
	if err := l.saveRecord(ctx, rec); err != nil {
		// the claim stays; the next attempt finalizes it from last_check_in
		l.log.Warn("settlement mark not saved", zap.String("day", day), zap.Error(err))
	}

	out.Settled = true
	out.Coins = bonus
	out.Streak = p.CurrentStreak
	l.log.Info("day settled",
		zap.String("day", day),
		zap.Int("coins", bonus),
		zap.Int("calories", out.Calories),
		zap.Int("streak", p.CurrentStreak),
	)
	return out, nil
}

// finalize marks a claimed record settled without paying.
func (l *Ledger) finalize(ctx context.Context, rec Record, now time.Time) error {
	rec.State, rec.SettledAt = StateSettled, model.Time(now)
	if err := l.saveRecord(ctx, rec); err != nil {
		return err
	}
	l.log.Info("settlement finalized", zap.String("day", rec.Day))
	return nil
}

// release drops a claim so the day can be retried.
func (l *Ledger) release(ctx context.Context, rec Record) {
	rec.State, rec.ClaimedAt = StatePending, nil
	if err := l.saveRecord(ctx, rec); err != nil {
		l.log.Warn("settlement claim not released", zap.String("day", rec.Day), zap.Error(err))
	}
}

// MarkNoDrinks records an alcohol-free report for today. The first report
// of a day pays NoDrinkReward; later ones return errs.ErrAlreadyLogged.
func (l *Ledger) MarkNoDrinks(ctx context.Context) (Outcome, error) {
	wctx, cancel := l.detach(ctx)
	defer cancel()

	out, err := l.markNoDrinks(wctx)
	if err != nil {
		return Outcome{}, err
	}
	settled, err := l.completeDrinkLog(wctx)
	out = merge(out, settled)
	out.Notify = ctx.Err() == nil
	return out, err
}

func (l *Ledger) markNoDrinks(ctx context.Context) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.today()
	rec, err := l.loadRecord(ctx, day)
	if err != nil {
		return Outcome{}, err
	}
	if rec.Drink.Status != DrinkUnset {
		return Outcome{}, errs.ErrAlreadyLogged
	}

	prev := rec
	rec.Drink = Drink{Status: DrinkNone, LoggedAt: model.Time(l.now())}
	pay := !rec.NoDrinkRewarded
	rec.NoDrinkRewarded = true
	if err := l.saveRecord(ctx, rec); err != nil {
		return Outcome{}, err
	}
	if !pay {
		l.log.Info("no-drink reward already granted", zap.String("day", day))
		return Outcome{}, nil
	}
	if _, err := l.coins.Add(ctx, NoDrinkReward); err != nil {
		if rerr := l.saveRecord(ctx, prev); rerr != nil {
			l.log.Error("no-drink marker not rolled back", zap.String("day", day), zap.Error(rerr))
		}
		return Outcome{}, fmt.Errorf("no-drink reward: %w", err)
	}
	return Outcome{Coins: NoDrinkReward}, nil
}

// LogDrinks adds count drinks to today's report. Any drink resets the
// current streak.
func (l *Ledger) LogDrinks(ctx context.Context, count int) (Outcome, error) {
	if count < 0 {
		return Outcome{}, fmt.Errorf("%w: drinks %d", errs.ErrInvalidAmount, count)
	}
	wctx, cancel := l.detach(ctx)
	defer cancel()

	if err := l.logDrinks(wctx, count); err != nil {
		return Outcome{}, err
	}
	if count > 0 {
		if _, err := l.streak.Reset(wctx); err != nil {
			return Outcome{}, err
		}
	}
	out, err := l.completeDrinkLog(wctx)
	out.Notify = ctx.Err() == nil
	return out, err
}

func (l *Ledger) logDrinks(ctx context.Context, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.loadRecord(ctx, l.today())
	if err != nil {
		return err
	}
	total := count
	if rec.Drink.Status == DrinkLogged {
		total += rec.Drink.Count
	}
	rec.Drink = Drink{Status: DrinkLogged, Count: total, LoggedAt: model.Time(l.now())}
	return l.saveRecord(ctx, rec)
}

func (l *Ledger) completeDrinkLog(ctx context.Context) (Outcome, error) {
	if _, err := l.flags.Set(ctx, l.today(), model.TaskID(model.TaskDrinkLog, 0), true); err != nil {
		return Outcome{}, err
	}
	return l.evaluate(ctx)
}

// Status returns today's checklist and settlement state.
func (l *Ledger) Status(ctx context.Context) (Today, error) {
	day := l.today()
	flags, err := l.flags.Load(ctx, day)
	if err != nil {
		return Today{}, err
	}
	list, err := tasks.ForDay(0, flags, l.catalog)
	if err != nil {
		return Today{}, err
	}
	rec, err := l.loadRecord(ctx, day)
	if err != nil {
		return Today{}, err
	}
	t := Today{Day: day, Phase: PhasePending, Tasks: list, Drink: rec.Drink, NoDrinkRewarded: rec.NoDrinkRewarded}
	switch {
	case rec.State == StateSettled:
		t.Phase = PhaseSettled
	case tasks.AllDone(list, flags):
		t.Phase = PhaseEligible
	}
	return t, nil
}

// Record returns today's raw settlement record.
func (l *Ledger) Record(ctx context.Context) (Record, error) {
	return l.loadRecord(ctx, l.today())
}

func merge(a, b Outcome) Outcome {
	a.Settled = a.Settled || b.Settled
	a.Coins += b.Coins
	a.Calories += b.Calories
	if b.Milestone.Reached {
		a.Milestone = b.Milestone
	}
	if b.Settled {
		a.Streak = b.Streak
	}
	return a
}

func contains(list []model.DailyTask, id string) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}
