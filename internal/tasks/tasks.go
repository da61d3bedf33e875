// Package tasks derives the daily checklist and persists its completion flags.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/model"
)

// FlagsKey is the cache key of the completion flag record.
const FlagsKey = "task-flags"

const (
	// MaxOffset is the furthest future day that can be viewed.
	MaxOffset = 14
	// Yesterday is the offset every negative offset normalizes to.
	Yesterday = -1
)

// Normalize maps an offset onto the supported range.
func Normalize(offset int) (int, error) {
	switch {
	case offset > MaxOffset:
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidOffset, offset)
	case offset < 0:
		return Yesterday, nil
	}
	return offset, nil
}

// ForDay returns the ordered checklist of a day offset. It is a pure
// projection of the offset, the flags and the content catalog.
func ForDay(offset int, flags map[string]bool, c *content.Catalog) ([]model.DailyTask, error) {
	offset, err := Normalize(offset)
	if err != nil {
		return nil, err
	}
	mk := func(kind model.TaskKind, title, duration string) model.DailyTask {
		id := model.TaskID(kind, offset)
		return model.DailyTask{
			ID:         id,
			Kind:       kind,
			Title:      title,
			Duration:   duration,
			Icon:       Icon(kind),
			Route:      Route(kind),
			DayOffset:  offset,
			Completed:  flags[id],
			Actionable: offset <= 0,
		}
	}

	out := []model.DailyTask{
		mk(model.TaskMotivation, Title(model.TaskMotivation), Duration(model.TaskMotivation)),
		mk(model.TaskDrinkLog, Title(model.TaskDrinkLog), Duration(model.TaskDrinkLog)),
	}
	if a, ok := c.ArticleFor(offset); ok {
		out = append(out, mk(model.TaskArticle, a.Title, a.Duration))
	}
	if offset == Yesterday {
		out = append(out, mk(model.TaskBreathing, Title(model.TaskBreathing), Duration(model.TaskBreathing)))
	}
	return out, nil
}

// AllDone reports whether every task is completed and every task id has an
// explicit flag. Unknown flags count as not evaluated.
func AllDone(list []model.DailyTask, flags map[string]bool) bool {
	if len(list) == 0 {
		return false
	}
	for _, t := range list {
		done, ok := flags[t.ID]
		if !ok || !done {
			return false
		}
	}
	return true
}

// Title returns the default title of a kind.
func Title(k model.TaskKind) string {
	switch k {
	case model.TaskMotivation:
		return "Read today's motivation"
	case model.TaskDrinkLog:
		return "Log your drinks"
	case model.TaskArticle:
		return "Read an article"
	case model.TaskBreathing:
		return "Breathing exercise"
	}
	return string(k)
}

// Duration returns the default duration label of a kind.
func Duration(k model.TaskKind) string {
	switch k {
	case model.TaskMotivation:
		return "1 min"
	case model.TaskDrinkLog:
		return "1 min"
	case model.TaskArticle:
		return "5 min"
	case model.TaskBreathing:
		return "3 min"
	}
	return ""
}

// Icon returns the icon name of a kind.
func Icon(k model.TaskKind) string {
	switch k {
	case model.TaskMotivation:
		return "sparkles"
	case model.TaskDrinkLog:
		return "glass"
	case model.TaskArticle:
		return "book"
	case model.TaskBreathing:
		return "wind"
	}
	return ""
}

// Route returns the screen that handles a kind, or "" when the task is
// completed in place.
func Route(k model.TaskKind) string {
	switch k {
	case model.TaskMotivation:
		return "/motivation"
	case model.TaskDrinkLog:
		return "/log"
	case model.TaskArticle:
		return "/articles"
	case model.TaskBreathing:
		return ""
	}
	return ""
}

// Flags is the persisted completion state. Flags of any day other than Day
// are stale.
type Flags struct {
	Day   string          `json:"day"`
	Flags map[string]bool `json:"flags"`
}

// Store persists completion flags in the cache.
type Store struct {
	cache kv.Cache
	log   *zap.Logger
}

// NewStore constructs a Store.
func NewStore(cache kv.Cache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{cache: cache, log: log}
}

// Load returns the flags recorded for day. Flags of another day, a
// missing record and an unreadable record all yield an empty map.
func (s *Store) Load(ctx context.Context, day string) (map[string]bool, error) {
	var f Flags
	_, err := kv.GetJSON(ctx, s.cache, FlagsKey, &f)
	switch {
	case errors.Is(err, errs.ErrCorrupt):
		s.log.Warn("task flags unreadable, starting empty", zap.Error(err))
		return map[string]bool{}, nil
	case err != nil:
		return nil, fmt.Errorf("load task flags: %w", err)
	}
	if f.Day != day || f.Flags == nil {
		return map[string]bool{}, nil
	}
	return f.Flags, nil
}

// Set records one flag for day and returns the updated map.
func (s *Store) Set(ctx context.Context, day, id string, done bool) (map[string]bool, error) {
	cur, err := s.Load(ctx, day)
	if err != nil {
		return nil, err
	}
	next := maps.Clone(cur)
	next[id] = done
	if err := kv.SetJSON(ctx, s.cache, FlagsKey, Flags{Day: day, Flags: next}); err != nil {
		return nil, fmt.Errorf("save task flags: %w", err)
	}
	return next, nil
}
