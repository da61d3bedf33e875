package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TaskKind is the closed set of daily task kinds.
type TaskKind string

const (
	TaskMotivation TaskKind = "motivation"
	TaskDrinkLog   TaskKind = "drink-log"
	TaskArticle    TaskKind = "article"
	TaskBreathing  TaskKind = "breathing"
)

// TaskKinds lists every kind in display order.
var TaskKinds = []TaskKind{TaskMotivation, TaskDrinkLog, TaskArticle, TaskBreathing}

// DailyTask is a derived, ephemeral checklist entry for one day offset.
type DailyTask struct {
	ID         string   `json:"id"`
	Kind       TaskKind `json:"kind"`
	Title      string   `json:"title"`
	Duration   string   `json:"duration"`
	Icon       string   `json:"icon"`
	Route      string   `json:"route,omitempty"`
	DayOffset  int      `json:"day_offset"`
	Completed  bool     `json:"completed"`
	Actionable bool     `json:"actionable"` // false for days that have not occurred
}

// TaskID builds the id of a task kind at a day offset.
func TaskID(kind TaskKind, offset int) string {
	return fmt.Sprintf("%s:%d", kind, offset)
}

// ParseTaskID splits a task id into kind and day offset.
func ParseTaskID(id string) (TaskKind, int, error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("bad task id %q", id)
	}
	kind := TaskKind(id[:i])
	off, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("bad task id %q: %w", id, err)
	}
	for _, k := range TaskKinds {
		if k == kind {
			return kind, off, nil
		}
	}
	return "", 0, fmt.Errorf("unknown task kind %q", kind)
}
