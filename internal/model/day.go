package model

import "time"

// DayLayout is the calendar-day key format.
const DayLayout = "2006-01-02"

// DayKey returns the calendar day of t in loc (time.Local when nil).
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// DaysBetween returns the number of calendar days from a to b in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	da, _ := time.ParseInLocation(DayLayout, DayKey(a, loc), loc)
	db, _ := time.ParseInLocation(DayLayout, DayKey(b, loc), loc)
	return int(db.Sub(da).Round(time.Hour).Hours() / 24)
}
