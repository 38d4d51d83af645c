package report

import (
	"fmt"
	"time"
)

// Window is the leaderboard period.
type Window string

const (
	Week  Window = "week"
	Month Window = "month"
)

// ParseWindow maps the period query parameter to a Window; empty means Week.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "":
		return Week, nil
	case Week, Month:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Start returns the inclusive lower bound of the window containing now.
func (w Window) Start(now time.Time) time.Time {
	if w == Month {
		return MonthStart(now)
	}
	return WeekStart(now)
}

// WeekStart is the most recent Sunday at 00:00:00 in now's location.
func WeekStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// MonthStart is the first day of now's month at 00:00:00 in now's location.
func MonthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// EndOfDay is the last nanosecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}
