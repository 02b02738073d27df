// Package schedule holds the meeting lifecycle rules: interval arithmetic,
// designation ranking, visibility, conflict resolution, auto-ending and
// attendance statistics. Every time-dependent function takes now explicitly.
package schedule

import (
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

const editWindowWorkingDays = 3

// Duration returns the meeting length used before an explicit end exists.
func Duration(m models.Meeting) time.Duration {
	minutes := m.Duration
	if minutes <= 0 {
		minutes = models.DefaultDuration
	}
	return time.Duration(minutes) * time.Minute
}

// ExpectedEnd ignores EndTime and returns start plus duration.
func ExpectedEnd(m models.Meeting) time.Time {
	return m.DateTime.Add(Duration(m))
}

// EffectiveEnd is the basis for every overlap and "has it ended" check.
func EffectiveEnd(m models.Meeting) time.Time {
	if m.EndTime != nil {
		return *m.EndTime
	}
	return ExpectedEnd(m)
}

// Overlaps uses half-open intervals: meetings that only touch do not overlap.
func Overlaps(a, b models.Meeting) bool {
	return a.DateTime.Before(EffectiveEnd(b)) && EffectiveEnd(a).After(b.DateTime)
}

// WorkingDaysBetween counts Monday..Friday calendar days in [start, end],
// both inclusive. Days are taken in start's location.
func WorkingDaysBetween(start, end time.Time) int {
	if start.After(end) {
		return 0
	}
	loc := start.Location()
	day := truncateDay(start)
	last := truncateDay(end.In(loc))
	days := 0
	for !day.After(last) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// CanStillEdit reports whether an ended meeting is inside the three working day edit window.
func CanStillEdit(meetingEnd, now time.Time) bool {
	return WorkingDaysBetween(meetingEnd, now) <= editWindowWorkingDays
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
