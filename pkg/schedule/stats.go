package schedule

import (
	"fmt"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

// Outcome classifies a meeting for attendance accounting.
type Outcome int

const (
	OutcomeUncounted Outcome = iota
	OutcomeAttended
	OutcomeMissed
	OutcomePending
)

type Stats struct {
	Attended     int   `json:"attended"`
	Missed       int   `json:"missed"`
	Pending      int   `json:"pending"`
	TotalMinutes int64 `json:"totalMinutes"`
}

// HHMM renders TotalMinutes as hours and minutes.
func (s Stats) HHMM() string {
	return fmt.Sprintf("%02d:%02d", s.TotalMinutes/60, s.TotalMinutes%60)
}

// IsAttendee reports host or custom list membership. Role-based audiences are
// deliberately not expanded for attendance.
func IsAttendee(m models.Meeting, uid string) bool {
	return m.ScheduledBy == uid || m.IsCustomAttendee(uid)
}

// Classify decides how a single meeting counts at now. Future meetings and
// cancelled meetings that never ran are uncounted. A meeting without an end
// time is pending until its expected end has passed.
func Classify(m models.Meeting, now time.Time) Outcome {
	if !m.DateTime.Before(now) {
		return OutcomeUncounted
	}
	if m.EndTime != nil {
		return OutcomeAttended
	}
	if m.Status == models.StatusCancelled {
		return OutcomeUncounted
	}
	if now.After(ExpectedEnd(m)) {
		return OutcomeMissed
	}
	return OutcomePending
}

// Rollup computes attendance statistics for uid over meetings.
func Rollup(meetings []models.Meeting, uid string, now time.Time) Stats {
	var s Stats
	for _, m := range meetings {
		if !IsAttendee(m, uid) {
			continue
		}
		switch Classify(m, now) {
		case OutcomeAttended:
			s.Attended++
			s.TotalMinutes += int64(m.EndTime.Sub(m.DateTime) / time.Minute)
		case OutcomeMissed:
			s.Missed++
		case OutcomePending:
			s.Pending++
		}
	}
	return s
}

// FilterOutcome returns uid's meetings with the given outcome, in input order.
func FilterOutcome(meetings []models.Meeting, uid string, outcome Outcome, now time.Time) []models.Meeting {
	var result []models.Meeting
	for _, m := range meetings {
		if IsAttendee(m, uid) && Classify(m, now) == outcome {
			result = append(result, m)
		}
	}
	return result
}
