package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

// Resolution is the outcome of checking a candidate against active meetings.
type Resolution struct {
	Conflicts    []models.Meeting `json:"conflicts"`
	Overrideable []models.Meeting `json:"overrideable"`
	Blocking     []models.Meeting `json:"blocking"`
}

// Clear reports whether the candidate can be stored without touching other meetings.
func (r Resolution) Clear() bool {
	return len(r.Conflicts) == 0
}

// CanOverride reports whether cancelling Overrideable would clear every conflict.
func (r Resolution) CanOverride() bool {
	return len(r.Overrideable) > 0 && len(r.Blocking) == 0
}

// ConflictingMeetings returns the active meetings the caller is involved in that
// overlap the candidate. The candidate itself is skipped by ID.
func ConflictingMeetings(candidate models.Meeting, caller models.Participant, active []models.Meeting) []models.Meeting {
	var conflicts []models.Meeting
	for _, m := range active {
		if m.ID == candidate.ID || m.Status != models.StatusActive {
			continue
		}
		if !IsInvolved(m, caller) || !Overlaps(candidate, m) {
			continue
		}
		conflicts = append(conflicts, m)
	}
	return conflicts
}

// Resolve partitions conflicts into overrideable and blocking. A conflict is
// overrideable only when it is hosted by someone else whose designation is
// known and strictly outranked by the caller. hostDesignations maps host uid
// to designation; a missing entry counts as blocking.
func Resolve(candidate models.Meeting, caller models.Participant, active []models.Meeting, hostDesignations map[string]string) Resolution {
	var r Resolution
	r.Conflicts = ConflictingMeetings(candidate, caller, active)
	for _, m := range r.Conflicts {
		hostDesignation, known := hostDesignations[m.ScheduledBy]
		if m.ScheduledBy != caller.UID && known && Outranks(caller.Designation, hostDesignation) {
			r.Overrideable = append(r.Overrideable, m)
			continue
		}
		r.Blocking = append(r.Blocking, m)
	}
	return r
}

// OverrideReason is stored on meetings cancelled by an override.
func OverrideReason(name, designation string) string {
	return fmt.Sprintf("Overridden by %s (%s)", name, designation)
}

// ValidateCandidate rejects meetings that must never reach the store.
func ValidateCandidate(m models.Meeting, now time.Time) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(m.Title) == "" {
		vErr.add("title", "title is required")
	}
	if m.ScheduledBy == "" {
		vErr.add("scheduledBy", "host is required")
	}
	switch {
	case m.DateTime.IsZero():
		vErr.add("dateTime", "date and time are required")
	case m.DateTime.Before(now):
		vErr.add("dateTime", "meeting cannot be scheduled in the past")
	}
	if m.Duration < 0 {
		vErr.add("duration", "duration cannot be negative")
	}
	switch {
	case !KnownAudience(m.Attendees):
		vErr.add("attendees", fmt.Sprintf("unknown audience %q", m.Attendees))
	case m.Attendees == models.AudienceCustom && !hasOtherAttendee(m):
		vErr.add("customAttendeeUids", "select at least one attendee other than the host")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func hasOtherAttendee(m models.Meeting) bool {
	for _, uid := range m.CustomAttendeeUIDs {
		if uid != "" && uid != m.ScheduledBy {
			return true
		}
	}
	return false
}
