package schedule

import (
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

const (
	// MaxMeetingLength caps how long a meeting may stay open.
	MaxMeetingLength = 6 * time.Hour
	// CutoffHour is the local hour at which every open meeting is ended.
	CutoffHour = 21
	// cutoffLead opens the end-of-day window this long before CutoffHour.
	cutoffLead = 15 * time.Minute
)

// ShouldAutoEnd applies the six hour cap and the daily cutoff. Hours are read in now's location.
func ShouldAutoEnd(m models.Meeting, now time.Time) bool {
	if now.Sub(m.DateTime) > MaxMeetingLength {
		return true
	}
	return now.Hour() >= CutoffHour
}

// NearEndOfDay reports whether now is within the last minutes before the cutoff, or past it.
func NearEndOfDay(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), CutoffHour, 0, 0, 0, now.Location())
	return !now.Before(cutoff.Add(-cutoffLead))
}

// SelectForAutoEnd picks the active meetings one sweep pass should end. Close
// to the cutoff, meetings that started earlier the same day are ended too so the
// cutoff cannot slip between two sweeps. Meetings that have not started yet
// are left alone.
func SelectForAutoEnd(active []models.Meeting, now time.Time) []models.Meeting {
	nearCutoff := NearEndOfDay(now)
	var selected []models.Meeting
	for _, m := range active {
		if m.Status != models.StatusActive || m.EndTime != nil || m.DateTime.After(now) {
			continue
		}
		if ShouldAutoEnd(m, now) || (nearCutoff && sameDay(now, m.DateTime)) {
			selected = append(selected, m)
		}
	}
	return selected
}
