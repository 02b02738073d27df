package service

import (
	"fmt"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

const (
	KindCreated     = "meeting_created"
	KindCancelled   = "meeting_cancelled"
	KindRescheduled = "meeting_rescheduled"
	KindAutoEnded   = "meeting_auto_ended"
	KindStarting    = "meeting_starting"
)

// audienceNotes addresses n to everyone who should hear about m except its host.
func audienceNotes(m models.Meeting, n models.Notification) []models.Notification {
	n.MeetingID = m.ID
	if m.Attendees != models.AudienceCustom {
		n.Topic = m.Attendees
		return []models.Notification{n}
	}
	notes := make([]models.Notification, 0, len(m.CustomAttendeeUIDs))
	for _, uid := range m.CustomAttendeeUIDs {
		if uid == m.ScheduledBy {
			continue
		}
		personal := n
		personal.UID = uid
		notes = append(notes, personal)
	}
	return notes
}

func hostNote(m models.Meeting, n models.Notification) models.Notification {
	n.MeetingID = m.ID
	n.UID = m.ScheduledBy
	return n
}

func createdNote(m models.Meeting, now time.Time) models.Notification {
	start := m.DateTime.In(now.Location())
	return models.Notification{
		Kind:  KindCreated,
		Title: "New meeting: " + m.Title,
		Body: fmt.Sprintf("You have a new meeting: %s on %s at %s. Location: %s",
			m.Title, start.Format("Mon, Jan 2, 2006"), start.Format("3:04 PM"), orDefault(m.Location, "TBD")),
	}
}

func cancelledNote(m models.Meeting, now time.Time) models.Notification {
	body := fmt.Sprintf("The meeting '%s' which was expected %s is cancelled.", m.Title, relativeDay(m.DateTime, now))
	if m.CancelReason != "" {
		body += " " + m.CancelReason + "."
	}
	return models.Notification{Kind: KindCancelled, Title: "Meeting cancelled", Body: body}
}

func rescheduledNote(m models.Meeting, previous time.Time, now time.Time) models.Notification {
	movement := "preponed"
	if m.DateTime.After(previous) {
		movement = "postponed"
	}
	return models.Notification{
		Kind:  KindRescheduled,
		Title: "Meeting rescheduled",
		Body: fmt.Sprintf("The meeting '%s' which was expected %s is %s to %s at %s.",
			m.Title, relativeDay(previous, now), movement, relativeDay(m.DateTime, now), m.DateTime.In(now.Location()).Format("3:04 PM")),
	}
}

func autoEndedNote(m models.Meeting) models.Notification {
	return models.Notification{
		Kind:  KindAutoEnded,
		Title: "Meeting Ended Automatically",
		Body:  fmt.Sprintf("The meeting '%s' has been automatically ended.", m.Title),
	}
}

func startingNote(m models.Meeting) models.Notification {
	return models.Notification{
		Kind:  KindStarting,
		Title: "Meeting Starting Now",
		Body:  fmt.Sprintf("The meeting %q is starting now at %s.", m.Title, orDefault(m.Location, "the designated location")),
	}
}

func relativeDay(t, now time.Time) string {
	t = t.In(now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "tomorrow"
	default:
		return "on " + t.Format("Mon, Jan 2")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
