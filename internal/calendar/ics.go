package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

const productID = "-//facultymeet//meetings//EN"

// WriteICS renders meetings as an iCalendar feed. Times are written in UTC.
func WriteICS(w io.Writer, meetings []models.Meeting, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, m := range meetings {
		cal.Children = append(cal.Children, icsEvent(m, stamp).Component)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("err encoding calendar: %w", err)
	}
	return nil
}

func icsEvent(m models.Meeting, stamp time.Time) *ical.Event {
	end := schedule.ExpectedEnd(m)
	if m.EndTime != nil {
		end = *m.EndTime
	}
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, m.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, m.DateTime.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	event.Props.SetText(ical.PropSummary, m.Title)
	if m.Location != "" {
		event.Props.SetText(ical.PropLocation, m.Location)
	}
	event.Props.SetText(ical.PropDescription, "Audience: "+m.Attendees)
	switch m.Status {
	case models.StatusCancelled:
		event.Props.SetText(ical.PropStatus, "CANCELLED")
	default:
		event.Props.SetText(ical.PropStatus, "CONFIRMED")
	}
	return event
}
