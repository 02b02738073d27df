package calendar

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

// Mirror keeps a shared Google calendar in step with the meetings stored here.
type Mirror struct {
	log        *logrus.Entry
	srv        *calendar.Service
	calendarID string
}

// NewMirror authenticates with a service account key.
func NewMirror(ctx context.Context, log *logrus.Logger, credentialsJSON []byte, calendarID string) (*Mirror, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("err parsing calendar credentials: %w", err)
	}
	return NewMirrorWithOptions(ctx, log, calendarID, option.WithHTTPClient(config.Client(ctx)))
}

func NewMirrorWithOptions(ctx context.Context, log *logrus.Logger, calendarID string, opts ...option.ClientOption) (*Mirror, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("err creating calendar client: %w", err)
	}
	return &Mirror{
		log:        log.WithField("component", "calendar"),
		srv:        srv,
		calendarID: calendarID,
	}, nil
}

// MirrorMeeting upserts the event for m. Meetings map to events by ID so
// repeated calls converge on one event.
func (c *Mirror) MirrorMeeting(ctx context.Context, m models.Meeting) error {
	event := toEvent(m)
	_, err := c.srv.Events.Update(c.calendarID, event.Id, event).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		_, err = c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("err mirroring meeting %s: %w", m.ID, err)
	}
	c.log.Debugf("meeting %s mirrored as %s", m.ID, event.Id)
	return nil
}

func toEvent(m models.Meeting) *calendar.Event {
	end := schedule.ExpectedEnd(m)
	if m.EndTime != nil {
		end = *m.EndTime
	}
	status := "confirmed"
	if m.Status == models.StatusCancelled {
		status = "cancelled"
	}
	description := "Audience: " + m.Attendees
	if m.CancelReason != "" {
		description += "\n" + m.CancelReason
	}
	return &calendar.Event{
		Id:          EventID(m.ID),
		Summary:     m.Title,
		Location:    m.Location,
		Description: description,
		Status:      status,
		Start:       &calendar.EventDateTime{DateTime: m.DateTime.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
}

// EventID derives a Google event id, which only allows base32hex characters.
func EventID(meetingID string) string {
	return hex.EncodeToString([]byte(meetingID))
}
