package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/metrics"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

// ReminderWindow is how close to its start a meeting gets its starting-now reminder.
const ReminderWindow = 5 * time.Minute

// AutoEnd ends every active meeting that ran past the six hour cap or the daily
// cutoff. All selected meetings are ended in one batch; if the batch fails
// nothing changes and the next sweep tries again.
func (s *ScheduleService) AutoEnd(ctx context.Context) ([]models.Meeting, error) {
	now := s.now()
	active, err := s.store.QueryMeetings(ctx, models.MeetingFilter{
		Status: []models.Status{models.StatusActive},
		To:     models.TimePtr(now.Add(time.Nanosecond)),
	})
	if err != nil {
		metrics.SweepFailures.Inc()
		return nil, fmt.Errorf("err loading active meetings: %w", err)
	}
	selected := schedule.SelectForAutoEnd(active, now)
	if len(selected) == 0 {
		s.log.Debug("no meetings to auto-end")
		return nil, nil
	}
	batch := models.Batch{Updates: make([]models.MeetingUpdate, 0, len(selected))}
	for _, m := range selected {
		batch.Updates = append(batch.Updates, models.MeetingUpdate{
			ID:           m.ID,
			ExpectStatus: models.StatusActive,
			Status:       models.StatusPtr(models.StatusCompleted),
			EndTime:      models.TimePtr(now),
		})
	}
	if err = s.store.CommitBatch(ctx, batch); err != nil {
		metrics.SweepFailures.Inc()
		return nil, fmt.Errorf("err auto-ending %d meetings: %w", len(selected), err)
	}
	metrics.MeetingsAutoEnded.Add(float64(len(selected)))
	s.log.Infof("auto-ended %d meetings", len(selected))

	changes := make([]events.MeetingEvent, 0, len(selected))
	notes := make([]models.Notification, 0, len(selected))
	for i := range selected {
		selected[i].Status = models.StatusCompleted
		selected[i].EndTime = models.TimePtr(now)
		changes = append(changes, s.event(events.KindCompleted, selected[i]))
		notes = append(notes, hostNote(selected[i], autoEndedNote(selected[i])))
	}
	s.afterCommit(ctx, changes, notes)
	return selected, nil
}

// RemindStarting announces active meetings that start within ReminderWindow of
// now. Each meeting is marked before it is announced so it is announced at most once.
func (s *ScheduleService) RemindStarting(ctx context.Context) ([]models.Meeting, error) {
	now := s.now()
	due, err := s.store.QueryMeetings(ctx, models.MeetingFilter{
		Status:      []models.Status{models.StatusActive},
		From:        models.TimePtr(now.Add(-ReminderWindow)),
		To:          models.TimePtr(now.Add(ReminderWindow)),
		NotReminded: true,
	})
	if err != nil {
		return nil, fmt.Errorf("err loading starting meetings: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}
	batch := models.Batch{Updates: make([]models.MeetingUpdate, 0, len(due))}
	for _, m := range due {
		batch.Updates = append(batch.Updates, models.MeetingUpdate{
			ID:           m.ID,
			ExpectStatus: models.StatusActive,
			Reminded:     boolPtr(true),
		})
	}
	if err = s.store.CommitBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("err marking %d meetings reminded: %w", len(due), err)
	}
	var notes []models.Notification
	for i := range due {
		due[i].Reminded = true
		notes = append(notes, audienceNotes(due[i], startingNote(due[i]))...)
		notes = append(notes, hostNote(due[i], startingNote(due[i])))
	}
	s.afterCommit(ctx, nil, notes)
	return due, nil
}

func boolPtr(b bool) *bool {
	return &b
}
