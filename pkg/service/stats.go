package service

import (
	"context"
	"fmt"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

// Statistics rolls up the attendance of one user as of now.
func (s *ScheduleService) Statistics(ctx context.Context, uid string) (schedule.Stats, error) {
	meetings, err := s.participantMeetings(ctx, uid)
	if err != nil {
		return schedule.Stats{}, err
	}
	return schedule.Rollup(meetings, uid, s.now()), nil
}

func (s *ScheduleService) AttendedMeetings(ctx context.Context, uid string) ([]models.Meeting, error) {
	return s.meetingsWithOutcome(ctx, uid, schedule.OutcomeAttended)
}

func (s *ScheduleService) MissedMeetings(ctx context.Context, uid string) ([]models.Meeting, error) {
	return s.meetingsWithOutcome(ctx, uid, schedule.OutcomeMissed)
}

func (s *ScheduleService) meetingsWithOutcome(ctx context.Context, uid string, outcome schedule.Outcome) ([]models.Meeting, error) {
	meetings, err := s.participantMeetings(ctx, uid)
	if err != nil {
		return nil, err
	}
	return schedule.FilterOutcome(meetings, uid, outcome, s.now()), nil
}

// participantMeetings loads meetings the user hosts or is a custom attendee of.
// Role-based audiences are not expanded here.
func (s *ScheduleService) participantMeetings(ctx context.Context, uid string) ([]models.Meeting, error) {
	to := s.now()
	meetings, err := s.store.QueryMeetings(ctx, models.MeetingFilter{ParticipantUID: uid, To: &to})
	if err != nil {
		return nil, fmt.Errorf("err loading meetings of %s: %w", uid, err)
	}
	return meetings, nil
}
