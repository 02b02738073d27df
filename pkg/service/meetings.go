package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/metrics"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

// ScheduleMeeting validates the request, checks it against the caller's active
// meetings and stores it. When the request asks for an override and every
// conflict is held by a lower-ranked host, those meetings are cancelled in the
// same batch as the insert.
func (s *ScheduleService) ScheduleMeeting(ctx context.Context, callerUID string, req models.MeetingRequest) (models.Meeting, error) {
	now := s.now()
	candidate := s.buildCandidate(callerUID, req)
	if err := schedule.ValidateCandidate(candidate, now); err != nil {
		return models.Meeting{}, err
	}
	caller, res, err := s.resolve(ctx, candidate)
	if err != nil {
		return models.Meeting{}, err
	}
	batch := models.Batch{Inserts: []models.Meeting{candidate}}
	overridden, err := s.overrideUpdates(caller, res, req.Override)
	if err != nil {
		return models.Meeting{}, err
	}
	batch.Updates = overridden
	if err = s.store.CommitBatch(ctx, batch); err != nil {
		return models.Meeting{}, fmt.Errorf("err storing meeting: %w", err)
	}
	metrics.MeetingsScheduled.Inc()
	s.log.Infof("meeting %s scheduled by %s, %d overridden", candidate.ID, caller.UID, len(overridden))

	changes := []events.MeetingEvent{s.event(events.KindCreated, candidate)}
	notes := audienceNotes(candidate, createdNote(candidate, now))
	for _, m := range overriddenMeetings(res, overridden) {
		m.Status = models.StatusCancelled
		m.CancelReason = schedule.OverrideReason(caller.Name, caller.Designation)
		changes = append(changes, s.event(events.KindCancelled, m))
		notes = append(notes, audienceNotes(m, cancelledNote(m, now))...)
	}
	s.afterCommit(ctx, changes, notes)
	return candidate, nil
}

// CheckConflicts runs the resolver without writing anything.
func (s *ScheduleService) CheckConflicts(ctx context.Context, callerUID string, req models.MeetingRequest) (schedule.Resolution, error) {
	candidate := s.buildCandidate(callerUID, req)
	if err := schedule.ValidateCandidate(candidate, s.now()); err != nil {
		return schedule.Resolution{}, err
	}
	_, res, err := s.resolve(ctx, candidate)
	return res, err
}

func (s *ScheduleService) buildCandidate(callerUID string, req models.MeetingRequest) models.Meeting {
	m := models.Meeting{
		ID:          s.newID(),
		ScheduledBy: callerUID,
		Status:      models.StatusActive,
		Duration:    models.DefaultDuration,
		Attendees:   models.AudienceAllFaculty,
	}
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Location != nil {
		m.Location = strings.TrimSpace(*req.Location)
	}
	if req.DateTime != nil {
		m.DateTime = *req.DateTime
	}
	if req.Duration != nil && *req.Duration > 0 {
		m.Duration = *req.Duration
	}
	if req.Attendees != nil {
		m.Attendees = strings.TrimSpace(*req.Attendees)
	}
	if m.Attendees == models.AudienceCustom {
		m.CustomAttendeeUIDs = uniqueUIDs(req.CustomAttendeeUIDs)
	}
	return m
}

// resolve loads everything the conflict check needs. Any failure to load is
// reported as ErrConflictCheck so that nothing gets stored on partial data.
func (s *ScheduleService) resolve(ctx context.Context, candidate models.Meeting) (models.Participant, schedule.Resolution, error) {
	caller, err := s.participant(ctx, candidate.ScheduledBy)
	if err != nil {
		return models.Participant{}, schedule.Resolution{}, fmt.Errorf("%w: loading caller: %v", ErrConflictCheck, err)
	}
	active, err := s.store.QueryMeetings(ctx, models.MeetingFilter{
		Status: []models.Status{models.StatusActive},
		To:     models.TimePtr(schedule.EffectiveEnd(candidate)),
	})
	if err != nil {
		return caller, schedule.Resolution{}, fmt.Errorf("%w: loading meetings: %v", ErrConflictCheck, err)
	}
	conflicts := schedule.ConflictingMeetings(candidate, caller, active)
	hosts := make([]string, 0, len(conflicts))
	for _, m := range conflicts {
		if m.ScheduledBy != caller.UID {
			hosts = append(hosts, m.ScheduledBy)
		}
	}
	designations := make(map[string]string, len(hosts))
	if len(hosts) > 0 {
		users, err := s.store.GetUsersByUIDs(ctx, uniqueUIDs(hosts))
		if err != nil {
			return caller, schedule.Resolution{}, fmt.Errorf("%w: loading hosts: %v", ErrConflictCheck, err)
		}
		for _, u := range users {
			designations[u.UID] = u.Designation
		}
	}
	return caller, schedule.Resolve(candidate, caller, conflicts, designations), nil
}

// overrideUpdates turns a resolution into the cancellations an override needs,
// or a ConflictError when the candidate cannot go ahead.
func (s *ScheduleService) overrideUpdates(caller models.Participant, res schedule.Resolution, override bool) ([]models.MeetingUpdate, error) {
	switch {
	case res.Clear():
		return nil, nil
	case !override || !res.CanOverride():
		outcome := "blocked"
		if res.CanOverride() {
			outcome = "overridable"
		}
		metrics.MeetingConflicts.WithLabelValues(outcome).Inc()
		return nil, &ConflictError{Resolution: res}
	}
	metrics.MeetingConflicts.WithLabelValues("overridden").Inc()
	reason := schedule.OverrideReason(caller.Name, caller.Designation)
	updates := make([]models.MeetingUpdate, 0, len(res.Overrideable))
	for _, m := range res.Overrideable {
		updates = append(updates, models.MeetingUpdate{
			ID:           m.ID,
			ExpectStatus: models.StatusActive,
			Status:       models.StatusPtr(models.StatusCancelled),
			CancelReason: models.StringPtr(reason),
		})
	}
	return updates, nil
}

// CancelMeeting is allowed for the host and for anyone at dean level or above.
func (s *ScheduleService) CancelMeeting(ctx context.Context, callerUID, meetingID, reason string) (models.Meeting, error) {
	caller, err := s.participant(ctx, callerUID)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err loading caller: %w", err)
	}
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ScheduledBy != caller.UID && schedule.AuthorityRank(caller.Designation) < schedule.AuthorityRank(models.DesignationDean) {
		return models.Meeting{}, ErrForbidden
	}
	if m.Status != models.StatusActive {
		return models.Meeting{}, ErrInvalidState
	}
	reason = strings.TrimSpace(reason)
	if reason == "" && m.ScheduledBy != caller.UID {
		reason = fmt.Sprintf("Cancelled by %s (%s)", caller.Name, caller.Designation)
	}
	err = s.store.CommitBatch(ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:           m.ID,
		ExpectStatus: models.StatusActive,
		Status:       models.StatusPtr(models.StatusCancelled),
		CancelReason: models.StringPtr(reason),
	}}})
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err cancelling meeting %s: %w", m.ID, err)
	}
	m.Status = models.StatusCancelled
	m.CancelReason = reason
	s.afterCommit(ctx,
		[]events.MeetingEvent{s.event(events.KindCancelled, m)},
		audienceNotes(m, cancelledNote(m, s.now())))
	return m, nil
}

// EndMeeting records the actual end of a started meeting. Only the host may end it.
func (s *ScheduleService) EndMeeting(ctx context.Context, callerUID, meetingID string) (models.Meeting, error) {
	now := s.now()
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ScheduledBy != callerUID {
		return models.Meeting{}, ErrForbidden
	}
	if m.Status != models.StatusActive || m.EndTime != nil || now.Before(m.DateTime) {
		return models.Meeting{}, ErrInvalidState
	}
	err = s.store.CommitBatch(ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:           m.ID,
		ExpectStatus: models.StatusActive,
		Status:       models.StatusPtr(models.StatusCompleted),
		EndTime:      models.TimePtr(now),
	}}})
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err ending meeting %s: %w", m.ID, err)
	}
	m.Status = models.StatusCompleted
	m.EndTime = &now
	s.afterCommit(ctx, []events.MeetingEvent{s.event(events.KindCompleted, m)}, nil)
	return m, nil
}

// RescheduleMeeting moves a meeting that has not started yet. The new slot goes
// through the same conflict rules as a new meeting.
func (s *ScheduleService) RescheduleMeeting(ctx context.Context, callerUID, meetingID string, req models.MeetingRequest) (models.Meeting, error) {
	now := s.now()
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ScheduledBy != callerUID {
		return models.Meeting{}, ErrForbidden
	}
	if m.Status != models.StatusActive || !now.Before(m.DateTime) {
		return models.Meeting{}, ErrInvalidState
	}
	previous := m.DateTime
	moved := m
	if req.DateTime != nil {
		moved.DateTime = *req.DateTime
	}
	if req.Duration != nil && *req.Duration > 0 {
		moved.Duration = *req.Duration
	}
	if err = schedule.ValidateCandidate(moved, now); err != nil {
		return models.Meeting{}, err
	}
	caller, res, err := s.resolve(ctx, moved)
	if err != nil {
		return models.Meeting{}, err
	}
	overridden, err := s.overrideUpdates(caller, res, req.Override)
	if err != nil {
		return models.Meeting{}, err
	}
	updates := append(overridden, models.MeetingUpdate{
		ID:           m.ID,
		ExpectStatus: models.StatusActive,
		DateTime:     models.TimePtr(moved.DateTime),
		Duration:     &moved.Duration,
		Reminded:     new(bool),
	})
	if err = s.store.CommitBatch(ctx, models.Batch{Updates: updates}); err != nil {
		return models.Meeting{}, fmt.Errorf("err rescheduling meeting %s: %w", m.ID, err)
	}
	moved.Reminded = false

	changes := []events.MeetingEvent{s.event(events.KindRescheduled, moved)}
	var notes []models.Notification
	if !moved.DateTime.Equal(previous) {
		notes = audienceNotes(moved, rescheduledNote(moved, previous, now))
	}
	for _, o := range overriddenMeetings(res, overridden) {
		o.Status = models.StatusCancelled
		o.CancelReason = schedule.OverrideReason(caller.Name, caller.Designation)
		changes = append(changes, s.event(events.KindCancelled, o))
		notes = append(notes, audienceNotes(o, cancelledNote(o, now))...)
	}
	s.afterCommit(ctx, changes, notes)
	return moved, nil
}

// EditMeeting changes title or location. Ended meetings stay editable for a
// short grace period of working days.
func (s *ScheduleService) EditMeeting(ctx context.Context, callerUID, meetingID string, req models.MeetingRequest) (models.Meeting, error) {
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ScheduledBy != callerUID {
		return models.Meeting{}, ErrForbidden
	}
	switch {
	case m.EndTime != nil:
		now := s.now()
		if !schedule.CanStillEdit(m.EndTime.In(now.Location()), now) {
			return models.Meeting{}, ErrNotEditable
		}
	case m.Status != models.StatusActive:
		return models.Meeting{}, ErrNotEditable
	}
	update := models.MeetingUpdate{ID: m.ID, ExpectStatus: m.Status}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			v := &schedule.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}
			return models.Meeting{}, v
		}
		update.Title = &title
		m.Title = title
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		update.Location = &location
		m.Location = location
	}
	if update.Title == nil && update.Location == nil {
		return m, nil
	}
	if err = s.store.CommitBatch(ctx, models.Batch{Updates: []models.MeetingUpdate{update}}); err != nil {
		return models.Meeting{}, fmt.Errorf("err editing meeting %s: %w", m.ID, err)
	}
	s.afterCommit(ctx, []events.MeetingEvent{s.event(events.KindUpdated, m)}, nil)
	return m, nil
}

// MarkAttendance records when a meeting actually ended. The meeting must have
// started and either be ended already or be past its expected end. Marking
// again is allowed while the working-day window since the last marking is open.
func (s *ScheduleService) MarkAttendance(ctx context.Context, callerUID, meetingID string, endTime time.Time) (models.Meeting, error) {
	now := s.now()
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ScheduledBy != callerUID {
		return models.Meeting{}, ErrForbidden
	}
	if m.Status == models.StatusCancelled || now.Before(m.DateTime) {
		return models.Meeting{}, ErrInvalidState
	}
	if m.EndTime == nil && now.Before(schedule.ExpectedEnd(m)) {
		return models.Meeting{}, ErrInvalidState
	}
	if m.AttendanceTakenAt != nil && !schedule.CanStillEdit(m.AttendanceTakenAt.In(now.Location()), now) {
		return models.Meeting{}, ErrNotEditable
	}
	verr := &schedule.ValidationError{FieldErrors: map[string]string{}}
	switch {
	case endTime.IsZero():
		verr.FieldErrors["endTime"] = "end time is required"
	case endTime.After(now):
		verr.FieldErrors["endTime"] = "end time cannot be in the future"
	case endTime.Before(m.DateTime):
		verr.FieldErrors["endTime"] = "end time must be after the start time"
	}
	if verr.HasErrors() {
		return models.Meeting{}, verr
	}
	err = s.store.CommitBatch(ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:                m.ID,
		ExpectStatus:      m.Status,
		Status:            models.StatusPtr(models.StatusCompleted),
		EndTime:           models.TimePtr(endTime),
		AttendanceTakenAt: models.TimePtr(now),
	}}})
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err marking attendance for %s: %w", m.ID, err)
	}
	kind := events.KindUpdated
	if m.Status == models.StatusActive {
		kind = events.KindCompleted
	}
	m.Status = models.StatusCompleted
	m.EndTime = &endTime
	m.AttendanceTakenAt = &now
	s.log.Infof("attendance for meeting %s marked by %s", m.ID, callerUID)
	s.afterCommit(ctx, []events.MeetingEvent{s.event(kind, m)}, nil)
	return m, nil
}

// GetMeeting returns a meeting the viewer is allowed to see.
func (s *ScheduleService) GetMeeting(ctx context.Context, viewerUID, meetingID string) (models.Meeting, error) {
	viewer, err := s.participant(ctx, viewerUID)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("err loading viewer: %w", err)
	}
	m, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if !schedule.IsVisible(m, viewer.UID, viewer.Designation) {
		return models.Meeting{}, ErrForbidden
	}
	return m, nil
}

// UpcomingMeetings is the dashboard list: active meetings without an end time.
func (s *ScheduleService) UpcomingMeetings(ctx context.Context, viewerUID string) ([]models.Meeting, error) {
	viewer, err := s.participant(ctx, viewerUID)
	if err != nil {
		return nil, fmt.Errorf("err loading viewer: %w", err)
	}
	now := s.now()
	meetings, err := s.store.QueryMeetings(ctx, models.MeetingFilter{
		Status: []models.Status{models.StatusActive},
		From:   models.TimePtr(now.Add(-schedule.MaxMeetingLength)),
	})
	if err != nil {
		return nil, fmt.Errorf("err loading meetings: %w", err)
	}
	return schedule.FilterVisible(meetings, viewer, schedule.ViewDashboard), nil
}

// MeetingsOn is the calendar list for one day, every status included.
func (s *ScheduleService) MeetingsOn(ctx context.Context, viewerUID string, day time.Time) ([]models.Meeting, error) {
	day = day.In(s.now().Location())
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.calendar(ctx, viewerUID, from, from.AddDate(0, 0, 1))
}

// MonthCalendar groups the visible meetings of a month by date (YYYY-MM-DD).
func (s *ScheduleService) MonthCalendar(ctx context.Context, viewerUID string, year int, month time.Month) (map[string][]models.Meeting, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.now().Location())
	meetings, err := s.calendar(ctx, viewerUID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	days := make(map[string][]models.Meeting)
	for _, m := range meetings {
		key := m.DateTime.In(from.Location()).Format("2006-01-02")
		days[key] = append(days[key], m)
	}
	return days, nil
}

// VisibleMeetings returns every meeting the viewer can see in [from, to).
func (s *ScheduleService) VisibleMeetings(ctx context.Context, viewerUID string, from, to time.Time) ([]models.Meeting, error) {
	return s.calendar(ctx, viewerUID, from, to)
}

func (s *ScheduleService) calendar(ctx context.Context, viewerUID string, from, to time.Time) ([]models.Meeting, error) {
	viewer, err := s.participant(ctx, viewerUID)
	if err != nil {
		return nil, fmt.Errorf("err loading viewer: %w", err)
	}
	meetings, err := s.store.QueryMeetings(ctx, models.MeetingFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("err loading meetings: %w", err)
	}
	return schedule.FilterVisible(meetings, viewer, schedule.ViewCalendar), nil
}

func overriddenMeetings(res schedule.Resolution, updates []models.MeetingUpdate) []models.Meeting {
	if len(updates) == 0 {
		return nil
	}
	return res.Overrideable
}

func uniqueUIDs(uids []string) []string {
	seen := make(map[string]struct{}, len(uids))
	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}

// IsConflict unwraps a ConflictError from err.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
