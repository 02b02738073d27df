package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

type attendeeRow struct {
	MeetingID string `db:"meeting_id"`
	UID       string `db:"uid"`
}

func (s *Store) GetMeeting(ctx context.Context, id string) (meeting models.Meeting, err error) {
	defer func(start time.Time) { s.observe("GetMeeting", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &meeting, `SELECT * FROM meetings WHERE id = $1;`, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Meeting{}, ErrMeetingNotFound
		case err != nil:
			continue
		}
		meetings := []models.Meeting{meeting}
		if err = s.attachAttendees(ctx, meetings); err != nil {
			continue
		}
		return meetings[0], nil
	}
	return models.Meeting{}, fmt.Errorf("err getting meeting %s: %w", id, err)
}

// QueryMeetings returns meetings matching filter ordered by start time.
func (s *Store) QueryMeetings(ctx context.Context, filter models.MeetingFilter) (meetings []models.Meeting, err error) {
	defer func(start time.Time) { s.observe("QueryMeetings", start, err) }(time.Now())
	query, args, err := s.meetingQuery(filter)
	if err != nil {
		return nil, err
	}
	for i := 0; i < retries; i++ {
		meetings = nil
		if err = s.db.SelectContext(ctx, &meetings, query, args...); err != nil {
			continue
		}
		if err = s.attachAttendees(ctx, meetings); err != nil {
			continue
		}
		return meetings, nil
	}
	return nil, fmt.Errorf("err querying meetings: %w", err)
}

func (s *Store) meetingQuery(filter models.MeetingFilter) (string, []interface{}, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, st := range filter.Status {
			statuses = append(statuses, string(st))
		}
		where = append(where, `m.status IN (?)`)
		args = append(args, statuses)
	}
	if filter.From != nil {
		where = append(where, `m.date_time >= ?`)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, `m.date_time < ?`)
		args = append(args, *filter.To)
	}
	if filter.ParticipantUID != "" {
		where = append(where, `(m.scheduled_by = ? OR EXISTS (
    SELECT 1 FROM meeting_attendees a WHERE a.meeting_id = m.id AND a.uid = ?))`)
		args = append(args, filter.ParticipantUID, filter.ParticipantUID)
	}
	if filter.NotReminded {
		where = append(where, `NOT m.reminded`)
	}
	query := `SELECT m.* FROM meetings m`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY m.date_time, m.id`
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return s.db.Rebind(query), args, nil
}

func (s *Store) attachAttendees(ctx context.Context, meetings []models.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	ids := make([]string, 0, len(meetings))
	byID := make(map[string]int, len(meetings))
	for i, m := range meetings {
		ids = append(ids, m.ID)
		byID[m.ID] = i
	}
	query, args, err := sqlx.In(`
SELECT meeting_id, uid FROM meeting_attendees
WHERE meeting_id IN (?)
ORDER BY meeting_id, position`, ids)
	if err != nil {
		return err
	}
	var rows []attendeeRow
	if err = s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, r := range rows {
		i := byID[r.MeetingID]
		meetings[i].CustomAttendeeUIDs = append(meetings[i].CustomAttendeeUIDs, r.UID)
	}
	return nil
}

// CommitBatch applies all writes in one transaction. Guarded updates that no
// longer match roll the whole batch back with ErrStaleWrite.
func (s *Store) CommitBatch(ctx context.Context, batch models.Batch) (err error) {
	if batch.Empty() {
		return nil
	}
	defer func(start time.Time) { s.observe("CommitBatch", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.commitBatch(ctx, batch)
		switch {
		case errors.Is(err, ErrStaleWrite), errors.Is(err, ErrMeetingNotFound):
			return err
		case err != nil:
			s.log.Warnf("err committing batch, attempt %d: %v", i+1, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("err committing batch: %w", err)
}

func (s *Store) commitBatch(ctx context.Context, batch models.Batch) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warnf("err during rollback: %v", rbErr)
		}
	}()
	for _, u := range batch.Updates {
		if err = updateMeeting(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, m := range batch.Inserts {
		if err = insertMeeting(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertMeeting(ctx context.Context, tx *sqlx.Tx, m models.Meeting) error {
	query := `
INSERT INTO meetings (id, title, location, date_time, duration, end_time, attendees, scheduled_by, status, cancel_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	if _, err := tx.ExecContext(ctx, query, m.ID, m.Title, m.Location, m.DateTime, m.Duration, m.EndTime,
		m.Attendees, m.ScheduledBy, string(m.Status), m.CancelReason); err != nil {
		return fmt.Errorf("err inserting meeting %s: %w", m.ID, err)
	}
	for pos, uid := range m.CustomAttendeeUIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO meeting_attendees (meeting_id, uid, position)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING;`, m.ID, uid, pos); err != nil {
			return fmt.Errorf("err inserting attendee %s of %s: %w", uid, m.ID, err)
		}
	}
	return nil
}

func updateMeeting(ctx context.Context, tx *sqlx.Tx, u models.MeetingUpdate) error {
	sets := []string{`updated_at = now()`}
	args := []interface{}{u.ID}
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf(`%s = $%d`, column, len(args)))
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}
	if u.EndTime != nil {
		set("end_time", *u.EndTime)
	}
	if u.CancelReason != nil {
		set("cancel_reason", *u.CancelReason)
	}
	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Location != nil {
		set("location", *u.Location)
	}
	if u.DateTime != nil {
		set("date_time", *u.DateTime)
	}
	if u.Duration != nil {
		set("duration", *u.Duration)
	}
	if u.Reminded != nil {
		set("reminded", *u.Reminded)
	}
	if u.AttendanceTakenAt != nil {
		set("attendance_taken_at", *u.AttendanceTakenAt)
	}
	query := fmt.Sprintf(`UPDATE meetings SET %s WHERE id = $1`, strings.Join(sets, `, `))
	if u.ExpectStatus != "" {
		args = append(args, string(u.ExpectStatus))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("err updating meeting %s: %w", u.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if u.ExpectStatus != "" {
		return fmt.Errorf("%w: meeting %s is no longer %s", ErrStaleWrite, u.ID, u.ExpectStatus)
	}
	return ErrMeetingNotFound
}
