package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/pershin-daniil/facultymeet/pkg/logger"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/pgstore"
)

var tables = []string{"meeting_attendees", "meetings", "users"}

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	log   *logrus.Logger
	store *pgstore.Store
	host  models.User
	peer  models.User
	start time.Time
}

func (s *StoreTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.log = logger.NewLogger("error", false)
	var err error
	s.store, err = pgstore.NewStore(s.ctx, s.log, os.Getenv("PG_DSN"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Migrate(migrate.Up))
	s.start = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
}

func (s *StoreTestSuite) TearDownSuite() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreTestSuite) SetupTest() {
	s.Require().NoError(s.store.ResetTables(s.ctx, tables))
	var err error
	s.host, err = s.store.CreateUser(s.ctx, models.User{
		UID:         "u-host",
		Name:        "Harish",
		Email:       "harish@faculty.test",
		Department:  "CS",
		Designation: models.DesignationHOD,
	})
	s.Require().NoError(err)
	s.peer, err = s.store.CreateUser(s.ctx, models.User{
		UID:         "u-peer",
		Name:        "Anita",
		Email:       "anita@faculty.test",
		Department:  "CS",
		Designation: models.DesignationAssistantProf,
	})
	s.Require().NoError(err)
}

func TestStoreTestSuite(t *testing.T) {
	if os.Getenv("PG_DSN") == "" {
		t.Skip("PG_DSN is not set")
	}
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) meeting(id string, at time.Time) models.Meeting {
	return models.Meeting{
		ID:          id,
		Title:       "Review " + id,
		Location:    "Room 101",
		DateTime:    at,
		Duration:    60,
		Attendees:   models.AudienceAllFaculty,
		ScheduledBy: s.host.UID,
		Status:      models.StatusActive,
	}
}

func (s *StoreTestSuite) TestUsers() {
	_, err := s.store.CreateUser(s.ctx, models.User{UID: "u-dup", Name: "Dup", Email: s.host.Email})
	s.Require().ErrorIs(err, pgstore.ErrEmailTaken)

	got, err := s.store.GetUserByEmail(s.ctx, s.peer.Email)
	s.Require().NoError(err)
	s.Equal(s.peer.UID, got.UID)

	_, err = s.store.GetUser(s.ctx, "missing")
	s.Require().ErrorIs(err, pgstore.ErrUserNotFound)

	updated, err := s.store.UpdateDesignation(s.ctx, s.peer.UID, models.DesignationAssociateProf)
	s.Require().NoError(err)
	s.Equal(models.DesignationAssociateProf, updated.Designation)

	users, err := s.store.GetUsersByDesignations(s.ctx, []string{models.DesignationHOD})
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(s.host.UID, users[0].UID)
}

func (s *StoreTestSuite) TestTelegramLink() {
	s.Require().NoError(s.store.LinkTelegram(s.ctx, s.peer.UID, 4242))
	got, err := s.store.GetUserByTelegramID(s.ctx, 4242)
	s.Require().NoError(err)
	s.Equal(s.peer.UID, got.UID)
	s.Require().NotNil(got.TelegramID)
	s.Equal(int64(4242), *got.TelegramID)
}

func (s *StoreTestSuite) TestCommitBatchWithCustomAttendees() {
	m := s.meeting("m-1", s.start)
	m.Attendees = models.AudienceCustom
	m.CustomAttendeeUIDs = []string{s.peer.UID, "u-guest"}
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Inserts: []models.Meeting{m}}))

	got, err := s.store.GetMeeting(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(models.AudienceCustom, got.Attendees)
	s.Equal([]string{s.peer.UID, "u-guest"}, got.CustomAttendeeUIDs)
	s.True(got.DateTime.Equal(s.start))

	_, err = s.store.GetMeeting(s.ctx, "missing")
	s.Require().ErrorIs(err, pgstore.ErrMeetingNotFound)
}

func (s *StoreTestSuite) TestQueryMeetings() {
	first := s.meeting("m-1", s.start)
	second := s.meeting("m-2", s.start.Add(3*time.Hour))
	custom := s.meeting("m-3", s.start.Add(24*time.Hour))
	custom.Attendees = models.AudienceCustom
	custom.CustomAttendeeUIDs = []string{s.peer.UID}
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Inserts: []models.Meeting{custom, second, first}}))
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:           "m-2",
		ExpectStatus: models.StatusActive,
		Status:       models.StatusPtr(models.StatusCancelled),
	}}}))

	active, err := s.store.QueryMeetings(s.ctx, models.MeetingFilter{Status: []models.Status{models.StatusActive}})
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("m-1", active[0].ID)
	s.Equal("m-3", active[1].ID)

	from, to := s.start.Add(time.Hour), s.start.Add(25*time.Hour)
	window, err := s.store.QueryMeetings(s.ctx, models.MeetingFilter{From: &from, To: &to})
	s.Require().NoError(err)
	s.Require().Len(window, 2)
	s.Equal("m-2", window[0].ID)

	mine, err := s.store.QueryMeetings(s.ctx, models.MeetingFilter{ParticipantUID: s.peer.UID})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal("m-3", mine[0].ID)

	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:       "m-1",
		Reminded: func() *bool { b := true; return &b }(),
	}}}))
	pending, err := s.store.QueryMeetings(s.ctx, models.MeetingFilter{
		Status:      []models.Status{models.StatusActive},
		NotReminded: true,
	})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("m-3", pending[0].ID)
}

func (s *StoreTestSuite) TestStaleWriteRollsBackBatch() {
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Inserts: []models.Meeting{s.meeting("m-1", s.start)}}))
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:           "m-1",
		ExpectStatus: models.StatusActive,
		Status:       models.StatusPtr(models.StatusCompleted),
		EndTime:      models.TimePtr(s.start.Add(30 * time.Minute)),
	}}}))

	err := s.store.CommitBatch(s.ctx, models.Batch{
		Inserts: []models.Meeting{s.meeting("m-2", s.start.Add(2*time.Hour))},
		Updates: []models.MeetingUpdate{{
			ID:           "m-1",
			ExpectStatus: models.StatusActive,
			Status:       models.StatusPtr(models.StatusCancelled),
			CancelReason: models.StringPtr("Overridden by Harish (HOD)"),
		}},
	})
	s.Require().ErrorIs(err, pgstore.ErrStaleWrite)

	_, err = s.store.GetMeeting(s.ctx, "m-2")
	s.Require().ErrorIs(err, pgstore.ErrMeetingNotFound)
	got, err := s.store.GetMeeting(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
	s.Require().NotNil(got.EndTime)
	s.Empty(got.CancelReason)
}

func (s *StoreTestSuite) TestAttendanceMarking() {
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Inserts: []models.Meeting{s.meeting("m-1", s.start)}}))
	end, taken := s.start.Add(40*time.Minute), s.start.Add(3*time.Hour)
	s.Require().NoError(s.store.CommitBatch(s.ctx, models.Batch{Updates: []models.MeetingUpdate{{
		ID:                "m-1",
		ExpectStatus:      models.StatusActive,
		Status:            models.StatusPtr(models.StatusCompleted),
		EndTime:           models.TimePtr(end),
		AttendanceTakenAt: models.TimePtr(taken),
	}}}))

	got, err := s.store.GetMeeting(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
	s.Require().NotNil(got.EndTime)
	s.True(got.EndTime.Equal(end))
	s.Require().NotNil(got.AttendanceTakenAt)
	s.True(got.AttendanceTakenAt.Equal(taken))
}
