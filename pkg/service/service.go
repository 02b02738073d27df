package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/metrics"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

var (
	ErrForbidden = errors.New("forbidden")
	// ErrConflictCheck is returned when the data needed to rule out a conflict
	// could not be loaded. Nothing is written in that case.
	ErrConflictCheck = errors.New("conflict check failed")
	ErrConflict      = errors.New("meeting conflicts with existing meetings")
	ErrInvalidState  = errors.New("meeting is not in a state that allows this")
	ErrNotEditable   = errors.New("meeting can no longer be edited")
)

// ConflictError carries the resolution so callers can offer an override.
type ConflictError struct {
	Resolution schedule.Resolution
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %d blocking, %d overridable",
		ErrConflict, len(e.Resolution.Blocking), len(e.Resolution.Overrideable))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

type Notifier interface {
	Notify(ctx context.Context, msg models.Notification) error
}

type Publisher interface {
	Publish(ctx context.Context, events ...events.MeetingEvent) error
}

// Mirror copies meetings into an external calendar.
type Mirror interface {
	MirrorMeeting(ctx context.Context, meeting models.Meeting) error
}

type Store interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUsersByUIDs(ctx context.Context, uids []string) ([]models.User, error)
	GetUser(ctx context.Context, uid string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateUser(ctx context.Context, uid string, user models.User) (models.User, error)
	UpdateDesignation(ctx context.Context, uid, designation string) (models.User, error)
	GetMeeting(ctx context.Context, id string) (models.Meeting, error)
	QueryMeetings(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error)
	CommitBatch(ctx context.Context, batch models.Batch) error
}

type ScheduleService struct {
	log       *logrus.Entry
	store     Store
	notifier  Notifier
	publisher Publisher
	mirror    Mirror
	now       func() time.Time
	newID     func() string
}

type Option func(*ScheduleService)

// WithClock sets the time source. Its location decides day boundaries and the daily cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *ScheduleService) { s.now = now }
}

func WithPublisher(p Publisher) Option {
	return func(s *ScheduleService) { s.publisher = p }
}

func WithMirror(m Mirror) Option {
	return func(s *ScheduleService) { s.mirror = m }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ScheduleService) { s.newID = newID }
}

func NewScheduleService(log *logrus.Logger, store Store, notifier Notifier, opts ...Option) *ScheduleService {
	s := ScheduleService{
		log:      log.WithField("component", "service"),
		store:    store,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

func (s *ScheduleService) participant(ctx context.Context, uid string) (models.Participant, error) {
	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return models.Participant{}, err
	}
	return models.Participant{UID: user.UID, Name: user.Name, Designation: user.Designation}, nil
}

// afterCommit fans a committed change out to subscribers, the calendar mirror
// and the notifier. Failures are logged; the change itself already happened.
func (s *ScheduleService) afterCommit(ctx context.Context, changes []events.MeetingEvent, notes []models.Notification) {
	if s.publisher != nil && len(changes) > 0 {
		if err := s.publisher.Publish(ctx, changes...); err != nil {
			s.log.Warnf("err publishing meeting events: %v", err)
		}
	}
	if s.mirror != nil {
		for _, ch := range changes {
			if err := s.mirror.MirrorMeeting(ctx, ch.Meeting); err != nil {
				s.log.Warnf("err mirroring meeting %s: %v", ch.Meeting.ID, err)
			}
		}
	}
	for _, n := range notes {
		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.NotificationsSent.WithLabelValues(n.Kind, "error").Inc()
			s.log.Errorf("err notifying %s%s: %v", n.UID, n.Topic, err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(n.Kind, "ok").Inc()
	}
}

func (s *ScheduleService) event(kind events.Kind, m models.Meeting) events.MeetingEvent {
	return events.MeetingEvent{Kind: kind, Meeting: m, At: s.now()}
}
