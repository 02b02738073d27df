package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/pgstore"
)

var errStoreDown = errors.New("store down")

// fakeStore keeps users and meetings in memory and commits batches all or nothing.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	meetings  map[string]models.Meeting
	failQuery bool
	failUsers bool
	failBatch bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]models.User{}, meetings: map[string]models.Meeting{}}
}

func (f *fakeStore) addUser(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UID] = u
}

func (f *fakeStore) addMeeting(m models.Meeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[m.ID] = m
}

func (f *fakeStore) meeting(id string) models.Meeting {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meetings[id]
}

func (f *fakeStore) GetUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) GetUsersByUIDs(_ context.Context, uids []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUsers {
		return nil, errStoreDown
	}
	var users []models.User
	for _, uid := range uids {
		if u, ok := f.users[uid]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeStore) GetUser(_ context.Context, uid string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return models.User{}, pgstore.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, pgstore.ErrUserNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.User{}, pgstore.ErrEmailTaken
		}
	}
	f.users[user.UID] = user
	return user, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, uid string, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return models.User{}, pgstore.ErrUserNotFound
	}
	u.Name, u.Department, u.PhoneNumber = user.Name, user.Department, user.PhoneNumber
	f.users[uid] = u
	return u, nil
}

func (f *fakeStore) UpdateDesignation(_ context.Context, uid, designation string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return models.User{}, pgstore.ErrUserNotFound
	}
	u.Designation = designation
	f.users[uid] = u
	return u, nil
}

func (f *fakeStore) GetMeeting(_ context.Context, id string) (models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return models.Meeting{}, pgstore.ErrMeetingNotFound
	}
	return m, nil
}

func (f *fakeStore) QueryMeetings(_ context.Context, filter models.MeetingFilter) ([]models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}
	var result []models.Meeting
	for _, m := range f.meetings {
		if len(filter.Status) > 0 && !containsStatus(filter.Status, m.Status) {
			continue
		}
		if filter.From != nil && m.DateTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.DateTime.Before(*filter.To) {
			continue
		}
		if filter.ParticipantUID != "" && m.ScheduledBy != filter.ParticipantUID && !m.IsCustomAttendee(filter.ParticipantUID) {
			continue
		}
		if filter.NotReminded && m.Reminded {
			continue
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DateTime.Before(result[j].DateTime) })
	return result, nil
}

func (f *fakeStore) CommitBatch(_ context.Context, batch models.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch {
		return errStoreDown
	}
	staged := make(map[string]models.Meeting, len(f.meetings))
	for id, m := range f.meetings {
		staged[id] = m
	}
	for _, u := range batch.Updates {
		m, ok := staged[u.ID]
		if !ok {
			return pgstore.ErrMeetingNotFound
		}
		if u.ExpectStatus != "" && m.Status != u.ExpectStatus {
			return pgstore.ErrStaleWrite
		}
		if u.Status != nil {
			m.Status = *u.Status
		}
		if u.EndTime != nil {
			m.EndTime = u.EndTime
		}
		if u.CancelReason != nil {
			m.CancelReason = *u.CancelReason
		}
		if u.Title != nil {
			m.Title = *u.Title
		}
		if u.Location != nil {
			m.Location = *u.Location
		}
		if u.DateTime != nil {
			m.DateTime = *u.DateTime
		}
		if u.Duration != nil {
			m.Duration = *u.Duration
		}
		if u.AttendanceTakenAt != nil {
			m.AttendanceTakenAt = u.AttendanceTakenAt
		}
		if u.Reminded != nil {
			m.Reminded = *u.Reminded
		}
		staged[u.ID] = m
	}
	for _, m := range batch.Inserts {
		staged[m.ID] = m
	}
	f.meetings = staged
	return nil
}

func containsStatus(statuses []models.Status, s models.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, msg)
	return nil
}

func (n *fakeNotifier) sent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.notes...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.MeetingEvent
}

func (p *fakePublisher) Publish(_ context.Context, evs ...events.MeetingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *fakePublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
