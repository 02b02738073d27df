package models

import "time"

// MeetingFilter narrows a meeting query. Zero values mean "any".
type MeetingFilter struct {
	Status         []Status
	From           *time.Time
	To             *time.Time
	ParticipantUID string
	NotReminded    bool
}

// MeetingUpdate changes selected fields of one meeting. When ExpectStatus is
// set the update only applies to a meeting currently in that status.
type MeetingUpdate struct {
	ID           string
	ExpectStatus Status
	Status       *Status
	EndTime      *time.Time
	CancelReason *string
	Title        *string
	Location     *string
	DateTime     *time.Time
	Duration     *int
	Reminded     *bool
	// AttendanceTakenAt is written together with EndTime when the host marks attendance.
	AttendanceTakenAt *time.Time
}

// Batch is committed atomically: every insert and update succeeds or none does.
type Batch struct {
	Inserts []Meeting
	Updates []MeetingUpdate
}

func (b Batch) Empty() bool {
	return len(b.Inserts) == 0 && len(b.Updates) == 0
}

func StatusPtr(s Status) *Status {
	return &s
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func StringPtr(s string) *string {
	return &s
}
