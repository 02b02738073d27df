package models

import "time"

type Status string

const (
	StatusActive    Status = "Active"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

const (
	AudienceAllFaculty     = "All Faculty"
	AudienceAllHODs        = "All HODs"
	AudienceAllDeans       = "All Deans"
	AudienceAssociateProfs = "All Associate Prof"
	AudienceAssistantProfs = "All Assistant Prof"
	AudienceCustom         = "Custom"
)

// DefaultDuration is applied to meetings stored without a positive duration.
const DefaultDuration = 60

type MeetingRequest struct {
	Title              *string    `json:"title"`
	Location           *string    `json:"location"`
	DateTime           *time.Time `json:"dateTime"`
	Duration           *int       `json:"duration"`
	Attendees          *string    `json:"attendees"`
	CustomAttendeeUIDs []string   `json:"customAttendeeUids"`
	Override           bool       `json:"override"`
}

type Meeting struct {
	ID                 string     `json:"id" db:"id"`
	Title              string     `json:"title" db:"title"`
	Location           string     `json:"location" db:"location"`
	DateTime           time.Time  `json:"dateTime" db:"date_time"`
	Duration           int        `json:"duration" db:"duration"`
	EndTime            *time.Time `json:"endTime,omitempty" db:"end_time"`
	Attendees          string     `json:"attendees" db:"attendees"`
	CustomAttendeeUIDs []string   `json:"customAttendeeUids" db:"-"`
	ScheduledBy        string     `json:"scheduledBy" db:"scheduled_by"`
	Status             Status     `json:"status" db:"status"`
	CancelReason       string     `json:"cancelReason,omitempty" db:"cancel_reason"`
	Reminded           bool       `json:"-" db:"reminded"`
	AttendanceTakenAt  *time.Time `json:"attendanceTakenAt,omitempty" db:"attendance_taken_at"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" db:"updated_at"`
}

func (m Meeting) IsCustomAttendee(uid string) bool {
	for _, u := range m.CustomAttendeeUIDs {
		if u == uid {
			return true
		}
	}
	return false
}

// MeetingDraft is an unconfirmed meeting produced from a free-text command.
type MeetingDraft struct {
	Title     string    `json:"title"`
	Attendees string    `json:"attendees"`
	Location  string    `json:"location"`
	DateTime  time.Time `json:"dateTime"`
}
