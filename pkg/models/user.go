package models

import (
	"time"
)

const (
	DesignationAdmin         = "ADMIN"
	DesignationDean          = "DEAN"
	DesignationHOD           = "HOD"
	DesignationHODAssistant  = "HOD's Assistant"
	DesignationAssociateProf = "Associate Professor"
	DesignationAssistantProf = "Assistant Professor"
	DesignationFaculty       = "Faculty"
	DesignationLabAssistant  = "Lab Assistant"
	DesignationOthers        = "Others"
	DesignationUnassigned    = "Unassigned"
	DefaultDesignation       = DesignationUnassigned
)

type UserRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Department  *string `json:"department"`
	Designation *string `json:"designation"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    *string `json:"password"`
}

type User struct {
	UID          string    `json:"uid" db:"uid"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Department   string    `json:"department" db:"department"`
	Designation  string    `json:"designation" db:"designation"`
	PhoneNumber  string    `json:"phoneNumber" db:"phone_number"`
	TelegramID   *int64    `json:"-" db:"telegram_id"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
