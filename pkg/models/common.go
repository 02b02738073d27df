package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Participant identifies the user on whose behalf an operation runs.
type Participant struct {
	UID         string
	Name        string
	Designation string
}

// Notification is what the dispatcher delivers. Exactly one of Topic or UID is set.
type Notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Topic     string `json:"topic,omitempty"`
	UID       string `json:"uid,omitempty"`
	MeetingID string `json:"meetingId,omitempty"`
	Kind      string `json:"kind"`
}
