package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/pgstore"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
	"github.com/pershin-daniil/facultymeet/pkg/service"
)

type App interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, uid string) (models.User, error)
	DepartmentMembers(ctx context.Context, department string) ([]models.User, error)
	Register(ctx context.Context, req models.UserRequest) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	UpdateProfile(ctx context.Context, uid string, req models.UserRequest) (models.User, error)
	UpdateDesignation(ctx context.Context, editorUID, targetUID, designation string) (models.User, error)

	ScheduleMeeting(ctx context.Context, callerUID string, req models.MeetingRequest) (models.Meeting, error)
	CheckConflicts(ctx context.Context, callerUID string, req models.MeetingRequest) (schedule.Resolution, error)
	CancelMeeting(ctx context.Context, callerUID, meetingID, reason string) (models.Meeting, error)
	EndMeeting(ctx context.Context, callerUID, meetingID string) (models.Meeting, error)
	RescheduleMeeting(ctx context.Context, callerUID, meetingID string, req models.MeetingRequest) (models.Meeting, error)
	EditMeeting(ctx context.Context, callerUID, meetingID string, req models.MeetingRequest) (models.Meeting, error)
	MarkAttendance(ctx context.Context, callerUID, meetingID string, endTime time.Time) (models.Meeting, error)
	GetMeeting(ctx context.Context, viewerUID, meetingID string) (models.Meeting, error)
	UpcomingMeetings(ctx context.Context, viewerUID string) ([]models.Meeting, error)
	MeetingsOn(ctx context.Context, viewerUID string, day time.Time) ([]models.Meeting, error)
	MonthCalendar(ctx context.Context, viewerUID string, year int, month time.Month) (map[string][]models.Meeting, error)
	VisibleMeetings(ctx context.Context, viewerUID string, from, to time.Time) ([]models.Meeting, error)

	Statistics(ctx context.Context, uid string) (schedule.Stats, error)
	AttendedMeetings(ctx context.Context, uid string) ([]models.Meeting, error)
	MissedMeetings(ctx context.Context, uid string) ([]models.Meeting, error)
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type ConflictResponse struct {
	Error      string              `json:"error"`
	Resolution schedule.Resolution `json:"resolution"`
	// CanOverride tells the client whether resubmitting with override=true can succeed.
	CanOverride bool `json:"canOverride"`
}

type DesignationRequest struct {
	Designation string `json:"designation"`
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.app.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, "registering user", err)
		return
	}
	s.writeResponse(w, http.StatusCreated, user)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.app.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, "logging in", err)
		return
	}
	token, err := s.issueToken(user)
	if err != nil {
		s.writeError(w, "issuing token", err)
		return
	}
	s.writeResponse(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (s *Server) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.app.GetUsers(r.Context())
	if err != nil {
		s.writeError(w, "getting users", err)
		return
	}
	s.writeResponse(w, http.StatusOK, users)
}

func (s *Server) getMeHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	user, err := s.app.GetUser(r.Context(), claims.UID)
	if err != nil {
		s.writeError(w, "getting user", err)
		return
	}
	s.writeResponse(w, http.StatusOK, user)
}

func (s *Server) updateMeHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.app.UpdateProfile(r.Context(), claims.UID, req)
	if err != nil {
		s.writeError(w, "updating profile", err)
		return
	}
	s.writeResponse(w, http.StatusOK, user)
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.app.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, "getting user", err)
		return
	}
	s.writeResponse(w, http.StatusOK, user)
}

func (s *Server) updateDesignationHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req DesignationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.app.UpdateDesignation(r.Context(), claims.UID, chi.URLParam(r, "uid"), req.Designation)
	if err != nil {
		s.writeError(w, "updating designation", err)
		return
	}
	s.writeResponse(w, http.StatusOK, user)
}

func (s *Server) departmentMembersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.app.DepartmentMembers(r.Context(), chi.URLParam(r, "department"))
	if err != nil {
		s.writeError(w, "getting department members", err)
		return
	}
	s.writeResponse(w, http.StatusOK, users)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	var (
		verr *schedule.ValidationError
		cerr *service.ConflictError
	)
	switch {
	case errors.As(err, &cerr):
		s.writeResponse(w, http.StatusConflict, ConflictResponse{
			Error:       cerr.Error(),
			Resolution:  cerr.Resolution,
			CanOverride: cerr.Resolution.CanOverride(),
		})
	case errors.As(err, &verr):
		s.writeResponse(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.FieldErrors})
	case errors.Is(err, models.ErrInvalidCredentials):
		s.writeResponse(w, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrForbidden):
		s.writeResponse(w, http.StatusForbidden, err)
	case errors.Is(err, pgstore.ErrUserNotFound), errors.Is(err, pgstore.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
	case errors.Is(err, pgstore.ErrEmailTaken), errors.Is(err, pgstore.ErrStaleWrite),
		errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrNotEditable):
		s.writeResponse(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrConflictCheck):
		s.log.Warnf("err during %s: %v", action, err)
		s.writeResponse(w, http.StatusServiceUnavailable, service.ErrConflictCheck)
	default:
		s.log.Warnf("err during %s: %v", action, err)
		s.writeResponse(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding response: %v", err)
	}
}
