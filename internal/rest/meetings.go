package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pershin-daniil/facultymeet/internal/calendar"
	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
	"github.com/pershin-daniil/facultymeet/pkg/voice"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type CancelRequest struct {
	Reason string `json:"reason"`
}

type AttendanceRequest struct {
	EndTime time.Time `json:"endTime"`
}

type VoiceRequest struct {
	Utterance string `json:"utterance"`
}

type StatsResponse struct {
	schedule.Stats
	TotalTime string `json:"totalTime"`
}

func (s *Server) upcomingMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	meetings, err := s.app.UpcomingMeetings(r.Context(), claims.UID)
	if err != nil {
		s.writeError(w, "listing meetings", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

func (s *Server) scheduleMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.ScheduleMeeting(r.Context(), claims.UID, req)
	if err != nil {
		s.writeError(w, "scheduling meeting", err)
		return
	}
	s.writeResponse(w, http.StatusCreated, meeting)
}

func (s *Server) checkConflictsHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.app.CheckConflicts(r.Context(), claims.UID, req)
	if err != nil {
		s.writeError(w, "checking conflicts", err)
		return
	}
	s.writeResponse(w, http.StatusOK, res)
}

func (s *Server) getMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	meeting, err := s.app.GetMeeting(r.Context(), claims.UID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "getting meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) editMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.EditMeeting(r.Context(), claims.UID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, "editing meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) cancelMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req CancelRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeResponse(w, http.StatusBadRequest, err)
			return
		}
	}
	meeting, err := s.app.CancelMeeting(r.Context(), claims.UID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.writeError(w, "cancelling meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) endMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	meeting, err := s.app.EndMeeting(r.Context(), claims.UID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "ending meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) rescheduleMeetingHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.RescheduleMeeting(r.Context(), claims.UID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, "rescheduling meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) markAttendanceHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.MarkAttendance(r.Context(), claims.UID, chi.URLParam(r, "id"), req.EndTime)
	if err != nil {
		s.writeError(w, "marking attendance", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

// calendarHandler serves ?date=YYYY-MM-DD as a list and ?month=YYYY-MM (the
// default is the current month) as meetings grouped by day.
func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	loc := s.now().Location()
	if date := r.URL.Query().Get("date"); date != "" {
		day, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("invalid date %q", date))
			return
		}
		meetings, err := s.app.MeetingsOn(r.Context(), claims.UID, day)
		if err != nil {
			s.writeError(w, "listing calendar", err)
			return
		}
		s.writeResponse(w, http.StatusOK, meetings)
		return
	}
	month := s.now()
	if m := r.URL.Query().Get("month"); m != "" {
		var err error
		if month, err = time.ParseInLocation(monthLayout, m, loc); err != nil {
			s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("invalid month %q", m))
			return
		}
	}
	days, err := s.app.MonthCalendar(r.Context(), claims.UID, month.Year(), month.Month())
	if err != nil {
		s.writeError(w, "listing calendar", err)
		return
	}
	s.writeResponse(w, http.StatusOK, days)
}

// icsHandler exports the viewer's meetings from ?from to ?to (dates, to exclusive).
// The default range is 30 days back to 90 days ahead.
func (s *Server) icsHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from, err := dateParam(r, "from", today.AddDate(0, 0, -30))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	to, err := dateParam(r, "to", today.AddDate(0, 0, 90))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	if !to.After(from) {
		s.writeResponse(w, http.StatusBadRequest, errors.New("to must be after from"))
		return
	}
	meetings, err := s.app.VisibleMeetings(r.Context(), claims.UID, from, to)
	if err != nil {
		s.writeError(w, "exporting calendar", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meetings.ics"`)
	if err = calendar.WriteICS(w, meetings, now); err != nil {
		s.log.Warnf("err during writing calendar: %v", err)
	}
}

func dateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, def.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", name, v)
	}
	return t, nil
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	stats, err := s.app.Statistics(r.Context(), claims.UID)
	if err != nil {
		s.writeError(w, "computing statistics", err)
		return
	}
	s.writeResponse(w, http.StatusOK, StatsResponse{Stats: stats, TotalTime: stats.HHMM()})
}

func (s *Server) attendedHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	meetings, err := s.app.AttendedMeetings(r.Context(), claims.UID)
	if err != nil {
		s.writeError(w, "listing attended meetings", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

func (s *Server) missedHandler(w http.ResponseWriter, r *http.Request) {
	claims := s.getClaims(r.Context())
	meetings, err := s.app.MissedMeetings(r.Context(), claims.UID)
	if err != nil {
		s.writeError(w, "listing missed meetings", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

// voiceHandler turns a spoken command into a draft. Nothing is stored; the
// client confirms the draft through the regular scheduling endpoint.
func (s *Server) voiceHandler(w http.ResponseWriter, r *http.Request) {
	var req VoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	s.writeResponse(w, http.StatusOK, voice.Parse(req.Utterance, s.now()))
}
