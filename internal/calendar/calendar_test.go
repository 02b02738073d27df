package calendar

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

var start = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func sampleMeetings() []models.Meeting {
	return []models.Meeting{
		{ID: "m1", Title: "Budget review", Location: "Room 101", DateTime: start, Duration: 30,
			Attendees: models.AudienceAllHODs, Status: models.StatusActive},
		{ID: "m2", Title: "Lab audit", DateTime: start.Add(time.Hour), Duration: 0,
			Attendees: models.AudienceAllFaculty, Status: models.StatusCancelled},
	}
}

func TestWriteICSRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, sampleMeetings(), start))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	require.Equal(t, "Budget review", summary)
	end, err := events[0].DateTimeEnd(time.UTC)
	require.NoError(t, err)
	require.True(t, end.Equal(start.Add(30*time.Minute)))

	status, err := events[1].Props.Text(ical.PropStatus)
	require.NoError(t, err)
	require.Equal(t, "CANCELLED", status)
	end, err = events[1].DateTimeEnd(time.UTC)
	require.NoError(t, err)
	require.True(t, end.Equal(start.Add(2*time.Hour)))
}

func TestEventID(t *testing.T) {
	id := EventID("0b7c5e1a-6f7e-4c1b-9d7e-5a4b3c2d1e0f")
	require.NotContains(t, id, "-")
	require.Equal(t, strings.ToLower(id), id)
}

func TestMirrorInsertsUnknownEvent(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx := context.Background()
	mirror, err := NewMirrorWithOptions(ctx, log, "faculty@group.calendar.google.com",
		option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	require.NoError(t, mirror.MirrorMeeting(ctx, sampleMeetings()[0]))
	require.Equal(t, []string{http.MethodPut, http.MethodPost}, methods)
}
