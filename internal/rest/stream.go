package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

const keepAliveInterval = 30 * time.Second

var ErrStreamUnavailable = errors.New("event stream is not configured")

type Feed interface {
	Subscribe(ctx context.Context, keep func(events.MeetingEvent) bool) (*events.Subscription, error)
}

// eventsHandler streams changes to meetings the caller can see as server-sent events.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeResponse(w, http.StatusServiceUnavailable, ErrStreamUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeResponse(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	ctx := r.Context()
	viewer, err := s.app.GetUser(ctx, s.getClaims(ctx).UID)
	if err != nil {
		s.writeError(w, "loading viewer", err)
		return
	}
	sub, err := s.feed.Subscribe(ctx, func(ev events.MeetingEvent) bool {
		return schedule.IsVisible(ev.Meeting, viewer.UID, viewer.Designation)
	})
	if err != nil {
		s.writeError(w, "subscribing to events", err)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			s.log.Warnf("err closing subscription: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.log.Warnf("err encoding event: %v", err)
				continue
			}
			if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
