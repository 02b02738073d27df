package rest

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 5 * time.Second
	defaultTokenTTL = 24 * time.Hour
)

type Config struct {
	Address    string
	Version    string
	PrivateKey *rsa.PrivateKey
	TokenTTL   time.Duration
	// Now supplies the clock for voice parsing and calendar ranges.
	Now func() time.Time
}

type Server struct {
	log        *logrus.Entry
	app        App
	feed       Feed
	server     *http.Server
	version    string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokenTTL   time.Duration
	now        func() time.Time
}

// New builds the HTTP server. feed may be nil, in which case the event stream is unavailable.
func New(log *logrus.Logger, app App, feed Feed, cfg Config) *Server {
	s := Server{
		log:        log.WithField("component", "rest"),
		app:        app,
		feed:       feed,
		version:    cfg.Version,
		privateKey: cfg.PrivateKey,
		publicKey:  &cfg.PrivateKey.PublicKey,
		tokenTTL:   cfg.TokenTTL,
		now:        cfg.Now,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = defaultTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/register", s.registerHandler)
			r.Post("/login", s.loginHandler)
			r.Group(func(r chi.Router) {
				r.Use(s.jwtAuth)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", s.getUsersHandler)
					r.Get("/me", s.getMeHandler)
					r.Put("/me", s.updateMeHandler)
					r.Get("/{uid}", s.getUserHandler)
					r.Put("/{uid}/designation", s.updateDesignationHandler)
				})
				r.Get("/departments/{department}/members", s.departmentMembersHandler)
				r.Route("/meetings", func(r chi.Router) {
					r.Get("/", s.upcomingMeetingsHandler)
					r.Post("/", s.scheduleMeetingHandler)
					r.Post("/check", s.checkConflictsHandler)
					r.Get("/{id}", s.getMeetingHandler)
					r.Patch("/{id}", s.editMeetingHandler)
					r.Post("/{id}/cancel", s.cancelMeetingHandler)
					r.Post("/{id}/end", s.endMeetingHandler)
					r.Post("/{id}/reschedule", s.rescheduleMeetingHandler)
					r.Post("/{id}/attendance", s.markAttendanceHandler)
				})
				r.Get("/calendar", s.calendarHandler)
				r.Get("/calendar.ics", s.icsHandler)
				r.Route("/stats", func(r chi.Router) {
					r.Get("/", s.statsHandler)
					r.Get("/attended", s.attendedHandler)
					r.Get("/missed", s.missedHandler)
				})
				r.Post("/voice", s.voiceHandler)
				r.Get("/events", s.eventsHandler)
			})
		})
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("err during shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("err serving http: %w", err)
	}
	return nil
}
