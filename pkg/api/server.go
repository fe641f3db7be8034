package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/internal/config"
	"github.com/jakechorley/support-match/pkg/core/services"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
	"github.com/jakechorley/support-match/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Options tunes ranking and suggestions
type Options struct {
	RecommendedThreshold int
	MaxSuggestVolunteers int
	SessionRRule         string
	SessionCount         int
}

// Server is the JSON API in front of the matching services
type Server struct {
	store    db.Database
	hub      *events.Hub
	notifier services.Notifier
	ai       services.Completer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	opts     Options
}

// New creates a server. notifier and ai may be nil; without ai, suggestions answer 503.
func New(store db.Database, hub *events.Hub, notifier services.Notifier, ai services.Completer, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if opts.MaxSuggestVolunteers <= 0 {
		opts.MaxSuggestVolunteers = config.DefaultAIMaxVolunteers
	}
	if opts.SessionCount <= 0 {
		opts.SessionCount = config.DefaultSessionCount
	}
	return &Server{
		store:    store,
		hub:      hub,
		notifier: notifier,
		ai:       ai,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/requesters", s.registerRequester)
		r.Post("/volunteers", s.registerVolunteer)
		r.Get("/requesters/{id}/volunteers", s.rankVolunteers)
		r.Get("/volunteers/{id}/pool", s.listPool)

		r.Post("/requests", s.createRequest)
		r.Post("/requests/{id}/select", s.selectVolunteer)
		r.Post("/requests/{id}/accept", s.acceptRequest)
		r.Post("/requests/{id}/decline", s.declineRequest)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/requests", s.listRequests)
			r.Get("/matches", s.listMatches)
			r.Get("/volunteers", s.listVolunteers)
			r.Get("/requesters/{id}/volunteers", s.rankVolunteersForAdmin)
			r.Post("/requests/{id}/approve", s.approveRequest)
			r.Post("/requests/{id}/decline", s.adminDeclineRequest)
			r.Post("/matches", s.manualMatch)
			r.Delete("/matches/{id}", s.cancelMatch)
			r.Get("/matches/{id}/sessions", s.planSessions)
			r.Post("/volunteers/{id}/review", s.reviewVolunteer)
			r.Delete("/volunteers/{id}", s.deleteVolunteer)
			r.Delete("/requesters/{id}", s.deleteRequester)
			r.Post("/requesters/{id}/suggestions", s.suggest)
		})

		r.Get("/subscribe", s.subscribe)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Websocket streams are hijacked and not tracked by Shutdown
	s.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// observe counts requests by route pattern and status
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(route, strconv.Itoa(status))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
