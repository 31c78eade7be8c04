// Package api serves a store.Repository over JSON/HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/store"
)

type Server struct {
	repo  store.Repository
	clock clock.Clock
	loc   *time.Location
	log   hclog.Logger
}

type Option func(*Server)

func WithClock(c clock.Clock) Option { return func(s *Server) { s.clock = c } }

// WithLocation sets the time zone used for calendar-day analytics.
func WithLocation(loc *time.Location) Option { return func(s *Server) { s.loc = loc } }

func WithLogger(l hclog.Logger) Option { return func(s *Server) { s.log = l } }

func NewServer(repo store.Repository, opts ...Option) *Server {
	s := &Server{repo: repo, clock: clock.SystemClock{}, loc: time.Local, log: hclog.NewNullLogger()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("api")
	return s
}

// Handler returns the routed handler wrapped in the logging, recovery and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.logRequests(s.recoverPanics(cors(mux)))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Subjects
	mux.HandleFunc("GET /api/subjects", s.handleListSubjects)
	mux.HandleFunc("POST /api/subjects", s.handleCreateSubject)
	mux.HandleFunc("PUT /api/subjects/{id}", s.handleUpdateSubject)
	mux.HandleFunc("DELETE /api/subjects/{id}", s.handleDeleteSubject)

	// Sessions
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	// Settings
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	// Todos
	mux.HandleFunc("GET /api/todos", s.handleListTodos)
	mux.HandleFunc("POST /api/todos", s.handleCreateTodo)
	mux.HandleFunc("PUT /api/todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDeleteTodo)

	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRepoError maps repository errors onto status codes. Anything that is not a
// validation or not-found error is logged and reported as a generic 500.
func (s *Server) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
