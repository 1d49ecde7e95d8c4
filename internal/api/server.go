// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/waterrocket/simulator/internal/playback"
	"github.com/waterrocket/simulator/internal/runner"
	"github.com/waterrocket/simulator/internal/session"
	"github.com/waterrocket/simulator/pkg/core"
)

const (
	// APIKeyHeader carries the shared secret on state-changing requests.
	APIKeyHeader = "X-API-Key"

	// maxBodyBytes caps launch request bodies.
	maxBodyBytes = 1 << 16
)

// RunService is what the HTTP layer needs from the runner.
type RunService interface {
	Launch(ctx context.Context, input core.LaunchInput, site core.LaunchSite) (*core.Run, error)
	Current() (*core.Run, error)
	Discard() bool
	Get(id uint) (*core.Run, error)
	List(limit int) ([]core.RunSummary, error)
}

// Options configures the Server.
type Options struct {
	DefaultInput core.LaunchInput
	DefaultSite  core.LaunchSite
	Logger       *slog.Logger
	// APIKey, when set, is required in the X-API-Key header of requests
	// that change state.
	APIKey string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

// LaunchRequest is the body of POST /api/runs. Missing parts use the
// configured defaults.
type LaunchRequest struct {
	Stages *[core.StageCount]core.StageInput `json:"stages,omitempty"`
	Site   *core.LaunchSite                  `json:"site,omitempty"`
}

// StateResponse is the playback readout at a requested time.
type StateResponse struct {
	RunID uint                 `json:"runId"`
	At    float64              `json:"at"`
	State core.SimulationState `json:"state"`
	Panel playback.Panel       `json:"panel"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the runner over HTTP.
type Server struct {
	router *mux.Router
	svc    RunService
	opts   Options
	log    *slog.Logger
}

// NewServer builds the router.
func NewServer(svc RunService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		router: mux.NewRouter(),
		svc:    svc,
		opts:   opts,
		log:    opts.Logger,
	}

	s.router.Use(allowOrigin)
	s.router.HandleFunc("/healthcheck", s.healthcheck).Methods(http.MethodGet)
	if opts.Metrics != nil {
		s.router.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	runs := s.router.PathPrefix("/api/runs").Subrouter()
	runs.Handle("", s.requireKey(s.launch)).Methods(http.MethodPost)
	runs.HandleFunc("", s.list).Methods(http.MethodGet)
	runs.HandleFunc("/current", s.current).Methods(http.MethodGet)
	runs.Handle("/current", s.requireKey(s.discard)).Methods(http.MethodDelete)
	runs.HandleFunc("/current/state", s.state).Methods(http.MethodGet)
	runs.HandleFunc("/{id:[0-9]+}", s.get).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// allowOrigin lets browser front ends on other origins read responses.
func allowOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get(APIKeyHeader) != s.opts.APIKey {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	})
}

func (s *Server) healthcheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) launch(w http.ResponseWriter, r *http.Request) {
	req := LaunchRequest{}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}

	input := s.opts.DefaultInput
	if req.Stages != nil {
		input.Stages = *req.Stages
	}
	site := s.opts.DefaultSite
	if req.Site != nil {
		site = *req.Site
	}

	run, err := s.svc.Launch(r.Context(), input, site)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, run)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.svc.List(limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.svc.Get(uint(id))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) current(w http.ResponseWriter, _ *http.Request) {
	run, err := s.svc.Current()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) discard(w http.ResponseWriter, _ *http.Request) {
	if !s.svc.Discard() {
		s.writeServiceError(w, session.ErrNoCurrentRun)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	t := 0.0
	if v := r.URL.Query().Get("t"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "t must be a number of seconds")
			return
		}
		t = parsed
	}

	// read the state from this run even if it stops being current meanwhile
	run, err := s.svc.Current()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	state, ok := playback.At(&run.Result, t)
	if !ok {
		s.writeServiceError(w, runner.ErrEmptyTrajectory)
		return
	}
	s.writeJSON(w, http.StatusOK, StateResponse{
		RunID: run.ID,
		At:    t,
		State: state,
		Panel: playback.PanelOf(state),
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInputOutOfRange):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrRunNotFound),
		errors.Is(err, session.ErrNoCurrentRun),
		errors.Is(err, runner.ErrEmptyTrajectory):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("Request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}
