// Package api exposes learner progress over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/progress"
	"github.com/p-n-ai/pai-quest/internal/realtime"
)

const checkTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the HTTP server.
type Config struct {
	Manager *progress.Manager
	Hub     *realtime.Hub      // optional; /events returns 404 without it
	Checks  map[string]Checker // consulted by /readyz
}

// Server routes HTTP requests to the progress manager.
type Server struct {
	manager *progress.Manager
	hub     *realtime.Hub
	checks  map[string]Checker
	index   *catalog.Index
}

// New creates an HTTP server.
func New(cfg Config) *Server {
	cat := cfg.Manager.Catalog()
	return &Server{
		manager: cfg.Manager,
		hub:     cfg.Hub,
		checks:  cfg.Checks,
		index:   catalog.NewIndex(cat.Concepts, cat.Regions),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/learners/{learner}/map", s.handleMap)
	mux.HandleFunc("GET /v1/learners/{learner}/concepts/{concept}", s.handleConcept)
	mux.HandleFunc("POST /v1/learners/{learner}/watch", s.handleWatch)
	mux.HandleFunc("POST /v1/learners/{learner}/quiz", s.handleQuiz)
	mux.HandleFunc("PUT /v1/learners/{learner}/region", s.handleRegion)
	mux.HandleFunc("GET /v1/learners/{learner}/events", s.handleEvents)
	mux.HandleFunc("GET /v1/learners/{learner}/report.xlsx", s.handleReport)

	mux.HandleFunc("PUT /v1/subtopics/{subtopic}/video-count", s.handleVideoCount)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := make(map[string]string)
	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
