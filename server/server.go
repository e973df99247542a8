// Package server exposes the advisory engine over HTTP: query
// processing, rate-limit checks, learning statistics, and health.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/learning"
	"github.com/krishimitra/advisor/orchestration"
	"github.com/krishimitra/advisor/ratelimit"
)

// StatsProvider reports learning store statistics
type StatsProvider interface {
	Stats(ctx context.Context) learning.Stats
}

// Server handles the HTTP API
type Server struct {
	orchestrator *orchestration.Orchestrator
	limiter      *ratelimit.Limiter
	stats        StatsProvider
	health       *core.RedisClient
	logger       core.Logger
}

// Options configures a Server
type Options struct {
	Orchestrator *orchestration.Orchestrator
	Limiter      *ratelimit.Limiter
	Stats        StatsProvider
	HealthRedis  *core.RedisClient // optional; nil reports storage degraded
	Logger       core.Logger
}

// New creates a Server
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Server{
		orchestrator: opts.Orchestrator,
		limiter:      opts.Limiter,
		stats:        opts.Stats,
		health:       opts.HealthRedis,
		logger:       logger,
	}
}

// Handler returns the routed, trace-instrumented HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/ratelimit/check", s.handleRateLimitCheck)
	mux.HandleFunc("/ratelimit/status", s.handleRateLimitStatus)
	mux.HandleFunc("/learning/stats", s.handleLearningStats)
	mux.HandleFunc("/health", s.handleHealth)
	return otelhttp.NewHandler(mux, "advisor")
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req orchestration.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if s.limiter != nil && req.SessionID != "" {
		if _, err := s.limiter.CheckAndIncrement(r.Context(), req.SessionID, "query"); err != nil {
			s.writeRateLimited(w, err)
			return
		}
	}

	result := s.orchestrator.Process(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

type rateLimitRequest struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

func (s *Server) handleRateLimitCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req rateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Kind == "" {
		req.Kind = "query"
	}

	decision, err := s.limiter.CheckAndIncrement(r.Context(), req.SessionID, req.Kind)
	if err != nil {
		s.writeRateLimited(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := r.URL.Query().Get("session")
	if session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "query"
	}

	writeJSON(w, http.StatusOK, s.limiter.Status(r.Context(), session, kind))
}

func (s *Server) handleLearningStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.stats == nil {
		writeJSON(w, http.StatusOK, learning.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Stats(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := map[string]string{"status": "ok", "storage": "ok"}
	if s.health == nil {
		status["storage"] = "unconfigured"
	} else if err := s.health.HealthCheck(r.Context()); err != nil {
		// Degraded, not down: the pipeline runs without storage
		status["storage"] = "unavailable"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeRateLimited(w http.ResponseWriter, err error) {
	var limitErr *ratelimit.LimitExceededError
	retryAfter := int64(0)
	if errors.As(err, &limitErr) {
		retryAfter = limitErr.ResetSeconds
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error":               "rate limit exceeded",
		"retry_after_seconds": retryAfter,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
