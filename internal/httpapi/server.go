// Package httpapi exposes the validation and digest-generation core
// over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/auth"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/pipeline"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/ratelimit"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/urlcheck"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/validator"
)

// Maximum accepted request body; validate/generate bodies are tiny
const maxRequestBody = 64 * 1024

// Limits holds the request-shape bounds enforced at the boundary
type Limits struct {
	MaxFeeds    int
	MaxDaysBack int
}

// DefaultLimits returns the production bounds
func DefaultLimits() Limits {
	return Limits{MaxFeeds: 10, MaxDaysBack: 30}
}

// Server wires the core components behind the API routes
type Server struct {
	validator  *validator.Validator
	orch       *pipeline.Orchestrator
	checker    *urlcheck.Checker
	authMW     *auth.Middleware
	apiLimiter *ratelimit.Limiter
	limits     Limits
	logger     *logging.Logger
	server     *http.Server
}

// New creates a server. apiLimiter throttles generation per client IP;
// nil disables throttling.
func New(v *validator.Validator, orch *pipeline.Orchestrator, checker *urlcheck.Checker, authMW *auth.Middleware, apiLimiter *ratelimit.Limiter, limits Limits, logger *logging.Logger) *Server {
	return &Server{
		validator:  v,
		orch:       orch,
		checker:    checker,
		authMW:     authMW,
		apiLimiter: apiLimiter,
		limits:     limits,
		logger:     logger,
	}
}

// Start registers routes and serves until shutdown
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/validate", s.corsMiddleware(s.authMW.RequireKey(s.handleValidate)))
	mux.HandleFunc("/api/generate", s.corsMiddleware(s.authMW.RequireKey(s.handleGenerate)))
	mux.HandleFunc("/api/generate/stream", s.corsMiddleware(s.authMW.RequireKey(s.handleGenerateStream)))

	// Liveness probe: no auth, no side effects
	mux.HandleFunc("/api/health", s.handleHealth)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Write timeout must cover a whole generation run, which can
		// spend minutes on slow third-party hosts.
		WriteTimeout: 5 * time.Minute,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", logging.WithField("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// clientIP extracts the caller address for per-client throttling
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
