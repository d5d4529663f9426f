// Package server exposes the pipeline over HTTP: a streaming SSE search
// endpoint plus popularity, cache-stats, and health routes.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/internal/config"
	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/internal/ratelimit"
)

// Runner starts pipeline runs. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, query string) (<-chan model.Event, error)
}

// Server routes HTTP traffic to the pipeline and cache.
type Server struct {
	cfg     *config.Config
	runner  Runner
	cache   *cache.Cache
	limiter *ratelimit.Limiter
}

// New creates a Server. A nil limiter gets the configured per-minute
// default; a nil cache is treated as disabled.
func New(cfg *config.Config, runner Runner, ca *cache.Cache, limiter *ratelimit.Limiter) *Server {
	if limiter == nil {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerMinute, ratelimit.DefaultWindow)
	}
	if ca == nil {
		ca = cache.New(nil)
	}
	return &Server{
		cfg:     cfg,
		runner:  runner,
		cache:   ca,
		limiter: limiter,
	}
}

// Handler assembles the router. CORS is permissive: the service fronts a
// public browser client.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Post("/api/search", s.handleSearch)
	r.Get("/api/popular", s.handlePopular)
	r.Get("/api/stats", s.handleStats)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	queries, err := s.cache.TopQueries(r.Context(), 10)
	if err != nil {
		zap.L().Warn("server: popular queries lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load popular queries")
		return
	}
	if queries == nil {
		queries = []cache.PopularQuery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": queries})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.cache.Stats(r.Context())
	if err != nil {
		zap.L().Warn("server: cache stats lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load cache stats")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// clientIP prefers the first X-Forwarded-For hop so rate limiting keys on
// the caller, not the proxy in front of the service.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
