package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/simple-pos/sync-api/internal/auth"
	"github.com/simple-pos/sync-api/internal/service/syncservice"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Sync            *syncservice.Service
	RateLimitConfig RateLimitInfo
}

// errResp is the uniform error body for non-2xx responses
type errResp struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errResp{Error: msg})
}

// parseLimit parses a limit query param with default and max
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Routes creates the HTTP router with all sync endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated: liveness and capability discovery
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})
	r.Get("/v1/sync/info", s.Info)
	r.Get("/v1/sync/status", s.Status)

	// All sync endpoints require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))

		// Push/pull carry the sync traffic and are rate limited per tenant
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(s.RateLimitConfig))
			r.Post("/v1/sync/push", s.Push)
			r.Get("/v1/sync/pull", s.Pull)
		})

		// Conflict workflow
		r.Get("/v1/sync/conflicts", s.Conflicts)
		r.Post("/v1/sync/resolve-conflict", s.ResolveConflict)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
