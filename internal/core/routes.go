package core

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultRequestTimeout is the soft deadline applied to every request
// context.
const defaultRequestTimeout = 30 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in
// request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
}

// MountRoutes registers the global middleware chain, the /v1 domain routes,
// and the top-level operational endpoints.
//
// Middleware ordering:
//  1. Recoverer       - outermost, catches every panic.
//  2. ContextTimeout  - soft deadline before anything slow runs.
//  3. RequestID       - correlation ID for tracing.
//  4. SecurityHeaders - present on all responses, including errors.
//  5. RequestLogger   - structured logging with redacted headers.
//  6. CORS            - browser access headers and preflight.
//  7. Metrics         - request latency and counts.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(defaultRequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)

	s.router.Route("/v1", func(r chi.Router) {
		for _, registrar := range s.V1Registrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
	if s.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && s.Config.Server.AllowedOrigins != "" {
		origins := strings.Split(s.Config.Server.AllowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return origins
	}
	return []string{"*"}
}
