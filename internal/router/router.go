// internal/router/router.go
package router

import (
	"github.com/campushire/campushire/internal/config"
	"github.com/campushire/campushire/internal/logging"
	"github.com/campushire/campushire/internal/metrics"
	"github.com/campushire/campushire/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router pre-wired with the service's standard middleware
// stack:
// - RequestID
// - RealIP
// - Recoverer (panic → 500)
// - security headers and compression
// - body size limit
// - CORS (from the env-sensitive allow-list)
// - metrics HTTP middleware
// - request logging
// - NotFound / MethodNotAllowed JSON handlers
// Rate limiting and the DB guard are mounted per route group in bootstrap.
func New(cfg *config.Config, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Request context & safety
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))

	// Security headers and response compression
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersOptions()))
	r.Use(chimw.Compress(5))

	// Body size limit (if configured)
	r.Use(middleware.LimitBodySize(cfg.MaxRequestBodyBytes))

	// CORS
	r.Use(middleware.CORSFromConfig(cfg))

	// Metrics
	r.Use(metrics.HTTPMetrics)

	// Access logging
	r.Use(logging.RequestLogger(logger))

	// NotFound / MethodNotAllowed JSON handlers
	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
