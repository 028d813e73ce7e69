// internal/middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/campushire/campushire/internal/config"
	"github.com/go-chi/cors"
)

// CORSFromConfig returns a middleware that applies CORS behavior based on
// the configured allow-list. The list is env-sensitive: dev defaults to
// local frontends, prod uses the explicitly configured origins.
//
// With an empty allow-list the middleware is an identity, so it is safe to
// apply unconditionally and let config decide whether CORS is active.
func CORSFromConfig(cfg *config.Config) func(next http.Handler) http.Handler {
	if cfg == nil || len(cfg.CORSAllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
