// internal/middleware/requiredb.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/campushire/campushire/internal/metrics"
	"go.uber.org/zap"
)

// RequireDB ensures the Mongo connection is up before the wrapped routes
// touch the database. A failure is surfaced as a 503 JSON error for this
// request only; the process stays alive and the next request triggers a
// fresh connection attempt through the manager.
func RequireDB(mgr *mongodb.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := mgr.Ensure(r.Context()); err != nil {
				metrics.SetDBConnected(false)
				kind := mongodb.KindUnknown
				var cerr *mongodb.Error
				if errors.As(err, &cerr) {
					kind = cerr.Kind
				}
				logger.Error("database unavailable",
					zap.String("kind", kind.String()),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				httputil.JSONError(w, http.StatusServiceUnavailable,
					"service_unavailable",
					"The database is currently unavailable; please retry",
				)
				return
			}
			metrics.SetDBConnected(true)
			next.ServeHTTP(w, r)
		})
	}
}
