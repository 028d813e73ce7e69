// internal/bootstrap/handler.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/config"
	"github.com/campushire/campushire/internal/features/admin"
	"github.com/campushire/campushire/internal/features/auth"
	"github.com/campushire/campushire/internal/features/jobs"
	"github.com/campushire/campushire/internal/features/messages"
	"github.com/campushire/campushire/internal/features/referrals"
	"github.com/campushire/campushire/internal/features/uploads"
	"github.com/campushire/campushire/internal/health"
	"github.com/campushire/campushire/internal/metrics"
	"github.com/campushire/campushire/internal/middleware"
	"github.com/campushire/campushire/internal/ratelimit"
	"github.com/campushire/campushire/internal/router"
)

// BuildHandler assembles the full HTTP surface: the standard middleware
// stack, health and metrics endpoints, and the /api/v1 feature routes
// behind rate limiting and the DB guard.
func BuildHandler(cfg *config.Config, deps *DBDeps, startedAt time.Time, logger *zap.Logger) http.Handler {
	r := router.New(cfg, logger)

	// Health and metrics sit outside rate limiting and the DB guard so
	// probes keep working while the database is down.
	health.Mount(r, deps.Manager, startedAt, logger)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	limiter := buildLimiter(cfg, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ratelimit.Middleware(ratelimit.Config{
			Limiter:    limiter,
			RetryAfter: int(cfg.RateLimit.Window.Seconds()),
		}))
		r.Use(middleware.RequireDB(deps.Manager, logger))

		authH := auth.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, deps.Mailer)
		jobsH := jobs.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret)
		referralsH := referrals.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret, deps.Mailer)
		messagesH := messages.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret)
		uploadsH := uploads.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret, deps.FileStorage, cfg.MaxRequestBodyBytes)
		adminH := admin.NewHandler(deps.Database, logger, cfg.Auth.JWTSecret, deps.Manager)

		r.Route("/auth", authH.Routes)
		r.Route("/jobs", jobsH.Routes)
		r.Route("/referrals", referralsH.Routes)
		r.Route("/messages", messagesH.Routes)
		r.Route("/uploads", uploadsH.Routes)
		r.Route("/admin", adminH.Routes)
	})

	return r
}

// buildLimiter picks the rate limit backend: Redis when an address is
// configured (shared across instances), otherwise per-process in memory.
func buildLimiter(cfg *config.Config, logger *zap.Logger) ratelimit.KeyAllower {
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		logger.Info("redis rate limiter enabled", zap.String("addr", addr))
		return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Max, cfg.RateLimit.Window, logger)
	}
	return ratelimit.NewKeyLimiterFromWindow(cfg.RateLimit.Max, cfg.RateLimit.Window)
}
