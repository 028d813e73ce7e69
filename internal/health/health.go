// internal/health/health.go
package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Response is the JSON structure returned by the health handler.
type Response struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"dbConnected"`
	ReadyState  string `json:"readyState"`
	Uptime      string `json:"uptime"`
	Memory      Memory `json:"memory"`
}

// Memory reports process heap usage in bytes.
type Memory struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
}

// Handler returns an http.Handler reporting process liveness and the
// database lifecycle state. It never triggers a connection attempt itself:
// it reads the manager's current state, so dbConnected stays false until
// some request (or startup) has successfully connected.
//
// The handler always answers 200: a down database is a degraded state, not
// a dead process, and the per-request deployment mode relies on the
// process staying in rotation so the next request can retry.
func Handler(mgr *mongodb.Manager, startedAt time.Time, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := mgr.State()
		connected := state == mongodb.StateConnected

		status := "ok"
		if !connected {
			status = "degraded"
			if logger != nil {
				logger.Warn("health check with database down",
					zap.String("ready_state", state.String()))
			}
		}

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		httputil.WriteJSON(w, http.StatusOK, Response{
			Status:      status,
			DBConnected: connected,
			ReadyState:  state.String(),
			Uptime:      time.Since(startedAt).Round(time.Second).String(),
			Memory: Memory{
				Alloc:      ms.Alloc,
				TotalAlloc: ms.TotalAlloc,
				Sys:        ms.Sys,
				NumGC:      ms.NumGC,
			},
		})
	})
}

// Mount attaches the /health route to the given chi.Router.
func Mount(r chi.Router, mgr *mongodb.Manager, startedAt time.Time, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(mgr, startedAt, logger))
}
