package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/features/auth"
)

const testSecret = "testsecret"

func newTestRouter(mgr *mongodb.Manager) http.Handler {
	h := NewHandler(nil, zap.NewNop(), testSecret, mgr)
	r := chi.NewRouter()
	r.Route("/admin", h.Routes)
	return r
}

func newTestManager(dial mongodb.DialFunc) *mongodb.Manager {
	return mongodb.NewManagerWithDial(
		mongodb.Config{URI: "mongodb://localhost:27017"}, dial, zap.NewNop())
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, "64ddeadbeefdeadbeefdead0", role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + tok
}

func TestRoutes_AdminOnly(t *testing.T) {
	router := newTestRouter(newTestManager(nil))

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("recruiter forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", bearer(t, auth.RoleRecruiter))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestDeactivate_SelfRejected(t *testing.T) {
	router := newTestRouter(newTestManager(nil))
	req := httptest.NewRequest(http.MethodPost, "/admin/users/64ddeadbeefdeadbeefdead0/deactivate", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDiagnostics_BeforeConnect(t *testing.T) {
	router := newTestRouter(newTestManager(nil))
	req := httptest.NewRequest(http.MethodGet, "/admin/diagnostics", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp diagnosticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DBConnected {
		t.Error("dbConnected should be false before any connect")
	}
	if resp.ReadyState != "disconnected" {
		t.Errorf("readyState = %q, want disconnected", resp.ReadyState)
	}
}

func TestDiagnostics_AfterFailedConnect(t *testing.T) {
	dial := func(ctx context.Context, cfg mongodb.Config) (*mongo.Client, error) {
		return nil, syscall.ECONNREFUSED
	}
	mgr := newTestManager(dial)
	mgr.Ensure(context.Background())

	router := newTestRouter(mgr)
	req := httptest.NewRequest(http.MethodGet, "/admin/diagnostics", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp diagnosticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ReadyState != "failed" {
		t.Errorf("readyState = %q, want failed", resp.ReadyState)
	}
	if resp.ErrorKind != "connection_refused" {
		t.Errorf("errorKind = %q, want connection_refused", resp.ErrorKind)
	}
	if resp.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", resp.Attempts)
	}
}
