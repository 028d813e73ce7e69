package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/campushire/campushire/internal/db/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireDB_PassesThroughWhenConnected(t *testing.T) {
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://127.0.0.1:27017"))
	if err != nil {
		t.Fatalf("fake client: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	mgr := mongodb.NewManagerWithDial(mongodb.Config{URI: "mongodb://127.0.0.1:27017"},
		func(ctx context.Context, cfg mongodb.Config) (*mongo.Client, error) {
			return client, nil
		}, zap.NewNop())

	handler := RequireDB(mgr, zap.NewNop())(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireDB_FailureIs503AndRetriesNextRequest(t *testing.T) {
	var dials atomic.Int64
	mgr := mongodb.NewManagerWithDial(mongodb.Config{URI: "mongodb://127.0.0.1:27017"},
		func(ctx context.Context, cfg mongodb.Config) (*mongo.Client, error) {
			dials.Add(1)
			return nil, syscall.ECONNREFUSED
		}, zap.NewNop())

	handler := RequireDB(mgr, zap.NewNop())(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("request %d: status = %d, want 503", i, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "service_unavailable") {
			t.Fatalf("request %d: body = %s", i, rec.Body.String())
		}
	}

	// Each failed request drives exactly one fresh attempt.
	if n := dials.Load(); n != 2 {
		t.Fatalf("dial count = %d, want 2", n)
	}
	if mgr.State() != mongodb.StateFailed {
		t.Fatalf("state = %v, want failed", mgr.State())
	}
}
