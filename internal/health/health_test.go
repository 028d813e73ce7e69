package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/campushire/campushire/internal/db/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v\n%s", err, rec.Body.String())
	}
	return resp
}

func TestHandler_BeforeAnyConnect(t *testing.T) {
	mgr := mongodb.NewManager(mongodb.Config{URI: "mongodb://127.0.0.1:27017"}, zap.NewNop())

	rec := httptest.NewRecorder()
	Handler(mgr, time.Now(), zap.NewNop()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode(t, rec)
	if resp.DBConnected {
		t.Error("dbConnected should be false before any connect")
	}
	if resp.ReadyState != "disconnected" {
		t.Errorf("readyState = %q, want disconnected", resp.ReadyState)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestHandler_AfterSuccessfulConnect(t *testing.T) {
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

	if _, err := mgr.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	rec := httptest.NewRecorder()
	Handler(mgr, time.Now(), zap.NewNop()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	resp := decode(t, rec)
	if !resp.DBConnected {
		t.Error("dbConnected should be true after a successful connect")
	}
	if resp.ReadyState != "connected" {
		t.Errorf("readyState = %q, want connected", resp.ReadyState)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Memory.Sys == 0 {
		t.Error("memory stats should be populated")
	}
}

func TestHandler_AfterFailedConnect(t *testing.T) {
	mgr := mongodb.NewManagerWithDial(mongodb.Config{URI: "mongodb://127.0.0.1:27017"},
		func(ctx context.Context, cfg mongodb.Config) (*mongo.Client, error) {
			return nil, syscall.ECONNREFUSED
		}, zap.NewNop())

	if _, err := mgr.Ensure(context.Background()); err == nil {
		t.Fatal("expected Ensure to fail")
	}

	rec := httptest.NewRecorder()
	Handler(mgr, time.Now(), zap.NewNop()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	resp := decode(t, rec)
	if resp.DBConnected {
		t.Error("dbConnected should be false after a failed connect")
	}
	if resp.ReadyState != "failed" {
		t.Errorf("readyState = %q, want failed", resp.ReadyState)
	}
}
