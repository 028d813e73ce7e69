package messages

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/features/auth"
)

const (
	testSecret = "testsecret"
	testUserID = "64ddeadbeefdeadbeefdead0"
)

func newTestRouter() http.Handler {
	h := NewHandler(nil, zap.NewNop(), testSecret)
	r := chi.NewRouter()
	r.Route("/messages", h.Routes)
	return r
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, testUserID, auth.RoleStudent, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + tok
}

func TestRoutes_RequireAuth(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages/inbox", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSend_Validation(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing recipient", `{"body":"hi"}`},
		{"short recipient id", `{"to":"abc","body":"hi"}`},
		{"empty message body", `{"to":"64de4dbeefdeadbeefdead01","body":""}`},
		{"self message", `{"to":"` + testUserID + `","body":"hi me"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearer(t))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestConversation_InvalidUserID(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/messages/with/not-an-oid", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMarkRead_InvalidID(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/messages/nope/read", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
