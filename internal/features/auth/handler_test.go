package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/mailer"
)

// newTestRouter wires the auth routes with a nil database. Only the
// request paths that reject before touching Mongo are exercised here.
func newTestRouter() http.Handler {
	h := NewHandler(nil, zap.NewNop(), "testsecret", time.Hour, nil)
	r := chi.NewRouter()
	r.Route("/auth", h.Routes)
	return r
}

func TestRegister_Validation(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", ``, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown field", `{"email":"a@b.com","password":"longenough","name":"A","role":"student","extra":1}`, http.StatusBadRequest},
		{"bad email", `{"email":"nope","password":"longenough","name":"A","role":"student"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.com","password":"short","name":"A","role":"student"}`, http.StatusBadRequest},
		{"admin role rejected", `{"email":"a@b.com","password":"longenough","name":"A","role":"admin"}`, http.StatusBadRequest},
		{"unknown role rejected", `{"email":"a@b.com","password":"longenough","name":"A","role":"wizard"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestLogin_Validation(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendWelcome_SkipsWhenMailerUnavailable(t *testing.T) {
	user := &User{Email: "a@b.com", Name: "A", Role: "student"}
	req := httptest.NewRequest(http.MethodPost, "/auth/register", nil)

	// Nil mailer: register must not panic or touch the network.
	h := NewHandler(nil, zap.NewNop(), "testsecret", time.Hour, nil)
	h.sendWelcome(req, user)

	// Disabled mailer (no SMTP host): same silent skip.
	h = NewHandler(nil, zap.NewNop(), "testsecret", time.Hour,
		mailer.New(mailer.Config{}, zap.NewNop()))
	h.sendWelcome(req, user)
}

func TestMe_RequiresAuth(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
