package jobs

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

const testSecret = "testsecret"

func newTestRouter() http.Handler {
	h := NewHandler(nil, zap.NewNop(), testSecret)
	r := chi.NewRouter()
	r.Route("/jobs", h.Routes)
	return r
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, "64ddeadbeefdeadbeefdead0", role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + tok
}

func TestCreate_RequiresRecruiterRole(t *testing.T) {
	router := newTestRouter()
	body := `{"title":"Backend Intern","company":"Acme","description":"Write Go services.","location":"Remote","type":"internship"}`

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("student token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
		req.Header.Set("Authorization", bearer(t, auth.RoleStudent))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestCreate_Validation(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing title", `{"company":"Acme","description":"Long enough text","location":"Remote","type":"full_time"}`},
		{"bad type", `{"title":"Engineer","company":"Acme","description":"Long enough text","location":"Remote","type":"gig"}`},
		{"salary range inverted", `{"title":"Engineer","company":"Acme","description":"Long enough text","location":"Remote","type":"full_time","salaryMin":100000,"salaryMax":50000}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearer(t, auth.RoleRecruiter))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGet_InvalidID(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/not-an-oid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestList_RejectsUnknownTypeFilter(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs?type=gig", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPaging(t *testing.T) {
	tests := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", 1, defaultPageSize},
		{"0", "-5", 1, defaultPageSize},
		{"3", "50", 3, 50},
		{"2", "5000", 2, maxPageSize},
		{"abc", "xyz", 1, defaultPageSize},
	}
	for _, tc := range tests {
		p, l := paging(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("paging(%q, %q) = %d, %d; want %d, %d", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLimit)
		}
	}
}

func TestValidJobType(t *testing.T) {
	for _, jt := range []string{TypeFullTime, TypePartTime, TypeInternship, TypeContract} {
		if !validJobType(jt) {
			t.Errorf("%q should be valid", jt)
		}
	}
	if validJobType("gig") {
		t.Error("unknown type should be invalid")
	}
}
