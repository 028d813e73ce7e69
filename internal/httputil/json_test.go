package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON_ClampsInvalidStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 9999, map[string]string{"ok": "yes"})
	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestJSONError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, 404, "not_found", "no such job")
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"error":"not_found"`) || !strings.Contains(body, `"message":"no such job"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"ada"}`, ""},
		{"empty", ``, "request body is empty"},
		{"malformed", `{"name":`, "malformed JSON"},
		{"unknown field", `{"nope":1}`, `unknown field "nope"`},
		{"wrong type", `{"name":42}`, `invalid value for field "name"`},
		{"trailing values", `{"name":"a"}{"name":"b"}`, "multiple JSON values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p payload
			err := BindJSON(req, &p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("BindJSON: %v", err)
				}
				if p.Name != "ada" {
					t.Errorf("Name = %q", p.Name)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
