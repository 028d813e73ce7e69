package validate

import (
	"strings"
	"testing"
)

type signupReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStruct_OK(t *testing.T) {
	req := signupReq{Email: "a@example.com", Password: "longenough"}
	if err := Struct(req); err != nil {
		t.Fatalf("Struct: %v", err)
	}
}

func TestStruct_ReportsJSONFieldName(t *testing.T) {
	req := signupReq{Email: "not-an-email", Password: "longenough"}
	err := Struct(req)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"email"`) {
		t.Errorf("error should name the json field: %v", err)
	}
}

func TestStruct_Required(t *testing.T) {
	err := Struct(signupReq{})
	if err == nil {
		t.Fatal("expected error for empty struct")
	}
}
