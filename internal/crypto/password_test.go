package crypto

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", nil)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	if err := VerifyPassword("correct horse battery staple", hash); err != nil {
		t.Errorf("VerifyPassword with correct password: %v", err)
	}
	if err := VerifyPassword("wrong password", hash); err != ErrMismatchedPassword {
		t.Errorf("VerifyPassword with wrong password: err = %v, want ErrMismatchedPassword", err)
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	h1, _ := HashPassword("same", nil)
	h2, _ := HashPassword("same", nil)
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=2$onlyfivefields",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	for _, h := range tests {
		if err := VerifyPassword("pw", h); err != ErrInvalidHash {
			t.Errorf("VerifyPassword(%q): err = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestCheckPasswordHash(t *testing.T) {
	hash, _ := HashPassword("pw", nil)
	if !CheckPasswordHash("pw", hash) {
		t.Error("CheckPasswordHash should be true for the right password")
	}
	if CheckPasswordHash("nope", hash) {
		t.Error("CheckPasswordHash should be false for the wrong password")
	}
}
