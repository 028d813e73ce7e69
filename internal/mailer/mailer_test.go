package mailer

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestDisabledMailerDropsWithoutError(t *testing.T) {
	m := New(Config{}, zap.NewNop())
	if m.Enabled() {
		t.Fatal("mailer with no host should be disabled")
	}
	err := m.Send(context.Background(), Message{
		To:       []string{"someone@example.com"},
		Subject:  "hello",
		TextBody: "body",
	})
	if err != nil {
		t.Errorf("disabled Send should be a no-op, got %v", err)
	}
}

func TestEnabledMailerValidatesMessage(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", FromAddress: "noreply@example.com"}, zap.NewNop())
	if !m.Enabled() {
		t.Fatal("mailer with host should be enabled")
	}

	if err := m.Send(context.Background(), Message{Subject: "s", TextBody: "b"}); err == nil {
		t.Error("expected error for empty recipients")
	}
	if err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"}); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestNewDefaults(t *testing.T) {
	m := New(Config{Host: "smtp.example.com"}, zap.NewNop())
	if m.cfg.Port != 587 {
		t.Errorf("default port = %d, want 587", m.cfg.Port)
	}
	if m.cfg.Timeout == 0 {
		t.Error("default timeout should be set")
	}
}
