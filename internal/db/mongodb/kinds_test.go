package mongodb

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"dns typed", &net.DNSError{Err: "no such host", Name: "db.invalid"}, KindDNSResolution},
		{"dns text", errors.New("lookup db.invalid: no such host"), KindDNSResolution},
		{"refused typed", syscall.ECONNREFUSED, KindConnectionRefused},
		{"refused wrapped", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, KindConnectionRefused},
		{"refused text", errors.New("dial tcp 127.0.0.1:27017: connection refused"), KindConnectionRefused},
		{"auth command error", mongo.CommandError{Code: 18, Message: "Authentication failed."}, KindAuthFailed},
		{"auth text", errors.New("connection() error: auth error: sasl conversation error"), KindAuthFailed},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"server selection text", errors.New("server selection timeout, current topology: ..."), KindTimeout},
		{"unknown", errors.New("something else entirely"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindUnknown:           "unknown",
		KindDNSResolution:     "dns_resolution",
		KindConnectionRefused: "connection_refused",
		KindAuthFailed:        "auth_failed",
		KindTimeout:           "timeout",
		Kind(99):              "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestErrorWrapping(t *testing.T) {
	inner := syscall.ECONNREFUSED
	err := &Error{Kind: KindConnectionRefused, Err: inner}

	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("Error should unwrap to the underlying cause")
	}
	if err.Error() != "mongodb: connection_refused: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateFailed:       "failed",
		State(42):         "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
