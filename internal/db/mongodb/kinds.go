// internal/db/mongodb/kinds.go
package mongodb

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies a connection failure so callers and logs can tell a bad
// hostname apart from a refused port or bad credentials.
type Kind int

const (
	KindUnknown Kind = iota
	KindDNSResolution
	KindConnectionRefused
	KindAuthFailed
	KindTimeout
)

// String returns a stable machine-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDNSResolution:
		return "dns_resolution"
	case KindConnectionRefused:
		return "connection_refused"
	case KindAuthFailed:
		return "auth_failed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error wraps a connection failure with its classified Kind. It is what
// Manager.Ensure returns (and hands to every concurrent waiter) when an
// attempt fails.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return "mongodb: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps driver and net errors onto a Kind. It checks typed errors
// first and falls back to message text, since some failures only surface
// as strings through the driver's server-selection wrapper.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNSResolution
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}

	// Mongo reports bad credentials as an AuthenticationFailed (18)
	// command error during the handshake.
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 18 {
		return KindAuthFailed
	}

	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return KindTimeout
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "no such host"):
		return KindDNSResolution
	case strings.Contains(s, "connection refused"):
		return KindConnectionRefused
	case strings.Contains(s, "authentication failed"), strings.Contains(s, "sasl"):
		return KindAuthFailed
	case strings.Contains(s, "server selection timeout"), strings.Contains(s, "timed out"):
		return KindTimeout
	}
	return KindUnknown
}
