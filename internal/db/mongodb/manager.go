// internal/db/mongodb/manager.go
package mongodb

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// State is the lifecycle state of the managed Mongo connection.
//
// Transition table:
//
//	Disconnected --Ensure--> Connecting --success--> Connected
//	Failed       --Ensure--> Connecting --error----> Failed
//	Connected    --Disconnect--> Disconnected
//
// A client that was never connected and one that was torn down after a
// successful connect are both represented as Disconnected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the lowercase name of the state, suitable for health
// responses and log fields.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the connection string and the bounded timeouts applied to
// every connection attempt. Zero values are replaced with the defaults
// below, which match common serverless-friendly settings.
type Config struct {
	URI string

	// ConnectTimeout bounds the TCP/TLS handshake. Default: 10s.
	ConnectTimeout time.Duration

	// ServerSelectionTimeout bounds how long the driver waits to find a
	// usable server. Default: 5s (fail fast so a request isn't held for
	// the driver's 30s default).
	ServerSelectionTimeout time.Duration

	// SocketTimeout bounds individual socket reads/writes. Default: 45s.
	SocketTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = 5 * time.Second
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = 45 * time.Second
	}
	return c
}

// DialFunc establishes a Mongo client. It exists so tests can substitute
// the real dial with a stub.
type DialFunc func(ctx context.Context, cfg Config) (*mongo.Client, error)

// Dial is the default DialFunc. It opens a client with the configured
// timeouts and pings the primary to make sure the connection is usable
// before returning.
func Dial(ctx context.Context, cfg Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// The client was created but is not usable; release its resources
		// so a retry starts clean.
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// NewHandle creates an unverified client handle from cfg. The driver does
// no I/O until the first operation, so the handle can be created at startup
// and shared with handlers before any connection exists.
func NewHandle(cfg Config) (*mongo.Client, error) {
	cfg = cfg.withDefaults()
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout)
	return mongo.Connect(context.Background(), opts)
}

// PingDial returns a DialFunc that verifies an existing handle instead of
// creating a new client. A ping failure leaves the handle open; the driver
// re-establishes server connections on its own once the server is back.
func PingDial(client *mongo.Client) DialFunc {
	return func(ctx context.Context, cfg Config) (*mongo.Client, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
		defer cancel()
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Manager owns a lazily-created, cached *mongo.Client shared by all
// request handlers. Ensure is safe to call concurrently: at most one
// connection attempt is in flight at any time, and every caller that
// arrives while an attempt is in flight observes that attempt's outcome
// instead of starting its own.
//
// The manager never retries internally. A failed attempt clears the
// cached client and leaves the manager in StateFailed, so the next
// Ensure call starts a fresh attempt.
type Manager struct {
	cfg  Config
	dial DialFunc
	log  *zap.Logger

	mu       sync.Mutex
	state    State
	client   *mongo.Client
	lastErr  error
	pending  chan struct{} // closed when the in-flight attempt resolves
	attempts int64
}

// NewManager creates a Manager for the given config. The manager performs
// no I/O until the first Ensure call.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:  cfg.withDefaults(),
		dial: Dial,
		log:  logger,
	}
}

// NewManagerWithDial is like NewManager but substitutes the dial function.
// Useful for custom connection setup and for tests that stub the network.
func NewManagerWithDial(cfg Config, dial DialFunc, logger *zap.Logger) *Manager {
	m := NewManager(cfg, logger)
	if dial != nil {
		m.dial = dial
	}
	return m
}

// Ensure returns the cached client, connecting first if necessary.
//
//   - Connected: returns the cached client immediately, no I/O.
//   - Connecting: blocks until the in-flight attempt resolves and returns
//     its outcome (the same *Error is handed to every waiter).
//   - Disconnected or Failed: performs a single connection attempt with
//     the configured timeouts.
//
// On failure the returned error is an *Error carrying the classified
// Kind. The ctx only bounds this caller's wait; an attempt that has
// started runs to its own success, failure, or timeout.
func (m *Manager) Ensure(ctx context.Context) (*mongo.Client, error) {
	for {
		m.mu.Lock()
		switch m.state {
		case StateConnected:
			client := m.client
			m.mu.Unlock()
			return client, nil

		case StateConnecting:
			pending := m.pending
			m.mu.Unlock()

			select {
			case <-pending:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			m.mu.Lock()
			client, err := m.client, m.lastErr
			m.mu.Unlock()
			if err != nil {
				return nil, err
			}
			if client != nil {
				return client, nil
			}
			// Another attempt cycled in between; re-evaluate.
			continue

		default: // StateDisconnected, StateFailed
			m.state = StateConnecting
			m.lastErr = nil
			m.pending = make(chan struct{})
			m.attempts++
			pending := m.pending
			m.mu.Unlock()

			m.log.Info("mongo connecting",
				zap.String("uri", redactURI(m.cfg.URI)),
				zap.Duration("connect_timeout", m.cfg.ConnectTimeout),
				zap.Duration("server_selection_timeout", m.cfg.ServerSelectionTimeout),
			)

			// The attempt is shared by every concurrent waiter, so it must
			// not die with the initiating request. Detach its cancellation;
			// the configured connect/server-selection timeouts still bound it.
			client, err := m.dial(context.WithoutCancel(ctx), m.cfg)

			m.mu.Lock()
			if err != nil {
				cerr := &Error{Kind: Classify(err), Err: err}
				m.state = StateFailed
				m.client = nil
				m.lastErr = cerr
				close(pending)
				m.pending = nil
				m.mu.Unlock()

				m.log.Error("mongo connect failed",
					zap.String("kind", cerr.Kind.String()),
					zap.Error(err),
				)
				return nil, cerr
			}

			m.state = StateConnected
			m.client = client
			m.lastErr = nil
			close(pending)
			m.pending = nil
			m.mu.Unlock()

			m.log.Info("mongo connected")
			return client, nil
		}
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a usable client is currently cached.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Client returns the cached client, or nil if not connected. Most callers
// should use Ensure instead; Client never triggers a connection attempt.
func (m *Manager) Client() *mongo.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// LastError returns the error from the most recent failed attempt, or nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Attempts returns the number of connection attempts made so far.
func (m *Manager) Attempts() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Disconnect tears down the cached client and returns the manager to
// StateDisconnected. Intended for process shutdown.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.lastErr = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	m.log.Info("mongo disconnected")
	return client.Disconnect(ctx)
}

// redactURI strips credentials from a connection string for logging.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	return u.String()
}
