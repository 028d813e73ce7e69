// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// shutdownGrace is how long in-flight requests get to finish once a
// shutdown signal arrives.
const shutdownGrace = 15 * time.Second

// WithShutdownSignals returns a context that is cancelled on SIGINT/SIGTERM.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
			// Context was cancelled externally (e.g., programmatic shutdown)
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// TLSOptions selects HTTPS with operator-provided certificates. Both
// fields empty means plain HTTP.
type TLSOptions struct {
	CertFile string
	KeyFile  string
}

func (o TLSOptions) enabled() bool { return o.CertFile != "" || o.KeyFile != "" }

// ListenAndServeWithContext serves handler on the given port until ctx is
// cancelled, then drains in-flight requests with a bounded grace period.
// With tlsOpts set the listener speaks TLS using the given cert and key.
func ListenAndServeWithContext(ctx context.Context, port int, handler http.Handler, tlsOpts TLSOptions, logger *zap.Logger) error {
	if handler == nil {
		return fmt.Errorf("ListenAndServeWithContext: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Route stdlib error logs into zap at Warn level.
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	} else {
		logger.Warn("failed to attach stdlib error logger", zap.Error(err))
	}

	addr := ":" + strconv.Itoa(port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	if tlsOpts.enabled() {
		if tlsOpts.CertFile == "" || tlsOpts.KeyFile == "" {
			_ = ln.Close()
			return fmt.Errorf("manual TLS selected but cert/key file not provided")
		}
		cert, err := tls.LoadX509KeyPair(tlsOpts.CertFile, tlsOpts.KeyFile)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		tlsCfg := &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		srv.TLSConfig = tlsCfg
		ln = tls.NewListener(ln, tlsCfg)
		logger.Info("HTTPS server (manual TLS) listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("cert_file", tlsOpts.CertFile))
	} else {
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", zap.Duration("grace", shutdownGrace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete; closing", zap.Error(err))
		_ = srv.Close()
	}
	return <-serveErr
}
