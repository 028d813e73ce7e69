// cmd/campushire/main.go
package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/bootstrap"
	"github.com/campushire/campushire/internal/config"
	"github.com/campushire/campushire/internal/logging"
	"github.com/campushire/campushire/internal/metrics"
	"github.com/campushire/campushire/internal/server"
)

// main executes the standard startup sequence:
//
//  1. Bootstrap logger
//  2. Load config
//  3. Build final logger based on config
//  4. Register default metrics
//  5. Connect DB/backends (eager or lazy per lazy_db_connect)
//  6. Ensure schema/indexes (skipped in lazy mode)
//  7. Wire shutdown signals to a context
//  8. Build the HTTP handler
//  9. Start the HTTP server and block until shutdown
func main() {
	ctx := context.Background()
	startedAt := time.Now()

	// 1) Bootstrap logger for early startup
	boot := logging.Bootstrap()
	defer boot.Sync()
	boot.Info("bootstrap logger initialized", zap.String("app", "campushire"))

	// 2) Load config
	cfg, err := config.Load(boot)
	if err != nil {
		boot.Error("config load failed", zap.Error(err))
		os.Exit(1)
	}
	boot.Info("config loaded",
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
	)

	// 3) Build final logger
	logger := logging.MustBuild(cfg.LogLevel, cfg.Env)
	defer logger.Sync()
	logger.Info("logger initialized", zap.String("app", "campushire"))
	logger.Debug("effective config", zap.String("config", cfg.Dump()))

	// 4) Register default metrics
	metrics.RegisterDefault(logger)

	// 5) Connect DB/backends
	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout+cfg.Mongo.ServerSelectionTimeout)
	deps, err := bootstrap.ConnectDB(connectCtx, cfg, logger)
	cancelConnect()
	if err != nil {
		logger.Error("DB connect failed", zap.Error(err))
		os.Exit(1)
	}

	// 6) Ensure schema/indexes. With lazy connect there is no connection
	// yet, so index creation waits for the first connected request path.
	if !cfg.Mongo.LazyConnect {
		schemaCtx, cancelSchema := context.WithTimeout(ctx, 30*time.Second)
		err := bootstrap.EnsureSchema(schemaCtx, deps, logger)
		cancelSchema()
		if err != nil {
			logger.Error("schema ensure failed", zap.Error(err))
			os.Exit(1)
		}
	}

	// 7) Wire shutdown signals → context
	runCtx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	// 8) Build HTTP handler
	handler := bootstrap.BuildHandler(cfg, deps, startedAt, logger)

	// 9) Start HTTP server (HTTPS when cert/key are configured)
	tlsOpts := server.TLSOptions{CertFile: cfg.TLSCertFile, KeyFile: cfg.TLSKeyFile}
	if err := server.ListenAndServeWithContext(runCtx, cfg.HTTPPort, handler, tlsOpts, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	deps.Shutdown(shutdownCtx, logger)
	cancelShutdown()
	logger.Info("server stopped")
}
