// internal/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/config"
	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/mailer"
	"github.com/campushire/campushire/internal/metrics"
	"github.com/campushire/campushire/internal/storage"
)

// ConnectDB builds the database and backend dependencies.
//
// The Mongo client handle is created up front without any I/O and shared
// between the connection manager and the feature handlers. In the default
// (eager) mode the connection is verified here and a failure aborts
// startup. With lazy_db_connect=true no verification happens; the RequireDB
// middleware ensures the connection for each request and answers 503 when
// it cannot, leaving the process running.
func ConnectDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*DBDeps, error) {
	mcfg := mongodb.Config{
		URI:                    cfg.Mongo.URI,
		ConnectTimeout:         cfg.Mongo.ConnectTimeout,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
		SocketTimeout:          cfg.Mongo.SocketTimeout,
	}

	handle, err := mongodb.NewHandle(mcfg)
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	mgr := mongodb.NewManagerWithDial(mcfg, mongodb.PingDial(handle), logger)

	if cfg.Mongo.LazyConnect {
		logger.Info("lazy db connect enabled; skipping startup connection")
	} else {
		if _, err := mgr.Ensure(ctx); err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		metrics.SetDBConnected(true)
		logger.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
	}

	store, err := storage.NewLocal(storage.LocalConfig{BasePath: cfg.UploadDir})
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	mail := mailer.New(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.From,
	}, logger)
	if mail.Enabled() {
		logger.Info("mailer enabled", zap.String("smtp_host", cfg.SMTP.Host))
	}

	return &DBDeps{
		Manager:     mgr,
		Database:    handle.Database(cfg.Mongo.Database),
		FileStorage: store,
		Mailer:      mail,
	}, nil
}

// Shutdown releases the backend connections.
func (d *DBDeps) Shutdown(ctx context.Context, logger *zap.Logger) {
	if err := d.Manager.Disconnect(ctx); err != nil {
		logger.Warn("mongo disconnect failed", zap.Error(err))
	}
	// In lazy mode the shared handle may never have been registered with
	// the manager; release it directly. A second Disconnect on an already
	// closed client is harmless.
	if d.Database != nil {
		_ = d.Database.Client().Disconnect(ctx)
	}
	metrics.SetDBConnected(false)
}
