// internal/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/mailer"
	"github.com/campushire/campushire/internal/storage"
)

// DBDeps holds database and backend dependencies for the service.
//
// It is created in ConnectDB and passed to the subsequent lifecycle
// steps: EnsureSchema, BuildHandler, and shutdown. Both Manager and
// Database are always set: the client handle is created without I/O,
// so Database is bound even in lazy connect mode. The Manager tracks
// whether the server has actually been reached.
type DBDeps struct {
	// Manager owns the Mongo connection lifecycle.
	Manager *mongodb.Manager

	// Database is the application database handle. In lazy mode it is
	// unverified until the Manager's first successful Ensure.
	Database *mongo.Database

	// FileStorage holds uploaded documents (resumes and similar).
	FileStorage storage.Store

	// Mailer sends transactional email. No-op unless SMTP is configured.
	Mailer *mailer.Mailer
}
