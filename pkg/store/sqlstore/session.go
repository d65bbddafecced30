// Package sqlstore is the reference Store implementation: it keeps every
// resource in a single PostgreSQL table, addressed by hash IRI, with types
// in a text array column and attribute values in a JSONB column. It is grounded on the
// same GORM connection-factory pattern the rest of the module's ambient
// database stack uses.
package sqlstore

import (
	"context"
	"database/sql"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const disable = "disable"

var once sync.Once

// LoggerReconfigurable allows runtime reconfiguration of the database logger.
type LoggerReconfigurable interface {
	ReconfigureLogger(level logger.LogLevel)
}

// SessionFactory abstracts over how a *gorm.DB is obtained: a pooled
// production connection, or a testcontainer-backed one for integration
// tests.
type SessionFactory interface {
	New(ctx context.Context) *gorm.DB
	DirectDB() *sql.DB
	CheckConnection() error
	Close() error
	ResetDB()
	NewListener(ctx context.Context, channel string, callback func(id string))
}
