package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oldman-go/oldman/pkg/config"
	"github.com/oldman-go/oldman/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Default is the production SessionFactory: a pooled connection to a real
// PostgreSQL server, instrumented with the Prometheus metrics plugin and
// connection-pool collector.
type Default struct {
	config *config.DatabaseConfig

	g2 *gorm.DB
	// db is the direct database connection, kept alongside g2 because GORM
	// v2 removed gorm.Close() and pq.Listener needs its own connection
	// string rather than a pooled handle.
	db *sql.DB
}

var _ SessionFactory = &Default{}

func NewProdFactory(cfg *config.DatabaseConfig) *Default {
	conn := &Default{}
	conn.Init(cfg)
	return conn
}

// Init initializes a singleton connection as needed and returns the same
// instance on subsequent calls.
func (f *Default) Init(cfg *config.DatabaseConfig) {
	once.Do(func() {
		var (
			dbx *sql.DB
			g2  *gorm.DB
			err error
		)

		dbx, err = sql.Open(cfg.Dialect, cfg.ConnectionString(cfg.SSLMode != disable))
		if err != nil {
			dbx, err = sql.Open(cfg.Dialect, cfg.ConnectionString(false))
			if err != nil {
				panic(fmt.Sprintf(
					"SQL failed to connect to %s database %s with connection string: %s\nError: %s",
					cfg.Dialect, cfg.Name, cfg.LogSafeConnectionString(cfg.SSLMode != disable), err.Error(),
				))
			}
		}
		dbx.SetMaxOpenConns(cfg.MaxOpenConnections)

		var gormLog gormlogger.Interface
		if cfg.Debug {
			gormLog = logger.NewGormLogger(gormlogger.Info, slowQueryThreshold)
		} else {
			gormLog = logger.NewGormLogger(gormlogger.Warn, slowQueryThreshold)
		}

		conf := &gorm.Config{
			PrepareStmt:          false,
			FullSaveAssociations: false,
			Logger:               gormLog,
		}
		g2, err = gorm.Open(postgres.New(postgres.Config{
			Conn:                 dbx,
			PreferSimpleProtocol: true,
		}), conf)
		if err != nil {
			panic(fmt.Sprintf(
				"GORM failed to connect to %s database %s with connection string: %s\nError: %s",
				cfg.Dialect, cfg.Name, cfg.LogSafeConnectionString(cfg.SSLMode != disable), err.Error(),
			))
		}

		if err = RegisterPlugin(g2); err != nil {
			logger.WithError(context.Background(), err).Warn("failed to register database metrics plugin")
		}
		if err = RegisterPoolCollector(dbx); err != nil {
			logger.WithError(context.Background(), err).Warn("failed to register pool metrics collector")
		}

		f.config = cfg
		f.g2 = g2
		f.db = dbx
	})
}

func (f *Default) DirectDB() *sql.DB {
	return f.db
}

func (f *Default) NewListener(ctx context.Context, channel string, callback func(id string)) {
	newListener(ctx, f.config.ConnectionString(true), channel, callback)
}

func (f *Default) New(ctx context.Context) *gorm.DB {
	return f.g2.Session(&gorm.Session{Context: ctx})
}

func (f *Default) CheckConnection() error {
	return f.g2.Exec("SELECT 1").Error
}

// Close closes the connection to the database. This must not be called
// until the process is exiting - it is meant to be called once, at the end
// of the application's lifetime.
func (f *Default) Close() error {
	return f.db.Close()
}

func (f *Default) ResetDB() {
	panic("ResetDB is not implemented for non-test environments")
}

// ReconfigureLogger changes the GORM logger level at runtime.
func (f *Default) ReconfigureLogger(level gormlogger.LogLevel) {
	if f.g2 == nil {
		return
	}
	f.g2.Logger = logger.NewGormLogger(level, slowQueryThreshold)
}
