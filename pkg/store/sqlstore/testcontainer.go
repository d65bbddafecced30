package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oldman-go/oldman/pkg/config"
	"github.com/oldman-go/oldman/pkg/logger"
)

// Testcontainer is a SessionFactory backed by a throwaway PostgreSQL
// container, for integration tests that want to exercise real SQL rather
// than a mock.
type Testcontainer struct {
	config    *config.DatabaseConfig
	container *postgres.PostgresContainer
	g2        *gorm.DB
	sqlDB     *sql.DB
}

var _ SessionFactory = &Testcontainer{}

func redactPassword(connStr string) string {
	parsedURL, err := url.Parse(connStr)
	if err != nil {
		return "<connection string parse error>"
	}
	if parsedURL.User != nil {
		username := parsedURL.User.Username()
		if _, hasPassword := parsedURL.User.Password(); hasPassword {
			parsedURL.User = url.UserPassword(username, "<redacted>")
		}
	}
	return parsedURL.String()
}

// NewTestcontainerFactory creates a SessionFactory backed by a real
// PostgreSQL container.
func NewTestcontainerFactory(cfg *config.DatabaseConfig) *Testcontainer {
	conn := &Testcontainer{config: cfg}
	conn.Init(cfg)
	return conn
}

func (f *Testcontainer) Init(cfg *config.DatabaseConfig) {
	ctx := context.Background()

	logger.Info(ctx, "starting PostgreSQL testcontainer")

	container, err := postgres.Run(ctx,
		"postgres:14.2",
		postgres.WithDatabase(cfg.Name),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		logger.WithError(ctx, err).Error("failed to start PostgreSQL testcontainer")
		os.Exit(1)
	}
	f.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		logger.WithError(ctx, err).Error("failed to get connection string from testcontainer")
		os.Exit(1)
	}
	logger.With(ctx, logger.FieldConnectionString, redactPassword(connStr)).Info("PostgreSQL testcontainer started")

	f.sqlDB, err = sql.Open("postgres", connStr)
	if err != nil {
		logger.WithError(ctx, err).Error("failed to connect to testcontainer database")
		os.Exit(1)
	}
	f.sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)

	conf := &gorm.Config{
		PrepareStmt:            false,
		FullSaveAssociations:   false,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.Debug {
		conf.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	f.g2, err = gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn:                 f.sqlDB,
		PreferSimpleProtocol: true,
	}), conf)
	if err != nil {
		logger.WithError(ctx, err).Error("failed to connect GORM to testcontainer database")
		os.Exit(1)
	}

	logger.Info(ctx, "running database migrations on testcontainer")
	if err := Migrate(f.g2); err != nil {
		logger.WithError(ctx, err).Error("failed to run migrations on testcontainer")
		os.Exit(1)
	}
	logger.Info(ctx, "testcontainer database initialized")
}

func (f *Testcontainer) DirectDB() *sql.DB {
	return f.sqlDB
}

func (f *Testcontainer) New(ctx context.Context) *gorm.DB {
	conn := f.g2.Session(&gorm.Session{
		Context: ctx,
		Logger:  f.g2.Logger.LogMode(gormlogger.Silent),
	})
	if f.config.Debug {
		conn = conn.Debug()
	}
	return conn
}

func (f *Testcontainer) CheckConnection() error {
	_, err := f.sqlDB.Exec("SELECT 1")
	return err
}

func (f *Testcontainer) Close() error {
	ctx := context.Background()

	if f.sqlDB != nil {
		if err := f.sqlDB.Close(); err != nil {
			logger.WithError(ctx, err).Error("error closing SQL connection")
		}
	}
	if f.container != nil {
		logger.Info(ctx, "stopping PostgreSQL testcontainer")
		if err := f.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate testcontainer: %w", err)
		}
		logger.Info(ctx, "PostgreSQL testcontainer stopped")
	}
	return nil
}

// ResetDB truncates the resources table between test cases.
func (f *Testcontainer) ResetDB() {
	ctx := context.Background()
	g2 := f.New(ctx)

	if g2.Migrator().HasTable(resourcesTable) {
		if err := g2.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", resourcesTable)).Error; err != nil {
			logger.With(ctx, logger.FieldTable, resourcesTable).WithError(err).Error("error truncating table")
		}
	}
}

func (f *Testcontainer) NewListener(ctx context.Context, channel string, callback func(id string)) {
	connStr, err := f.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		logger.WithError(ctx, err).Error("failed to get connection string for listener")
		return
	}
	newListener(ctx, connStr, channel, callback)
}
