package sqlstore

import (
	"context"
	"os"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/oldman-go/oldman/pkg/logger"
	"github.com/oldman-go/oldman/pkg/store/sqlstore/migrations"
)

const resourcesTable = "resources"

// Migrate runs every pending migration in order.
func Migrate(g2 *gorm.DB) error {
	m := newGormigrate(g2)
	return m.Migrate()
}

// MigrateTo runs migrations up to and including a specific migration ID.
// Mainly useful for tests that want to exercise schema evolution.
func MigrateTo(sessionFactory SessionFactory, migrationID string) {
	ctx := context.Background()
	g2 := sessionFactory.New(ctx)
	m := newGormigrate(g2)

	if err := m.MigrateTo(migrationID); err != nil {
		logger.With(ctx, logger.FieldMigrationID, migrationID).WithError(err).Error("could not migrate")
		os.Exit(1)
	}
}

func newGormigrate(g2 *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(g2, gormigrate.DefaultOptions, migrations.MigrationList)
}
