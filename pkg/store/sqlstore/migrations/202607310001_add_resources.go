package migrations

// Migrations should NEVER use types from other packages. Types can change
// and then migrations run on a _new_ database will fail or behave
// unexpectedly. Instead of importing types, always re-create the type in
// the migration.

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addResources() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202607310001",
		Migrate: func(tx *gorm.DB) error {
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS resources (
					iri VARCHAR(2048) PRIMARY KEY,
					created_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),

					-- rdf:type class IRIs this resource carries (its full type closure)
					types TEXT[] NOT NULL DEFAULT '{}',

					-- attribute local name -> literal or IRI value(s), the way a
					-- session diffs a resource before handing it to the store
					properties JSONB NOT NULL DEFAULT '{}'::jsonb,

					-- row version; the store writes 1 on every save and
					-- neither increments nor compares it
					version INTEGER NOT NULL DEFAULT 1
				);
			`
			if err := tx.Exec(createTableSQL).Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_types ON resources USING GIN(types);").Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_properties ON resources USING GIN(properties);").Error; err != nil {
				return err
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP INDEX IF EXISTS idx_resources_properties;").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP INDEX IF EXISTS idx_resources_types;").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS resources;").Error
		},
	}
}
