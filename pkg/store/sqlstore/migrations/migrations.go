package migrations

import "github.com/go-gormigrate/gormigrate/v2"

// MigrationList is the ordered list of every migration applied to the
// resources table. Append new migrations to the end; never reorder or
// remove an entry that has shipped.
var MigrationList = []*gormigrate.Migration{
	addResources(),
}
