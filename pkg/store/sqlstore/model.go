package sqlstore

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// resourceRow is the GORM model backing the resources table. It mirrors
// store.Record but uses column types GORM and the postgres driver know how
// to marshal: a postgres TEXT[] for the declared classes, and a JSONB
// document for the attribute-name-to-value map.
type resourceRow struct {
	IRI         string         `gorm:"column:iri;primaryKey;size:2048"`
	CreatedTime time.Time      `gorm:"column:created_time;not null"`
	UpdatedTime time.Time      `gorm:"column:updated_time;not null"`
	Types       pq.StringArray `gorm:"column:types;type:text[];not null"`
	Properties  datatypes.JSON `gorm:"column:properties;type:jsonb;not null"`
	Version     int            `gorm:"column:version;not null;default:1"`
}

func (resourceRow) TableName() string {
	return resourcesTable
}

func (r *resourceRow) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	r.CreatedTime = now
	r.UpdatedTime = now
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}

func (r *resourceRow) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedTime = time.Now()
	return nil
}
