package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/yaacov/tree-search-language/pkg/tsl"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	oldmanerrors "github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Store is the reference store.Store implementation, backing the resources
// table through GORM and a postgres triple-store-in-a-JSONB-column layout.
type Store struct {
	sessionFactory SessionFactory
}

// New returns a Store backed by the given session factory.
func New(sessionFactory SessionFactory) *Store {
	return &Store{sessionFactory: sessionFactory}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.sessionFactory.Close()
}

func (s *Store) Get(ctx context.Context, iri string) (*store.Record, error) {
	g2 := s.sessionFactory.New(ctx)

	var row resourceRow
	if err := g2.Take(&row, "iri = ?", iri).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, oldmanerrors.DataStoreError(err)
	}

	return rowToRecord(&row)
}

func (s *Store) GetMany(ctx context.Context, iris []string) ([]*store.Record, error) {
	if len(iris) == 0 {
		return nil, nil
	}

	g2 := s.sessionFactory.New(ctx)

	var rows []resourceRow
	if err := g2.Find(&rows, "iri IN ?", iris).Error; err != nil {
		return nil, oldmanerrors.DataStoreError(err)
	}

	byIri := make(map[string]*resourceRow, len(rows))
	for i := range rows {
		byIri[rows[i].IRI] = &rows[i]
	}

	records := make([]*store.Record, 0, len(rows))
	for _, iri := range iris {
		row, ok := byIri[iri]
		if !ok {
			continue
		}
		record, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) Query(ctx context.Context, types []string, filter store.Filter) ([]*store.Record, error) {
	g2 := s.sessionFactory.New(ctx)

	whereSQL, args, err := buildWhereClause(types, filter.Query)
	if err != nil {
		return nil, err
	}

	query := g2.Model(&resourceRow{})
	if whereSQL != "" {
		query = query.Where(whereSQL, args...)
	}

	orderBy, orderErr := ArgsToOrderBy(filter.OrderBy)
	if orderErr != nil {
		return nil, orderErr
	}
	for _, o := range orderBy {
		query = query.Order(o)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []resourceRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, oldmanerrors.DataStoreError(err)
	}

	records := make([]*store.Record, 0, len(rows))
	for i := range rows {
		record, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// buildWhereClause combines the mandatory types filter with an optional
// filter-expression-DSL query against the properties column.
func buildWhereClause(types []string, filterQuery string) (string, []interface{}, *oldmanerrors.Error) {
	var parts []string
	var args []interface{}

	if len(types) > 0 {
		parts = append(parts, "types && ?")
		args = append(args, pq.Array(types))
	}

	if strings.TrimSpace(filterQuery) != "" {
		tree, err := tsl.ParseTSL(filterQuery)
		if err != nil {
			return "", nil, oldmanerrors.SPARQLParseError("could not parse filter query: %v", err)
		}

		tree, typeExprs, terr := ExtractTypesQueries(tree)
		if terr != nil {
			return "", nil, terr
		}

		tree, ferr := FieldNameWalk(tree)
		if ferr != nil {
			return "", nil, ferr
		}

		where, whereArgs, genErr := nodeToSQL(tree)
		if genErr != nil {
			return "", nil, genErr
		}

		parts = append(parts, where)
		args = append(args, whereArgs...)

		for _, expr := range typeExprs {
			exprSQL, exprArgs, sqlErr := expr.ToSql()
			if sqlErr != nil {
				return "", nil, oldmanerrors.SPARQLParseError("could not translate types filter: %v", sqlErr)
			}
			parts = append(parts, exprSQL)
			args = append(args, exprArgs...)
		}
	}

	if len(parts) == 0 {
		return "", nil, nil
	}

	return strings.Join(parts, " AND "), args, nil
}

func (s *Store) Save(ctx context.Context, records []*store.Record) error {
	if len(records) == 0 {
		return nil
	}

	g2 := s.sessionFactory.New(ctx)

	rows := make([]*resourceRow, 0, len(records))
	for _, record := range records {
		row, err := recordToRow(record)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := g2.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "iri"}},
		DoUpdates: clause.AssignmentColumns([]string{"types", "properties", "updated_time", "version"}),
	}).Omit(clause.Associations).Create(&rows).Error
	if err != nil {
		return oldmanerrors.DataStoreError(err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, iris []string) error {
	if len(iris) == 0 {
		return nil
	}

	g2 := s.sessionFactory.New(ctx)
	if err := g2.Delete(&resourceRow{}, "iri IN ?", iris).Error; err != nil {
		return oldmanerrors.DataStoreError(err)
	}
	return nil
}

func rowToRecord(row *resourceRow) (*store.Record, error) {
	properties := map[string]interface{}{}
	if len(row.Properties) > 0 {
		if err := json.Unmarshal(row.Properties, &properties); err != nil {
			return nil, oldmanerrors.DataStoreError(fmt.Errorf("decoding properties for %s: %w", row.IRI, err))
		}
	}

	return &store.Record{
		IRI:        row.IRI,
		Types:      []string(row.Types),
		Properties: properties,
	}, nil
}

func recordToRow(record *store.Record) (*resourceRow, error) {
	properties, err := json.Marshal(record.Properties)
	if err != nil {
		return nil, oldmanerrors.DataStoreError(fmt.Errorf("encoding properties for %s: %w", record.IRI, err))
	}

	types := record.Types
	if types == nil {
		types = []string{}
	}

	now := time.Now()
	return &resourceRow{
		IRI:         record.IRI,
		Types:       pq.StringArray(types),
		Properties:  datatypes.JSON(properties),
		UpdatedTime: now,
	}, nil
}
