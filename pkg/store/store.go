// Package store defines the boundary between a session's dirty set and
// whatever triple store actually persists resources. A Store never sees
// model or attribute metadata: it reads and writes plain IRIs, type lists,
// and attribute-local-name-to-value maps, and leaves every schema decision
// to the session and registry layers above it.
package store

import "context"

// Record is the wire shape a Store exchanges with a session: one resource's
// types and property values, addressed by its hash IRI.
type Record struct {
	IRI        string
	Types      []string
	Properties map[string]interface{}
}

// Filter is a parsed search expression a Store translates into its own
// query language. Query is the filter-DSL string exactly as a caller wrote
// it (e.g. "age > 30 and name = 'Alice'"); a Store that can't support the
// full grammar should reject what it can't translate rather than silently
// drop clauses.
type Filter struct {
	Query   string
	OrderBy []string
	Limit   int
	Offset  int
}

// Store is the persistence boundary a Session and Mediator commit through.
// Implementations are expected to be safe for concurrent use.
type Store interface {
	// Get loads one resource by its hash IRI. It returns (nil, nil) when no
	// resource exists with that IRI.
	Get(ctx context.Context, iri string) (*Record, error)

	// GetMany loads every resource named, preserving the input order but
	// omitting IRIs that don't resolve to a stored resource.
	GetMany(ctx context.Context, iris []string) ([]*Record, error)

	// Query returns every resource matching filter, restricted to
	// candidates that declare one of the given types when types is
	// non-empty.
	Query(ctx context.Context, types []string, filter Filter) ([]*Record, error)

	// Save persists the given records as a single atomic unit: either all
	// of them are visible to subsequent reads, or none are. An empty
	// Properties map together with a nil Types clears the resource without
	// deleting its row, matching how a session diffs partial updates.
	Save(ctx context.Context, records []*Record) error

	// Delete permanently removes the resources named by iris. Deleting an
	// IRI that does not exist is not an error.
	Delete(ctx context.Context, iris []string) error

	// Close releases any resources (connections, listeners) the Store holds.
	Close() error
}
