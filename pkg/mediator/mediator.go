// Package mediator implements the Mediator component: the facade that
// compiles a schema graph and JSON-LD contexts into a Registry, binds one
// or more Stores to the classes they serve, and hands out Sessions that
// route reads and writes to whichever bound store a resource's types
// point at.
package mediator

import (
	"context"
	"sort"

	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/model"
	"github.com/oldman-go/oldman/pkg/rdfio"
	"github.com/oldman-go/oldman/pkg/registry"
	"github.com/oldman-go/oldman/pkg/session"
	"github.com/oldman-go/oldman/pkg/store"
)

// Mediator owns the compiled Registry and the set of Stores bound to it,
// and is the entry point a caller uses to open Sessions.
type Mediator struct {
	registry *registry.Registry

	defaultStore store.Store
	byClassIri   map[string]store.Store
	all          []store.Store
}

// New compiles graph and contexts into a Registry via registry.Build and
// returns an unbound Mediator. Bind at least one store with BindStore or
// BindDefaultStore before creating a session.
func New(graph *rdfio.Graph, contexts map[string]map[string]interface{}, generators registry.Generators) (*Mediator, *errors.Error) {
	reg, err := registry.Build(graph, contexts, generators)
	if err != nil {
		return nil, err
	}
	return &Mediator{registry: reg, byClassIri: map[string]store.Store{}}, nil
}

// NewWithRegistry wraps an already-compiled Registry, for callers that
// build one outside the schema-graph pipeline (e.g. composing models
// programmatically in tests).
func NewWithRegistry(reg *registry.Registry) *Mediator {
	return &Mediator{registry: reg, byClassIri: map[string]store.Store{}}
}

// BindStore routes every resource whose type closure includes classIri to
// backing. A class left unbound falls back to the default store.
func (m *Mediator) BindStore(classIri string, backing store.Store) {
	m.byClassIri[classIri] = backing
	m.addDistinct(backing)
}

// BindDefaultStore sets the store used for any class (including the
// registry's untyped default model) with no more specific binding.
func (m *Mediator) BindDefaultStore(backing store.Store) {
	m.defaultStore = backing
	m.addDistinct(backing)
}

func (m *Mediator) addDistinct(backing store.Store) {
	for _, s := range m.all {
		if s == backing {
			return
		}
	}
	m.all = append(m.all, backing)
}

// GetModel looks up a compiled model by class IRI or short name.
func (m *Mediator) GetModel(classIriOrName string) (*model.Model, *errors.Error) {
	if mod, ok := m.registry.GetModel(classIriOrName); ok {
		return mod, nil
	}
	return m.registry.GetModelByName(classIriOrName)
}

// Registry exposes the compiled Registry a Mediator wraps, for callers
// building a Session by hand or inspecting the schema.
func (m *Mediator) Registry() *registry.Registry {
	return m.registry
}

// storeFor picks the bound store serving types, falling back to the
// default store when no type has a specific binding.
func (m *Mediator) storeFor(types []string) store.Store {
	for _, t := range types {
		if s, ok := m.byClassIri[t]; ok {
			return s
		}
	}
	return m.defaultStore
}

// CreateSession returns a new Session backed by every store this Mediator
// has bound, routing each resource's reads and writes by its declared
// types.
func (m *Mediator) CreateSession() (*session.Session, *errors.Error) {
	if m.defaultStore == nil && len(m.all) == 0 {
		return nil, errors.InternalError("mediator has no store bound; call BindStore or BindDefaultStore first")
	}
	return session.New(m.registry, m.fanout()), nil
}

func (m *Mediator) fanout() store.Store {
	return &fanoutStore{mediator: m}
}

// fanoutStore implements store.Store by routing each operation to the
// store(s) a resource's types select, aggregating results from every
// distinct bound store when the caller supplies no type hint (e.g. Get by
// bare IRI, or a typeless Query).
type fanoutStore struct {
	mediator *Mediator
}

func (f *fanoutStore) Get(ctx context.Context, iri string) (*store.Record, error) {
	var found *store.Record
	for _, s := range f.mediator.candidateStores(nil) {
		rec, err := s.Get(ctx, iri)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if found != nil {
			return nil, errors.InternalError("more than one bound store holds %s", iri)
		}
		found = rec
	}
	return found, nil
}

func (f *fanoutStore) GetMany(ctx context.Context, iris []string) ([]*store.Record, error) {
	seen := map[string]bool{}
	var out []*store.Record
	for _, s := range f.mediator.candidateStores(nil) {
		recs, err := s.GetMany(ctx, iris)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if seen[rec.IRI] {
				continue
			}
			seen[rec.IRI] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fanoutStore) Query(ctx context.Context, types []string, filter store.Filter) ([]*store.Record, error) {
	seen := map[string]bool{}
	var out []*store.Record
	for _, s := range f.mediator.candidateStores(types) {
		recs, err := s.Query(ctx, types, filter)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if seen[rec.IRI] {
				continue
			}
			seen[rec.IRI] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

// Save groups records by the store their own types select and issues one
// Save call per distinct target store.
func (f *fanoutStore) Save(ctx context.Context, records []*store.Record) error {
	groups := map[store.Store][]*store.Record{}
	var order []store.Store
	for _, rec := range records {
		target := f.mediator.storeFor(rec.Types)
		if target == nil {
			return errors.InternalError("no store bound for %s", rec.IRI)
		}
		if _, ok := groups[target]; !ok {
			order = append(order, target)
		}
		groups[target] = append(groups[target], rec)
	}
	for _, target := range order {
		if err := target.Save(ctx, groups[target]); err != nil {
			return err
		}
	}
	return nil
}

// Delete issues a Delete against every distinct bound store, since a bare
// IRI carries no type hint to narrow the search.
func (f *fanoutStore) Delete(ctx context.Context, iris []string) error {
	for _, s := range f.mediator.candidateStores(nil) {
		if err := s.Delete(ctx, iris); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutStore) Close() error {
	var firstErr error
	for _, s := range f.mediator.all {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// candidateStores returns the distinct stores Get/Query/Delete should try:
// the one bound type selects, when any type is bound, otherwise every
// distinct store this Mediator knows about (plus the default), so a
// typeless lookup still finds a resource wherever it happens to live.
func (m *Mediator) candidateStores(types []string) []store.Store {
	selected := map[store.Store]bool{}
	var out []store.Store
	add := func(s store.Store) {
		if s == nil || selected[s] {
			return
		}
		selected[s] = true
		out = append(out, s)
	}

	for _, t := range types {
		if s, ok := m.byClassIri[t]; ok {
			add(s)
		}
	}
	if len(out) > 0 {
		return out
	}

	sortedClasses := make([]string, 0, len(m.byClassIri))
	for c := range m.byClassIri {
		sortedClasses = append(sortedClasses, c)
	}
	sort.Strings(sortedClasses)
	for _, c := range sortedClasses {
		add(m.byClassIri[c])
	}
	add(m.defaultStore)
	return out
}
