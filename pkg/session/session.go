// Package session implements the Session component: the unit-of-work a
// caller uses to create, read, mutate and delete resources, tracking them
// in an identity-stable map so that two lookups of the same IRI within one
// session always return the same *resource.Resource, and flushing every
// pending change to the Store in one commit.
//
// This is distinct from pkg/store/sqlstore's SessionFactory, which mints
// database connections; pkg/session.Session is the object-graph unit of
// work described by the object-linked-data mapping model, with no
// knowledge of SQL.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/id"
	"github.com/oldman-go/oldman/pkg/model"
	"github.com/oldman-go/oldman/pkg/resource"
	"github.com/oldman-go/oldman/pkg/store"
)

// Registry is the narrow view of pkg/registry.Registry a Session needs:
// resolving a type set to models, and finding a model by name for New.
type Registry interface {
	resource.ModelProvider
	GetModelByName(name string) (*model.Model, *errors.Error)
}

// Session is the unit of work. It is not safe for concurrent use from
// multiple goroutines; per spec, a session serializes its own operations
// and only suspends at Store boundaries.
type Session struct {
	registry Registry
	backing  store.Store

	mu             sync.Mutex
	tracked        map[string]*resource.Resource
	toDelete       map[string]*resource.Resource
	inboundRefs    map[string]map[string]bool // target IRI -> set of "fromIri\x00attrName" referrers
	everReferenced map[string]bool            // target IRI -> has had at least one referrer
}

// New returns a Session bound to registry for schema lookups and backing
// for persistence.
func New(registry Registry, backing store.Store) *Session {
	return &Session{
		registry:       registry,
		backing:        backing,
		tracked:        map[string]*resource.Resource{},
		toDelete:       map[string]*resource.Resource{},
		inboundRefs:    map[string]map[string]bool{},
		everReferenced: map[string]bool{},
	}
}

// NewResource creates a tracked resource with a temporary Id, without
// persisting it. suggestedIri, when non-empty, is passed through to
// whatever generator eventually mints the resource's permanent IRI at
// commit time.
func (s *Session) NewResource(types []string, suggestedIri string) *resource.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	tid := id.NewTemporary(suggestedIri)
	res := resource.New(tid, s.registry, types, true)
	s.tracked[tid.Iri()] = res
	return res
}

// AdoptResource tracks a new resource under an already-known permanent
// IRI, for callers (such as the CRUD boundary) that mint identity from an
// external document rather than letting a generator assign one.
func (s *Session) AdoptResource(iri string, types []string) *resource.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := resource.New(id.NewPermanent(iri), s.registry, types, true)
	s.tracked[iri] = res
	return res
}

// Get returns the resource named by iri, preferring an already-tracked
// instance so that repeated lookups of the same IRI within one session
// always yield the same object. Returns (nil, nil) if no resource exists
// with that IRI.
func (s *Session) Get(ctx context.Context, iri string) (*resource.Resource, *errors.Error) {
	s.mu.Lock()
	if local, ok := s.tracked[iri]; ok {
		s.mu.Unlock()
		return local, nil
	}
	s.mu.Unlock()

	record, err := s.backing.Get(ctx, iri)
	if err != nil {
		return nil, errors.DataStoreError(err)
	}
	if record == nil {
		return nil, nil
	}
	return s.hydrate(record)
}

// Resolve implements resource.Resolver for object-attribute dereferencing.
func (s *Session) Resolve(ctx context.Context, iri string) (*resource.Resource, *errors.Error) {
	return s.Get(ctx, iri)
}

func (s *Session) hydrate(record *store.Record) (*resource.Resource, *errors.Error) {
	s.mu.Lock()
	if local, ok := s.tracked[record.IRI]; ok {
		s.mu.Unlock()
		return local, nil
	}
	s.mu.Unlock()

	res := resource.New(id.NewPermanent(record.IRI), s.registry, record.Types, false)
	if err := res.LoadProperties(record.Properties); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tracked[record.IRI] = res
	s.mu.Unlock()
	s.reindexReferences(res)
	return res, nil
}

// reindexReferences records every object-attribute value res currently
// holds in the inbound-reference map, so cascade delete can later tell
// whether some other resource still points at a candidate blank node.
func (s *Session) reindexReferences(res *resource.Resource) {
	for _, m := range res.Models() {
		for _, attr := range m.Attributes() {
			if !attr.IsObjectValued() {
				continue
			}
			value, err := res.GetLightly(attr.Name)
			if err != nil || value == nil {
				continue
			}
			for _, iri := range toIriList(value) {
				s.RegisterReference(res.Id().Iri(), attr.Name, iri)
			}
		}
	}
}

func toIriList(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// RegisterReference implements resource.ReferenceTracker.
func (s *Session) RegisterReference(fromIri, attrName, toIri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.inboundRefs[toIri]
	if !ok {
		refs = map[string]bool{}
		s.inboundRefs[toIri] = refs
	}
	refs[fromIri+"\x00"+attrName] = true
	s.everReferenced[toIri] = true
}

// ClearReferences implements resource.ReferenceTracker.
func (s *Session) ClearReferences(fromIri, attrName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fromIri + "\x00" + attrName
	for toIri, refs := range s.inboundRefs {
		delete(refs, key)
		if len(refs) == 0 {
			delete(s.inboundRefs, toIri)
		}
	}
}

// Filter returns every resource in backing matching types and filter,
// deduplicated against already-tracked instances by IRI.
func (s *Session) Filter(ctx context.Context, types []string, filter store.Filter) ([]*resource.Resource, *errors.Error) {
	records, err := s.backing.Query(ctx, types, filter)
	if err != nil {
		return nil, errors.DataStoreError(err)
	}
	out := make([]*resource.Resource, 0, len(records))
	for _, rec := range records {
		res, herr := s.hydrate(rec)
		if herr != nil {
			return nil, herr
		}
		out = append(out, res)
	}
	return out, nil
}

// First returns the first resource matching types and filter, or nil if
// none match.
func (s *Session) First(ctx context.Context, types []string, filter store.Filter) (*resource.Resource, *errors.Error) {
	filter.Limit = 1
	results, err := s.Filter(ctx, types, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// SparqlFilter runs a filter-language query directly against the backing
// store, bypassing the types restriction Filter applies. The reference
// store backs this with its own TSL-over-JSONB query language rather than
// literal SPARQL; see the store package for that adaptation.
func (s *Session) SparqlFilter(ctx context.Context, query string) ([]*resource.Resource, *errors.Error) {
	return s.Filter(ctx, nil, store.Filter{Query: query})
}

// Delete marks res to be removed from the backing store on the next
// commit. The resource remains tracked (so repeated Get calls within this
// session still see it) until commit actually removes it.
func (s *Session) Delete(res *resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toDelete[res.Id().Iri()] = res
}

// Commit flushes every pending change: it validates every dirty resource
// before writing any of them, mints permanent IRIs for resources still
// carrying a temporary Id (resolving reference cycles in the same pass,
// since every resource receives its permanent IRI before any Save call),
// cascades deletion to blank nodes left with no remaining referrer, and
// finally persists the result. isEndUser is not consulted here: read-only
// attributes are gated by Resource.Set when values are set, not at commit.
func (s *Session) Commit(ctx context.Context, isEndUser bool) *errors.Error {
	s.mu.Lock()
	dirty := make([]*resource.Resource, 0, len(s.tracked))
	for _, res := range s.tracked {
		if _, deleting := s.toDelete[res.Id().Iri()]; deleting {
			continue
		}
		if res.IsDirty() {
			dirty = append(dirty, res)
		}
	}
	s.mu.Unlock()

	for _, res := range dirty {
		if err := res.IsValid(); err != nil {
			return err
		}
	}

	if err := s.allocatePermanentIds(ctx, dirty); err != nil {
		return err
	}

	if err := s.cascadeDeletes(); err != nil {
		return err
	}

	if err := s.persist(ctx, dirty); err != nil {
		return err
	}

	return s.flushDeletes(ctx)
}

// allocatePermanentIds mints a permanent IRI for every dirty resource that
// still has a temporary one, and remaps every tracked resource's
// object-attribute references from the old temporary IRI to the new one.
// Minting every IRI before any Save call resolves cyclic references
// without needing a dependency-ordered write sequence.
func (s *Session) allocatePermanentIds(ctx context.Context, dirty []*resource.Resource) *errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range dirty {
		if res.Id().IsPermanent() {
			continue
		}
		models := res.Models()
		if len(models) == 0 || models[0].Generator == nil {
			return errors.InternalError("resource %s has no IRI generator to mint a permanent id", res.Id().Iri())
		}
		oldIri := res.Id().Iri()
		newIri, err := models[0].Generator.Generate(ctx, res.Id().SuggestedIri())
		if err != nil {
			return err
		}
		if err := res.ReceiveId(newIri); err != nil {
			return err
		}

		delete(s.tracked, oldIri)
		s.tracked[newIri] = res
		for _, other := range s.tracked {
			other.RemapReference(oldIri, newIri)
		}
		if refs, ok := s.inboundRefs[oldIri]; ok {
			s.inboundRefs[newIri] = refs
			delete(s.inboundRefs, oldIri)
		}
		if s.everReferenced[oldIri] {
			s.everReferenced[newIri] = true
			delete(s.everReferenced, oldIri)
		}
		oldKeyPrefix := oldIri + "\x00"
		for _, refs := range s.inboundRefs {
			for key := range refs {
				if strings.HasPrefix(key, oldKeyPrefix) {
					delete(refs, key)
					refs[newIri+key[len(oldIri):]] = true
				}
			}
		}
	}
	return nil
}

// cascadeDeletes extends toDelete with every blank-node resource that has
// previously had a referrer and has now lost its last one, repeating until
// no new candidate is found. A blank node that was never referenced by
// another resource's attribute (e.g. one created directly through
// NewResource, not reached by dereferencing another resource's attribute)
// is never a cascade-delete candidate on that basis alone.
func (s *Session) cascadeDeletes() *errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := true
	for changed {
		changed = false
		for iri, res := range s.tracked {
			if _, already := s.toDelete[iri]; already {
				continue
			}
			if !res.IsBlankNode() || !s.everReferenced[iri] {
				continue
			}
			if s.hasActiveReferrer(iri) {
				continue
			}
			s.toDelete[iri] = res
			changed = true
		}
	}
	return nil
}

// hasActiveReferrer reports whether iri has a referrer that is not itself
// about to be deleted this commit. Caller must already hold s.mu.
func (s *Session) hasActiveReferrer(iri string) bool {
	refs, ok := s.inboundRefs[iri]
	if !ok {
		return false
	}
	for key := range refs {
		fromIri := key
		if idx := strings.IndexByte(key, 0); idx >= 0 {
			fromIri = key[:idx]
		}
		if _, deleting := s.toDelete[fromIri]; !deleting {
			return true
		}
	}
	return false
}

func (s *Session) persist(ctx context.Context, dirty []*resource.Resource) *errors.Error {
	s.mu.Lock()
	records := make([]*store.Record, 0, len(dirty))
	for _, res := range dirty {
		if _, deleting := s.toDelete[res.Id().Iri()]; deleting {
			continue
		}
		props, err := res.ToRecordProperties()
		if err != nil {
			s.mu.Unlock()
			return err
		}
		records = append(records, &store.Record{IRI: res.Id().Iri(), Types: res.Types(), Properties: props})
	}
	s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}
	if err := s.backing.Save(ctx, records); err != nil {
		return errors.DataStoreError(err)
	}
	for _, res := range dirty {
		if _, deleting := s.toDelete[res.Id().Iri()]; !deleting {
			res.ReceiveStorageAck()
		}
	}
	return nil
}

func (s *Session) flushDeletes(ctx context.Context) *errors.Error {
	s.mu.Lock()
	iris := make([]string, 0, len(s.toDelete))
	for iri := range s.toDelete {
		iris = append(iris, iri)
	}
	s.mu.Unlock()

	if len(iris) == 0 {
		return nil
	}
	if err := s.backing.Delete(ctx, iris); err != nil {
		return errors.DataStoreError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iri := range iris {
		delete(s.tracked, iri)
		delete(s.toDelete, iri)
		delete(s.inboundRefs, iri)
	}
	return nil
}

// Close releases the backing store's resources. A Session itself holds no
// other closeable state.
func (s *Session) Close() error {
	return s.backing.Close()
}
