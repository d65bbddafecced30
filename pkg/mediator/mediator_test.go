package mediator

import (
	"context"
	"sync"
	"testing"

	"github.com/oldman-go/oldman/pkg/idgen"
	"github.com/oldman-go/oldman/pkg/rdfio"
	"github.com/oldman-go/oldman/pkg/registry"
	"github.com/oldman-go/oldman/pkg/store"
)

const (
	localPersonIri = "http://example.org/LocalPerson"
	foafNameIri    = "http://xmlns.com/foaf/0.1/name"
	xsdString      = "http://www.w3.org/2001/XMLSchema#string"
)

func buildGraphAndContexts() (*rdfio.Graph, map[string]map[string]interface{}) {
	g := rdfio.NewGraph()
	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: "http://www.w3.org/ns/hydra/core#Class"})
	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: "http://www.w3.org/ns/hydra/core#supportedProperty", Object: "_:sp1"})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: "http://www.w3.org/ns/hydra/core#property", Object: foafNameIri})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: "http://www.w3.org/ns/hydra/core#required", Object: "true", ObjectIsLiteral: true})
	g.Add(rdfio.Triple{Subject: foafNameIri, Predicate: "http://www.w3.org/2000/01/rdf-schema#range", Object: xsdString})

	contexts := map[string]map[string]interface{}{
		localPersonIri: {"name": foafNameIri},
	}
	return g, contexts
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*store.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*store.Record{}}
}

func (m *memoryStore) Get(_ context.Context, iri string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[iri], nil
}

func (m *memoryStore) GetMany(ctx context.Context, iris []string) ([]*store.Record, error) {
	var out []*store.Record
	for _, iri := range iris {
		if rec, err := m.Get(ctx, iri); err == nil && rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryStore) Query(_ context.Context, _ []string, _ store.Filter) ([]*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Record
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryStore) Save(_ context.Context, records []*store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.records[rec.IRI] = rec
	}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, iris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, iri := range iris {
		delete(m.records, iri)
	}
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestCreateSession_RequiresBoundStore(t *testing.T) {
	g, contexts := buildGraphAndContexts()
	m, err := New(g, contexts, registry.Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, serr := m.CreateSession(); serr == nil {
		t.Fatal("expected an error creating a session with no bound store")
	}
}

func TestMediator_BindAndCommitRoundTrip(t *testing.T) {
	g, contexts := buildGraphAndContexts()
	m, err := New(g, contexts, registry.Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backing := newMemoryStore()
	m.BindDefaultStore(backing)

	sess, serr := m.CreateSession()
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}

	res := sess.NewResource([]string{localPersonIri}, "")
	if err := res.Set("name", "Alice", true, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error committing: %v", err)
	}

	if _, ok := backing.records[res.Id().Iri()]; !ok {
		t.Fatal("expected the default store to receive the committed resource")
	}
}

func TestMediator_GetModelByClassIriOrName(t *testing.T) {
	g, contexts := buildGraphAndContexts()
	m, err := New(g, contexts, registry.Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byIri, merr := m.GetModel(localPersonIri)
	if merr != nil {
		t.Fatalf("unexpected error: %v", merr)
	}
	byName, merr := m.GetModel("LocalPerson")
	if merr != nil {
		t.Fatalf("unexpected error: %v", merr)
	}
	if byIri != byName {
		t.Fatal("expected the class IRI and short-name lookups to resolve to the same model")
	}
}

func TestMediator_RoutesBoundClassToItsStore(t *testing.T) {
	g, contexts := buildGraphAndContexts()
	m, err := New(g, contexts, registry.Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	personStore := newMemoryStore()
	otherStore := newMemoryStore()
	m.BindStore(localPersonIri, personStore)
	m.BindDefaultStore(otherStore)

	sess, serr := m.CreateSession()
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	res := sess.NewResource([]string{localPersonIri}, "")
	_ = res.Set("name", "Alice", true, sess)
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := personStore.records[res.Id().Iri()]; !ok {
		t.Fatal("expected the class-bound store to receive the resource")
	}
	if _, ok := otherStore.records[res.Id().Iri()]; ok {
		t.Fatal("expected the default store to NOT receive a resource bound to a more specific store")
	}
}
