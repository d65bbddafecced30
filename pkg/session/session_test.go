package session

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
	foafKnowsIri   = "http://xmlns.com/foaf/0.1/knows"
	xsdString      = "http://www.w3.org/2001/XMLSchema#string"
)

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	g := rdfio.NewGraph()
	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: "http://www.w3.org/ns/hydra/core#Class"})

	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: "http://www.w3.org/ns/hydra/core#supportedProperty", Object: "_:sp1"})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: "http://www.w3.org/ns/hydra/core#property", Object: foafNameIri})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: "http://www.w3.org/ns/hydra/core#required", Object: "true", ObjectIsLiteral: true})
	g.Add(rdfio.Triple{Subject: foafNameIri, Predicate: "http://www.w3.org/2000/01/rdf-schema#range", Object: xsdString})

	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: "http://www.w3.org/ns/hydra/core#supportedProperty", Object: "_:sp2"})
	g.Add(rdfio.Triple{Subject: "_:sp2", Predicate: "http://www.w3.org/ns/hydra/core#property", Object: foafKnowsIri})
	g.Add(rdfio.Triple{Subject: foafKnowsIri, Predicate: "http://www.w3.org/2000/01/rdf-schema#range", Object: localPersonIri})

	contexts := map[string]map[string]interface{}{
		localPersonIri: {
			"name":   foafNameIri,
			"knows":  map[string]interface{}{"@id": foafKnowsIri, "@type": "@id", "@container": "@set"},
		},
	}

	r, err := registry.Build(g, contexts, registry.Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error building registry: %v", err)
	}
	return r
}

// memoryStore is a minimal in-process store.Store, for exercising Session
// without a real database.
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
	rec, ok := m.records[iri]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *memoryStore) GetMany(ctx context.Context, iris []string) ([]*store.Record, error) {
	var out []*store.Record
	for _, iri := range iris {
		rec, err := m.Get(ctx, iri)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryStore) Query(_ context.Context, types []string, _ store.Filter) ([]*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Record
	for _, rec := range m.records {
		if len(types) == 0 {
			out = append(out, rec)
			continue
		}
		for _, want := range types {
			for _, have := range rec.Types {
				if want == have {
					out = append(out, rec)
				}
			}
		}
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

func TestNewResourceAndCommitAssignsPermanentId(t *testing.T) {
	reg := buildRegistry(t)
	backing := newMemoryStore()
	sess := New(reg, backing)

	res := sess.NewResource([]string{localPersonIri}, "")
	if err := res.Set("name", "Alice", true, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Id().IsPermanent() {
		t.Fatal("expected a temporary id before commit")
	}

	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error committing: %v", err)
	}
	if !res.Id().IsPermanent() {
		t.Fatal("expected a permanent id after commit")
	}
	if res.IsDirty() {
		t.Fatal("expected the resource to be clean after commit")
	}

	stored, err := backing.Get(context.Background(), res.Id().Iri())
	if err != nil || stored == nil {
		t.Fatalf("expected the resource to be persisted: %v, %v", stored, err)
	}
	if stored.Properties["name"] != "Alice" {
		t.Fatalf("unexpected stored name: %v", stored.Properties["name"])
	}
}

func TestCommit_RejectsMissingRequiredAttribute(t *testing.T) {
	reg := buildRegistry(t)
	backing := newMemoryStore()
	sess := New(reg, backing)

	sess.NewResource([]string{localPersonIri}, "")
	if err := sess.Commit(context.Background(), true); err == nil {
		t.Fatal("expected a required-property error since 'name' was never set")
	}
}

func TestGet_ReturnsSameTrackedInstance(t *testing.T) {
	reg := buildRegistry(t)
	backing := newMemoryStore()
	sess := New(reg, backing)

	res := sess.NewResource([]string{localPersonIri}, "")
	_ = res.Set("name", "Alice", true, sess)
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := sess.Get(context.Background(), res.Id().Iri())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != res {
		t.Fatal("expected Get to return the identity-stable tracked instance")
	}
}

func TestCommit_CascadeDeletesUnreferencedBlankNode(t *testing.T) {
	reg := buildRegistry(t)
	backing := newMemoryStore()
	sess := New(reg, backing)

	alice := sess.NewResource([]string{localPersonIri}, "")
	_ = alice.Set("name", "Alice", true, sess)

	bob := sess.NewResource([]string{localPersonIri}, "")
	_ = bob.Set("name", "Bob", true, sess)
	_ = alice.Set("knows", []interface{}{bob}, true, sess)

	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bobIri := bob.Id().Iri()
	if _, ok := backing.records[bobIri]; !ok {
		t.Fatal("expected bob to be persisted while alice still references him")
	}

	sess.Delete(alice)
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error on second commit: %v", err)
	}
	if _, ok := backing.records[bobIri]; ok {
		t.Fatal("expected bob to be cascade-deleted once alice, his only referrer, was removed")
	}
}

func TestDelete_RemovesFromBackingStore(t *testing.T) {
	reg := buildRegistry(t)
	backing := newMemoryStore()
	sess := New(reg, backing)

	res := sess.NewResource([]string{localPersonIri}, "")
	_ = res.Set("name", "Alice", true, sess)
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	iri := res.Id().Iri()
	sess.Delete(res)
	if err := sess.Commit(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := backing.Get(context.Background(), iri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != nil {
		t.Fatal("expected the resource to be gone after delete+commit")
	}
}
