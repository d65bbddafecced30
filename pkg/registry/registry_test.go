package registry

import (
	"testing"

	"github.com/oldman-go/oldman/pkg/attribute"
	"github.com/oldman-go/oldman/pkg/idgen"
	"github.com/oldman-go/oldman/pkg/model"
	"github.com/oldman-go/oldman/pkg/rdfio"
)

const (
	localPersonIri = "http://example.org/LocalPerson"
	foafPersonIri  = "http://xmlns.com/foaf/0.1/Person"
	foafNameIri    = "http://xmlns.com/foaf/0.1/name"
	foafMboxIri    = "http://xmlns.com/foaf/0.1/mbox"
	xsdString      = "http://www.w3.org/2001/XMLSchema#string"
)

func buildLocalPersonGraph() *rdfio.Graph {
	g := rdfio.NewGraph()
	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: rdfType, Object: hydraClass})
	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: rdfsSubClassOf, Object: foafPersonIri})

	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: hydraSupportedProp, Object: "_:sp1"})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: hydraProperty, Object: foafNameIri})
	g.Add(rdfio.Triple{Subject: "_:sp1", Predicate: hydraRequired, Object: "true", ObjectIsLiteral: true})
	g.Add(rdfio.Triple{Subject: foafNameIri, Predicate: rdfsRange, Object: xsdString})

	g.Add(rdfio.Triple{Subject: localPersonIri, Predicate: hydraSupportedProp, Object: "_:sp2"})
	g.Add(rdfio.Triple{Subject: "_:sp2", Predicate: hydraProperty, Object: foafMboxIri})
	g.Add(rdfio.Triple{Subject: foafMboxIri, Predicate: rdfsRange, Object: xsdString})

	return g
}

func buildLocalPersonContexts() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		localPersonIri: {
			"name": foafNameIri,
			"mbox": map[string]interface{}{
				"@id":        foafMboxIri,
				"@container": "@set",
			},
		},
	}
}

func TestBuild_CompilesClassWithAttributesAndAncestry(t *testing.T) {
	g := buildLocalPersonGraph()
	contexts := buildLocalPersonContexts()

	r, err := Build(g, contexts, Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, ok := r.GetModel(localPersonIri)
	if !ok {
		t.Fatal("expected LocalPerson to be registered")
	}
	if len(m.Ancestry) != 1 || m.Ancestry[0] != foafPersonIri {
		t.Fatalf("unexpected ancestry: %v", m.Ancestry)
	}

	nameAttr, ok := m.AttributeByName("name")
	if !ok {
		t.Fatal("expected a 'name' attribute")
	}
	if !nameAttr.Property.IsRequired {
		t.Fatal("expected 'name' to be required")
	}

	mboxAttr, ok := m.AttributeByName("mbox")
	if !ok {
		t.Fatal("expected an 'mbox' attribute")
	}
	if mboxAttr.Container != attribute.ContainerSet {
		t.Fatalf("expected mbox to be a @set container, got %v", mboxAttr.Container)
	}
}

func TestRegister_RejectsDuplicateClassIriAndName(t *testing.T) {
	r := New()
	m1 := model.New(localPersonIri, "LocalPerson")
	if err := r.Register(m1); err != nil {
		t.Fatalf("unexpected error on first registration: %v", err)
	}

	dupIri := model.New(localPersonIri, "SomethingElse")
	if err := r.Register(dupIri); err == nil {
		t.Fatal("expected an error registering a duplicate class IRI")
	}

	dupName := model.New("http://example.org/Other", "LocalPerson")
	if err := r.Register(dupName); err == nil {
		t.Fatal("expected an error registering a duplicate model name")
	}
}

func TestFindModelsAndTypes_EmptyTypesReturnsDefault(t *testing.T) {
	r := New()
	models, types := r.FindModelsAndTypes(nil)
	if len(models) != 1 || !models[0].IsDefault() {
		t.Fatalf("expected the default model, got %v", models)
	}
	if types != nil {
		t.Fatalf("expected no types, got %v", types)
	}
}

func TestFindModelsAndTypes_LeafAndAncestry(t *testing.T) {
	g := buildLocalPersonGraph()
	contexts := buildLocalPersonContexts()
	r, err := Build(g, contexts, Generators{Default: idgen.NewBlankNodeGenerator()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	models, types := r.FindModelsAndTypes([]string{localPersonIri, foafPersonIri})
	if len(models) != 1 || models[0].ClassIri != localPersonIri {
		t.Fatalf("expected LocalPerson as the sole leaf model, got %v", models)
	}
	foundAncestor := false
	for _, ty := range types {
		if ty == foafPersonIri {
			foundAncestor = true
		}
	}
	if !foundAncestor {
		t.Fatalf("expected foaf:Person in the resolved type closure, got %v", types)
	}
}

func TestFindModelsAndTypes_UnknownTypeFallsBackToDefault(t *testing.T) {
	r := New()
	models, _ := r.FindModelsAndTypes([]string{"http://example.org/Unregistered"})
	if len(models) != 1 || !models[0].IsDefault() {
		t.Fatalf("expected the default model for an unregistered type, got %v", models)
	}
}
