package model

import (
	"testing"

	"github.com/oldman-go/oldman/pkg/attribute"
	"github.com/oldman-go/oldman/pkg/property"
	"github.com/oldman-go/oldman/pkg/valueformat"
)

func nameAttribute() *attribute.Attribute {
	prop := property.New("http://xmlns.com/foaf/0.1/name")
	_ = prop.AddRange(valueformat.XSDString)
	return attribute.New("name", prop, valueformat.XSDString, "", attribute.ContainerNone, false)
}

func TestAddAttribute_RejectsReservedName(t *testing.T) {
	m := New("http://example.org/Person", "LocalPerson")
	prop := property.New("http://example.org/id")
	_ = prop.AddRange(valueformat.XSDString)
	attr := attribute.New("id", prop, valueformat.XSDString, "", attribute.ContainerNone, false)

	if err := m.AddAttribute(attr); err == nil {
		t.Fatal("expected an error adding a reserved attribute name")
	}
}

func TestAddAttribute_RejectsDuplicateName(t *testing.T) {
	m := New("http://example.org/Person", "LocalPerson")
	if err := m.AddAttribute(nameAttribute()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddAttribute(nameAttribute()); err == nil {
		t.Fatal("expected an error adding a duplicate attribute name")
	}
}

func TestAttributeByName(t *testing.T) {
	m := New("http://example.org/Person", "LocalPerson")
	_ = m.AddAttribute(nameAttribute())

	attr, ok := m.AttributeByName("name")
	if !ok || attr.Name != "name" {
		t.Fatalf("expected to find attribute 'name', got %v, %v", attr, ok)
	}
	if _, ok := m.AttributeByName("missing"); ok {
		t.Fatal("did not expect to find attribute 'missing'")
	}
}

func TestSatisfies(t *testing.T) {
	m := New("http://example.org/LocalPerson", "LocalPerson")
	m.Ancestry = []string{"http://xmlns.com/foaf/0.1/Person", "http://xmlns.com/foaf/0.1/Agent"}

	if !m.Satisfies("http://example.org/LocalPerson") {
		t.Fatal("expected a model to satisfy its own class")
	}
	if !m.Satisfies("http://xmlns.com/foaf/0.1/Person") {
		t.Fatal("expected a model to satisfy an ancestor class")
	}
	if m.Satisfies("http://example.org/Unrelated") {
		t.Fatal("did not expect a model to satisfy an unrelated class")
	}
}

func TestIsDefault(t *testing.T) {
	def := New("", DefaultModelName)
	if !def.IsDefault() {
		t.Fatal("expected a model with no class IRI to be the default model")
	}
	named := New("http://example.org/Person", "LocalPerson")
	if named.IsDefault() {
		t.Fatal("did not expect a model with a class IRI to be the default model")
	}
}
