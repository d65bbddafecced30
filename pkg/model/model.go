// Package model implements the Model component: a compiled view of one
// RDFS/Hydra class, combining its attribute table, its ancestry, and the
// IRI generator new instances of it mint an identity from.
package model

import (
	"github.com/oldman-go/oldman/pkg/attribute"
	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/idgen"
)

// DefaultModelName is the name every registry reserves for the catch-all
// model that has no class_iri and no declared attributes, used whenever a
// resource's types don't match any compiled class.
const DefaultModelName = "Thing"

// Model is a compiled class: a name and (for every class but the default
// one) a class IRI, the set of ancestor class IRIs reachable through
// rdfs:subClassOf, the attribute table keyed by attribute name, and the IRI
// generator new instances use.
type Model struct {
	ClassIri string
	Name     string
	Ancestry []string

	attributes map[string]*attribute.Attribute
	// byProperty indexes attributes by the property IRI they're built
	// from, since a single property can back more than one attribute
	// (disambiguated by language or by @reverse) and the registry needs to
	// find all of them when merging a class's supportedProperty triples.
	byProperty map[string][]*attribute.Attribute

	Generator idgen.Generator
	// Context is the raw JSON-LD context map this model was compiled
	// against, kept around so resource serialization can emit it verbatim.
	Context map[string]interface{}
}

// New builds an empty Model. Attributes are added afterward via
// AddAttribute as the registry compiles the class's supportedProperty
// triples and context terms.
func New(classIri, name string) *Model {
	return &Model{
		ClassIri:   classIri,
		Name:       name,
		attributes: map[string]*attribute.Attribute{},
		byProperty: map[string][]*attribute.Attribute{},
	}
}

// IsDefault reports whether this is the registry's catch-all model.
func (m *Model) IsDefault() bool {
	return m.ClassIri == ""
}

// AddAttribute registers attr under its name. A name collision within one
// model is a schema error: two context terms that both resolve to the same
// local attribute name can't coexist, since a resource can only keep one
// current/former value pair per name.
func (m *Model) AddAttribute(attr *attribute.Attribute) *errors.Error {
	if attribute.IsReserved(attr.Name) {
		return errors.ReservedAttributeNameError("attribute name %q is reserved, cannot use it on model %s", attr.Name, m.Name)
	}
	if _, exists := m.attributes[attr.Name]; exists {
		return errors.PropertyDefError("model %s already has an attribute named %q", m.Name, attr.Name)
	}
	m.attributes[attr.Name] = attr
	m.byProperty[attr.Property.Iri] = append(m.byProperty[attr.Property.Iri], attr)
	return nil
}

// AttributeByName looks up an attribute by its local (context-term) name.
func (m *Model) AttributeByName(name string) (*attribute.Attribute, bool) {
	attr, ok := m.attributes[name]
	return attr, ok
}

// AttributesByProperty returns every attribute built from propertyIri on
// this model (normally one, but language/reverse disambiguation can
// produce more).
func (m *Model) AttributesByProperty(propertyIri string) []*attribute.Attribute {
	return m.byProperty[propertyIri]
}

// Attributes returns every attribute this model declares, in no
// particular order.
func (m *Model) Attributes() []*attribute.Attribute {
	out := make([]*attribute.Attribute, 0, len(m.attributes))
	for _, a := range m.attributes {
		out = append(out, a)
	}
	return out
}

// Satisfies reports whether classIri is m's own class or appears in m's
// ancestry, i.e. whether an instance of m also satisfies classIri.
func (m *Model) Satisfies(classIri string) bool {
	if m.ClassIri == classIri {
		return true
	}
	for _, a := range m.Ancestry {
		if a == classIri {
			return true
		}
	}
	return false
}
