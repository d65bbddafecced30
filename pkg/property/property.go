// Package property implements the Property component: the RDFS/Hydra-level
// description of a predicate shared by every attribute built from it,
// independent of the JSON-LD context terms that expose it as one or more
// named attributes.
package property

import (
	"strings"

	"github.com/oldman-go/oldman/pkg/errors"
)

// Type classifies what a Property's values are, derived from its declared
// ranges during schema compilation.
type Type int

const (
	// TypeUnknown means no range could be classified as either a known
	// datatype or a known class; attributes built from it fall back to
	// plain strings.
	TypeUnknown Type = iota
	// TypeDatatype means every declared range is an XSD (or RDF
	// langString) datatype IRI: its attributes hold literals.
	TypeDatatype
	// TypeObject means every declared range is a class IRI known to the
	// registry: its attributes hold references to other resources.
	TypeObject
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema#"

// isXSDRange reports whether a range IRI names an XSD datatype (or the RDF
// langString datatype, which behaves like one for classification purposes).
func isXSDRange(iri string) bool {
	return strings.HasPrefix(iri, xsdNamespace) ||
		iri == "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
}

// Property is the schema-level description of a predicate: its IRI, the
// ranges and domains RDFS declares for it, and the Hydra SupportedProperty
// flags (required/read-only/write-only) that apply uniformly to every
// attribute built from it. Properties are built once per compiled model
// and frozen once attribute generation consumes them, so two attributes
// sharing a property can't end up describing conflicting metadata.
type Property struct {
	Iri    string
	Type   Type
	Ranges []string
	Domains []string

	IsRequired bool
	ReadOnly   bool
	WriteOnly  bool
	Reversed   bool

	// CardinalityHint is an optional upper bound on how many values this
	// property may hold on a single resource; nil means unbounded.
	CardinalityHint *int

	frozen bool
}

// New builds an unfrozen Property for iri. Ranges/domains/flags are filled
// in afterward via the setters below, mirroring how a registry accumulates
// a Hydra SupportedProperty's pieces across several triples before the
// property is complete.
func New(iri string) *Property {
	return &Property{Iri: iri}
}

// AddRange merges rangeIri into the property's declared ranges, classifying
// Type as the merge proceeds. A property that mixes an XSD range with a
// class range is a schema error: oldman has no way to build a single
// attribute format that is sometimes a literal and sometimes a reference.
func (p *Property) AddRange(rangeIri string) *errors.Error {
	if p.frozen {
		return errors.AlreadyGeneratedAttributeError("property %s is frozen, cannot add range %s", p.Iri, rangeIri)
	}
	for _, existing := range p.Ranges {
		if existing == rangeIri {
			return nil
		}
	}

	newType := TypeObject
	if isXSDRange(rangeIri) {
		newType = TypeDatatype
	}

	if p.Type != TypeUnknown && p.Type != newType {
		return errors.AlreadyDeclaredDatatypeError(
			"property %s already declares a %v range, cannot add conflicting range %s", p.Iri, p.Type, rangeIri)
	}

	p.Ranges = append(p.Ranges, rangeIri)
	p.Type = newType
	return nil
}

// AddDomain merges domainIri into the property's declared domains. Domains
// don't participate in type classification; they only record which classes
// a property was declared on, for schema introspection.
func (p *Property) AddDomain(domainIri string) *errors.Error {
	if p.frozen {
		return errors.AlreadyGeneratedAttributeError("property %s is frozen, cannot add domain %s", p.Iri, domainIri)
	}
	for _, existing := range p.Domains {
		if existing == domainIri {
			return nil
		}
	}
	p.Domains = append(p.Domains, domainIri)
	return nil
}

// SetCardinality records an upper bound on the number of values this
// property may hold, or clears it when max is nil.
func (p *Property) SetCardinality(max *int) *errors.Error {
	if p.frozen {
		return errors.AlreadyGeneratedAttributeError("property %s is frozen, cannot set cardinality", p.Iri)
	}
	p.CardinalityHint = max
	return nil
}

// SetFlags records the Hydra SupportedProperty flags. read_only and
// write_only are mutually exclusive: a property can't be simultaneously
// unsettable by the client and unreadable by it, since nothing would ever
// reach either side of that attribute's value.
func (p *Property) SetFlags(required, readOnly, writeOnly, reversed bool) *errors.Error {
	if p.frozen {
		return errors.AlreadyGeneratedAttributeError("property %s is frozen, cannot set flags", p.Iri)
	}
	if readOnly && writeOnly {
		return errors.PropertyDefError("property %s cannot be both read-only and write-only", p.Iri)
	}
	p.IsRequired = required
	p.ReadOnly = readOnly
	p.WriteOnly = writeOnly
	p.Reversed = reversed
	return nil
}

// Freeze marks the property as consumed by attribute generation. Once
// frozen, no further range/domain/flag mutation is accepted: every
// attribute built from this property during this schema-compilation pass
// shares the exact same view of it.
func (p *Property) Freeze() {
	p.frozen = true
}

// IsFrozen reports whether attribute generation has already consumed this
// property.
func (p *Property) IsFrozen() bool {
	return p.frozen
}

func (t Type) String() string {
	switch t {
	case TypeDatatype:
		return "datatype"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}
