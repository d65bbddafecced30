// Package attribute implements the Attribute component: a named, typed
// view onto a Property, as exposed by one JSON-LD context term. Attribute
// values are defined as stateless, so that multiple resources can share
// the exact same Attribute definition; the per-resource current/former
// value pair an attribute operates on lives in the Resource itself (see
// pkg/resource), addressed here only through a State the caller
// supplies.
package attribute

import (
	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/property"
	"github.com/oldman-go/oldman/pkg/valueformat"
)

// Container describes the JSON-LD @container shape an attribute's values
// take: a bare scalar, an unordered @set, or an ordered @list (rdf:List
// collection on the wire).
type Container int

const (
	ContainerNone Container = iota
	ContainerSet
	ContainerList
)

func (c Container) String() string {
	switch c {
	case ContainerSet:
		return "@set"
	case ContainerList:
		return "@list"
	default:
		return ""
	}
}

// reservedNames are attribute names the Resource struct already uses for
// its own bookkeeping; a context term that collides with one of these is
// rejected at schema-compilation time rather than silently shadowing
// resource internals.
var reservedNames = map[string]bool{
	"id":          true,
	"types":       true,
	"_attributes": true,
	"objects":     true,
}

// IsReserved reports whether name can never be used as an attribute name.
func IsReserved(name string) bool {
	return reservedNames[name]
}

// Attribute is the compiled, schema-level description of one JSON-LD
// context term: which Property backs it, what language it's pinned to (for
// a langString attribute disambiguated by @language), what container shape
// its values take, and whether it reads the property's reverse direction.
type Attribute struct {
	Name      string
	Property  *property.Property
	Language  string
	JsonldType string
	Container Container
	Reversed  bool
	Format    valueformat.ValueFormat
}

// New builds an Attribute. jsonldType and language together select the
// ValueFormat this attribute validates and (de)serializes values with.
func New(name string, prop *property.Property, jsonldType, language string, container Container, reversed bool) *Attribute {
	return &Attribute{
		Name:       name,
		Property:   prop,
		Language:   language,
		JsonldType: jsonldType,
		Container:  container,
		Reversed:   reversed,
		Format:     valueformat.Select(jsonldType, language),
	}
}

// State is the per-resource value pair an Attribute's Get/Set operate on.
// A Resource holds one State per attribute it carries values for; Attribute
// itself never stores anything beyond its own immutable schema.
type State struct {
	Current   interface{}
	Former    interface{}
	HasFormer bool
	Dirty     bool
}

// Get returns the attribute's current value, or nil if unset. Reading a
// write-only attribute (one that exists on the wire only to be written,
// e.g. a password digest) is rejected.
func (a *Attribute) Get(state *State) (interface{}, *errors.Error) {
	if a.Property.WriteOnly {
		return nil, errors.AttributeAccessError("attribute %s is write-only", a.Name)
	}
	if state == nil {
		return nil, nil
	}
	return state.Current, nil
}

// Set validates value against the attribute's container shape and value
// format, snapshots the former value on first mutation since the last
// commit, and stores the new current value. isEndUser gates read_only
// attributes: an end-user-initiated edit (e.g. arriving through the CRUD
// boundary) may not touch a read_only attribute, while the session/store
// layers themselves still need to populate it when loading from storage.
func (a *Attribute) Set(state *State, value interface{}, isEndUser bool) *errors.Error {
	if isEndUser && a.Property.ReadOnly {
		return errors.ReadOnlyAttributeError("attribute %s is read-only", a.Name)
	}

	if err := a.Validate(value); err != nil {
		return err
	}

	if !state.HasFormer {
		state.Former = state.Current
		state.HasFormer = true
	}
	state.Current = value
	state.Dirty = true
	return nil
}

// Validate checks value against the attribute's container shape, applying
// Format.Check to every leaf value it holds. A nil value always passes:
// required-ness is enforced by the resource/model layer, not here.
func (a *Attribute) Validate(value interface{}) *errors.Error {
	if value == nil {
		return nil
	}

	switch a.Container {
	case ContainerNone:
		return a.Format.Check(value)
	case ContainerSet, ContainerList:
		values, ok := value.([]interface{})
		if !ok {
			return errors.AttributeTypeError("attribute %s expects a %s of values, got %T", a.Name, a.Container, value)
		}
		for _, v := range values {
			if err := a.Format.Check(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.InternalError("attribute %s has an unknown container kind", a.Name)
	}
}

// HasChanged reports whether state has been mutated since the last commit
// acknowledged it.
func (a *Attribute) HasChanged(state *State) bool {
	return state != nil && state.Dirty
}

// ReceiveStorageAck clears the dirty/former bookkeeping after a session
// successfully persists this attribute's current value.
func (a *Attribute) ReceiveStorageAck(state *State) {
	if state == nil {
		return
	}
	state.Dirty = false
	state.HasFormer = false
	state.Former = nil
}

// IsObjectValued reports whether this attribute's values are IRI
// references to other resources rather than literals.
func (a *Attribute) IsObjectValued() bool {
	return a.Property.Type == property.TypeObject
}
