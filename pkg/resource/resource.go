// Package resource implements the Resource component: the subject-centric
// in-memory view of a single RDF subject, holding both the attribute
// values a model declares and the per-attribute former/current/dirty state
// an Attribute's stateless Get/Set operate against.
package resource

import (
	"context"
	"sort"

	"github.com/oldman-go/oldman/pkg/attribute"
	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/id"
	"github.com/oldman-go/oldman/pkg/model"
	"github.com/oldman-go/oldman/pkg/rdfio"
)

// ModelProvider resolves a resource's leaf models and full type closure
// from a declared type set, the way a registry's FindModelsAndTypes does.
// Resource depends on this narrow interface rather than pkg/registry
// directly so that resource<->registry has no import cycle risk as either
// package grows.
type ModelProvider interface {
	FindModelsAndTypes(types []string) ([]*model.Model, []string)
}

// Resolver turns an object-attribute's stored IRI back into the Resource
// it names, normally a Session. Get calls Resolve lazily, only for
// attributes actually read.
type Resolver interface {
	Resolve(ctx context.Context, iri string) (*Resource, *errors.Error)
}

// ReferenceTracker lets a Resource tell its owning session when one of its
// object-attributes starts or stops pointing at another resource, so the
// session can keep its inbound-reference bookkeeping (used by cascade
// delete) coherent as attributes are mutated.
type ReferenceTracker interface {
	RegisterReference(fromIri, attrName, toIri string)
	ClearReferences(fromIri, attrName string)
}

// Resource is one resource's identity, type set and attribute values.
// Models are kept in priority order: the first model in the list wins when
// more than one declares an attribute of the same name.
type Resource struct {
	identifier  *id.Id
	models      []*model.Model
	modelMgr    ModelProvider
	types       []string
	formerTypes []string
	isNew       bool

	states map[string]*attribute.State
}

// New constructs a Resource. types is the full declared type set; models
// and the resolved type closure are computed from it via modelMgr. When
// isNew is false, formerTypes defaults to the same set as types (the
// resource is assumed freshly loaded from storage, not freshly created).
func New(identifier *id.Id, modelMgr ModelProvider, types []string, isNew bool) *Resource {
	models, closure := modelMgr.FindModelsAndTypes(types)
	r := &Resource{
		identifier: identifier,
		models:     models,
		modelMgr:   modelMgr,
		types:      closure,
		isNew:      isNew,
		states:     map[string]*attribute.State{},
	}
	if !isNew {
		r.formerTypes = append([]string(nil), closure...)
	}
	return r
}

func (r *Resource) Id() *id.Id       { return r.identifier }
func (r *Resource) Types() []string  { return append([]string(nil), r.types...) }
func (r *Resource) Models() []*model.Model {
	return append([]*model.Model(nil), r.models...)
}
func (r *Resource) IsNew() bool          { return r.isNew }
func (r *Resource) FormerTypes() []string { return append([]string(nil), r.formerTypes...) }

// IsBlankNode reports whether this resource's identity is a skolemized
// blank node rather than an ordinary dereferenceable IRI.
func (r *Resource) IsBlankNode() bool {
	return r.identifier.IsBlankNode()
}

// InSameDocument reports whether r and other share a hashless IRI.
func (r *Resource) InSameDocument(other *Resource) bool {
	return r.identifier.HashlessIri() == other.identifier.HashlessIri()
}

// attributeFor finds the attribute named name on the first model (in
// priority order) that declares it.
func (r *Resource) attributeFor(name string) (*attribute.Attribute, *errors.Error) {
	for _, m := range r.models {
		if attr, ok := m.AttributeByName(name); ok {
			return attr, nil
		}
	}
	return nil, errors.AttributeAccessError("%s has no attribute %s", r.identifier.Iri(), name)
}

func (r *Resource) stateFor(name string) *attribute.State {
	s, ok := r.states[name]
	if !ok {
		s = &attribute.State{}
		r.states[name] = s
	}
	return s
}

// Get returns an attribute's current value. For an object-valued
// attribute, IRIs are resolved lazily to *Resource (or a []*Resource for a
// container) through resolver; resolver may be nil when the caller only
// wants raw IRIs (e.g. during serialization, which already special-cases
// objects itself).
func (r *Resource) Get(ctx context.Context, name string, resolver Resolver) (interface{}, *errors.Error) {
	attr, err := r.attributeFor(name)
	if err != nil {
		return nil, err
	}
	raw, err := attr.Get(r.stateFor(name))
	if err != nil {
		return nil, err
	}
	if raw == nil || !attr.IsObjectValued() || resolver == nil {
		return raw, nil
	}

	switch v := raw.(type) {
	case string:
		return resolver.Resolve(ctx, v)
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, iri := range v {
			resolved, rerr := resolver.Resolve(ctx, iri.(string))
			if rerr != nil {
				return nil, rerr
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return raw, nil
	}
}

// GetLightly returns an object-valued attribute's raw IRI(s) rather than
// resolving them, or a literal attribute's value unchanged.
func (r *Resource) GetLightly(name string) (interface{}, *errors.Error) {
	attr, err := r.attributeFor(name)
	if err != nil {
		return nil, err
	}
	return attr.Get(r.stateFor(name))
}

// toIri extracts an IRI from a value that is already a string, a
// *Resource, or (for a container) a slice of either.
func toIri(value interface{}) (interface{}, *errors.Error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case *Resource:
		return v.identifier.Iri(), nil
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			iri, err := toIri(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, iri)
		}
		return out, nil
	default:
		return nil, errors.AttributeTypeError("expected a resource reference, got %T", value)
	}
}

// Set assigns an attribute's value. isEndUser gates read-only attributes.
// tracker (optional) is notified of the object-attribute's new target(s)
// so a session can keep cascade-delete bookkeeping coherent; pass nil when
// the caller has no session context (e.g. unit tests exercising a bare
// Resource).
func (r *Resource) Set(name string, value interface{}, isEndUser bool, tracker ReferenceTracker) *errors.Error {
	attr, err := r.attributeFor(name)
	if err != nil {
		return err
	}

	normalized := value
	if attr.IsObjectValued() {
		normalized, err = toIri(value)
		if err != nil {
			return err
		}
	}

	if err := attr.Set(r.stateFor(name), normalized, isEndUser); err != nil {
		return err
	}

	if tracker != nil && attr.IsObjectValued() {
		tracker.ClearReferences(r.identifier.Iri(), name)
		for _, iri := range iriList(normalized) {
			tracker.RegisterReference(r.identifier.Iri(), name, iri)
		}
	}
	return nil
}

func iriList(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasChanged reports whether name has been mutated since the last commit
// acknowledged it.
func (r *Resource) HasChanged(name string) bool {
	attr, err := r.attributeFor(name)
	if err != nil {
		return false
	}
	return attr.HasChanged(r.stateFor(name))
}

// IsDirty reports whether any attribute, or the type set itself, has
// changed since the last storage acknowledgement.
func (r *Resource) IsDirty() bool {
	if r.isNew {
		return true
	}
	if !sameStringSet(r.types, r.formerTypes) {
		return true
	}
	for name := range r.states {
		if r.HasChanged(name) {
			return true
		}
	}
	return false
}

// ReceiveStorageAck clears dirty/former bookkeeping across every attribute
// and the type set, after a session successfully persists this resource.
func (r *Resource) ReceiveStorageAck() {
	for _, m := range r.models {
		for _, attr := range m.Attributes() {
			attr.ReceiveStorageAck(r.stateFor(attr.Name))
		}
	}
	r.formerTypes = append([]string(nil), r.types...)
	r.isNew = false
}

// ReceiveId assigns the permanent IRI a store minted for a resource
// created with a temporary Id.
func (r *Resource) ReceiveId(iri string) *errors.Error {
	return r.identifier.Promote(iri)
}

// IsValid reports whether every required attribute across every model
// this resource carries currently has a value.
func (r *Resource) IsValid() *errors.Error {
	for _, m := range r.models {
		for _, attr := range m.Attributes() {
			if !attr.Property.IsRequired {
				continue
			}
			state := r.stateFor(attr.Name)
			if state.Current == nil {
				return errors.RequiredPropertyError("attribute %s is required on %s", attr.Name, r.identifier.Iri())
			}
		}
	}
	return nil
}

// allAttributes returns every attribute across every model this resource
// carries, in model-priority order.
func (r *Resource) allAttributes() []*attribute.Attribute {
	var out []*attribute.Attribute
	for _, m := range r.models {
		out = append(out, m.Attributes()...)
	}
	return out
}

// ToDict serializes the resource into a JSON-compatible map: "id" (when
// not a blank node), "types" (when non-empty), and one entry per
// non-write-only attribute that currently has a value. ignoredIris guards
// against cycles: an object-valued attribute pointing at a resource whose
// IRI is already in ignoredIris is emitted as a bare IRI string instead of
// being inlined, and any resource this call inlines adds its own IRI to
// the set for nested calls.
func (r *Resource) ToDict(ctx context.Context, resolver Resolver, ignoredIris map[string]bool) (map[string]interface{}, *errors.Error) {
	if ignoredIris == nil {
		ignoredIris = map[string]bool{}
	}
	ignoredIris[r.identifier.Iri()] = true

	dict := map[string]interface{}{}
	for _, attr := range r.allAttributes() {
		if attr.Property.WriteOnly {
			continue
		}
		value, err := r.Get(ctx, attr.Name, resolver)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}
		converted, err := convertValue(ctx, r, value, ignoredIris, resolver)
		if err != nil {
			return nil, err
		}
		if converted == nil {
			continue
		}
		dict[attr.Name] = converted
	}

	if !r.IsBlankNode() {
		dict["id"] = r.identifier.Iri()
	}
	if len(r.types) > 0 {
		dict["types"] = append([]string(nil), r.types...)
	}
	return dict, nil
}

func convertValue(ctx context.Context, owner *Resource, value interface{}, ignoredIris map[string]bool, resolver Resolver) (interface{}, *errors.Error) {
	switch v := value.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			converted, err := convertValue(ctx, owner, elem, ignoredIris, resolver)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case *Resource:
		if ignoredIris[v.identifier.Iri()] || (!v.IsBlankNode() && !owner.InSameDocument(v)) {
			return v.identifier.Iri(), nil
		}
		return v.ToDict(ctx, resolver, ignoredIris)
	default:
		return value, nil
	}
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Update replaces the resource's attribute values wholesale from a flat
// dict (object-valued attributes represented by IRI strings, not nested
// objects): every attribute absent from fullDict is cleared, matching the
// "exhaustive, so absence means removal" PUT semantics the CRUD boundary
// exposes. "id" must be present and match the resource's own IRI;
// "types", if present, replaces the type set subject to
// allowNewType/allowTypeRemoval.
func (r *Resource) Update(fullDict map[string]interface{}, isEndUser, allowNewType, allowTypeRemoval bool, tracker ReferenceTracker) *errors.Error {
	rawID, ok := fullDict["id"]
	if !ok {
		return errors.WrongResourceError("cannot update a resource without an id field")
	}
	if rawID != r.identifier.Iri() {
		return errors.WrongResourceError("wrong id %v (%s was expected)", rawID, r.identifier.Iri())
	}

	attrs := r.allAttributes()
	known := map[string]bool{"id": true, "types": true, "@context": true}
	for _, a := range attrs {
		known[a.Name] = true
	}
	for key := range fullDict {
		if !known[key] {
			return errors.AttributeAccessError("%s is not an attribute of %s", key, r.identifier.Iri())
		}
	}

	if rawTypes, ok := fullDict["types"]; ok {
		newTypes, terr := toStringSlice(rawTypes)
		if terr != nil {
			return terr
		}
		if err := r.checkAndUpdateTypes(newTypes, allowNewType, allowTypeRemoval); err != nil {
			return err
		}
	}

	for _, attr := range attrs {
		value := fullDict[attr.Name]
		if err := r.Set(attr.Name, value, isEndUser, tracker); err != nil {
			return err
		}
	}
	return nil
}

func toStringSlice(value interface{}) ([]string, *errors.Error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, errors.PropertyDefError("types must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.PropertyDefError("'types' is not a list")
	}
}

// checkAndUpdateTypes applies the type-change gate: adding a type requires
// allowNewType, removing one requires allowTypeRemoval, and removing a
// type that's only implicit (an ancestor of a model the resource already
// keeps through another declared type) never requires permission since
// the resource's declared set didn't actually name it.
func (r *Resource) checkAndUpdateTypes(newTypes []string, allowNewType, allowTypeRemoval bool) *errors.Error {
	current := map[string]bool{}
	for _, t := range r.types {
		current[t] = true
	}
	next := map[string]bool{}
	for _, t := range newTypes {
		next[t] = true
	}
	if sameStringSet(r.types, newTypes) {
		return nil
	}

	for t := range next {
		if !current[t] && !allowNewType {
			return errors.UnauthorizedTypeChangeError("adding type %s has not been allowed", t)
		}
	}

	implicit := map[string]bool{}
	declared := map[string]bool{}
	for _, m := range r.models {
		declared[m.ClassIri] = true
		for _, a := range m.Ancestry {
			implicit[a] = true
		}
	}
	for t := range current {
		if !next[t] && !implicit[t] && !allowTypeRemoval {
			return errors.UnauthorizedTypeChangeError("removing type %s has not been allowed", t)
		}
	}

	r.models, r.types = r.modelMgr.FindModelsAndTypes(newTypes)
	return nil
}

// UpdateFromGraph rebuilds every attribute's value from the triples in
// graph that name this resource's IRI as subject or (for a reversed
// attribute) object. initial marks a load from storage: no type-change
// gating applies, since the resource's types are simply what the store
// says they are.
func (r *Resource) UpdateFromGraph(graph *rdfio.Graph, initial, isEndUser, allowNewType, allowTypeRemoval bool, tracker ReferenceTracker) *errors.Error {
	iri := r.identifier.Iri()

	for _, attr := range r.allAttributes() {
		var value interface{}
		if attr.Reversed {
			subjects := graph.SubjectsOf(attr.Property.Iri, iri)
			value = literalsOrIris(subjects, attr)
		} else {
			triples := filterTriplesBySubjectPredicate(graph, iri, attr.Property.Iri)
			values := make([]interface{}, 0, len(triples))
			for _, t := range triples {
				if t.ObjectIsLiteral {
					v, err := attr.Format.FromLexical(t.Object)
					if err != nil {
						return err
					}
					values = append(values, v)
				} else {
					values = append(values, t.Object)
				}
			}
			value = containerize(values, attr.Container)
		}
		if value == nil {
			continue
		}
		if err := attr.Set(r.stateFor(attr.Name), value, isEndUser); err != nil {
			return err
		}
	}

	if !initial {
		types := graph.ObjectsOf(iri, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
		if err := r.checkAndUpdateTypes(types, allowNewType, allowTypeRemoval); err != nil {
			return err
		}
	}
	return nil
}

func filterTriplesBySubjectPredicate(graph *rdfio.Graph, subject, predicate string) []rdfio.Triple {
	var out []rdfio.Triple
	for _, t := range graph.Triples() {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t)
		}
	}
	return out
}

func literalsOrIris(iris []string, attr *attribute.Attribute) interface{} {
	values := make([]interface{}, 0, len(iris))
	for _, iri := range iris {
		values = append(values, iri)
	}
	return containerize(values, attr.Container)
}

func containerize(values []interface{}, container attribute.Container) interface{} {
	if len(values) == 0 {
		return nil
	}
	if container == attribute.ContainerNone {
		return values[0]
	}
	return values
}

// LoadProperties populates attribute state directly from a store record's
// property map (already keyed by attribute name, the shape a Store
// exchanges with a session). Object-valued attributes carry IRI strings
// exactly as stored, no resolution happens here. Loaded state is marked
// clean immediately, since reading from storage is not an edit.
func (r *Resource) LoadProperties(props map[string]interface{}) *errors.Error {
	for _, attr := range r.allAttributes() {
		raw, ok := props[attr.Name]
		if !ok || raw == nil {
			continue
		}

		value := raw
		if !attr.IsObjectValued() {
			converted, err := decodeLexicalValue(attr, raw)
			if err != nil {
				return err
			}
			value = converted
		}

		if err := attr.Set(r.stateFor(attr.Name), value, false); err != nil {
			return err
		}
	}
	r.ReceiveStorageAck()
	return nil
}

// decodeLexicalValue converts a literal attribute's JSON-decoded storage
// representation (a string, or []interface{} of strings for a container)
// through the attribute's ValueFormat, since JSON round-trips a value back
// as its lexical form, not its native Go shape.
func decodeLexicalValue(attr *attribute.Attribute, raw interface{}) (interface{}, *errors.Error) {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			lex, ok := elem.(string)
			if !ok {
				out = append(out, elem)
				continue
			}
			decoded, err := attr.Format.FromLexical(lex)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	case string:
		return attr.Format.FromLexical(v)
	default:
		return raw, nil
	}
}

// ToRecordProperties flattens every attribute with a current value into
// the plain map[string]interface{} shape a Store persists: literal
// attributes as their lexical form, object attributes as raw IRI
// string(s).
func (r *Resource) ToRecordProperties() (map[string]interface{}, *errors.Error) {
	out := map[string]interface{}{}
	for _, attr := range r.allAttributes() {
		state := r.stateFor(attr.Name)
		if state.Current == nil {
			continue
		}
		if attr.IsObjectValued() {
			out[attr.Name] = state.Current
			continue
		}
		encoded, err := encodeLexicalValue(attr, state.Current)
		if err != nil {
			return nil, err
		}
		out[attr.Name] = encoded
	}
	return out, nil
}

func encodeLexicalValue(attr *attribute.Attribute, value interface{}) (interface{}, *errors.Error) {
	if values, ok := value.([]interface{}); ok {
		out := make([]interface{}, 0, len(values))
		for _, v := range values {
			lex, err := attr.Format.ToLexical(v)
			if err != nil {
				return nil, err
			}
			out = append(out, lex)
		}
		return out, nil
	}
	return attr.Format.ToLexical(value)
}

// RemapReference rewrites every object-valued attribute currently pointing
// at oldIri so it points at newIri instead, used when a session promotes a
// resource's temporary Id to a permanent one and must keep every other
// tracked resource's references to it consistent.
func (r *Resource) RemapReference(oldIri, newIri string) {
	for _, attr := range r.allAttributes() {
		if !attr.IsObjectValued() {
			continue
		}
		state := r.stateFor(attr.Name)
		state.Current = remapValue(state.Current, oldIri, newIri)
	}
}

func remapValue(value interface{}, oldIri, newIri string) interface{} {
	switch v := value.(type) {
	case string:
		if v == oldIri {
			return newIri
		}
		return v
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = remapValue(elem, oldIri, newIri)
		}
		return out
	default:
		return value
	}
}
