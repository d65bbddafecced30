// Package registry implements the Model Manager & Registry component: it
// compiles a Hydra/RDFS schema graph plus a set of JSON-LD contexts into
// Model objects, registers them by class IRI and name, and answers the
// find-models-and-types query a Resource needs at construction time.
package registry

import (
	"sort"
	"strings"

	"github.com/oldman-go/oldman/pkg/attribute"
	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/idgen"
	"github.com/oldman-go/oldman/pkg/model"
	"github.com/oldman-go/oldman/pkg/property"
	"github.com/oldman-go/oldman/pkg/rdfio"
)

// Hydra/RDFS vocabulary terms the schema compiler understands.
const (
	rdfType           = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	rdfsSubClassOf     = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	rdfsLabel          = "http://www.w3.org/2000/01/rdf-schema#label"
	rdfsDomain         = "http://www.w3.org/2000/01/rdf-schema#domain"
	rdfsRange          = "http://www.w3.org/2000/01/rdf-schema#range"
	hydraClass         = "http://www.w3.org/ns/hydra/core#Class"
	hydraSupportedProp = "http://www.w3.org/ns/hydra/core#supportedProperty"
	hydraProperty      = "http://www.w3.org/ns/hydra/core#property"
	hydraRequired      = "http://www.w3.org/ns/hydra/core#required"
	hydraReadonly      = "http://www.w3.org/ns/hydra/core#readonly"
	hydraWriteonly     = "http://www.w3.org/ns/hydra/core#writeonly"
)

// Registry holds every compiled Model, indexed the way the Mediator and
// Resource layers need: by class IRI (for graph-driven lookups), by short
// name (for application code asking for "LocalPerson"), and by descendant
// set (to answer which models are "leaves" for a given type set).
type Registry struct {
	byClassIri   map[string]*model.Model
	byName       map[string]*model.Model
	descendants  map[string]map[string]bool
	defaultModel *model.Model

	cache map[string]findResult
}

type findResult struct {
	models []*model.Model
	types  []string
}

// New returns an empty Registry carrying only the default model.
func New() *Registry {
	def := model.New("", model.DefaultModelName)
	r := &Registry{
		byClassIri:  map[string]*model.Model{},
		byName:      map[string]*model.Model{model.DefaultModelName: def},
		descendants: map[string]map[string]bool{},
		cache:       map[string]findResult{},
	}
	r.defaultModel = def
	return r
}

// Register adds m to the registry under its class IRI and name. Both keys
// must be unused; a schema that declares two classes under the same IRI,
// or two classes that compile to the same short name, is rejected rather
// than silently shadowing one of them.
func (r *Registry) Register(m *model.Model) *errors.Error {
	if m.IsDefault() {
		return errors.DuplicateModelError("cannot register another default model")
	}
	if existing, ok := r.byClassIri[m.ClassIri]; ok {
		return errors.DuplicateModelError("%s is already allocated to %s", m.ClassIri, existing.Name)
	}
	if existing, ok := r.byName[m.Name]; ok {
		return errors.DuplicateModelError("%s is already allocated to %s", m.Name, existing.ClassIri)
	}

	descendants := map[string]bool{}
	for _, other := range r.byClassIri {
		for _, anc := range other.Ancestry {
			if anc == m.ClassIri {
				descendants[other.ClassIri] = true
			}
		}
	}
	r.descendants[m.ClassIri] = descendants
	for _, anc := range m.Ancestry {
		if d, ok := r.descendants[anc]; ok {
			d[m.ClassIri] = true
		}
	}
	r.byClassIri[m.ClassIri] = m
	r.byName[m.Name] = m
	r.cache = map[string]findResult{}
	return nil
}

// GetModel looks up a model by class IRI.
func (r *Registry) GetModel(classIri string) (*model.Model, bool) {
	m, ok := r.byClassIri[classIri]
	return m, ok
}

// GetModelByName looks up a model by its short name, e.g. "LocalPerson".
// An unknown name (one no loaded context ever declared a class for) is the
// undeclared-class-name case.
func (r *Registry) GetModelByName(name string) (*model.Model, *errors.Error) {
	m, ok := r.byName[name]
	if !ok {
		return nil, errors.UndeclaredClassNameError("%q is not a registered model name", name)
	}
	return m, nil
}

// DefaultModel returns the registry's catch-all model.
func (r *Registry) DefaultModel() *model.Model {
	return r.defaultModel
}

// FindModelsAndTypes computes, for a resource carrying the given rdf:type
// set, the ordered list of "leaf" models (the most specific models whose
// class has no other declared model among types as a strict descendant)
// and the full closure of types that set implies (leaf classes, any types
// in the input with no compiled model, and every ancestor class of the
// leaf models). Results are cached per distinct type set, and the cache is
// seeded under both the input type set and the closure it produced, so a
// second call with either one is a cache hit.
func (r *Registry) FindModelsAndTypes(types []string) ([]*model.Model, []string) {
	if len(types) == 0 {
		return []*model.Model{r.defaultModel}, nil
	}

	typeSet := dedupe(types)
	key := cacheKey(typeSet)
	if cached, ok := r.cache[key]; ok {
		return append([]*model.Model(nil), cached.models...), append([]string(nil), cached.types...)
	}

	leafModels := r.findLeafModels(typeSet)
	leafIris := make(map[string]bool, len(leafModels))
	var leafIriList []string
	for _, m := range leafModels {
		leafIris[m.ClassIri] = true
		leafIriList = append(leafIriList, m.ClassIri)
	}

	ancestrySet := map[string]bool{}
	for _, m := range leafModels {
		for _, a := range m.Ancestry {
			if !leafIris[a] {
				ancestrySet[a] = true
			}
		}
	}

	independent := map[string]bool{}
	for _, t := range typeSet {
		if !leafIris[t] && !ancestrySet[t] {
			independent[t] = true
		}
	}

	resultTypes := append([]string{}, leafIriList...)
	resultTypes = append(resultTypes, sortedKeys(independent)...)
	resultTypes = append(resultTypes, sortedKeys(ancestrySet)...)

	result := findResult{models: leafModels, types: resultTypes}
	r.cache[key] = result
	r.cache[cacheKey(resultTypes)] = result

	return append([]*model.Model(nil), leafModels...), append([]string(nil), resultTypes...)
}

// findLeafModels returns the models among typeSet that have no other
// compiled-and-registered descendant also present in typeSet, falling back
// to the default model when typeSet matches no compiled class at all.
func (r *Registry) findLeafModels(typeSet []string) []*model.Model {
	var leaves []*model.Model
	inSet := map[string]bool{}
	for _, t := range typeSet {
		inSet[t] = true
	}

	for _, t := range typeSet {
		descendants, ok := r.descendants[t]
		if !ok {
			continue
		}
		hasDescendantInSet := false
		for d := range descendants {
			if inSet[d] {
				hasDescendantInSet = true
				break
			}
		}
		if !hasDescendantInSet {
			leaves = append(leaves, r.byClassIri[t])
		}
	}

	if len(leaves) == 0 {
		return []*model.Model{r.defaultModel}
	}
	return leaves
}

func dedupe(types []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cacheKey(types []string) string {
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// Generators maps a class IRI to the IRI generator new instances of it
// use; a Build caller supplies one entry per class that needs something
// other than the default generator.
type Generators struct {
	ByClassIri map[string]idgen.Generator
	Default    idgen.Generator
}

func (g Generators) forClass(classIri string) idgen.Generator {
	if gen, ok := g.ByClassIri[classIri]; ok {
		return gen
	}
	return g.Default
}

// Build compiles every hydra:Class in graph into a registered Model,
// merging each supportedProperty's Hydra flags and RDFS domain/range
// declarations into a shared Property, and reading the matching JSON-LD
// context (contexts, keyed by class IRI) to turn each property into one or
// more named Attributes. A class with no entry in contexts compiles with
// no attributes beyond whatever its ancestry contributes once merged by
// the resource layer.
func Build(graph *rdfio.Graph, contexts map[string]map[string]interface{}, generators Generators) (*Registry, *errors.Error) {
	r := New()

	classIris := graph.SubjectsOf(rdfType, hydraClass)
	properties := map[string]*property.Property{}

	for _, classIri := range classIris {
		name := localName(classIri)
		if labels := graph.ObjectsOf(classIri, rdfsLabel); len(labels) > 0 {
			name = labels[0]
		}

		m := model.New(classIri, name)
		m.Ancestry = ancestryOf(graph, classIri)
		m.Generator = generators.forClass(classIri)

		var ctx *rdfio.Context
		if raw, ok := contexts[classIri]; ok {
			m.Context = raw
			parsed, err := rdfio.ParseContextMap(raw)
			if err != nil {
				return nil, err
			}
			ctx = parsed
		}

		for _, spIri := range graph.ObjectsOf(classIri, hydraSupportedProp) {
			propIris := graph.ObjectsOf(spIri, hydraProperty)
			if len(propIris) == 0 {
				continue
			}
			propIri := propIris[0]

			prop, ok := properties[propIri]
			if !ok {
				prop = property.New(propIri)
				properties[propIri] = prop
			}

			for _, d := range graph.ObjectsOf(propIri, rdfsDomain) {
				if err := prop.AddDomain(d); err != nil {
					return nil, err
				}
			}
			for _, rg := range graph.ObjectsOf(propIri, rdfsRange) {
				if err := prop.AddRange(rg); err != nil {
					return nil, err
				}
			}
			if err := prop.SetFlags(
				hasTrueLiteral(graph, spIri, hydraRequired),
				hasTrueLiteral(graph, spIri, hydraReadonly),
				hasTrueLiteral(graph, spIri, hydraWriteonly),
				prop.Reversed,
			); err != nil {
				return nil, err
			}

			if ctx == nil {
				continue
			}
			if err := addAttributesForProperty(m, prop, ctx, propIri); err != nil {
				return nil, err
			}
		}

		if err := r.Register(m); err != nil {
			return nil, err
		}
	}

	for _, p := range properties {
		p.Freeze()
	}

	return r, nil
}

// addAttributesForProperty finds every context term that maps to propIri
// (forward or reversed) and adds the corresponding Attribute to m. A
// property referenced by more than one term (disambiguated by @language or
// by being the @reverse of a different term) produces more than one
// Attribute sharing the same Property.
func addAttributesForProperty(m *model.Model, prop *property.Property, ctx *rdfio.Context, propIri string) *errors.Error {
	found := false
	for _, term := range ctx.Terms {
		if term.Iri != propIri {
			continue
		}
		found = true

		container := attribute.ContainerNone
		switch term.Container {
		case "@set":
			container = attribute.ContainerSet
		case "@list":
			container = attribute.ContainerList
		case "@language", "@index":
			return errors.PropertyDefError("term %s uses the unsupported %s container", term.Name, term.Container)
		}

		jsonldType := term.Type
		if jsonldType == "" && term.Language != "" {
			jsonldType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
		}

		attr := attribute.New(term.Name, prop, jsonldType, term.Language, container, term.Reverse)
		if err := m.AddAttribute(attr); err != nil {
			return err
		}
	}
	if !found {
		// No term declares this property under any name in this class's
		// context; nothing reaches it as a named attribute, so nothing
		// more to do here. A property never exposed by any context term
		// is valid (it still participates in domain/range bookkeeping).
		return nil
	}
	return nil
}

func hasTrueLiteral(graph *rdfio.Graph, subject, predicate string) bool {
	for _, v := range graph.ObjectsOf(subject, predicate) {
		if v == "true" || v == "1" {
			return true
		}
	}
	return false
}

// ancestryOf walks rdfs:subClassOf transitively from classIri.
func ancestryOf(graph *rdfio.Graph, classIri string) []string {
	seen := map[string]bool{}
	var walk func(iri string)
	var out []string
	walk = func(iri string) {
		for _, parent := range graph.ObjectsOf(iri, rdfsSubClassOf) {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			out = append(out, parent)
			walk(parent)
		}
	}
	walk(classIri)
	return out
}

// localName returns the fragment or final path segment of an IRI, used as
// a model's name when no rdfs:label is declared.
func localName(iri string) string {
	if idx := strings.LastIndexAny(iri, "#/"); idx >= 0 && idx < len(iri)-1 {
		return iri[idx+1:]
	}
	return iri
}
