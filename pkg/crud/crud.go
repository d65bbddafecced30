// Package crud implements the external CRUD boundary: the REST-shaped
// get/update/delete operations a caller drives against a hashless base
// IRI, each opening its own Session against a Mediator and committing (or
// aborting) it as one unit.
//
// REST only ever addresses a base IRI, never a hash fragment: a single
// HTTP resource can back more than one oldman Resource sharing that base,
// connected by hash fragments or by blank nodes scoped to the same
// document. Every operation here works in terms of that whole document,
// not a single Resource.
package crud

import (
	"context"
	"strings"

	"github.com/oldman-go/oldman/pkg/errors"
	"github.com/oldman-go/oldman/pkg/id"
	"github.com/oldman-go/oldman/pkg/mediator"
	"github.com/oldman-go/oldman/pkg/rdfio"
	"github.com/oldman-go/oldman/pkg/resource"
)

const rdfTypeIri = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Controller is the CRUD boundary, bound to a single Mediator.
type Controller struct {
	med *mediator.Mediator
}

// New returns a Controller driving sessions from med.
func New(med *mediator.Mediator) *Controller {
	return &Controller{med: med}
}

// Get returns the document rooted at hashlessIri as a JSON-compatible map,
// with every same-document resource reachable from it inlined. contentType
// is accepted for interface symmetry with the REST layer this boundary
// serves; only the JSON/JSON-LD shape (a nested map) is produced here, the
// caller's transport layer is responsible for content negotiation beyond
// that.
func (c *Controller) Get(ctx context.Context, hashlessIri, contentType string) (map[string]interface{}, *errors.Error) {
	if err := rejectHashIri(hashlessIri); err != nil {
		return nil, err
	}

	sess, err := c.med.CreateSession()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	res, gerr := sess.Get(ctx, hashlessIri)
	if gerr != nil {
		return nil, gerr
	}
	if res == nil {
		return nil, errors.ObjectNotFoundError("no resource found with base IRI %s", hashlessIri)
	}
	return res.ToDict(ctx, sess, nil)
}

// Delete removes every resource in the same document as hashlessIri: the
// resource named by that exact IRI, plus every resource it reaches through
// an object-valued attribute that shares the same hashless base.
func (c *Controller) Delete(ctx context.Context, hashlessIri string) *errors.Error {
	if err := rejectHashIri(hashlessIri); err != nil {
		return err
	}

	sess, err := c.med.CreateSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	root, gerr := sess.Get(ctx, hashlessIri)
	if gerr != nil {
		return gerr
	}
	if root == nil {
		return errors.ObjectNotFoundError("no resource found with base IRI %s", hashlessIri)
	}

	for _, res := range documentOf(ctx, sess, root) {
		sess.Delete(res)
	}
	return sess.Commit(ctx, true)
}

// documentOf walks every object-valued attribute reachable from root,
// breadth-first, collecting every resource sharing root's hashless IRI.
func documentOf(ctx context.Context, resolver resource.Resolver, root *resource.Resource) []*resource.Resource {
	seen := map[string]bool{root.Id().Iri(): true}
	out := []*resource.Resource{root}
	queue := []*resource.Resource{root}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, m := range cur.Models() {
			for _, attr := range m.Attributes() {
				if !attr.IsObjectValued() {
					continue
				}
				value, err := cur.Get(ctx, attr.Name, resolver)
				if err != nil || value == nil {
					continue
				}
				for _, next := range resourcesIn(value) {
					if seen[next.Id().Iri()] || !cur.InSameDocument(next) {
						continue
					}
					seen[next.Id().Iri()] = true
					out = append(out, next)
					queue = append(queue, next)
				}
			}
		}
	}
	return out
}

func resourcesIn(value interface{}) []*resource.Resource {
	switch v := value.(type) {
	case *resource.Resource:
		return []*resource.Resource{v}
	case []interface{}:
		var out []*resource.Resource
		for _, elem := range v {
			out = append(out, resourcesIn(elem)...)
		}
		return out
	default:
		return nil
	}
}

// Update replaces the document rooted at hashlessIri with the resources
// and attribute values described by graph. Every non-blank subject in
// graph must share hashlessIri's hashless base, and none may be a
// skolemized IRI (clients mint identity through blank nodes, never by
// forging a store-assigned skolemized IRI directly). Resources the prior
// document held but graph no longer mentions are deleted, mirroring PUT
// semantics at the document level.
func (c *Controller) Update(ctx context.Context, hashlessIri string, graph *rdfio.Graph, allowNewType, allowTypeRemoval bool) *errors.Error {
	if err := rejectHashIri(hashlessIri); err != nil {
		return err
	}

	sess, err := c.med.CreateSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	root, gerr := sess.Get(ctx, hashlessIri)
	if gerr != nil {
		return gerr
	}

	var previous []*resource.Resource
	if root != nil {
		previous = documentOf(ctx, sess, root)
	}

	bnodeSubjects, regularSubjects := partitionSubjects(graph)

	renamed := map[string]string{}
	resources := map[string]*resource.Resource{}

	for _, bnode := range bnodeSubjects {
		types := graph.ObjectsOf(bnode, rdfTypeIri)
		res := sess.NewResource(types, "")
		renamed[bnode] = res.Id().Iri()
		resources[res.Id().Iri()] = res
	}
	renameSubjectsAndObjects(graph, renamed)

	for _, iri := range regularSubjects {
		if id.IsBlankNode(iri) {
			return errors.ForbiddenSkolemizedIRIError("%s is a skolemized IRI; clients must use a blank node instead", iri)
		}
		if !id.SameHashlessIri(iri, hashlessIri) {
			return errors.DifferentHashlessIRIError("%s does not share the base IRI %s", iri, hashlessIri)
		}

		res, gerr := sess.Get(ctx, iri)
		if gerr != nil {
			return gerr
		}
		if res == nil {
			res = sess.AdoptResource(iri, graph.ObjectsOf(iri, rdfTypeIri))
		}
		resources[iri] = res
	}

	for iri, res := range resources {
		initial := res.IsNew()
		if err := res.UpdateFromGraph(graph, initial, true, allowNewType, allowTypeRemoval, sess); err != nil {
			return err.WithResource(iri)
		}
	}

	keep := map[string]bool{}
	for iri := range resources {
		keep[iri] = true
	}
	for _, res := range previous {
		if !keep[res.Id().Iri()] {
			sess.Delete(res)
		}
	}

	return sess.Commit(ctx, true)
}

func partitionSubjects(graph *rdfio.Graph) (bnodes []string, regular []string) {
	seen := map[string]bool{}
	for _, t := range graph.Triples() {
		if seen[t.Subject] {
			continue
		}
		seen[t.Subject] = true
		if strings.HasPrefix(t.Subject, "_:") {
			bnodes = append(bnodes, t.Subject)
		} else {
			regular = append(regular, t.Subject)
		}
	}
	return bnodes, regular
}

// renameSubjectsAndObjects rewrites every triple in graph whose subject or
// object is a key of renamed to use its mapped value instead, so a
// newly-minted resource's temporary IRI is what every other triple in the
// document (including reverse references) sees.
func renameSubjectsAndObjects(graph *rdfio.Graph, renamed map[string]string) {
	if len(renamed) == 0 {
		return
	}
	triples := graph.Triples()
	rewritten := rdfio.NewGraph()
	for _, t := range triples {
		if mapped, ok := renamed[t.Subject]; ok {
			t.Subject = mapped
		}
		if !t.ObjectIsLiteral {
			if mapped, ok := renamed[t.Object]; ok {
				t.Object = mapped
			}
		}
		rewritten.Add(t)
	}
	graph.Replace(rewritten)
}

func rejectHashIri(iri string) *errors.Error {
	if strings.Contains(iri, "#") {
		return errors.HashIriError("%s is a hash IRI; the CRUD boundary only addresses base IRIs", iri)
	}
	return nil
}
