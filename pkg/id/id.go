// Package id implements the Identifier component: resource identity as
// either a temporary, session-local placeholder or a permanent IRI, plus
// blank-node classification per the genid skolemization convention.
package id

import (
	"strings"

	"github.com/google/uuid"

	"github.com/oldman-go/oldman/pkg/errors"
)

// genidMarker is the well-known path segment that marks a skolemized blank
// node IRI, e.g. "http://localhost/.well-known/genid/<uuid>".
const genidMarker = "/.well-known/genid/"

// Id represents a resource's identity. A temporary Id exists only for the
// lifetime of a session and is replaced by a permanent one when the
// resource is first flushed; a permanent Id is a fully formed, store-unique
// IRI.
type Id struct {
	iri          string
	isPermanent  bool
	suggestedIri string
}

// NewTemporary creates a temporary Id. suggestedIri, when non-empty, is a
// hint the IRI generator may honor (e.g. a skolemized genid built from it)
// but is not itself usable as the resource's permanent identity.
func NewTemporary(suggestedIri string) *Id {
	return &Id{
		iri:          "_:b" + uuid.NewString(),
		isPermanent:  false,
		suggestedIri: suggestedIri,
	}
}

// NewPermanent wraps an already-resolved IRI as a permanent Id.
func NewPermanent(iri string) *Id {
	return &Id{iri: iri, isPermanent: true}
}

// Iri returns the identifier's current IRI. For a temporary Id this is an
// internal placeholder, not a usable RDF term.
func (i *Id) Iri() string {
	return i.iri
}

// SuggestedIri returns the hint supplied at temporary-Id creation, if any.
func (i *Id) SuggestedIri() string {
	return i.suggestedIri
}

// HashlessIri returns the Iri with any "#fragment" removed.
func (i *Id) HashlessIri() string {
	return HashlessIri(i.iri)
}

// HashlessIri strips the fragment from an arbitrary IRI.
func HashlessIri(iri string) string {
	if idx := strings.IndexByte(iri, '#'); idx >= 0 {
		return iri[:idx]
	}
	return iri
}

// IsPermanent reports whether this Id has been assigned a final, store-safe
// IRI.
func (i *Id) IsPermanent() bool {
	return i.isPermanent
}

// IsBlankNode reports whether iri is a skolemized blank node: rooted at
// localhost and carrying the well-known genid path.
func IsBlankNode(iri string) bool {
	return strings.HasPrefix(iri, "http://localhost/") && strings.Contains(iri, genidMarker) ||
		strings.HasPrefix(iri, "https://localhost/") && strings.Contains(iri, genidMarker)
}

// IsBlankNode reports whether this Id's IRI is a skolemized blank node.
func (i *Id) IsBlankNode() bool {
	return IsBlankNode(i.iri)
}

// Promote assigns a permanent IRI to a still-temporary Id. It refuses to
// promote an Id that is already permanent, and refuses an empty IRI.
func (i *Id) Promote(iri string) *errors.Error {
	if i.isPermanent {
		return errors.InternalError("identifier for %s is already permanent", i.iri)
	}
	if iri == "" {
		return errors.InternalError("cannot promote to an empty IRI")
	}
	i.iri = iri
	i.isPermanent = true
	return nil
}

// SameHashlessIri reports whether two IRIs share a hashless base, the
// invariant a resource's hash-IRI fragments must respect.
func SameHashlessIri(a, b string) bool {
	return HashlessIri(a) == HashlessIri(b)
}
