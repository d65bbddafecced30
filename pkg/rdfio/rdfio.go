// Package rdfio is the RDF codec boundary: a minimal triple representation
// for the schema graph the registry compiles, an in-memory reference N-Quads
// codec, and a JSON-LD context reader good enough to pull the term/@id/
// @type/@language/@container/@reverse fields the registry needs out of a
// context document already decoded into a plain Go map.
package rdfio

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/oldman-go/oldman/pkg/errors"
)

// Triple is one RDF statement. Object is either another IRI/blank node or
// a literal's lexical form, distinguished by ObjectIsLiteral; Datatype and
// Language only apply to literal objects.
type Triple struct {
	Subject         string
	Predicate       string
	Object          string
	ObjectIsLiteral bool
	Datatype        string
	Language        string
}

// Graph is an in-memory, append-only triple set with the lookup helpers a
// schema compiler needs: walking supportedProperty/domain/range/subClassOf
// triples without caring how they were parsed in.
type Graph struct {
	triples []Triple
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Add appends t to the graph.
func (g *Graph) Add(t Triple) {
	g.triples = append(g.triples, t)
}

// Triples returns every triple in the graph, in insertion order.
func (g *Graph) Triples() []Triple {
	return g.triples
}

// Replace discards g's triples and adopts other's, used by callers that
// rewrite identities across a whole graph (e.g. promoting a blank node
// subject to a newly minted resource IRI) and need the change visible
// through every view already held of g.
func (g *Graph) Replace(other *Graph) {
	g.triples = other.triples
}

// ObjectsOf returns the object of every triple matching (subject, predicate).
func (g *Graph) ObjectsOf(subject, predicate string) []string {
	var out []string
	for _, t := range g.triples {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

// SubjectsOf returns the subject of every triple matching (predicate, object).
func (g *Graph) SubjectsOf(predicate, object string) []string {
	var out []string
	for _, t := range g.triples {
		if t.Predicate == predicate && t.Object == object {
			out = append(out, t.Subject)
		}
	}
	return out
}

// PredicateObjectsOf returns every (predicate, object) pair declared on
// subject, for walking a blank node like a hydra:SupportedProperty whose
// shape isn't known up front.
func (g *Graph) PredicateObjectsOf(subject string) []Triple {
	var out []Triple
	for _, t := range g.triples {
		if t.Subject == subject {
			out = append(out, t)
		}
	}
	return out
}

// Codec parses and serializes a Graph to some concrete RDF syntax.
type Codec interface {
	Parse(data []byte) (*Graph, error)
	Serialize(g *Graph) ([]byte, error)
}

// NQuads is a deliberately small reference codec for the subset of N-Quads
// oldman's own fixtures and tests need: one triple per line, terms
// separated by whitespace, a trailing '.', '#'-prefixed comment lines and
// blank lines skipped. It is not a general-purpose RDF parser; schema
// fixtures large enough to need one are expected to supply a Graph built
// directly through Graph.Add instead.
type NQuads struct{}

func (NQuads) Parse(data []byte) (*Graph, error) {
	g := NewGraph()
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(strings.TrimSpace(line), ".")
		line = strings.TrimSpace(line)

		terms, err := splitTerms(line)
		if err != nil {
			return nil, fmt.Errorf("rdfio: line %d: %w", lineNo, err)
		}
		if len(terms) < 3 {
			return nil, fmt.Errorf("rdfio: line %d: expected at least 3 terms, got %d", lineNo, len(terms))
		}

		subject, err := unwrapIriOrBlank(terms[0])
		if err != nil {
			return nil, fmt.Errorf("rdfio: line %d: subject: %w", lineNo, err)
		}
		predicate, err := unwrapIri(terms[1])
		if err != nil {
			return nil, fmt.Errorf("rdfio: line %d: predicate: %w", lineNo, err)
		}

		t := Triple{Subject: subject, Predicate: predicate}
		if err := parseObjectTerm(terms[2], &t); err != nil {
			return nil, fmt.Errorf("rdfio: line %d: object: %w", lineNo, err)
		}
		g.Add(t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (NQuads) Serialize(g *Graph) ([]byte, error) {
	var sb strings.Builder
	for _, t := range g.Triples() {
		sb.WriteString(wrapIriOrBlank(t.Subject))
		sb.WriteByte(' ')
		sb.WriteString("<" + t.Predicate + ">")
		sb.WriteByte(' ')
		if t.ObjectIsLiteral {
			sb.WriteString(strconv.Quote(t.Object))
			if t.Language != "" {
				sb.WriteString("@" + t.Language)
			} else if t.Datatype != "" {
				sb.WriteString("^^<" + t.Datatype + ">")
			}
		} else {
			sb.WriteString(wrapIriOrBlank(t.Object))
		}
		sb.WriteString(" .\n")
	}
	return []byte(sb.String()), nil
}

func wrapIriOrBlank(term string) string {
	if strings.HasPrefix(term, "_:") {
		return term
	}
	return "<" + term + ">"
}

func unwrapIriOrBlank(term string) (string, error) {
	if strings.HasPrefix(term, "_:") {
		return term, nil
	}
	return unwrapIri(term)
}

func unwrapIri(term string) (string, error) {
	if !strings.HasPrefix(term, "<") || !strings.HasSuffix(term, ">") {
		return "", fmt.Errorf("expected an IRI in angle brackets, got %q", term)
	}
	return term[1 : len(term)-1], nil
}

func parseObjectTerm(term string, t *Triple) error {
	if strings.HasPrefix(term, "<") || strings.HasPrefix(term, "_:") {
		obj, err := unwrapIriOrBlank(term)
		if err != nil {
			return err
		}
		t.Object = obj
		return nil
	}
	if !strings.HasPrefix(term, `"`) {
		return fmt.Errorf("expected an IRI, blank node, or quoted literal, got %q", term)
	}

	rest := term[1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return fmt.Errorf("unterminated literal %q", term)
	}
	t.Object = rest[:end]
	t.ObjectIsLiteral = true
	suffix := rest[end+1:]
	switch {
	case strings.HasPrefix(suffix, "@"):
		t.Language = suffix[1:]
	case strings.HasPrefix(suffix, "^^"):
		dt, err := unwrapIri(suffix[2:])
		if err != nil {
			return err
		}
		t.Datatype = dt
	}
	return nil
}

// splitTerms tokenizes a line into its three or four whitespace-separated
// terms, keeping quoted literals (which may themselves contain spaces)
// intact.
func splitTerms(line string) ([]string, error) {
	var terms []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		if line[i] == '"' {
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
				i++
			}
			if i >= len(line) {
				return nil, fmt.Errorf("unterminated literal starting at %d", start)
			}
			i++
			// consume an optional @lang or ^^<iri> suffix glued to the literal
			for i < len(line) && line[i] != ' ' {
				i++
			}
		} else {
			for i < len(line) && line[i] != ' ' {
				i++
			}
		}
		terms = append(terms, line[start:i])
	}
	return terms, nil
}

// Term is one entry of a decoded JSON-LD context: the expanded IRI a term
// maps to, plus the @type/@language/@container/@reverse flags that
// determine how the registry builds an Attribute from it.
type Term struct {
	Name      string
	Iri       string
	Type      string
	Language  string
	Container string
	Reverse   bool
}

// Context is a decoded JSON-LD context: every term mapping it declares,
// keyed by the term name used in a resource's compact JSON-LD form.
type Context struct {
	Terms map[string]Term
	// DefaultLanguage is the context's own @language, applied to any term
	// that doesn't declare its own.
	DefaultLanguage string
	// Vocab is the context's @vocab, prefixed onto a term with no @id when
	// present.
	Vocab string
}

// ParseContextMap decodes a JSON-LD context already unmarshaled into a Go
// map (e.g. via encoding/json) into a Context. It supports the shorthand
// `"term": "iri"` mapping and the expanded
// `"term": {"@id":..., "@type":..., "@language":..., "@container":...,
// "@reverse":...}` mapping; it does not perform full JSON-LD context
// processing (no @import, no nested/scoped contexts, no term-chain
// resolution against @vocab beyond a single substitution).
func ParseContextMap(raw map[string]interface{}) (*Context, *errors.Error) {
	ctx := &Context{Terms: map[string]Term{}}

	if lang, ok := raw["@language"].(string); ok {
		ctx.DefaultLanguage = lang
	}
	if vocab, ok := raw["@vocab"].(string); ok {
		ctx.Vocab = vocab
	}

	for name, value := range raw {
		if strings.HasPrefix(name, "@") {
			continue
		}

		term := Term{Name: name, Language: ctx.DefaultLanguage}

		switch v := value.(type) {
		case string:
			term.Iri = v
		case map[string]interface{}:
			if id, ok := v["@id"].(string); ok {
				term.Iri = id
			} else if rev, ok := v["@reverse"].(string); ok {
				term.Iri = rev
				term.Reverse = true
			} else {
				return nil, errors.PropertyDefError("context term %q has neither @id nor @reverse", name)
			}
			if t, ok := v["@type"].(string); ok {
				term.Type = t
			}
			if l, ok := v["@language"].(string); ok {
				term.Language = l
			} else if _, has := v["@language"]; has {
				// @language: null means "no language for this term",
				// overriding the context default explicitly.
				term.Language = ""
			}
			if c, ok := v["@container"].(string); ok {
				term.Container = c
			}
			if rev, ok := v["@reverse"].(string); ok && term.Iri == "" {
				term.Iri = rev
				term.Reverse = true
			} else if _, ok := v["@reverse"]; ok {
				term.Reverse = true
			}
		default:
			return nil, errors.PropertyDefError("context term %q has an unsupported shape", name)
		}

		if term.Iri == "" {
			return nil, errors.PropertyDefError("context term %q has no IRI", name)
		}
		if ctx.Vocab != "" && !strings.Contains(term.Iri, "://") {
			term.Iri = ctx.Vocab + term.Iri
		}

		ctx.Terms[name] = term
	}

	return ctx, nil
}

// FindTerm returns the term (if any) mapping to propertyIri, mirroring the
// "efficient search by reverse lookup" the original context reader performs
// before falling back to a qname.
func (c *Context) FindTerm(propertyIri string) (Term, bool) {
	for _, t := range c.Terms {
		if t.Iri == propertyIri {
			return t, true
		}
	}
	return Term{}, false
}
