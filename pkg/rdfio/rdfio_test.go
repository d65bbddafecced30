package rdfio

import "testing"

func TestNQuads_ParseAndSerializeRoundTrip(t *testing.T) {
	data := `
# a comment
<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .
<http://example.org/alice> <http://example.org/bio> "hi"@en .
`
	codec := NQuads{}
	g, err := codec.Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Triples()) != 3 {
		t.Fatalf("expected 3 triples, got %d", len(g.Triples()))
	}

	names := g.ObjectsOf("http://example.org/alice", "http://xmlns.com/foaf/0.1/name")
	if len(names) != 1 || names[0] != "Alice" {
		t.Fatalf("unexpected name objects: %v", names)
	}

	knows := g.ObjectsOf("http://example.org/alice", "http://xmlns.com/foaf/0.1/knows")
	if len(knows) != 1 || knows[0] != "http://example.org/bob" {
		t.Fatalf("unexpected knows objects: %v", knows)
	}

	out, err := codec.Serialize(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g2, err := codec.Parse(out)
	if err != nil {
		t.Fatalf("unexpected error reparsing serialized output: %v", err)
	}
	if len(g2.Triples()) != 3 {
		t.Fatalf("expected 3 triples after round-trip, got %d", len(g2.Triples()))
	}
}

func TestParseContextMap_Shorthand(t *testing.T) {
	ctx, err := ParseContextMap(map[string]interface{}{
		"name": "http://xmlns.com/foaf/0.1/name",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term, ok := ctx.Terms["name"]
	if !ok || term.Iri != "http://xmlns.com/foaf/0.1/name" {
		t.Fatalf("unexpected term: %v", term)
	}
}

func TestParseContextMap_Expanded(t *testing.T) {
	ctx, err := ParseContextMap(map[string]interface{}{
		"emails": map[string]interface{}{
			"@id":        "http://xmlns.com/foaf/0.1/mbox",
			"@container": "@set",
		},
		"bio": map[string]interface{}{
			"@id":       "http://example.org/bio",
			"@language": "en",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Terms["emails"].Container != "@set" {
		t.Fatalf("unexpected container: %v", ctx.Terms["emails"])
	}
	if ctx.Terms["bio"].Language != "en" {
		t.Fatalf("unexpected language: %v", ctx.Terms["bio"])
	}
}

func TestParseContextMap_RejectsMissingIri(t *testing.T) {
	_, err := ParseContextMap(map[string]interface{}{
		"bogus": map[string]interface{}{"@type": "xsd:string"},
	})
	if err == nil {
		t.Fatal("expected an error for a term with no @id")
	}
}

func TestFindTerm(t *testing.T) {
	ctx, err := ParseContextMap(map[string]interface{}{
		"name": "http://xmlns.com/foaf/0.1/name",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term, ok := ctx.FindTerm("http://xmlns.com/foaf/0.1/name")
	if !ok || term.Name != "name" {
		t.Fatalf("unexpected lookup result: %v, %v", term, ok)
	}
	if _, ok := ctx.FindTerm("http://example.org/missing"); ok {
		t.Fatal("did not expect to find an unrelated IRI")
	}
}
