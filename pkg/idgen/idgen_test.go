package idgen

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestBlankNodeGenerator(t *testing.T) {
	g := NewBlankNodeGenerator()
	iri, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(iri, "http://localhost/.well-known/genid/") {
		t.Errorf("unexpected iri: %s", iri)
	}
}

func TestRandomPrefixedGenerator(t *testing.T) {
	g := NewRandomPrefixedGenerator("http://example.org/people/", "")
	iri, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(iri, "http://example.org/people/") {
		t.Errorf("unexpected iri: %s", iri)
	}

	gWithFragment := NewRandomPrefixedGenerator("http://example.org/people/", "me")
	iri2, err := gWithFragment.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(iri2, "#me") {
		t.Errorf("expected fragment suffix, got: %s", iri2)
	}
}

func TestIncrementalGenerator(t *testing.T) {
	counters := NewMemoryCounterStore()
	g := NewIncrementalGenerator("http://example.org/people/", "http://example.org/Person", "", counters, 10)

	iri1, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iri1 != "http://example.org/people/1" {
		t.Errorf("expected counter 1, got %s", iri1)
	}

	iri2, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iri2 != "http://example.org/people/2" {
		t.Errorf("expected counter 2, got %s", iri2)
	}
}

func TestIncrementalGenerator_Concurrent(t *testing.T) {
	counters := NewMemoryCounterStore()
	g := NewIncrementalGenerator("http://example.org/people/", "http://example.org/Person", "", counters, 100)

	const n = 20
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			iri, err := g.Generate(context.Background(), "")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[idx] = iri
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, iri := range results {
		if seen[iri] {
			t.Fatalf("duplicate iri minted under concurrency: %s", iri)
		}
		seen[iri] = true
	}
}

func TestIncrementalGenerator_Reset(t *testing.T) {
	counters := NewMemoryCounterStore()
	g := NewIncrementalGenerator("http://example.org/people/", "http://example.org/Person", "", counters, 10)

	if _, err := g.Generate(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Reset(context.Background(), counters, "http://example.org/Person"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	iri, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iri != "http://example.org/people/1" {
		t.Errorf("expected counter reset to 1, got %s", iri)
	}
}
