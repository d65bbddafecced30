// Package idgen implements the IRI Generator component: the three ways a
// Model mints a permanent IRI for a resource whose Id is still temporary.
package idgen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oldman-go/oldman/pkg/errors"
)

// Generator mints a permanent IRI for a resource. suggestedIri is whatever
// hint the caller attached to the resource's temporary Id (possibly
// empty); callers pass it through unconditionally, and a generator is free
// to ignore it.
type Generator interface {
	Generate(ctx context.Context, suggestedIri string) (string, *errors.Error)
}

// BlankNodeGenerator mints skolemized blank node IRIs rooted at localhost,
// as required by the is_blank_node convention.
type BlankNodeGenerator struct{}

// NewBlankNodeGenerator returns a Generator that never fails and ignores
// suggestedIri.
func NewBlankNodeGenerator() *BlankNodeGenerator {
	return &BlankNodeGenerator{}
}

func (g *BlankNodeGenerator) Generate(_ context.Context, _ string) (string, *errors.Error) {
	return fmt.Sprintf("http://localhost/.well-known/genid/%s", uuid.NewString()), nil
}

// RandomPrefixedGenerator mints prefix+random[#fragment] IRIs.
type RandomPrefixedGenerator struct {
	prefix   string
	fragment string
}

// NewRandomPrefixedGenerator returns a Generator that appends a random
// suffix to prefix, and fragment (if non-empty) after a '#'.
func NewRandomPrefixedGenerator(prefix, fragment string) *RandomPrefixedGenerator {
	return &RandomPrefixedGenerator{prefix: prefix, fragment: fragment}
}

func (g *RandomPrefixedGenerator) Generate(_ context.Context, _ string) (string, *errors.Error) {
	iri := g.prefix + uuid.NewString()
	if g.fragment != "" {
		iri = iri + "#" + g.fragment
	}
	return iri, nil
}

// CounterStore is the minimal graph-backed counter contract an
// IncrementalGenerator needs: read the current counter for a class, and
// attempt a compare-and-set update. Implementations translate this into
// the store's native DELETE/INSERT WHERE idiom.
type CounterStore interface {
	ReadCounter(ctx context.Context, classIri string) (int64, *errors.Error)
	CompareAndSetCounter(ctx context.Context, classIri string, expected, next int64) (bool, *errors.Error)
}

// IncrementalGenerator mints prefix+N[#fragment] IRIs, where N is a
// per-class counter stored in the backing graph. It retries under
// contention with a bounded compare-and-set loop, so concurrent creators
// never hand out the same N.
type IncrementalGenerator struct {
	prefix   string
	classIri string
	fragment string
	counters CounterStore

	mu       sync.Mutex
	maxRetry int
}

// NewIncrementalGenerator returns a Generator backed by counters, scoped to
// classIri. maxRetry bounds the compare-and-set retry loop; callers
// wanting the teacher's default of "keep trying until it works" should
// pass a generous value such as 50.
func NewIncrementalGenerator(prefix, classIri, fragment string, counters CounterStore, maxRetry int) *IncrementalGenerator {
	if maxRetry <= 0 {
		maxRetry = 50
	}
	return &IncrementalGenerator{
		prefix:   prefix,
		classIri: classIri,
		fragment: fragment,
		counters: counters,
		maxRetry: maxRetry,
	}
}

func (g *IncrementalGenerator) Generate(ctx context.Context, _ string) (string, *errors.Error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < g.maxRetry; attempt++ {
		current, err := g.counters.ReadCounter(ctx, g.classIri)
		if err != nil {
			return "", err
		}

		next := current + 1
		ok, err := g.counters.CompareAndSetCounter(ctx, g.classIri, current, next)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}

		iri := fmt.Sprintf("%s%d", g.prefix, next)
		if g.fragment != "" {
			iri = iri + "#" + g.fragment
		}
		return iri, nil
	}

	return "", errors.InternalError("exhausted %d attempts incrementing counter for %s", g.maxRetry, g.classIri)
}

// Reset rewinds an in-memory CounterStore's counter back to zero, for test
// isolation between cases that share a generator.
func Reset(ctx context.Context, counters CounterStore, classIri string) *errors.Error {
	resettable, ok := counters.(interface {
		ResetCounter(ctx context.Context, classIri string) *errors.Error
	})
	if !ok {
		return errors.InternalError("counter store for %s does not support reset", classIri)
	}
	return resettable.ResetCounter(ctx, classIri)
}

// MemoryCounterStore is a process-local CounterStore, useful for tests and
// for generators whose uniqueness only needs to hold within one process.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryCounterStore returns an empty MemoryCounterStore.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: map[string]int64{}}
}

func (s *MemoryCounterStore) ReadCounter(_ context.Context, classIri string) (int64, *errors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[classIri], nil
}

func (s *MemoryCounterStore) CompareAndSetCounter(_ context.Context, classIri string, expected, next int64) (bool, *errors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[classIri] != expected {
		return false, nil
	}
	s.counters[classIri] = next
	return true, nil
}

func (s *MemoryCounterStore) ResetCounter(_ context.Context, classIri string) *errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, classIri)
	return nil
}

// classLocalName strips a class IRI down to a name fit for a counter
// property, used by callers that derive a counter predicate from classIri
// rather than storing one explicitly.
func classLocalName(classIri string) string {
	if idx := strings.LastIndexAny(classIri, "#/"); idx >= 0 {
		return classIri[idx+1:]
	}
	return classIri
}
