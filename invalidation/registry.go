// Package invalidation keeps one generation counter per entity family.
//
// A cached view is valid only while the generation it was populated under is
// still the live one. Invalidate advances the generation with a single atomic
// add, which orphans every entry bound to the previous value without scanning
// or purging anything.
//
// Generations are process local. Running several replicas against one store
// requires broadcasting invalidations, which this package does not do.
package invalidation

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Token identifies the generation of a family at the time it was observed.
// Tokens are values; holding one never prevents or reverses an invalidation.
type Token struct {
	family     string
	generation uint64
}

// Family returns the family the token belongs to.
func (t Token) Family() string { return t.family }

// Generation returns the observed generation.
func (t Token) Generation() uint64 { return t.generation }

// Equal reports whether both tokens name the same generation of the same family.
func (t Token) Equal(other Token) bool {
	return t.family == other.family && t.generation == other.generation
}

// IsZero reports whether the token was never issued by a registry.
func (t Token) IsZero() bool { return t.generation == 0 }

// Registry hands out tokens. The zero value is not usable, use NewRegistry.
type Registry struct {
	generations *xsync.MapOf[string, *atomic.Uint64]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{generations: xsync.NewMapOf[string, *atomic.Uint64]()}
}

func (r *Registry) counter(family string) *atomic.Uint64 {
	c, _ := r.generations.LoadOrCompute(family, func() *atomic.Uint64 {
		c := &atomic.Uint64{}
		c.Store(1)
		return c
	})
	return c
}

// Current returns the live token for family, creating it on first use.
func (r *Registry) Current(family string) Token {
	return Token{family: family, generation: r.counter(family).Load()}
}

// Invalidate supersedes the live token of family and returns the new one.
// Concurrent calls each advance the generation; none is lost.
func (r *Registry) Invalidate(family string) Token {
	return Token{family: family, generation: r.counter(family).Add(1)}
}

// InvalidateAll invalidates each family once.
func (r *Registry) InvalidateAll(families ...string) []Token {
	seen := make(map[string]struct{}, len(families))
	out := make([]Token, 0, len(families))
	for _, f := range families {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, r.Invalidate(f))
	}
	return out
}

// Live reports whether token is still the current token of its family.
func (r *Registry) Live(token Token) bool {
	if token.IsZero() {
		return false
	}
	return r.Current(token.family).Equal(token)
}

// Snapshot returns the live tokens of families in the given order.
func (r *Registry) Snapshot(families ...string) []Token {
	out := make([]Token, len(families))
	for i, f := range families {
		out[i] = r.Current(f)
	}
	return out
}

// Families returns every family that has been referenced so far.
func (r *Registry) Families() []string {
	var out []string
	r.generations.Range(func(family string, _ *atomic.Uint64) bool {
		out = append(out, family)
		return true
	})
	return out
}
