package extension

import (
	"github.com/gitsift/gitsift/internal/diag"
)

// Resolver determines, per canonical command signature, the ordered list
// of applicable extensions. Results are cached for the lifetime of the
// process and never invalidated by the core; an empty result is cached
// like any other. Resolution is synchronous and single-threaded.
type Resolver struct {
	registry *Registry
	diag     *diag.Reporter
	cache    map[string][]Descriptor
}

// NewResolver creates a Resolver over a registry.
func NewResolver(registry *Registry, d *diag.Reporter) *Resolver {
	return &Resolver{
		registry: registry,
		diag:     d,
		cache:    make(map[string][]Descriptor),
	}
}

// Resolve returns the extensions applicable to signature, in discovery
// order. A cache hit returns the previously resolved sequence without
// re-evaluating any predicate. A predicate failure excludes only that
// extension and is reported as a recoverable diagnostic.
func (r *Resolver) Resolve(signature string) []Descriptor {
	if cached, ok := r.cache[signature]; ok {
		return cached
	}

	resolved := []Descriptor{}
	for _, d := range r.registry.Descriptors() {
		ok, err := d.Match(signature)
		if err != nil {
			r.diag.Warnf("extension %s: applicability check failed for %q: %v", d.Name, signature, err)
			continue
		}
		if ok {
			r.diag.Debugf("extension %s applies to %q", d.Name, signature)
			resolved = append(resolved, d)
		}
	}

	r.cache[signature] = resolved
	return resolved
}

// Cached reports whether a signature has already been resolved.
func (r *Resolver) Cached(signature string) bool {
	_, ok := r.cache[signature]
	return ok
}
