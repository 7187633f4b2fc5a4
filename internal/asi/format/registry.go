// Package format implements the small format registry that validates the
// "format" query parameter against the set of formats the bigram store
// recognizes, so the request orchestrator can reject an unknown format
// with a concrete "Invalid Parameter" tag before touching the store.
package format

// Format is an opaque identifier selecting a disjoint archetype universe.
type Format string

// Known formats recognized by the reference bigram store. A production
// deployment may instead source this list from the store itself; the
// registry exists so C5 can validate cheaply before touching the store.
var known = map[Format]struct{}{
	"standard": {},
	"pioneer":  {},
	"modern":   {},
	"legacy":   {},
	"vintage":  {},
	"pauper":   {},
}

// Registry validates format identifiers against the known set.
type Registry struct {
	known map[Format]struct{}
}

// NewRegistry builds a Registry over the default known-format set.
func NewRegistry() *Registry {
	cp := make(map[Format]struct{}, len(known))
	for f := range known {
		cp[f] = struct{}{}
	}
	return &Registry{known: cp}
}

// NewRegistryWith builds a Registry over an explicit set of formats, for
// tests or deployments with a custom archetype universe.
func NewRegistryWith(formats ...Format) *Registry {
	r := &Registry{known: make(map[Format]struct{}, len(formats))}
	for _, f := range formats {
		r.known[f] = struct{}{}
	}
	return r
}

// IsKnown reports whether f is a recognized format.
func (r *Registry) IsKnown(f Format) bool {
	_, ok := r.known[f]
	return ok
}
