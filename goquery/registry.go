package goquery

import (
	"maps"
	"slices"

	"github.com/fwojciec/lawdoc"
)

var _ lawdoc.AdapterRegistry = (*Registry)(nil)

// Factory creates an adapter for a source of one kind.
type Factory func(src lawdoc.SourceConfig, opts ...Option) *Adapter

// Registry maps adapter kinds to factories. Options passed to NewRegistry
// are applied to every adapter it creates.
type Registry struct {
	factories map[string]Factory
	opts      []Option
}

// NewRegistry creates a Registry with the built-in portal adapters
// registered.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		opts:      opts,
	}
	r.Register(KindFLFG, NewFLFGAdapter)
	r.Register(KindGI, NewGIAdapter)
	return r
}

// Register adds a factory for kind.
// If a factory is already registered for the kind, it is replaced.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Adapter returns the adapter for src. Returns ECONFIG if no factory is
// registered for the source's adapter kind.
func (r *Registry) Adapter(src *lawdoc.SourceConfig) (lawdoc.Adapter, error) {
	f, ok := r.factories[src.Adapter]
	if !ok {
		return nil, lawdoc.Errorf(lawdoc.ECONFIG, "source %q: unknown adapter %q", src.Name, src.Adapter)
	}
	return f(*src, r.opts...), nil
}

// Kinds returns all registered adapter kinds, sorted.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.factories))
}
