package provider

import (
	"fmt"
	"sort"
)

// Registry maps engine tags to Provider implementations. It is built once
// at startup and is read-only afterwards, so concurrent reads need no
// synchronization.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its engine tag. Registering two providers
// for the same tag is a startup configuration error, rejected eagerly.
func (r *Registry) Register(p Provider) error {
	tag := p.Engine()
	if _, ok := r.providers[tag]; ok {
		return fmt.Errorf("provider already registered for engine %q", tag)
	}
	r.providers[tag] = p
	return nil
}

// Resolve returns the provider for an engine tag. An unknown tag is a
// recoverable request-time error.
func (r *Registry) Resolve(engine string) (Provider, error) {
	p, ok := r.providers[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotSupported, engine)
	}
	return p, nil
}

// Engines returns a sorted list of all registered engine tags.
func (r *Registry) Engines() []string {
	tags := make([]string, 0, len(r.providers))
	for tag := range r.providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
