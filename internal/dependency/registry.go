// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"slices"
	"sync"
)

// Registry maps dependency names to their canonical instance. It only grows.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Dependency
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Dependency)}
}

// Intern returns the registered dependency with dep's name, registering dep
// first when the name is new. A Decorated dependency is never registered
// itself: its inner dependency is interned and a Decorated wrapping the
// canonical instance is returned. For decorated values identity holds for the
// inner dependency and the name only; a wrapper around a non-canonical inner
// is rebuilt on every call, while one around the canonical inner is returned
// as is.
func (r *Registry) Intern(dep Dependency) Dependency {
	if d, ok := dep.(*Decorated); ok {
		inner := r.Intern(d.Inner)
		if inner == d.Inner {
			return d
		}
		return &Decorated{Inner: inner, Scope: d.Scope}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := dep.Name()
	if existing, ok := r.entries[name]; ok {
		return existing
	}
	r.entries[name] = dep
	r.order = append(r.order, name)
	return dep
}

// Lookup returns the canonical dependency registered under name.
func (r *Registry) Lookup(name string) (Dependency, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dep, ok := r.entries[name]
	return dep, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}
