// SPDX-License-Identifier: MPL-2.0

package dependency

import "slices"

// List is an ordered dependency list whose insertions go through a Registry.
// Order is significant: it is the classpath and build order.
type List struct {
	reg   *Registry
	items []Dependency
}

// NewList creates an empty list interning into reg.
func NewList(reg *Registry) *List {
	return &List{reg: reg}
}

// Add interns each dependency and appends it. An entry naming the same
// canonical dependency with the same scope as one already present is skipped.
func (l *List) Add(deps ...Dependency) {
	for _, dep := range deps {
		canonical := l.reg.Intern(dep)
		if l.contains(canonical) {
			continue
		}
		l.items = append(l.items, canonical)
	}
}

func (l *List) contains(dep Dependency) bool {
	target, scope := identity(dep)
	return slices.ContainsFunc(l.items, func(item Dependency) bool {
		d, s := identity(item)
		return d == target && s == scope
	})
}

func identity(dep Dependency) (Dependency, Scope) {
	if d, ok := dep.(*Decorated); ok {
		return Undecorated(d), d.Scope
	}
	return dep, ScopeAll
}

// Items returns the dependencies in insertion order.
func (l *List) Items() []Dependency {
	return slices.Clone(l.items)
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.items)
}

// Filter returns the dependencies visible in the compile (true) or runtime (false) phase.
func (l *List) Filter(forCompile bool) []Dependency {
	var out []Dependency
	for _, dep := range l.items {
		if dep.MustInclude(forCompile) {
			out = append(out, dep)
		}
	}
	return out
}

// Modules returns the module dependencies with decorations removed, in order.
func (l *List) Modules() []Dependency {
	return l.ofKind(KindModule)
}

// Libraries returns the library dependencies, decorations kept, in order.
func (l *List) Libraries() []Library {
	var out []Library
	for _, dep := range l.items {
		if lib, ok := dep.(Library); ok && dep.Kind() == KindLibrary {
			out = append(out, lib)
		}
	}
	return out
}

func (l *List) ofKind(kind Kind) []Dependency {
	var out []Dependency
	seen := map[Dependency]bool{}
	for _, dep := range l.items {
		inner := Undecorated(dep)
		if inner.Kind() != kind || seen[inner] {
			continue
		}
		seen[inner] = true
		out = append(out, inner)
	}
	return out
}
