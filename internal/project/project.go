// SPDX-License-Identifier: MPL-2.0

package project

import (
	"slices"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dependency"
	"github.com/apbuild/apb/internal/staleness"
)

// Project is a loaded project: its modules, their test modules and the
// registry every dependency was interned into.
type Project struct {
	name     string
	dir      string
	file     string
	modules  []*Module
	tests    []*TestModule
	elements map[string]command.Element
	registry *dependency.Registry
	guard    *staleness.Guard
}

// Name returns the declared project name, or the directory name.
func (p *Project) Name() string { return p.name }

// Dir returns the project directory every relative path is resolved against.
func (p *Project) Dir() string { return p.dir }

// File returns the path of the project definition.
func (p *Project) File() string { return p.file }

// Registry returns the registry the project's dependencies were interned into.
func (p *Project) Registry() *dependency.Registry { return p.registry }

// Modules returns the modules in declaration order.
func (p *Project) Modules() []*Module { return slices.Clone(p.modules) }

// TestModules returns every test module, grouped by module in declaration order.
func (p *Project) TestModules() []*TestModule { return slices.Clone(p.tests) }

// Element returns the module or test module called name.
func (p *Project) Element(name string) (command.Element, error) {
	if el, ok := p.elements[name]; ok {
		return el, nil
	}
	return nil, &ElementNotFoundError{Name: name, Known: p.ElementNames()}
}

// Elements returns every element: each module followed by its test modules.
func (p *Project) Elements() []command.Element {
	var out []command.Element
	for _, m := range p.modules {
		out = append(out, m)
		for _, t := range m.tests {
			out = append(out, t)
		}
	}
	return out
}

// ElementNames returns the names of Elements, in the same order.
func (p *Project) ElementNames() []string {
	els := p.Elements()
	names := make([]string, len(els))
	for i, el := range els {
		names[i] = el.Name()
	}
	return names
}
