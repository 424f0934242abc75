// SPDX-License-Identifier: MPL-2.0

package project

import (
	"path"
	"strings"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dependency"
)

// Layout defaults. "$moduledir" is the element's directory and
// "$output-base" its output base; both are replaced when the project loads.
const (
	DefaultSource     = "$moduledir/src"
	DefaultOutputBase = "output/$moduledir"
	DefaultOutput     = "$output-base/classes"
	DefaultResources  = "$moduledir/resources"
	DefaultTestOutput = "$output-base/test-classes"
)

var (
	_ command.Element       = (*Module)(nil)
	_ dependency.Dependency = (*Module)(nil)
	_ command.Element       = (*TestModule)(nil)
	_ dependency.Dependency = (*TestModule)(nil)
)

type (
	// Module is a buildable unit of the project. Paths are relative to the
	// project directory and may still hold property references.
	Module struct {
		name        string
		dir         string
		group       string
		version     string
		description string
		source      string
		outputBase  string
		output      string
		resources   string
		packageType dependency.PackageType
		deps        *dependency.List
		tests       []*TestModule
		targets     map[string]TargetDefinition
		typ         *command.Type
		project     *Project
	}

	// TestModule holds the tests of one module.
	TestModule struct {
		name       string
		dir        string
		source     string
		outputBase string
		output     string
		module     *Module
		deps       *dependency.List
		targets    map[string]TargetDefinition
		typ        *command.Type
		project    *Project
	}
)

func (m *Module) Name() string                        { return m.name }
func (m *Module) String() string                      { return m.name }
func (m *Module) Type() *command.Type                 { return m.typ }
func (m *Module) Kind() dependency.Kind               { return dependency.KindModule }
func (m *Module) MustInclude(bool) bool               { return true }
func (m *Module) Dir() string                         { return m.dir }
func (m *Module) Group() string                       { return m.group }
func (m *Module) Version() string                     { return m.version }
func (m *Module) Description() string                 { return m.description }
func (m *Module) Source() string                      { return m.source }
func (m *Module) OutputBase() string                  { return m.outputBase }
func (m *Module) Output() string                      { return m.output }
func (m *Module) Resources() string                   { return m.resources }
func (m *Module) PackageType() dependency.PackageType { return m.packageType }
func (m *Module) Dependencies() *dependency.List      { return m.deps }

// Tests returns the attached test modules in declaration order.
func (m *Module) Tests() []*TestModule { return append([]*TestModule(nil), m.tests...) }

// Related returns the modules m depends on, in declaration order.
func (m *Module) Related() []command.Element { return moduleElements(m.deps.Modules()) }

// Target returns the definition attached to the target called name.
func (m *Module) Target(name string) (TargetDefinition, bool) {
	t, ok := m.targets[name]
	return t, ok
}

// PackageFile returns the path of the package the module produces, or "" when
// its package type is none.
func (m *Module) PackageFile() string {
	ext := m.packageType.Ext()
	if ext == "" {
		return ""
	}
	file := m.name
	if m.version != "" {
		file += "-" + m.version
	}
	return path.Join(m.outputBase, file+"."+ext)
}

func (m *Module) testElements() []command.Element {
	out := make([]command.Element, len(m.tests))
	for i, t := range m.tests {
		out[i] = t
	}
	return out
}

func (t *TestModule) Name() string                   { return t.name }
func (t *TestModule) String() string                 { return t.name }
func (t *TestModule) Type() *command.Type            { return t.typ }
func (t *TestModule) Kind() dependency.Kind          { return dependency.KindModule }
func (t *TestModule) MustInclude(bool) bool          { return true }
func (t *TestModule) Dir() string                    { return t.dir }
func (t *TestModule) Source() string                 { return t.source }
func (t *TestModule) OutputBase() string             { return t.outputBase }
func (t *TestModule) Output() string                 { return t.output }
func (t *TestModule) Dependencies() *dependency.List { return t.deps }

// Module returns the module under test.
func (t *TestModule) Module() *Module { return t.module }

// Related returns the module under test followed by the other modules the
// test module depends on.
func (t *TestModule) Related() []command.Element {
	out := []command.Element{t.module}
	for _, el := range moduleElements(t.deps.Modules()) {
		if el != command.Element(t.module) {
			out = append(out, el)
		}
	}
	return out
}

// Target returns the definition attached to the target called name.
func (t *TestModule) Target(name string) (TargetDefinition, bool) {
	d, ok := t.targets[name]
	return d, ok
}

func moduleElements(deps []dependency.Dependency) []command.Element {
	var out []command.Element
	for _, d := range deps {
		if el, ok := d.(command.Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// expandLayout replaces $output-base and $moduledir in p.
func expandLayout(p, dir, outputBase string) string {
	return strings.NewReplacer("$output-base", outputBase, "$moduledir", dir).Replace(p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (m *Module) properties() [][2]string {
	return [][2]string{
		{"name", m.name},
		{"dir", m.dir},
		{"group", m.group},
		{"version", m.version},
		{"source", m.source},
		{"output-base", m.outputBase},
		{"output", m.output},
		{"resources", m.resources},
		{"package", string(m.packageType)},
	}
}

func (t *TestModule) properties() [][2]string {
	return [][2]string{
		{"name", t.name},
		{"module", t.module.name},
		{"dir", t.dir},
		{"source", t.source},
		{"output-base", t.outputBase},
		{"output", t.output},
	}
}
