// SPDX-License-Identifier: MPL-2.0

package project

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dag"
	"github.com/apbuild/apb/internal/dependency"
	"github.com/apbuild/apb/internal/platform"
	"github.com/apbuild/apb/internal/staleness"
	"github.com/apbuild/apb/pkg/cueutil"
	"github.com/apbuild/apb/pkg/types"

	"github.com/pelletier/go-toml/v2"
)

const (
	// CUEFile is the project definition looked up first.
	CUEFile = "project.cue"
	// TOMLFile is the project definition used when there is no CUEFile.
	TOMLFile = "project.toml"
)

var (
	//go:embed project_schema.cue
	projectSchema []byte

	elementNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
	targetNamePattern  = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// Find returns the project definition in dir.
func Find(dir string) (string, error) {
	for _, name := range []string{CUEFile, TOMLFile} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no %s or %s in %s", ErrProjectNotFound, CUEFile, TOMLFile, dir)
}

// Load finds, parses and builds the project in dir.
func Load(dir string, reg *dependency.Registry) (*Project, error) {
	file, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(file, reg)
}

// LoadFile parses and builds the project defined in file; the project
// directory is the file's directory.
func LoadFile(file string, reg *dependency.Registry) (*Project, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", file, err)
	}
	def, err := Parse(data, file)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	return New(def, dir, file, reg)
}

// Parse decodes a definition, choosing the format from the file extension.
func Parse(data []byte, file string) (*Definition, error) {
	switch filepath.Ext(file) {
	case ".cue":
		return ParseCUE(data, file)
	case ".toml":
		return ParseTOML(data, file)
	default:
		return nil, fmt.Errorf("unsupported project file %s: want .cue or .toml", file)
	}
}

// ParseCUE decodes a CUE definition validated against the #Project schema.
func ParseCUE(data []byte, file string) (*Definition, error) {
	result, err := cueutil.ParseAndDecode[Definition](projectSchema, data, "#Project", cueutil.WithFilename(file))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ParseTOML decodes a TOML definition. Unknown keys are errors.
func ParseTOML(data []byte, file string) (*Definition, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, file); err != nil {
		return nil, err
	}
	var def Definition
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %s\n%s", file, row, col, decodeErr.Error(), decodeErr.String())
		}
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return nil, fmt.Errorf("%s: unknown keys\n%s", file, strictErr.String())
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &def, nil
}

// New validates def and builds the project. Every dependency is interned
// into reg.
func New(def *Definition, dir, file string, reg *dependency.Registry) (*Project, error) {
	if problems := validate(def); len(problems) > 0 {
		return nil, &InvalidProjectError{Path: file, Problems: problems}
	}

	p := &Project{
		name:     orDefault(def.Name, filepath.Base(dir)),
		dir:      dir,
		file:     file,
		elements: make(map[string]command.Element),
		registry: reg,
		guard:    staleness.NewGuard(),
	}

	var problems []string
	modules := make(map[string]*Module, len(def.Modules))
	for _, md := range def.Modules {
		m := newModule(p, md)
		if canonical := reg.Intern(m); canonical != dependency.Dependency(m) {
			problems = append(problems, fmt.Sprintf("module %s: name already registered as a %s", m.name, canonical.Kind()))
			continue
		}
		modules[m.name] = m
		p.modules = append(p.modules, m)
		p.elements[m.name] = m
	}

	for _, md := range def.Modules {
		m, ok := modules[md.Name]
		if !ok {
			continue
		}
		m.deps = newList(reg, md.Dependencies, modules)
		for _, td := range md.Tests {
			t := newTestModule(p, m, td)
			t.deps = newList(reg, td.Dependencies, modules)
			if canonical := reg.Intern(t); canonical != dependency.Dependency(t) {
				problems = append(problems, fmt.Sprintf("test module %s: name already registered as a %s", t.name, canonical.Kind()))
				continue
			}
			m.tests = append(m.tests, t)
			p.tests = append(p.tests, t)
			p.elements[t.name] = t
		}
	}
	if len(problems) > 0 {
		return nil, &InvalidProjectError{Path: file, Problems: problems}
	}
	return p, nil
}

func newModule(p *Project, md ModuleDefinition) *Module {
	dir := orDefault(md.Dir, md.Name)
	outputBase := expandLayout(orDefault(md.OutputBase, DefaultOutputBase), dir, "")
	expand := func(s string) string { return expandLayout(s, dir, outputBase) }

	m := &Module{
		name:        md.Name,
		dir:         dir,
		group:       md.Group,
		version:     md.Version,
		description: md.Description,
		source:      expand(orDefault(md.Source, DefaultSource)),
		outputBase:  outputBase,
		output:      expand(orDefault(md.Output, DefaultOutput)),
		resources:   expand(orDefault(md.Resources, DefaultResources)),
		packageType: dependency.PackageType(orDefault(md.Package, string(dependency.PackageJar))),
		targets:     targetMap(md.Targets, expand),
		project:     p,
	}
	m.typ = customType(ModuleType, m.name, md.Default, md.Targets)
	return m
}

func newTestModule(p *Project, m *Module, td TestModuleDefinition) *TestModule {
	dir := orDefault(td.Dir, td.Name)
	outputBase := expandLayout(DefaultOutputBase, dir, "")
	expand := func(s string) string { return expandLayout(s, dir, outputBase) }

	t := &TestModule{
		name:       td.Name,
		dir:        dir,
		source:     expand(orDefault(td.Source, DefaultSource)),
		outputBase: outputBase,
		output:     expand(orDefault(td.Output, DefaultTestOutput)),
		module:     m,
		targets:    targetMap(td.Targets, expand),
		project:    p,
	}
	t.typ = customType(TestModuleType, t.name, "", td.Targets)
	return t
}

func targetMap(defs []TargetDefinition, expand func(string) string) map[string]TargetDefinition {
	out := make(map[string]TargetDefinition, len(defs))
	for _, d := range defs {
		d.Target = expand(d.Target)
		d.Sources = slices.Clone(d.Sources)
		for i, s := range d.Sources {
			d.Sources[i] = expand(s)
		}
		out[d.Name] = d
	}
	return out
}

func newList(reg *dependency.Registry, defs []DependencyDefinition, modules map[string]*Module) *dependency.List {
	list := dependency.NewList(reg)
	for _, d := range defs {
		var dep dependency.Dependency
		switch {
		case d.Module != "":
			m, ok := modules[d.Module]
			if !ok {
				continue
			}
			dep = m
		case d.Library != nil:
			dep = &dependency.RepositoryLibrary{Group: d.Library.Group, ID: d.Library.ID, Version: d.Library.Version}
		case d.Local != nil:
			dep = &dependency.LocalLibrary{
				Path:        d.Local.Path,
				RuntimePath: d.Local.Runtime,
				SourcesPath: d.Local.Sources,
				Optional:    d.Local.Optional,
			}
		default:
			continue
		}
		switch d.Scope {
		case "compile":
			dep = dependency.CompileOnly(dep)[0]
		case "runtime":
			dep = dependency.RuntimeOnly(dep)[0]
		}
		list.Add(dep)
	}
	return list
}

// validate reports every problem in def. The CUE schema already checks most
// of these; TOML definitions rely on this pass alone.
func validate(def *Definition) []string {
	var problems []string
	addf := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if len(def.Modules) == 0 {
		addf("no modules declared")
	}

	seen := make(map[string]string)
	claim := func(kind, name string) {
		if !elementNamePattern.MatchString(name) {
			addf("%s %q: invalid name", kind, name)
			return
		}
		if prev, ok := seen[name]; ok {
			addf("%s %s: name already used by a %s", kind, name, prev)
			return
		}
		seen[name] = kind
	}
	portableDir := func(kind, name, dir string) {
		if seg, ok := platform.ReservedSegment(orDefault(dir, name)); ok {
			addf("%s %s: directory name %q is reserved on Windows", kind, name, seg)
		}
	}
	modules := make(map[string]bool)
	for _, md := range def.Modules {
		claim("module", md.Name)
		portableDir("module", md.Name, md.Dir)
		modules[md.Name] = true
		for _, td := range md.Tests {
			claim("test module", td.Name)
			portableDir("test module", td.Name, td.Dir)
		}
	}

	moduleBuiltins := builtinTargets(ModuleType)
	testBuiltins := builtinTargets(TestModuleType)
	deps := dag.New()
	for _, md := range def.Modules {
		if md.Package != "" && !dependency.PackageType(md.Package).IsValid() {
			addf("module %s: unknown package type %q", md.Name, md.Package)
		}
		problems = append(problems, validateDependencies("module "+md.Name, md.Dependencies, modules)...)
		problems = append(problems, validateTargets("module "+md.Name, md.Targets, moduleBuiltins)...)
		if md.Default != "" && !slices.ContainsFunc(md.Targets, func(t TargetDefinition) bool {
			return t.Name == md.Default && !moduleBuiltins[t.Name]
		}) {
			addf("module %s: default %q is not one of the module's own targets", md.Name, md.Default)
		}
		for _, td := range md.Tests {
			problems = append(problems, validateDependencies("test module "+td.Name, td.Dependencies, modules)...)
			problems = append(problems, validateTargets("test module "+td.Name, td.Targets, testBuiltins)...)
		}

		deps.AddNode(md.Name)
		for _, d := range md.Dependencies {
			if d.Module == md.Name {
				addf("module %s: depends on itself", md.Name)
			} else if modules[d.Module] {
				deps.AddEdge(d.Module, md.Name)
			}
		}
	}

	var roots []string
	for _, md := range def.Modules {
		roots = append(roots, md.Name)
	}
	if _, err := deps.Order(roots...); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			addf("module dependency cycle: %s", strings.Join(cycle.Cycle, " -> "))
		}
	}
	return problems
}

func validateDependencies(owner string, defs []DependencyDefinition, modules map[string]bool) []string {
	var problems []string
	for i, d := range defs {
		set := 0
		for _, ok := range []bool{d.Module != "", d.Library != nil, d.Local != nil} {
			if ok {
				set++
			}
		}
		switch {
		case set != 1:
			problems = append(problems, fmt.Sprintf("%s: dependency %d must name exactly one of module, library or local", owner, i+1))
		case d.Module != "" && !modules[d.Module]:
			problems = append(problems, fmt.Sprintf("%s: unknown module %q", owner, d.Module))
		case d.Library != nil && (d.Library.Group == "" || d.Library.ID == ""):
			problems = append(problems, fmt.Sprintf("%s: library dependency %d needs a group and an id", owner, i+1))
		case d.Local != nil && d.Local.Path == "":
			problems = append(problems, fmt.Sprintf("%s: local dependency %d needs a path", owner, i+1))
		}
		switch d.Scope {
		case "", "all", "compile", "runtime":
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown scope %q", owner, d.Scope))
		}
	}
	return problems
}

func validateTargets(owner string, defs []TargetDefinition, builtins map[string]bool) []string {
	var problems []string
	seen := make(map[string]bool)
	for _, t := range defs {
		switch {
		case !targetNamePattern.MatchString(t.Name):
			problems = append(problems, fmt.Sprintf("%s: invalid target name %q", owner, t.Name))
			continue
		case t.Name == command.HelpName || t.Name == command.DefaultName:
			problems = append(problems, fmt.Sprintf("%s: target name %q is reserved", owner, t.Name))
			continue
		case seen[t.Name]:
			problems = append(problems, fmt.Sprintf("%s: target %s declared twice", owner, t.Name))
			continue
		}
		seen[t.Name] = true
		if builtins[t.Name] && (len(t.Depends) > 0 || t.Before != "" || t.Recursive) {
			problems = append(problems, fmt.Sprintf("%s: built-in target %s only accepts a script, a target and sources", owner, t.Name))
		}
		if len(t.Sources) > 0 && t.Target == "" {
			problems = append(problems, fmt.Sprintf("%s: target %s lists sources without an output", owner, t.Name))
		}
		if ok, errs := types.DescriptionText(t.Description).IsValid(); !ok {
			problems = append(problems, fmt.Sprintf("%s: target %s: %v", owner, t.Name, errors.Join(errs...)))
		}
	}
	return problems
}
