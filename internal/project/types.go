// SPDX-License-Identifier: MPL-2.0

package project

import (
	"github.com/apbuild/apb/internal/command"
)

var (
	elementBehavior = &command.Behavior{
		Name: "element",
		Targets: []command.Descriptor{
			{
				Ident:       "properties",
				Description: "Lists the build properties of the element.",
				Action:      showProperties,
			},
		},
	}

	moduleBehavior = &command.Behavior{
		Name:    "module",
		Default: "package",
		Targets: []command.Descriptor{
			{
				Ident:       "clean",
				Description: "Deletes all output directories (compiled code and packages).",
				Recursive:   true,
				Action:      moduleAction(cleanModule),
			},
			{
				Ident:       "resources",
				Description: "Copies resources to the output directory.",
				Recursive:   true,
				Action:      moduleAction(copyResources),
			},
			{
				Ident:       "compile",
				Description: "Compiles classes and places them in the output directory.",
				Recursive:   true,
				Depends:     []string{"resources"},
				Action:      scriptAction("compile"),
			},
			{
				Ident:       "compileTests",
				Description: "Compiles test classes.",
				Depends:     []string{"compile"},
				Action:      forwardToTests("compile"),
			},
			{
				Ident:       "runTests",
				Description: "Tests the module (generating reports and coverage info).",
				Depends:     []string{"compile-tests", "package"},
				Action:      forwardToTests("run"),
			},
			{
				Ident:       "runMinimalTests",
				Description: "Runs the tests of the minimal group.",
				Depends:     []string{"compile-tests"},
				Action:      forwardToTests("run-minimal"),
			},
			{
				Ident:       "packageIt",
				Name:        "package",
				Description: "Creates a package with the module classes and resources.",
				Recursive:   true,
				Depends:     []string{"compile"},
				Action:      scriptAction("package"),
			},
			{
				Ident:       "javadoc",
				Description: "Generates the API documentation for the module.",
				Action:      scriptAction("javadoc"),
			},
		},
	}

	testModuleBehavior = &command.Behavior{
		Name:    "test-module",
		Default: "run",
		Targets: []command.Descriptor{
			{
				Ident:       "clean",
				Description: "Deletes the test output directories.",
				Action:      testAction(cleanTests),
			},
			{
				Ident:       "compile",
				Description: "Compiles test classes.",
				Recursive:   true,
				Action:      scriptAction("compile"),
			},
			{
				Ident:       "run",
				Description: "Runs the tests.",
				Depends:     []string{"compile"},
				Action:      scriptAction("run"),
			},
			{
				Ident:       "runMinimal",
				Description: "Runs the tests of the minimal group.",
				Depends:     []string{"compile"},
				Action:      testAction(runMinimal),
			},
		},
	}

	// ModuleType is the element type of modules without custom targets.
	ModuleType = command.NewType("module", moduleBehavior, elementBehavior)
	// TestModuleType is the element type of test modules without custom targets.
	TestModuleType = command.NewType("test-module", testModuleBehavior, elementBehavior)
)

// builtinTargets returns the names of every target t declares.
func builtinTargets(t *command.Type) map[string]bool {
	names := make(map[string]bool)
	for _, b := range t.Chain() {
		for _, d := range b.Targets {
			names[d.TargetName()] = true
		}
	}
	return names
}

// customType extends base with the custom targets of one element. It returns
// base itself when there is nothing to add.
func customType(base *command.Type, element, def string, targets []TargetDefinition) *command.Type {
	builtins := builtinTargets(base)
	b := &command.Behavior{Name: element, Default: def}
	for _, t := range targets {
		if builtins[t.Name] {
			continue
		}
		b.Targets = append(b.Targets, command.Descriptor{
			Name:        t.Name,
			Description: t.Description,
			Recursive:   t.Recursive,
			Depends:     t.Depends,
			Before:      t.Before,
			Action:      scriptAction(t.Name),
		})
	}
	if len(b.Targets) == 0 && def == "" {
		return base
	}
	return base.Extend(base.Name()+" "+element, b)
}
