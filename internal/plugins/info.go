// SPDX-License-Identifier: MPL-2.0

package plugins

import (
	"context"
	"fmt"
	"io"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dependency"
	"github.com/apbuild/apb/internal/environment"
	"github.com/apbuild/apb/internal/project"
)

// Info prints what the build knows about an element.
type Info struct{}

type (
	dependent interface {
		Dependencies() *dependency.List
	}

	// probeEnv resolves artifacts without reporting missing ones as failures.
	probeEnv struct {
		*environment.Environment
		missing error
	}
)

func (Info) Namespace() string { return "info" }

func (Info) Targets() []command.Descriptor {
	return []command.Descriptor{
		{
			Ident:       "deps",
			Description: "Lists the compile and runtime dependencies of the element.",
			Action:      showDependencies,
		},
		{
			Ident:       "tests",
			Description: "Lists the test modules attached to the module.",
			Action:      showTests,
		},
	}
}

func (p *probeEnv) Handle(err error) error {
	p.missing = err
	return nil
}

func showDependencies(_ context.Context, el command.Element, env *environment.Environment) error {
	d, ok := el.(dependent)
	if !ok {
		return fmt.Errorf("%s has no dependencies", el.Name())
	}
	w := env.Stdout()
	if _, err := fmt.Fprintf(w, "Dependencies of '%s':\n", el.Name()); err != nil {
		return err
	}
	for _, phase := range []struct {
		name       string
		forCompile bool
	}{{"compile", true}, {"runtime", false}} {
		if _, err := fmt.Fprintf(w, "  %s:\n", phase.name); err != nil {
			return err
		}
		deps := d.Dependencies().Filter(phase.forCompile)
		if len(deps) == 0 {
			if _, err := fmt.Fprintln(w, "    (none)"); err != nil {
				return err
			}
		}
		for _, dep := range deps {
			if err := writeDependency(w, env, dep, phase.forCompile); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDependency(w io.Writer, env *environment.Environment, dep dependency.Dependency, forCompile bool) error {
	lib, ok := dep.(dependency.Library)
	if !ok || dep.Kind() != dependency.KindLibrary {
		_, err := fmt.Fprintf(w, "    %-30s %s\n", dep.Name(), dep.Kind())
		return err
	}
	probe := &probeEnv{Environment: env}
	var artifact string
	var err error
	if local, isLocal := dependency.Undecorated(dep).(*dependency.LocalLibrary); isLocal && !forCompile {
		artifact, err = local.RuntimeArtifact(probe)
	} else {
		artifact, err = lib.Artifact(probe, dependency.PackageJar)
	}
	if err != nil {
		return err
	}
	if probe.missing != nil {
		env.Warn("library not found", "dependency", dep.Name(), "error", probe.missing)
		artifact = "(missing)"
	}
	if artifact == "" {
		artifact = "(optional, absent)"
	}
	_, err = fmt.Fprintf(w, "    %-30s %s\n", dep.Name(), artifact)
	return err
}

func showTests(_ context.Context, el command.Element, env *environment.Environment) error {
	m, ok := el.(*project.Module)
	if !ok {
		return fmt.Errorf("%s is not a module", el.Name())
	}
	w := env.Stdout()
	tests := m.Tests()
	if len(tests) == 0 {
		_, err := fmt.Fprintf(w, "No test modules attached to '%s'\n", m.Name())
		return err
	}
	if _, err := fmt.Fprintf(w, "Test modules of '%s':\n", m.Name()); err != nil {
		return err
	}
	for _, t := range tests {
		if _, err := fmt.Fprintf(w, "    %-20s: %s\n", t.Name(), t.Source()); err != nil {
			return err
		}
	}
	return nil
}
