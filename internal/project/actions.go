// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/engine"
	"github.com/apbuild/apb/internal/environment"
	"github.com/apbuild/apb/internal/shell"
	"github.com/apbuild/apb/internal/staleness"
)

// scripted is an element whose targets can carry scripts.
type scripted interface {
	command.Element
	Target(name string) (TargetDefinition, bool)
	Source() string
	properties() [][2]string
	scriptEnv(env *environment.Environment) map[string]string
	guard() *staleness.Guard
}

func moduleAction(fn func(context.Context, *Module, *environment.Environment) error) command.Action {
	return func(ctx context.Context, el command.Element, env *environment.Environment) error {
		m, ok := el.(*Module)
		if !ok {
			return fmt.Errorf("%s is not a module", el.Name())
		}
		return fn(ctx, m, env)
	}
}

func testAction(fn func(context.Context, *TestModule, *environment.Environment) error) command.Action {
	return func(ctx context.Context, el command.Element, env *environment.Environment) error {
		t, ok := el.(*TestModule)
		if !ok {
			return fmt.Errorf("%s is not a test module", el.Name())
		}
		return fn(ctx, t, env)
	}
}

func scriptAction(name string) command.Action {
	return func(ctx context.Context, el command.Element, env *environment.Environment) error {
		s, ok := el.(scripted)
		if !ok {
			return fmt.Errorf("%s cannot run scripts", el.Name())
		}
		return runScript(ctx, s, env, name, nil)
	}
}

func forwardToTests(name string) command.Action {
	return moduleAction(func(ctx context.Context, m *Module, _ *environment.Environment) error {
		return engine.Forward(ctx, name, m.testElements()...)
	})
}

// runScript runs the script attached to target name, if any. When the
// definition names an output file the script only runs if that file is stale.
func runScript(ctx context.Context, el scripted, env *environment.Environment, name string, extra map[string]string) error {
	log := env.Logger()
	def, ok := el.Target(name)
	if !ok || strings.TrimSpace(def.Script) == "" {
		log.Debug("nothing to do", "element", el.Name(), "command", name)
		return nil
	}

	vars := el.scriptEnv(env)
	maps.Copy(vars, extra)
	script := shell.Script{
		Name:   el.Name() + "." + name,
		Source: def.Script,
		Dir:    env.BaseDir(),
		Env:    vars,
		Stdout: env.Stdout(),
		Stderr: env.Stderr(),
	}
	if def.Target == "" {
		return shell.Run(ctx, script)
	}

	t := staleness.Target{
		Path:       env.FileFromBase(env.ExpandProperties(def.Target)),
		SourceRoot: env.FileFromBase(env.ExpandProperties(el.Source())),
		BaseRoot:   env.BaseDir(),
		Force:      env.ForceBuild(),
	}
	for _, s := range def.Sources {
		t.Dependencies = append(t.Dependencies, env.ExpandProperties(s))
	}
	return el.guard().Do(t.Path, func() error {
		d := staleness.CheckTarget(t, env)
		if !d.Execute {
			log.Info("up to date", "element", el.Name(), "command", name, "target", t.Path)
			return nil
		}
		log.Debug("stale", "element", el.Name(), "command", name, "reason", d.Reason)
		return shell.Run(ctx, script)
	})
}

func cleanModule(ctx context.Context, m *Module, env *environment.Environment) error {
	if err := removeOutput(env, m.name, m.outputBase); err != nil {
		return err
	}
	if err := runScript(ctx, m, env, "clean", nil); err != nil {
		return err
	}
	return engine.Forward(ctx, "clean", m.testElements()...)
}

func cleanTests(ctx context.Context, t *TestModule, env *environment.Environment) error {
	if err := removeOutput(env, t.name, t.outputBase); err != nil {
		return err
	}
	return runScript(ctx, t, env, "clean", nil)
}

func removeOutput(env *environment.Environment, element, dir string) error {
	dir = env.FileFromBase(env.ExpandProperties(dir))
	if dir == filepath.Clean(env.BaseDir()) {
		return fmt.Errorf("refusing to remove the project directory %s", dir)
	}
	env.Logger().Info("removing", "element", element, "dir", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}

// copyResources copies every resource file into the output directory unless
// all copies are already newer than their sources.
func copyResources(ctx context.Context, m *Module, env *environment.Environment) error {
	log := env.Logger()
	src := env.FileFromBase(env.ExpandProperties(m.resources))
	dst := env.FileFromBase(env.ExpandProperties(m.output))

	files, err := listFiles(src)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no resources", "element", m.name, "dir", src)
		return runScript(ctx, m, env, "resources", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to list resources of %s: %w", m.name, err)
	}

	mapping := staleness.Mapping{SourceDir: src, TargetDir: dst, Files: files, Force: env.ForceBuild()}
	err = m.guard().Do(dst, func() error {
		d := staleness.CheckMapping(mapping)
		if !d.Execute {
			log.Info("up to date", "element", m.name, "command", "resources")
			return nil
		}
		log.Debug("copying resources", "element", m.name, "files", len(files), "reason", d.Reason)
		for _, f := range files {
			if err := copyFile(filepath.Join(src, f), filepath.Join(dst, f)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return runScript(ctx, m, env, "resources", nil)
}

func runMinimal(ctx context.Context, t *TestModule, env *environment.Environment) error {
	if _, ok := t.Target("run-minimal"); ok {
		return runScript(ctx, t, env, "run-minimal", nil)
	}
	return runScript(ctx, t, env, "run", map[string]string{"APB_TEST_GROUP": "minimal"})
}

func showProperties(_ context.Context, el command.Element, env *environment.Environment) error {
	s, ok := el.(scripted)
	if !ok {
		return fmt.Errorf("%s has no properties", el.Name())
	}
	w := env.Stdout()
	for _, p := range s.properties() {
		if _, err := fmt.Fprintf(w, "%-12s = %s\n", p[0], env.ExpandProperties(p[1])); err != nil {
			return err
		}
	}
	props := env.Properties()
	for _, k := range slices.Sorted(maps.Keys(props)) {
		if _, err := fmt.Fprintf(w, "%-12s = %s\n", k, props[k]); err != nil {
			return err
		}
	}
	return nil
}

// listFiles returns the regular files under dir, relative to dir and sorted.
func listFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	slices.Sort(files)
	return files, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

func (m *Module) guard() *staleness.Guard     { return m.project.guard }
func (t *TestModule) guard() *staleness.Guard { return t.project.guard }

func (m *Module) scriptEnv(env *environment.Environment) map[string]string {
	abs := func(p string) string { return env.FileFromBase(env.ExpandProperties(p)) }
	vars := map[string]string{
		"APB_ELEMENT":     m.name,
		"APB_MODULE_DIR":  abs(m.dir),
		"APB_SOURCE":      abs(m.source),
		"APB_OUTPUT_BASE": abs(m.outputBase),
		"APB_OUTPUT":      abs(m.output),
		"APB_RESOURCES":   abs(m.resources),
		"APB_GROUP":       m.group,
		"APB_VERSION":     m.version,
		"APB_PACKAGE":     "",
	}
	if pkg := m.PackageFile(); pkg != "" {
		vars["APB_PACKAGE"] = abs(pkg)
	}
	return vars
}

func (t *TestModule) scriptEnv(env *environment.Environment) map[string]string {
	abs := func(p string) string { return env.FileFromBase(env.ExpandProperties(p)) }
	return map[string]string{
		"APB_ELEMENT":       t.name,
		"APB_MODULE":        t.module.name,
		"APB_MODULE_OUTPUT": abs(t.module.output),
		"APB_MODULE_DIR":    abs(t.dir),
		"APB_SOURCE":        abs(t.source),
		"APB_OUTPUT_BASE":   abs(t.outputBase),
		"APB_OUTPUT":        abs(t.output),
	}
}
