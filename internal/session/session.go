// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/config"
	"github.com/apbuild/apb/internal/dag"
	"github.com/apbuild/apb/internal/dependency"
	"github.com/apbuild/apb/internal/engine"
	"github.com/apbuild/apb/internal/environment"
	"github.com/apbuild/apb/internal/issue"
	"github.com/apbuild/apb/internal/plugins"
	"github.com/apbuild/apb/internal/project"

	"github.com/charmbracelet/log"
)

type (
	// Options configures Open.
	Options struct {
		// Project is a project directory or definition file; "" means the
		// working directory.
		Project string
		// Config is the effective configuration; nil means config.DefaultConfig.
		Config *config.Config
		// Properties override configured properties.
		Properties map[string]string
		Stdout     io.Writer
		Stderr     io.Writer
		Logger     *log.Logger
	}

	// Session is one loaded project ready to build.
	Session struct {
		cfg      *config.Config
		registry *dependency.Registry
		project  *project.Project
		env      *environment.Environment
		cache    *command.Cache
		engine   *engine.Engine
	}
)

// Open loads the project and prepares the engine.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ext, err := plugins.Extensions(cfg.Extensions)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("enable extensions").
			WithSuggestion(fmt.Sprintf("Available plugins: %s", strings.Join(plugins.Names(), ", "))).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	reg := dependency.NewRegistry()
	p, err := loadProject(opts.Project, reg)
	if err != nil {
		return nil, err
	}

	props := maps.Clone(cfg.Properties)
	if props == nil {
		props = map[string]string{}
	}
	maps.Copy(props, opts.Properties)

	envOpts := []environment.Option{environment.WithProperties(props)}
	if opts.Stdout != nil {
		envOpts = append(envOpts, environment.WithStdout(opts.Stdout))
	}
	if opts.Stderr != nil {
		envOpts = append(envOpts, environment.WithStderr(opts.Stderr))
	}
	if opts.Logger != nil {
		envOpts = append(envOpts, environment.WithLogger(opts.Logger))
	}
	env := environment.New(p.Dir(), EnvironmentOptions(cfg), envOpts...)
	cache := command.NewCache(ext)

	return &Session{
		cfg:      cfg,
		registry: reg,
		project:  p,
		env:      env,
		cache:    cache,
		engine:   engine.New(cache, env),
	}, nil
}

// EnvironmentOptions maps the build and UI configuration onto environment options.
func EnvironmentOptions(cfg *config.Config) environment.Options {
	return environment.Options{
		FailOnError:  cfg.Build.FailOnError,
		ForceBuild:   cfg.Build.Force,
		NonRecursive: cfg.Build.NonRecursive,
		Parallelism:  cfg.Build.Parallelism,
		LibraryDir:   cfg.Build.LibraryDir,
		Verbose:      cfg.UI.Verbose,
		Quiet:        cfg.UI.Quiet,
	}
}

func loadProject(path string, reg *dependency.Registry) (*project.Project, error) {
	if path == "" {
		path = "."
	}
	file := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := project.Find(path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("find project").
				WithResource(path).
				WithSuggestions(
					fmt.Sprintf("Create a %s or %s file", project.CUEFile, project.TOMLFile),
					"Point --project at the project directory",
				).
				WithIssue(issue.ProjectNotFoundId).
				Wrap(err).
				BuildError()
		}
		file = found
	}

	p, err := project.LoadFile(file, reg)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(file).
			WithSuggestion("Fix the reported problems in the project definition").
			WithIssue(issue.ProjectParseErrorId).
			Wrap(err).
			BuildError()
	}
	return p, nil
}

func (s *Session) Config() *config.Config         { return s.cfg }
func (s *Session) Registry() *dependency.Registry { return s.registry }
func (s *Session) Project() *project.Project      { return s.project }
func (s *Session) Env() *environment.Environment  { return s.env }

// Graph returns the command graph of el.
func (s *Session) Graph(el command.Element) (*command.Graph, error) {
	g, err := s.cache.Graph(el.Type())
	if err != nil {
		return nil, describe(err)
	}
	return g, nil
}

// WatchPaths returns the source and resource directories of every element,
// and the output directories a build writes to. Both are relative to the
// project directory with properties expanded.
func (s *Session) WatchPaths() (sources, outputs []string) {
	add := func(list []string, paths ...string) []string {
		for _, p := range paths {
			if p = s.env.ExpandProperties(p); p != "" {
				list = append(list, filepath.Clean(p))
			}
		}
		return list
	}
	for _, m := range s.project.Modules() {
		sources = add(sources, m.Source(), m.Resources())
		outputs = add(outputs, m.OutputBase(), m.Output())
	}
	for _, t := range s.project.TestModules() {
		sources = add(sources, t.Source())
		outputs = add(outputs, t.OutputBase(), t.Output())
	}
	slices.Sort(sources)
	slices.Sort(outputs)
	return slices.Compact(sources), slices.Compact(outputs)
}

// ParseTarget splits "element.command" at the last dot. Without a dot the
// whole string is the element and the command is "" (the default).
func ParseTarget(target string) (element, cmd string) {
	i := strings.LastIndex(target, ".")
	if i < 0 {
		return target, ""
	}
	return target[:i], target[i+1:]
}

// Resolve maps targets onto engine requests. A target naming an element
// outright selects its default command, so dotted element names need no
// special syntax.
func (s *Session) Resolve(targets ...string) ([]engine.Request, error) {
	reqs := make([]engine.Request, 0, len(targets))
	for _, target := range targets {
		if el, err := s.project.Element(target); err == nil {
			reqs = append(reqs, engine.Request{Element: el})
			continue
		}
		name, cmd := ParseTarget(target)
		el, err := s.project.Element(name)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("resolve target").
				WithResource(target).
				WithSuggestion("Run 'apb elements' to list the project's elements").
				WithIssue(issue.ElementNotFoundId).
				Wrap(err).
				BuildError()
		}
		reqs = append(reqs, engine.Request{Element: el, Command: cmd})
	}
	return reqs, nil
}

// Build resolves and runs targets in order. In continue mode failures are
// only reported in the Report and the returned error is nil.
func (s *Session) Build(ctx context.Context, targets ...string) (*engine.Report, error) {
	reqs, err := s.Resolve(targets...)
	if err != nil {
		return nil, err
	}
	report, err := s.engine.Run(ctx, reqs...)
	if err != nil {
		return report, describe(err)
	}
	return report, nil
}

// describe wraps engine errors with the guidance matching their kind.
func describe(err error) error {
	ec := issue.NewErrorContext().Wrap(err)

	var notFound *command.CommandNotFoundError
	var unresolved *command.UnresolvedDefaultError
	var cycle *dag.CycleError
	var failed *engine.ActionFailedError
	switch {
	case errors.As(err, &notFound):
		ec.WithOperation("resolve target").
			WithResource(notFound.Element + "." + notFound.Command).
			WithSuggestion(fmt.Sprintf("Run 'apb %s.help' to list its commands", notFound.Element)).
			WithIssue(issue.CommandNotFoundId)
	case errors.As(err, &unresolved):
		ec.WithOperation("build command graph").
			WithResource(unresolved.Type).
			WithSuggestion(fmt.Sprintf("Declare a target named %q or change the default", unresolved.Default)).
			WithIssue(issue.DefaultTargetUnresolvedId)
	case errors.As(err, &cycle):
		ec.WithOperation("order targets").
			WithSuggestion("Remove one of the depends, before or forwarding links in the cycle").
			WithIssue(issue.DependencyCycleId)
	case errors.As(err, &failed):
		ec.WithOperation("build").
			WithResource(failed.Element + "." + failed.Command).
			WithSuggestion("Run with --verbose for the full error chain").
			WithSuggestion("Use --continue to build the remaining targets").
			WithIssue(issue.TargetFailedId)
	case errors.Is(err, dependency.ErrLibraryNotFound):
		ec.WithOperation("resolve libraries").
			WithSuggestion("Place the library under the library directory or mark it optional").
			WithIssue(issue.LibraryNotFoundId)
	default:
		return err
	}
	return ec.BuildError()
}
