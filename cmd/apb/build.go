// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/config"
	"github.com/apbuild/apb/internal/issue"
	"github.com/apbuild/apb/internal/project"
	"github.com/apbuild/apb/internal/session"
	"github.com/apbuild/apb/pkg/types"

	"github.com/spf13/cobra"
)

// runBuild loads the configuration and project, then builds the targets.
// In continue mode, failed targets are summarized but the exit code stays 0.
func runBuild(cmd *cobra.Command, app *App, flags *buildFlags, targets []string) error {
	if flags.watch {
		return watchBuild(cmd, app, flags, targets)
	}
	return buildOnce(cmd, app, flags, targets)
}

func buildOnce(cmd *cobra.Command, app *App, flags *buildFlags, targets []string) error {
	s, err := openSession(cmd, app, flags)
	if err != nil {
		return err
	}

	report, err := s.Build(cmd.Context(), targets...)
	if err != nil {
		return app.fail(cmd, exitCodeFor(err), err, s.Config().UI.Verbose)
	}
	if report.Stopped {
		return nil
	}

	if n := len(report.Failures); n > 0 {
		fmt.Fprintf(app.stderr, "%s %d failure(s):\n", WarningStyle.Render("!"), n)
		for _, failure := range report.Failures {
			fmt.Fprintf(app.stderr, "  - %s\n", failure)
		}
		return nil
	}
	if !s.Config().UI.Quiet {
		fmt.Fprintf(app.stderr, "%s %d target(s) run\n", SuccessStyle.Render("✓"), len(report.Executed))
	}
	return nil
}

// openSession layers the flags over the loaded configuration and opens the project.
func openSession(cmd *cobra.Command, app *App, flags *buildFlags) (*session.Session, error) {
	cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(flags.configFile),
	})
	if err != nil {
		return nil, app.fail(cmd, types.ExitUsage, err, flags.verbose)
	}
	if err := flags.apply(cfg, cmd.Flags().Changed); err != nil {
		return nil, app.fail(cmd, types.ExitUsage, err, flags.verbose)
	}
	props, err := parseDefines(flags.defines)
	if err != nil {
		return nil, app.fail(cmd, types.ExitUsage, err, flags.verbose)
	}

	s, err := session.Open(cmd.Context(), session.Options{
		Project:    flags.project,
		Config:     cfg,
		Properties: props,
		Stdout:     app.stdout,
		Stderr:     app.stderr,
	})
	if err != nil {
		return nil, app.fail(cmd, exitCodeFor(err), err, cfg.UI.Verbose)
	}
	return s, nil
}

// apply copies the flags the user set onto cfg and revalidates it.
// changed reports whether a flag was given on the command line.
func (f *buildFlags) apply(cfg *config.Config, changed func(string) bool) error {
	if changed("force") {
		cfg.Build.Force = f.force
	}
	if changed("non-recursive") {
		cfg.Build.NonRecursive = f.nonRecursive
	}
	if changed("continue") {
		cfg.Build.FailOnError = !f.keepGoing
	}
	if changed("jobs") {
		cfg.Build.Parallelism = f.jobs
	}
	if changed("verbose") {
		cfg.UI.Verbose = f.verbose
	}
	if changed("quiet") {
		cfg.UI.Quiet = f.quiet
	}
	return cfg.Validate()
}

// parseDefines turns repeated -D key=value flags into a property map.
func parseDefines(defines []string) (map[string]string, error) {
	props := make(map[string]string, len(defines))
	for _, d := range defines {
		key, value, ok := strings.Cut(d, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property definition %q: expected key=value", d)
		}
		props[key] = value
	}
	return props, nil
}

// exitCodeFor maps naming and project mistakes to the usage exit code.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case errors.Is(err, project.ErrElementNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrInvalidProject),
		errors.Is(err, command.ErrCommandNotFound),
		errors.Is(err, config.ErrInvalidConfig):
		return types.ExitUsage
	default:
		return types.ExitBuildFailed
	}
}

// fail reports err on stderr and returns an already-reported ExitError.
// Verbose mode appends the catalog entry linked to the error.
func (a *App) fail(cmd *cobra.Command, code types.ExitCode, err error, verbose bool) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if ae, ok := issue.Actionable(err); ok && verbose {
		if entry := ae.CatalogEntry(); entry != nil {
			if rendered, rerr := entry.Render("auto"); rerr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: code}
}
