// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apbuild/apb/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand wires the build entry point and its subcommands.
func newRootCommand(app *App) *cobra.Command {
	flags := &buildFlags{}
	root := &cobra.Command{
		Use:   "apb [flags] element[.command]...",
		Short: "A programmatic build tool",
		Long: TitleStyle.Render("apb") + SubtitleStyle.Render(" - A programmatic build tool") + `

apb builds the modules declared in a project.cue or project.toml file.
Every module type has a graph of commands; asking for one runs its
dependencies first, and recursive commands reach the modules it depends on.

` + SubtitleStyle.Render("Examples:") + `
  apb core                  Run the default command of 'core'
  apb core.compile          Compile 'core' and what it depends on
  apb -n core.clean         Clean 'core' only
  apb -w core.compile       Recompile 'core' whenever its sources change
  apb core.help             List the commands of 'core'
  apb elements              List the project's modules and test modules`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runBuild(cmd, app, flags, args)
		},
	}
	root.ValidArgsFunction = completeTargets(app, flags)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.project, "project", "p", "", "project directory or file (default is the working directory)")
	pf.StringVar(&flags.configFile, "config", "", "config file (default is $HOME/.config/apb/config.cue)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "only log warnings and errors")

	f := root.Flags()
	f.BoolVarP(&flags.force, "force", "f", false, "rebuild even when targets are up to date")
	f.BoolVarP(&flags.nonRecursive, "non-recursive", "n", false, "do not forward recursive commands to dependencies")
	f.BoolVarP(&flags.keepGoing, "continue", "c", false, "keep building after a target fails")
	f.IntVarP(&flags.jobs, "jobs", "j", 1, "number of targets built in parallel")
	f.StringArrayVarP(&flags.defines, "define", "D", nil, "set a property (key=value)")
	f.BoolVarP(&flags.watch, "watch", "w", false, "rebuild when module sources change")

	root.AddCommand(newElementsCommand(app, flags))
	root.AddCommand(newConfigCommand(app, flags))
	root.AddCommand(newCompletionCommand(app))
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the apb command line. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError leaves errors the handlers already reported alone.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	if ae, ok := issue.Actionable(err); ok {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
