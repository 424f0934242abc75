// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"github.com/apbuild/apb/internal/config"
)

type (
	// App holds the services and streams shared by every command handler.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies are the injection points of NewApp; nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// buildFlags are the root command's flags.
	buildFlags struct {
		force        bool
		nonRecursive bool
		keepGoing    bool
		watch        bool
		quiet        bool
		verbose      bool
		jobs         int
		defines      []string
		project      string
		configFile   string
	}
)

// NewApp creates an App.
func NewApp(deps Dependencies) *App {
	app := &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}
