// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"path/filepath"

	"github.com/apbuild/apb/internal/watch"

	"github.com/spf13/cobra"
)

// watchBuild builds once, then rebuilds whenever a source or resource
// directory changes. Each rebuild reloads the project so edits to the
// project file take effect. It returns when the command context ends.
func watchBuild(cmd *cobra.Command, app *App, flags *buildFlags, targets []string) error {
	s, err := openSession(cmd, app, flags)
	if err != nil {
		return err
	}
	logger := s.Env().Logger()

	sources, outputs := s.WatchPaths()
	ignore := make([]string, 0, len(outputs))
	for _, out := range outputs {
		ignore = append(ignore, filepath.ToSlash(out)+"/**")
	}

	w, err := watch.New(watch.Config{
		BaseDir: s.Project().Dir(),
		Roots:   sources,
		Ignore:  ignore,
		Logger:  logger,
		OnChange: func(_ context.Context, changed []string) error {
			logger.Info("sources changed, rebuilding", "files", len(changed))
			logger.Debug("changed", "paths", changed)
			return buildOnce(cmd, app, flags, targets)
		},
	})
	if err != nil {
		return app.fail(cmd, exitCodeFor(err), err, s.Config().UI.Verbose)
	}

	// A failed first build still leaves the watcher running.
	_ = buildOnce(cmd, app, flags, targets)
	logger.Info("watching for changes", "directories", len(w.Watched()))
	return w.Run(cmd.Context())
}
