// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/apbuild/apb/internal/config"
	"github.com/apbuild/apb/internal/issue"
	"github.com/apbuild/apb/pkg/types"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `apb config` command tree.
func newConfigCommand(app *App, flags *buildFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage apb configuration",
		Long: `Manage apb configuration.

Configuration is stored in:
  - Linux: ~/.config/apb/config.cue
  - macOS: ~/Library/Application Support/apb/config.cue
  - Windows: %APPDATA%\apb\config.cue

Every setting can be overridden with an APB_* environment variable,
for example APB_BUILD_PARALLELISM=4.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, app, flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	return cfgCmd
}

func loadConfig(cmd *cobra.Command, app *App, flags *buildFlags) (*config.Config, error) {
	cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(flags.configFile),
	})
	if err != nil {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		if rendered, rerr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); rerr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, flags.verbose))
		return nil, &ExitError{Code: types.ExitUsage}
	}
	return cfg, nil
}

func showConfig(cmd *cobra.Command, app *App, flags *buildFlags) error {
	cfg, err := loadConfig(cmd, app, flags)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle.Bold(true)
	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("build"))
	fmt.Fprintf(app.stdout, "  fail_on_error: %v\n", cfg.Build.FailOnError)
	fmt.Fprintf(app.stdout, "  force: %v\n", cfg.Build.Force)
	fmt.Fprintf(app.stdout, "  non_recursive: %v\n", cfg.Build.NonRecursive)
	fmt.Fprintf(app.stdout, "  parallelism: %d\n", cfg.Build.Parallelism)
	fmt.Fprintf(app.stdout, "  library_dir: %s\n", cfg.Build.LibraryDir)

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  verbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(app.stdout, "  quiet: %v\n", cfg.UI.Quiet)

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("extensions"))
	if len(cfg.Extensions) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, ext := range cfg.Extensions {
		fmt.Fprintf(app.stdout, "  - %s\n", ext)
	}

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("properties"))
	if len(cfg.Properties) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, key := range slices.Sorted(maps.Keys(cfg.Properties)) {
		fmt.Fprintf(app.stdout, "  %s = %s\n", key, cfg.Properties[key])
	}
	return nil
}

func initConfig(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
