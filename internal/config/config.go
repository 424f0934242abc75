// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/apbuild/apb/internal/issue"
	"github.com/apbuild/apb/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "apb"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment variable override (APB_BUILD_FORCE, ...).
	EnvPrefix = "APB"
	// ExtPathEnv is the legacy variable mapped onto the ext.path property.
	ExtPathEnv = "APB_EXT_PATH"
	// ExtPathProperty is the property fed by ExtPathEnv.
	ExtPathProperty = "ext.path"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the apb configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions resolves the config file (explicit path, config dir, then the
// working directory), layers it over the defaults and applies APB_* overrides.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("build.fail_on_error", defaults.Build.FailOnError)
	v.SetDefault("build.force", defaults.Build.Force)
	v.SetDefault("build.non_recursive", defaults.Build.NonRecursive)
	v.SetDefault("build.parallelism", defaults.Build.Parallelism)
	v.SetDefault("build.library_dir", defaults.Build.LibraryDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.quiet", defaults.UI.Quiet)
	v.SetDefault("extensions", defaults.Extensions)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	properties := map[string]string{}
	if path != "" {
		properties, err = loadCUEIntoViper(v, path)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Properties = properties
	if extPath := os.Getenv(ExtPathEnv); extPath != "" {
		cfg.Properties[ExtPathProperty] = extPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check APB_* environment variables as well as the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'apb config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}

	cfgDir := string(opts.ConfigDirPath)
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	name := ConfigFileName + "." + ConfigFileExt
	if p := filepath.Join(cfgDir, name); fileExists(p) {
		return p, nil
	}
	if fileExists(name) {
		return name, nil
	}
	return "", nil
}

// loadCUEIntoViper validates the file against #Config and merges it into v.
// The properties map is returned separately because Viper lowercases keys.
//
// The flow is hand-rolled rather than cueutil.ParseAndDecode because fields are
// optional (non-concrete validation) and the result is merged as a map.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	properties := map[string]string{}
	if raw, ok := configMap["properties"].(map[string]any); ok {
		for k, val := range raw {
			properties[k] = fmt.Sprint(val)
		}
	}
	delete(configMap, "properties")

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return properties, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// apb configuration file\n\n")

	sb.WriteString("build: {\n")
	fmt.Fprintf(&sb, "\tfail_on_error: %v\n", cfg.Build.FailOnError)
	fmt.Fprintf(&sb, "\tforce:         %v\n", cfg.Build.Force)
	fmt.Fprintf(&sb, "\tnon_recursive: %v\n", cfg.Build.NonRecursive)
	fmt.Fprintf(&sb, "\tparallelism:   %d\n", cfg.Build.Parallelism)
	fmt.Fprintf(&sb, "\tlibrary_dir:   %q\n", cfg.Build.LibraryDir)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tquiet:   %v\n", cfg.UI.Quiet)
	sb.WriteString("}\n")

	sb.WriteString("\nextensions: [")
	for i, name := range cfg.Extensions {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", name)
	}
	sb.WriteString("]\n")

	if len(cfg.Properties) > 0 {
		keys := make([]string, 0, len(cfg.Properties))
		for k := range cfg.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nproperties: {\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\t%q: %q\n", k, cfg.Properties[k])
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
