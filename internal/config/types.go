// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/apbuild/apb/pkg/types"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
	ErrInvalidLoadOptions = errors.New("invalid load options")

	extensionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

type (
	// Config is the effective apb configuration.
	Config struct {
		Build BuildConfig `json:"build" mapstructure:"build"`
		UI    UIConfig    `json:"ui" mapstructure:"ui"`
		// Extensions lists the plugins whose commands join every command graph.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// Properties are user-defined values available to target scripts.
		// They are kept out of Viper so their keys stay case-sensitive.
		Properties map[string]string `json:"properties" mapstructure:"-"`
	}

	// BuildConfig holds the build policy.
	BuildConfig struct {
		FailOnError  bool   `json:"fail_on_error" mapstructure:"fail_on_error"`
		Force        bool   `json:"force" mapstructure:"force"`
		NonRecursive bool   `json:"non_recursive" mapstructure:"non_recursive"`
		Parallelism  int    `json:"parallelism" mapstructure:"parallelism"`
		LibraryDir   string `json:"library_dir" mapstructure:"library_dir"`
	}

	// UIConfig controls log verbosity.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		Quiet   bool `json:"quiet" mapstructure:"quiet"`
	}

	// InvalidConfigError lists every field that failed validation.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidLoadOptionsError lists every LoadOptions field that failed validation.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file sets a value.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			FailOnError: true,
			Parallelism: 1,
			LibraryDir:  "lib",
		},
		Extensions: []string{"info"},
		Properties: map[string]string{},
	}
}

// Validate checks constraints that also hold for values coming from
// environment variables, which bypass the CUE schema.
func (c *Config) Validate() error {
	var errs []error
	if c.Build.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("build.parallelism must be at least 1, got %d", c.Build.Parallelism))
	}
	if strings.TrimSpace(c.Build.LibraryDir) == "" {
		errs = append(errs, errors.New("build.library_dir must not be empty"))
	}
	if c.UI.Verbose && c.UI.Quiet {
		errs = append(errs, errors.New("ui.verbose and ui.quiet are mutually exclusive"))
	}
	for i, name := range c.Extensions {
		if !extensionNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("extensions[%d]: invalid plugin name %q", i, name))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", errors.Join(e.FieldErrors...))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate rejects whitespace-only paths; empty paths mean "not set".
func (o LoadOptions) Validate() error {
	var errs []error
	for _, p := range []types.FilesystemPath{o.ConfigFilePath, o.ConfigDirPath} {
		if p == "" {
			continue
		}
		if ok, fieldErrs := p.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %d field error(s)", len(e.FieldErrors))
}

func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }
