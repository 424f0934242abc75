// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/apbuild/apb/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// ErrScriptFailed is the sentinel error wrapped by ExitError.
	ErrScriptFailed = errors.New("script failed")
	// ErrInvalidScript is returned when a script does not parse.
	ErrInvalidScript = errors.New("invalid script")
)

type (
	// Script is one script invocation.
	Script struct {
		// Name identifies the script in parse errors.
		Name string
		// Source is the script text.
		Source string
		// Dir is the working directory.
		Dir string
		// Env is added on top of the process environment.
		Env map[string]string
		// Args are the positional parameters ($1, $2, ...).
		Args   []string
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExitError reports a script that exited with a non-zero status.
	ExitError struct {
		Name string
		Code types.ExitCode
	}
)

func (e *ExitError) Error() string {
	return fmt.Sprintf("script %s exited with status %s", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error { return ErrScriptFailed }

// Parse checks that src is a valid script.
func Parse(name, src string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return prog, nil
}

// Run executes s. A non-zero exit status is an *ExitError.
func Run(ctx context.Context, s Script) error {
	prog, err := Parse(s.Name, s.Source)
	if err != nil {
		return err
	}

	stdout, stderr := s.Stdout, s.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(environ(s.Env)...)),
		interp.StdIO(nil, stdout, stderr),
	}
	if s.Dir != "" {
		opts = append(opts, interp.Dir(s.Dir))
	}
	// "--" keeps arguments such as "-v" from being read as shell options.
	if len(s.Args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, s.Args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Name: s.Name, Code: types.ExitCode(status)}
		}
		return fmt.Errorf("script %s: %w", s.Name, err)
	}
	return nil
}

// environ returns the process environment followed by extra, sorted by key.
// Later entries win in expand.ListEnviron.
func environ(extra map[string]string) []string {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}
