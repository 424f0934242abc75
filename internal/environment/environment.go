// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/apbuild/apb/pkg/fspath"
	"github.com/apbuild/apb/pkg/types"

	"github.com/charmbracelet/log"
)

// LogPrefix prefixes every log line.
const LogPrefix = "apb"

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

type (
	// Options is the build policy of one run.
	Options struct {
		FailOnError  bool
		ForceBuild   bool
		NonRecursive bool
		Quiet        bool
		Verbose      bool
		// Parallelism bounds how many actions run at once.
		Parallelism int
		// LibraryDir is where repository libraries are resolved, relative to the base dir.
		LibraryDir string
	}

	// Option customizes an Environment.
	Option func(*Environment)

	// Environment is shared by every target of a run and is safe for concurrent use.
	Environment struct {
		baseDir    string
		opts       Options
		properties map[string]string
		stdout     io.Writer
		stderr     io.Writer
		logger     *log.Logger

		mu       sync.Mutex
		failures []error
		warnings []string
	}
)

// WithStdout redirects target output.
func WithStdout(w io.Writer) Option {
	return func(e *Environment) { e.stdout = w }
}

// WithStderr redirects diagnostics and the default logger.
func WithStderr(w io.Writer) Option {
	return func(e *Environment) { e.stderr = w }
}

// WithProperties sets the user properties available to ExpandProperties.
func WithProperties(props map[string]string) Option {
	return func(e *Environment) {
		for k, v := range props {
			e.properties[k] = v
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// New creates an Environment rooted at baseDir.
func New(baseDir string, opts Options, options ...Option) *Environment {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.LibraryDir == "" {
		opts.LibraryDir = "lib"
	}
	e := &Environment{
		baseDir:    filepath.Clean(baseDir),
		opts:       opts,
		properties: map[string]string{},
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, o := range options {
		o(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(e.stderr, log.Options{Prefix: LogPrefix})
		switch {
		case opts.Verbose:
			e.logger.SetLevel(log.DebugLevel)
		case opts.Quiet:
			e.logger.SetLevel(log.WarnLevel)
		}
	}
	return e
}

func (e *Environment) BaseDir() string     { return e.baseDir }
func (e *Environment) Options() Options    { return e.opts }
func (e *Environment) ForceBuild() bool    { return e.opts.ForceBuild }
func (e *Environment) FailOnError() bool   { return e.opts.FailOnError }
func (e *Environment) NonRecursive() bool  { return e.opts.NonRecursive }
func (e *Environment) Parallelism() int    { return e.opts.Parallelism }
func (e *Environment) Logger() *log.Logger { return e.logger }
func (e *Environment) Stdout() io.Writer   { return e.stdout }
func (e *Environment) Stderr() io.Writer   { return e.stderr }
func (e *Environment) LibraryDir() string  { return e.FileFromBase(e.opts.LibraryDir) }
func (e *Environment) Verbose() bool       { return e.opts.Verbose }
func (e *Environment) Quiet() bool         { return e.opts.Quiet }

// FileFromBase resolves p against the base directory; absolute paths are returned cleaned.
func (e *Environment) FileFromBase(p string) string {
	return string(fspath.Resolve(types.FilesystemPath(e.baseDir), types.FilesystemPath(p)))
}

// Property returns a user property.
func (e *Environment) Property(name string) (string, bool) {
	v, ok := e.properties[name]
	return v, ok
}

// Properties returns a copy of the user properties.
func (e *Environment) Properties() map[string]string {
	out := make(map[string]string, len(e.properties))
	for k, v := range e.properties {
		out[k] = v
	}
	return out
}

// ExpandProperties replaces $name and ${name} with property values; dotted
// names need the braced form. Unknown references are left untouched.
func (e *Environment) ExpandProperties(s string) string {
	return propertyRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := propertyRef.FindStringSubmatch(ref)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := e.properties[name]; ok {
			return v
		}
		return ref
	})
}

// Handle reports a resolution error or target failure. Under fail-on-error
// it returns err so the caller aborts; otherwise the failure is recorded,
// logged, and nil is returned.
func (e *Environment) Handle(err error) error {
	if err == nil {
		return nil
	}
	e.mu.Lock()
	e.failures = append(e.failures, err)
	e.mu.Unlock()

	if e.opts.FailOnError {
		return err
	}
	e.logger.Error("continuing after failure", "error", err)
	return nil
}

// Warn reports a non-fatal problem.
func (e *Environment) Warn(msg string, keyvals ...any) {
	e.mu.Lock()
	e.warnings = append(e.warnings, msg)
	e.mu.Unlock()
	e.logger.Warn(msg, keyvals...)
}

// Failures returns every error passed to Handle, in order.
func (e *Environment) Failures() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.failures...)
}

// Warnings returns the messages passed to Warn, in order.
func (e *Environment) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.warnings...)
}

// Err joins every recorded failure, or returns nil.
func (e *Environment) Err() error {
	return errors.Join(e.Failures()...)
}
