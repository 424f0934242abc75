// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// KindModule is a buildable project module (or test module).
	KindModule Kind = iota + 1
	// KindLibrary is an external artifact.
	KindLibrary
)

const (
	// ScopeAll is visible in both phases; undecorated dependencies have it.
	ScopeAll Scope = iota
	// ScopeCompileOnly is visible only while compiling.
	ScopeCompileOnly
	// ScopeRuntimeOnly is visible only at runtime.
	ScopeRuntimeOnly
)

const (
	PackageJar PackageType = "jar"
	PackageWar PackageType = "war"
	PackageEar PackageType = "ear"
	PackageZip PackageType = "zip"
	// PackageNone marks a module that produces no package.
	PackageNone PackageType = "none"
)

// ErrLibraryNotFound is the sentinel error wrapped by LibraryNotFoundError.
var ErrLibraryNotFound = errors.New("library not found")

type (
	Kind int

	// Scope restricts the phase in which a dependency is visible.
	Scope int

	// PackageType is the kind of archive a module packages into or a library is read from.
	PackageType string

	// Dependency is anything a module can depend on. Name is its identity:
	// two dependencies with the same name are the same logical entity.
	Dependency interface {
		Name() string
		Kind() Kind
		MustInclude(forCompile bool) bool
	}

	// Library is a dependency backed by a file.
	Library interface {
		Dependency
		// Artifact returns the absolute path of the file for packageType, or ""
		// when there is none. A missing mandatory file is reported through env;
		// the error is non-nil only when env decides the run must stop.
		Artifact(env Env, packageType PackageType) (string, error)
	}

	// Env is the part of the build environment that library resolution needs.
	Env interface {
		FileFromBase(p string) string
		LibraryDir() string
		Handle(err error) error
	}

	// RepositoryLibrary is resolved from the library directory by coordinate.
	RepositoryLibrary struct {
		Group   string
		ID      string
		Version string
	}

	// LocalLibrary is a library read from a path relative to the project base.
	// RuntimePath and SourcesPath are resolved the same way when set.
	LocalLibrary struct {
		Path        string
		RuntimePath string
		SourcesPath string
		// Optional libraries may be absent without it being an error.
		Optional bool
	}

	// Decorated restricts the visibility of Inner to one phase. Identity
	// and artifacts are those of Inner.
	Decorated struct {
		Inner Dependency
		Scope Scope
	}

	// LibraryNotFoundError reports a mandatory library file that does not exist.
	LibraryNotFoundError struct {
		Library string
		Path    string
	}
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindLibrary:
		return "library"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (s Scope) String() string {
	switch s {
	case ScopeCompileOnly:
		return "compile"
	case ScopeRuntimeOnly:
		return "runtime"
	default:
		return "all"
	}
}

// Ext returns the file extension of the package type, or "" for PackageNone.
func (p PackageType) Ext() string {
	if p == PackageNone || p == "" {
		return ""
	}
	return string(p)
}

// IsValid reports whether p is a known package type.
func (p PackageType) IsValid() bool {
	switch p {
	case PackageJar, PackageWar, PackageEar, PackageZip, PackageNone:
		return true
	default:
		return false
	}
}

func (e *LibraryNotFoundError) Error() string {
	return fmt.Sprintf("library %s not found: %s", e.Library, e.Path)
}

func (e *LibraryNotFoundError) Unwrap() error { return ErrLibraryNotFound }

// DisplayName joins group, version and id with dots, skipping empty parts.
func DisplayName(group, id, version string) string {
	name := group
	if group != "" {
		name += "."
	}
	name += version
	if version != "" {
		name += "."
	}
	return name + id
}

// CompileOnly wraps deps so they are only visible while compiling.
func CompileOnly(deps ...Dependency) []Dependency {
	return decorate(ScopeCompileOnly, deps)
}

// RuntimeOnly wraps deps so they are only visible at runtime.
func RuntimeOnly(deps ...Dependency) []Dependency {
	return decorate(ScopeRuntimeOnly, deps)
}

func decorate(scope Scope, deps []Dependency) []Dependency {
	out := make([]Dependency, len(deps))
	for i, d := range deps {
		out[i] = &Decorated{Inner: Undecorated(d), Scope: scope}
	}
	return out
}

// Undecorated strips any Decorated wrappers from dep.
func Undecorated(dep Dependency) Dependency {
	for {
		d, ok := dep.(*Decorated)
		if !ok {
			return dep
		}
		dep = d.Inner
	}
}

func (l *RepositoryLibrary) Name() string { return DisplayName(l.Group, l.ID, l.Version) }

func (l *RepositoryLibrary) String() string { return l.Name() }

func (l *RepositoryLibrary) Kind() Kind { return KindLibrary }

func (l *RepositoryLibrary) MustInclude(bool) bool { return true }

// Path returns where the library file is expected:
// <libdir>/<group>/<id>[-<version>].<ext>, without the group directory when
// the group is empty.
func (l *RepositoryLibrary) Path(libDir string, packageType PackageType) string {
	file := l.ID
	if l.Version != "" {
		file += "-" + l.Version
	}
	if ext := packageType.Ext(); ext != "" {
		file += "." + ext
	}
	if l.Group == "" {
		return filepath.Join(libDir, file)
	}
	return filepath.Join(libDir, l.Group, file)
}

func (l *RepositoryLibrary) Artifact(env Env, packageType PackageType) (string, error) {
	if packageType == "" {
		packageType = PackageJar
	}
	path := l.Path(env.LibraryDir(), packageType)
	if fileExists(path) {
		return absolute(path), nil
	}
	return "", env.Handle(&LibraryNotFoundError{Library: l.Name(), Path: path})
}

func (l *LocalLibrary) Name() string { return DisplayName("", l.Path, "") }

func (l *LocalLibrary) String() string { return l.Name() }

func (l *LocalLibrary) Kind() Kind { return KindLibrary }

func (l *LocalLibrary) MustInclude(bool) bool { return true }

// Artifact resolves Path; packageType is ignored.
func (l *LocalLibrary) Artifact(env Env, _ PackageType) (string, error) {
	return l.resolve(env, l.Path)
}

// RuntimeArtifact resolves RuntimePath, falling back to Path when it is unset.
func (l *LocalLibrary) RuntimeArtifact(env Env) (string, error) {
	if l.RuntimePath == "" {
		return l.resolve(env, l.Path)
	}
	return l.resolve(env, l.RuntimePath)
}

// Sources resolves SourcesPath; "" when unset.
func (l *LocalLibrary) Sources(env Env) (string, error) {
	if l.SourcesPath == "" {
		return "", nil
	}
	return l.resolve(env, l.SourcesPath)
}

func (l *LocalLibrary) resolve(env Env, p string) (string, error) {
	file := env.FileFromBase(p)
	if fileExists(file) {
		return absolute(file), nil
	}
	if l.Optional {
		return "", nil
	}
	return "", env.Handle(&LibraryNotFoundError{Library: l.Name(), Path: file})
}

func (d *Decorated) Name() string { return d.Inner.Name() }

func (d *Decorated) String() string { return d.Scope.String() + "(" + d.Inner.Name() + ")" }

func (d *Decorated) Kind() Kind { return d.Inner.Kind() }

// MustInclude is true only in the phase matching Scope.
func (d *Decorated) MustInclude(forCompile bool) bool {
	switch d.Scope {
	case ScopeCompileOnly:
		return forCompile
	case ScopeRuntimeOnly:
		return !forCompile
	default:
		return d.Inner.MustInclude(forCompile)
	}
}

// Artifact delegates to Inner when it is a Library.
func (d *Decorated) Artifact(env Env, packageType PackageType) (string, error) {
	lib, ok := d.Inner.(Library)
	if !ok {
		return "", nil
	}
	return lib.Artifact(env, packageType)
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
