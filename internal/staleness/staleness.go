// SPDX-License-Identifier: MPL-2.0

package staleness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type (
	// Warner receives "dependency not found" warnings.
	Warner interface {
		Warn(msg string, keyvals ...any)
	}

	// Decision is the outcome of a staleness check.
	Decision struct {
		Execute bool
		// Reason explains the decision for verbose logging.
		Reason string
		// Missing lists dependencies that resolved under neither root.
		Missing []string
	}

	// Target describes one output file and the inputs it is built from.
	Target struct {
		Path string
		// Dependencies are resolved under SourceRoot first, then BaseRoot.
		// Absolute paths are used as is.
		Dependencies []string
		SourceRoot   string
		BaseRoot     string
		Force        bool
	}

	// Mapping describes a directory of outputs derived file by file from a
	// directory of sources. The target of file f is TargetDir/f with every
	// occurrence of From replaced by To. An empty From maps f to itself.
	Mapping struct {
		SourceDir string
		TargetDir string
		From      string
		To        string
		// Files are relative to SourceDir.
		Files []string
		Force bool
	}

	// Guard serializes the check and the action writing the same target.
	Guard struct {
		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}
)

// CheckTarget decides whether t.Path must be rebuilt. Unresolvable
// dependencies are reported to warn and otherwise ignored.
func CheckTarget(t Target, warn Warner) Decision {
	if t.Force {
		return Decision{Execute: true, Reason: "forced"}
	}
	targetTime, ok := modTime(t.Path)
	if !ok {
		return Decision{Execute: true, Reason: fmt.Sprintf("target %s does not exist", t.Path)}
	}

	var missing []string
	for _, dep := range t.Dependencies {
		file, ok := resolve(dep, t.SourceRoot, t.BaseRoot)
		if !ok {
			missing = append(missing, dep)
			if warn != nil {
				warn.Warn("dependency not found", "dependency", dep, "target", t.Path)
			}
			continue
		}
		if depTime, _ := modTime(file); depTime.After(targetTime) {
			return Decision{
				Execute: true,
				Reason:  fmt.Sprintf("%s is newer than %s", file, t.Path),
				Missing: missing,
			}
		}
	}
	return Decision{Reason: fmt.Sprintf("%s is up to date", t.Path), Missing: missing}
}

// CheckMapping decides whether any mapped target is missing or older than its source.
func CheckMapping(m Mapping) Decision {
	if m.Force {
		return Decision{Execute: true, Reason: "forced"}
	}
	for _, f := range m.Files {
		target := filepath.Join(m.TargetDir, m.targetName(f))
		targetTime, ok := modTime(target)
		if !ok {
			return Decision{Execute: true, Reason: fmt.Sprintf("target %s does not exist", target)}
		}
		source := filepath.Join(m.SourceDir, f)
		if sourceTime, ok := modTime(source); ok && sourceTime.After(targetTime) {
			return Decision{Execute: true, Reason: fmt.Sprintf("%s is newer than %s", source, target)}
		}
	}
	return Decision{Reason: fmt.Sprintf("%s is up to date", m.TargetDir)}
}

func (m Mapping) targetName(f string) string {
	if m.From == "" {
		return f
	}
	return strings.ReplaceAll(f, m.From, m.To)
}

func resolve(dep, sourceRoot, baseRoot string) (string, bool) {
	if filepath.IsAbs(dep) {
		return dep, exists(dep)
	}
	for _, root := range []string{sourceRoot, baseRoot} {
		if root == "" {
			continue
		}
		if p := filepath.Join(root, dep); exists(p) {
			return p, true
		}
	}
	return "", false
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func modTime(p string) (time.Time, bool) {
	info, err := os.Stat(p)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// NewGuard creates a Guard.
func NewGuard() *Guard {
	return &Guard{locks: make(map[string]*sync.Mutex)}
}

// Do runs fn while holding the lock for target.
func (g *Guard) Do(target string, fn func() error) error {
	l := g.lock(filepath.Clean(target))
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (g *Guard) lock(target string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[target]
	if !ok {
		l = &sync.Mutex{}
		g.locks[target] = l
	}
	return l
}
