// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath and os.Stat
// that accept and return types.FilesystemPath. Path resolution against a
// project base directory and modification-time lookups used by the
// staleness checks live here so every caller resolves paths the same way.
package fspath

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apbuild/apb/pkg/types"
)

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...))
}

// JoinStr wraps filepath.Join, accepting a typed base path and raw string
// segments (e.g. file names from a source listing).
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Resolve returns p unchanged when it is absolute, otherwise p joined to base.
func Resolve(base, p types.FilesystemPath) types.FilesystemPath {
	if IsAbs(p) {
		return Clean(p)
	}
	return Join(base, p)
}

// Abs wraps filepath.Abs for FilesystemPath.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// FromSlash wraps filepath.FromSlash for FilesystemPath.
func FromSlash(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.FromSlash(string(p)))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// Exists reports whether p names an existing file or directory.
func Exists(p types.FilesystemPath) bool {
	_, err := os.Stat(string(p))
	return err == nil
}

// ModTime returns the modification time of p. The boolean is false when the
// file does not exist or cannot be inspected.
func ModTime(p types.FilesystemPath) (time.Time, bool) {
	info, err := os.Stat(string(p))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
