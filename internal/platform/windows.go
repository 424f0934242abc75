// SPDX-License-Identifier: MPL-2.0

// Package platform holds cross-platform path checks.
package platform

import (
	"path"
	"path/filepath"
	"strings"
)

// windowsReservedNames cannot be used as file or directory names on Windows,
// with or without an extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName reports whether name, ignoring its extension, is
// reserved on Windows.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.LastIndex(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}

// ReservedSegment returns the first segment of the relative path p that is
// reserved on Windows.
func ReservedSegment(p string) (string, bool) {
	for _, seg := range strings.Split(path.Clean(filepath.ToSlash(p)), "/") {
		if IsWindowsReservedName(seg) {
			return seg, true
		}
	}
	return "", false
}
