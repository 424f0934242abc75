// SPDX-License-Identifier: MPL-2.0

// Package dependency models what a module depends on: other modules, repository
// libraries identified by group, id and version, and local libraries read from
// the filesystem. A Registry owned by the build session gives every logical
// dependency one canonical instance, keyed by name; a List routes every
// insertion through it.
package dependency
