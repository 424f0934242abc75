// SPDX-License-Identifier: MPL-2.0

// Package types defines the value types shared by the build packages: target
// names, descriptions, filesystem paths and process exit codes. Each type
// carries its own validation and a sentinel error for errors.Is checks.
//
// This package is a leaf dependency: it imports only the standard library.
package types
