// SPDX-License-Identifier: MPL-2.0

// Package environment holds the per-run build environment: the project base
// directory, the build policy (force, fail-on-error, non-recursive), user
// properties, the logger and the error channel through which resolution errors
// and target failures are reported.
package environment
