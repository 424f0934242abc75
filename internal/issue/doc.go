// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation that failed, the resource involved and
// suggestions for fixing it. The issue catalog holds longer Markdown guidance
// for the build failures users hit most often (missing project file, unknown
// element or target, unresolved default target, dependency cycles, missing
// libraries, failing targets); it is rendered for the terminal with glamour.
package issue
