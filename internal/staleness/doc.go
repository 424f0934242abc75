// SPDX-License-Identifier: MPL-2.0

// Package staleness decides whether a target action must run, from file
// modification times. A target is stale when it is missing or when one of its
// inputs is strictly newer than it; equal times are up to date.
package staleness
