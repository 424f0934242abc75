// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fail-fast helpers for filesystem and environment
// fixtures used across package tests.
package testutil
