// SPDX-License-Identifier: MPL-2.0

// Package shell runs target scripts with the embedded POSIX interpreter from
// mvdan.cc/sh, so builds behave the same on every platform without a system
// shell.
package shell
