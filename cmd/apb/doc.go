// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the apb command line:
//
//	apb [flags] element[.command]...
//
// Each argument names a project element and, optionally, one of its commands;
// without a command the element's default command runs. "apb core.help" lists
// the commands of core.
package cmd
