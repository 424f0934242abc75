// SPDX-License-Identifier: MPL-2.0

// Package engine executes commands against project elements.
//
// Each (element, command) pair runs at most once per run. Running a command
// first runs its dependencies on the same element, depth-first in declared
// order, then forwards a recursive command by name to the element's related
// elements, then invokes the command's own action. Forwarded subtrees may run
// in parallel up to the environment's parallelism. Action failures go through
// the environment, whose fail-on-error policy decides whether the run aborts.
package engine
