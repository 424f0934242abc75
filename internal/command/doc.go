// SPDX-License-Identifier: MPL-2.0

// Package command builds the command graph of a project element type.
//
// A Type is an ordered chain of Behaviors, most specific first. Each Behavior
// is a static table of Descriptors (one per build target) plus an optional
// default target name. Build merges extension commands, the chain's targets and
// the built-in help command into an immutable Graph, wires depends/before
// edges and rejects cycles. Graphs are memoized per Type by a Cache.
//
// Two traversal directions over the same chain are intentional: when two
// behaviors declare a target with the same name the more general one wins,
// while the default target is taken from the most specific behavior that
// declares one.
package command
