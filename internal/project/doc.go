// SPDX-License-Identifier: MPL-2.0

// Package project loads project definitions (project.cue or project.toml)
// into buildable elements and defines their element types.
//
// A Module is the main element: it has sources, resources, an output
// directory, dependencies and attached test modules. Module and TestModule
// implement both command.Element, so the engine can run targets on them, and
// dependency.Dependency, so other modules can depend on them.
//
// The built-in targets of each type are declared in types.go. Targets named in
// a project definition either attach a script to a built-in target or, for
// any other name, add a custom target to that one module.
package project
