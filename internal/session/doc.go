// SPDX-License-Identifier: MPL-2.0

// Package session wires one build invocation together: the configuration,
// the dependency registry, the enabled extension plugins, the loaded project,
// the environment and the engine. A Session owns its registry; nothing is
// shared between sessions.
package session
