// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"maps"
	"slices"

	"github.com/apbuild/apb/pkg/types"
)

type (
	// Plugin contributes namespaced commands to every command graph.
	// Depends and Before of plugin descriptors are not wired: extension
	// commands are shared by every graph and carry no edges.
	Plugin interface {
		Namespace() string
		Targets() []Descriptor
	}

	// Extensions is the set of commands contributed by an explicit plugin list.
	Extensions struct {
		commands map[string]*Command
	}
)

// NewExtensions registers the targets of plugins under "<namespace>:<name>".
// Later plugins replace same-named commands of earlier ones.
func NewExtensions(plugins ...Plugin) (*Extensions, error) {
	ext := &Extensions{commands: make(map[string]*Command)}
	for _, p := range plugins {
		for _, d := range p.Targets() {
			name := types.NewCommandName(p.Namespace(), d.TargetName())
			if ok, errs := name.IsValid(); !ok {
				return nil, fmt.Errorf("plugin %s: %w", p.Namespace(), errs[0])
			}
			ext.commands[string(name)] = &Command{
				name:        name,
				description: d.Description,
				recursive:   d.Recursive,
				kind:        KindExtension,
				action:      d.Action,
				behavior:    p.Namespace(),
			}
		}
	}
	return ext, nil
}

// Names returns the qualified names of every extension command, sorted.
func (e *Extensions) Names() []string {
	if e == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(e.commands))
}

// Lookup returns the extension command with the qualified name.
func (e *Extensions) Lookup(name string) (*Command, bool) {
	if e == nil {
		return nil, false
	}
	c, ok := e.commands[name]
	return c, ok
}
