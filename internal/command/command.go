// SPDX-License-Identifier: MPL-2.0

package command

import "github.com/apbuild/apb/pkg/types"

const (
	// KindInstance commands come from a Behavior's descriptor table.
	KindInstance Kind = iota + 1
	// KindExtension commands come from a Plugin and join every graph.
	KindExtension
	// KindHelp is the built-in command listing a graph.
	KindHelp
)

// HelpName is the name of the built-in help command.
const HelpName = "help"

// DefaultName looks up a graph's default command.
const DefaultName = "default"

type (
	Kind int

	// Command is a named build action in a Graph. Commands are immutable once
	// their graph is built; extension commands and help are shared by graphs.
	Command struct {
		name        types.CommandName
		description string
		recursive   bool
		kind        Kind
		action      Action
		behavior    string
		deps        []*Command

		// Wiring inputs for instance commands.
		depends []string
		before  string
	}
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindExtension:
		return "extension"
	case KindHelp:
		return "help"
	default:
		return "unknown"
	}
}

var helpCommand = &Command{
	name:        HelpName,
	description: "List the available commands with a brief description",
	kind:        KindHelp,
}

func newInstance(b *Behavior, d Descriptor) *Command {
	return &Command{
		name:        types.CommandName(d.TargetName()),
		description: d.Description,
		recursive:   d.Recursive,
		kind:        KindInstance,
		action:      d.Action,
		behavior:    b.Name,
		depends:     append([]string(nil), d.Depends...),
		before:      d.Before,
	}
}

// Name returns the qualified name ("compile", "info:deps").
func (c *Command) Name() string { return string(c.name) }

// LocalName returns the name without its namespace.
func (c *Command) LocalName() string { return c.name.Local() }

// Namespace returns the namespace, or "".
func (c *Command) Namespace() string { return c.name.Namespace() }

// HasNamespace reports whether the command is namespaced.
func (c *Command) HasNamespace() bool { return c.name.HasNamespace() }

func (c *Command) Description() string { return c.description }

// Recursive reports whether the command is forwarded to related elements.
func (c *Command) Recursive() bool { return c.recursive }

func (c *Command) Kind() Kind { return c.kind }

// Behavior names the behavior that declared an instance command.
func (c *Command) Behavior() string { return c.behavior }

// Action returns the command body; nil for help.
func (c *Command) Action() Action { return c.action }

// Dependencies returns the commands that run first, in order.
func (c *Command) Dependencies() []*Command {
	return append([]*Command(nil), c.deps...)
}

func (c *Command) String() string { return c.Name() }
