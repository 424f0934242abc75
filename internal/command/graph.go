// SPDX-License-Identifier: MPL-2.0

package command

import (
	"maps"
	"slices"
	"sync"

	"github.com/apbuild/apb/internal/dag"
)

type (
	// Graph is the immutable command set of one Type.
	Graph struct {
		typ        *Type
		commands   map[string]*Command
		defaultCmd *Command
	}

	// Cache memoizes graphs per Type.
	Cache struct {
		ext *Extensions

		mu     sync.Mutex
		graphs map[*Type]*Graph
	}
)

// Build constructs the command graph of t:
//
//  1. every extension command, keyed by qualified name;
//  2. the targets of each behavior, most specific first, a later (more
//     general) behavior replacing a same-named target;
//  3. after each behavior, if no default is set yet and the behavior declares
//     one, the default is resolved against the targets collected so far;
//  4. help, replacing anything named "help";
//  5. depends and before edges, ignoring unknown names.
//
// An unresolvable default is an UnresolvedDefaultError; a cycle is a dag.CycleError.
func Build(t *Type, ext *Extensions) (*Graph, error) {
	g := &Graph{typ: t, commands: make(map[string]*Command)}
	if ext != nil {
		for name, c := range ext.commands {
			g.commands[name] = c
		}
	}

	instances := make(map[string]*Command)
	for _, b := range t.chain {
		for _, d := range b.Targets {
			c := newInstance(b, d)
			instances[c.Name()] = c
		}
		if g.defaultCmd == nil && b.Default != "" {
			def, ok := instances[b.Default]
			if !ok {
				return nil, &UnresolvedDefaultError{Type: t.name, Behavior: b.Name, Default: b.Default}
			}
			g.defaultCmd = def
		}
	}
	for name, c := range instances {
		g.commands[name] = c
	}
	g.commands[HelpName] = helpCommand

	// The default may have been replaced by a more general same-named target;
	// it is still wired and reachable through "default".
	resolvable := maps.Clone(instances)
	if g.defaultCmd != nil {
		resolvable[DefaultName] = g.defaultCmd
	}
	for _, c := range g.wiringOrder(instances) {
		for _, dep := range c.depends {
			if target, ok := resolvable[dep]; ok {
				c.deps = append(c.deps, target)
			}
		}
		if c.before == "" {
			continue
		}
		if target, ok := resolvable[c.before]; ok {
			target.deps = append(target.deps, c)
		}
	}

	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// wiringOrder returns every distinct instance command in a deterministic order.
func (g *Graph) wiringOrder(instances map[string]*Command) []*Command {
	names := slices.Sorted(maps.Keys(instances))
	out := make([]*Command, 0, len(names)+1)
	for _, n := range names {
		out = append(out, instances[n])
	}
	if g.defaultCmd != nil && !slices.Contains(out, g.defaultCmd) {
		out = append(out, g.defaultCmd)
	}
	return out
}

func (g *Graph) checkCycles() error {
	d := dag.New()
	ids := make(map[*Command]string)
	id := func(c *Command) string {
		if s, ok := ids[c]; ok {
			return s
		}
		s := c.Name()
		if g.commands[s] != c {
			s += "@" + c.behavior
		}
		ids[c] = s
		return s
	}

	var roots []string
	seen := make(map[*Command]bool)
	var add func(c *Command)
	add = func(c *Command) {
		if seen[c] {
			return
		}
		seen[c] = true
		d.AddNode(id(c))
		for _, dep := range c.deps {
			d.AddEdge(id(dep), id(c))
			add(dep)
		}
	}
	for _, name := range g.Names() {
		add(g.commands[name])
		roots = append(roots, id(g.commands[name]))
	}
	if g.defaultCmd != nil {
		add(g.defaultCmd)
		roots = append(roots, id(g.defaultCmd))
	}
	_, err := d.Order(roots...)
	return err
}

// Type returns the type the graph was built from.
func (g *Graph) Type() *Type { return g.typ }

// Lookup returns the command with the given name. "" and "default" select
// the default command.
func (g *Graph) Lookup(name string) (*Command, bool) {
	if name == "" || name == DefaultName {
		return g.defaultCmd, g.defaultCmd != nil
	}
	c, ok := g.commands[name]
	return c, ok
}

// Default returns the default command, or nil.
func (g *Graph) Default() *Command { return g.defaultCmd }

// Names returns every command name, sorted.
func (g *Graph) Names() []string {
	return slices.Sorted(maps.Keys(g.commands))
}

// Commands returns every command sorted by name.
func (g *Graph) Commands() []*Command {
	names := g.Names()
	out := make([]*Command, len(names))
	for i, n := range names {
		out[i] = g.commands[n]
	}
	return out
}

// NewCache creates a Cache building graphs with ext.
func NewCache(ext *Extensions) *Cache {
	return &Cache{ext: ext, graphs: make(map[*Type]*Graph)}
}

// Graph returns the memoized graph of t, building it on first use. Build
// errors are not cached.
func (c *Cache) Graph(t *Type) (*Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.graphs[t]; ok {
		return g, nil
	}
	g, err := Build(t, c.ext)
	if err != nil {
		return nil, err
	}
	c.graphs[t] = g
	return g, nil
}

// Extensions returns the extension set the cache builds with.
func (c *Cache) Extensions() *Extensions { return c.ext }
