// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"io"
)

const helpIndent = "    "

// WriteHelp lists g's commands for element: un-namespaced commands first, then
// namespaced ones with a header line per namespace, each group sorted by name.
func WriteHelp(w io.Writer, element string, g *Graph) error {
	if _, err := fmt.Fprintf(w, "Commands for '%s' : \n", element); err != nil {
		return err
	}
	cmds := g.Commands()
	for _, c := range cmds {
		if c.HasNamespace() {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s%-20s: %s\n", helpIndent, c.Name(), c.Description()); err != nil {
			return err
		}
	}

	lastNamespace := ""
	for _, c := range cmds {
		if !c.HasNamespace() {
			continue
		}
		if ns := c.Namespace(); ns != lastNamespace {
			if _, err := fmt.Fprintf(w, "%s%s:\n", helpIndent, ns); err != nil {
				return err
			}
			lastNamespace = ns
		}
		if _, err := fmt.Fprintf(w, "%s  %-18s: %s\n", helpIndent, c.LocalName(), c.Description()); err != nil {
			return err
		}
	}
	return nil
}
