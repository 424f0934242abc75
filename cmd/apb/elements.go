// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newElementsCommand(app *App, flags *buildFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "elements",
		Short: "List the modules and test modules of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listElements(cmd, app, flags)
		},
	}
}

func listElements(cmd *cobra.Command, app *App, flags *buildFlags) error {
	s, err := openSession(cmd, app, flags)
	if err != nil {
		return err
	}

	p := s.Project()
	title := "Elements"
	if p.Name() != "" {
		title = fmt.Sprintf("Elements of '%s'", p.Name())
	}
	fmt.Fprintln(app.stdout, TitleStyle.Render(title))
	fmt.Fprintln(app.stdout, SubtitleStyle.Render(p.File()))
	fmt.Fprintln(app.stdout)

	for _, el := range p.Elements() {
		g, err := s.Graph(el)
		if err != nil {
			return app.fail(cmd, exitCodeFor(err), err, s.Config().UI.Verbose)
		}
		def := "-"
		if d := g.Default(); d != nil {
			def = d.Name()
		}
		fmt.Fprintf(app.stdout, "  %-24s %-16s default: %s\n", el.Name(), el.Type().Name(), def)
	}
	return nil
}
