// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"

	"github.com/apbuild/apb/internal/config"
	"github.com/apbuild/apb/internal/session"

	"github.com/spf13/cobra"
)

// newCompletionCommand creates the `apb completion` command.
func newCompletionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for apb.

` + SubtitleStyle.Render("Bash:") + `
  eval "$(apb completion bash)"

` + SubtitleStyle.Render("Zsh:") + `
  eval "$(apb completion zsh)"

` + SubtitleStyle.Render("Fish:") + `
  apb completion fish > ~/.config/fish/completions/apb.fish

` + SubtitleStyle.Render("PowerShell:") + `
  apb completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(app.stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(app.stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(app.stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(app.stdout)
			}
			return nil
		},
	}
}

// completeTargets offers element names, then element.command pairs once a
// dot has been typed.
func completeTargets(app *App, flags *buildFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{})
		if err != nil {
			cfg = config.DefaultConfig()
		}
		s, err := session.Open(cmd.Context(), session.Options{Project: flags.project, Config: cfg})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var out []string
		for _, el := range s.Project().Elements() {
			if !strings.Contains(toComplete, ".") {
				out = append(out, el.Name()+"\t"+el.Type().Name())
				continue
			}
			g, err := s.Graph(el)
			if err != nil {
				continue
			}
			for _, c := range g.Commands() {
				out = append(out, el.Name()+"."+c.Name()+"\t"+c.Description())
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
