package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/boilerplate"
	"github.com/flarum/flarum-cli-sub000/internal/module"
	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

var (
	enabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ModuleCmd returns the module command with list/update subcommands
func ModuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Inspect and update skeleton modules",
		Long:  "List the skeleton modules an extension uses and re-apply them from the current skeleton",
	}

	cmd.AddCommand(moduleListCmd())
	cmd.AddCommand(moduleUpdateCmd())

	return cmd
}

// moduleListCmd shows every module and whether the extension uses it
func moduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List skeleton modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			if err := e.requireExtension(); err != nil {
				return err
			}

			modules, err := boilerplate.Modules()
			if err != nil {
				return err
			}
			fsys := stagedfs.NewOS()
			cache, err := module.ReadCache(fsys, e.paths)
			if err != nil {
				return err
			}
			enabled := module.CurrModulesEnabled(modules, fsys, e.paths, cache)

			width := 0
			for _, m := range modules {
				width = max(width, len(m.Name))
			}
			for _, m := range modules {
				output.Plain(moduleLine(m, enabled[m.Name], width))
			}
			return nil
		},
	}
}

func moduleLine(m module.Module, on bool, width int) string {
	mark, style := "✓", enabledStyle
	if !on {
		mark, style = "·", disabledStyle
	}

	var tags []string
	if !m.Togglable {
		tags = append(tags, "required")
	}
	if m.Updatable {
		tags = append(tags, "updatable")
	}
	if len(m.DependsOn) > 0 {
		tags = append(tags, "needs "+strings.Join(m.DependsOn, ", "))
	}

	line := fmt.Sprintf("%s %-*s  %s", mark, width, m.Name, m.Description)
	if len(tags) > 0 {
		line += " (" + strings.Join(tags, "; ") + ")"
	}
	return style.Render(line)
}

// moduleUpdateCmd re-applies updatable modules
func moduleUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [module...]",
		Short: "Re-apply modules from the current skeleton",
		Long: `Re-apply skeleton modules to an existing extension.

Without arguments every enabled, updatable module is re-applied. Files you
changed are offered as conflicts; --skip keeps them all and --force
overwrites them.

Example:
  flarum-cli module update locale --skip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			if err := e.requireExtension(); err != nil {
				return err
			}

			modules, err := boilerplate.Modules()
			if err != nil {
				return err
			}

			m := step.NewManager()
			update := steps.NewApplyModules(steps.ModulesOptions{
				Modules:  modules,
				Scaffold: boilerplate.Scaffold(),
				Only:     args,
			})
			if err := m.Step(update, step.Options{}); err != nil {
				return err
			}
			return e.run(cmd.Context(), m, nil)
		},
	}
}
