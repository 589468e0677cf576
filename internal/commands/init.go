package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/boilerplate"
	"github.com/flarum/flarum-cli-sub000/internal/module"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

// InitCmd creates the command scaffolding a new extension.
func InitCmd() *cobra.Command {
	var (
		enable  []string
		disable []string
		noTidy  bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a new extension",
		Long: `Scaffold a new extension from the built-in skeleton.

The skeleton is split into modules. Core files are always written; the
frontend, locale, backend testing and CI modules can be toggled with
--enable and --disable, or interactively with --advanced.

Example:
  flarum-cli init blog --module-path github.com/acme/blog --name Blog`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("dir", args[0]); err != nil {
					return err
				}
			}

			e, err := newEnv(cmd, false)
			if err != nil {
				return err
			}
			if project.IsExtension(stagedfs.NewOS(), e.paths.Package()) {
				return fmt.Errorf("%s already holds an extension; use \"module update\" to refresh it", e.paths.Package())
			}

			modules, err := boilerplate.Modules()
			if err != nil {
				return err
			}

			values, err := preset(cmd, map[string]string{
				"module-path": steps.ExposedModulePath,
				"package":     steps.ExposedPackageName,
				"name":        "extensionName",
				"license":     "license",
				"advanced":    module.AdvancedParam,
			})
			if err != nil {
				return err
			}
			for _, name := range enable {
				values[module.EnabledParam(name)] = true
			}
			for _, name := range disable {
				values[module.EnabledParam(name)] = false
			}
			if len(enable) > 0 || len(disable) > 0 {
				values[module.AdvancedParam] = true
			}

			m := step.NewManager()
			scaffold := steps.NewApplyModules(steps.ModulesOptions{
				Modules:  modules,
				Scaffold: boilerplate.Scaffold(),
				Initial:  true,
			})
			if err := m.NamedStep("scaffold", scaffold, step.Options{}); err != nil {
				return err
			}
			if !noTidy && !e.dryRun {
				if err := tidy(m, "scaffold", nil); err != nil {
					return err
				}
			}

			return e.run(cmd.Context(), m, values)
		},
	}

	cmd.Flags().String("module-path", "", "Go module path, e.g. github.com/acme/blog")
	cmd.Flags().String("package", "", "Go package name (default: derived from the module path)")
	cmd.Flags().String("name", "", "Human-readable extension name")
	cmd.Flags().String("license", "", "SPDX license identifier")
	cmd.Flags().Bool("advanced", false, "Choose which optional modules to enable")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Optional modules to enable")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Optional modules to disable")
	cmd.Flags().BoolVar(&noTidy, "no-tidy", false, "Skip go mod tidy")

	return cmd
}
