package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/upgrade"
)

// UpgradeCmd creates the command migrating extensions to a newer framework.
func UpgradeCmd() *cobra.Command {
	var (
		to     string
		noTidy bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade an extension to a newer framework release",
		Long: `Run the upgrade scripts between the framework version an extension
requires and the target release. Each script is applied as a whole or not
at all.

In a monorepo, list the extensions under monorepo.packages in
.flarum-cli.yml and run the command from the monorepo root.

Example:
  flarum-cli upgrade --to v2.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}

			mapPaths := e.cfg.MonorepoPackages
			targets := []string{e.paths.Package()}
			if len(mapPaths) > 0 {
				targets = targets[:0]
				for _, sub := range mapPaths {
					targets = append(targets, e.paths.OnMonorepoSub(sub).Package())
				}
			} else if err := e.requireExtension(); err != nil {
				return err
			}

			current, frontend, err := inspect(targets)
			if err != nil {
				return err
			}

			scripts, err := upgrade.Default().Pending(current, to)
			if err != nil {
				return err
			}
			if len(scripts) == 0 {
				output.Success(fmt.Sprintf("Already on framework %s, nothing to upgrade", current))
				return nil
			}
			for _, s := range scripts {
				output.Info(fmt.Sprintf("%s: %s", s.Version(), s.Description()))
			}

			m := step.NewManager()
			if err := upgrade.Plan(m, scripts, upgrade.Options{MapPaths: mapPaths, Frontend: frontend}); err != nil {
				return err
			}
			if !noTidy && !e.dryRun {
				if err := tidy(m, "", mapPaths); err != nil {
					return err
				}
			}
			return e.run(cmd.Context(), m, nil)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target framework release (default: the newest)")
	cmd.Flags().BoolVar(&noTidy, "no-tidy", false, "Skip go mod tidy")

	return cmd
}

// inspect returns the oldest framework version required by the packages in
// dirs, and whether any of them has frontend sources.
func inspect(dirs []string) (string, bool, error) {
	fsys := stagedfs.NewOS()

	var current string
	frontend := false
	for _, dir := range dirs {
		info, err := project.DetectModule(fsys, dir)
		if err != nil {
			return "", false, err
		}
		if info.FrameworkVersion == "" {
			return "", false, fmt.Errorf("%s does not require %s", dir, project.FrameworkPath)
		}
		if want := project.FrameworkPathFor(info.FrameworkMajor()); info.FrameworkPath != want {
			return "", false, fmt.Errorf("%s requires %s %s, but that release lives at %s", dir, info.FrameworkPath, info.FrameworkVersion, want)
		}
		if current == "" || semver.Compare(info.FrameworkVersion, current) < 0 {
			current = info.FrameworkVersion
		}
		if fsys.Exists(filepath.Join(dir, "js", "src")) {
			frontend = true
		}
	}
	return current, frontend, nil
}
