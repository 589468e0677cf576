package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/boilerplate"
	"github.com/flarum/flarum-cli-sub000/internal/filesystem"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

// MakeCmd returns the make command with its generators
func MakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Generate code in an extension",
	}

	cmd.AddCommand(makeRouteCmd())

	return cmd
}

// makeRouteCmd writes a route handler and registers it
func makeRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Create a route handler and register it",
		Long: `Create an HTTP handler stub and register it with the Routes extender.

Both files are written together or not at all.

Example:
  flarum-cli make route --frontend api --method GET --path /tags --name ListTags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			if err := e.requireExtension(); err != nil {
				return err
			}

			dirs, err := filesystem.Packages(stagedfs.NewOS(), e.paths.Package(), filesystem.WalkOptions{})
			if err != nil {
				return err
			}

			values, err := preset(cmd, map[string]string{
				"frontend": steps.RouteFrontend,
				"method":   steps.RouteMethod,
				"path":     steps.RoutePath,
				"name":     steps.RouteName,
				"package":  steps.RouteDir,
			})
			if err != nil {
				return err
			}
			if method, ok := values[steps.RouteMethod].(string); ok {
				values[steps.RouteMethod] = strings.ToUpper(method)
			}

			m := step.NewManager()
			err = m.AtomicGroup(func(g *step.Manager) error {
				return steps.PlanRoute(g, boilerplate.Stubs(), e.cfg.ExtendImport, dirs)
			})
			if err != nil {
				return err
			}
			return e.run(cmd.Context(), m, values)
		},
	}

	cmd.Flags().String("frontend", "", "Frontend the route belongs to (forum, admin or api)")
	cmd.Flags().String("method", "", "HTTP method")
	cmd.Flags().String("path", "", "Route path, e.g. /tags/{id}")
	cmd.Flags().String("name", "", "Exported handler function name")
	cmd.Flags().String("package", "", "Package directory for the handler (default: api)")

	return cmd
}
