package commands

import (
	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/output"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// RootCmd creates and returns the root command for the CLI
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flarum-cli",
		Short: "Scaffold and maintain framework extensions",
		Long: `flarum-cli generates boilerplate for extensions and keeps them current.

Every command stages its changes and writes them only once all steps
succeeded, so an interrupted command leaves no half-written files.
Use --dry-run to see the resulting diff without touching the disk.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			output.SetVerbose(verbose)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose output for debugging")
	flags.BoolP("no-interaction", "n", false, "Never ask; answer every question with its default")
	flags.Bool("dry-run", false, "Show the changes as a diff without writing them")
	flags.String("config", "", "Config file (default: .flarum-cli.yml in the extension or home directory)")
	flags.StringP("dir", "d", "", "Extension directory (default: the current directory)")
	flags.Bool("force", false, "Overwrite files that already exist")
	flags.Bool("skip", false, "Keep files that already exist")

	return cmd
}

// NewApp returns the root command with every subcommand attached.
func NewApp() *cobra.Command {
	root := RootCmd()
	root.AddCommand(InitCmd())
	root.AddCommand(MakeCmd())
	root.AddCommand(ExtenderCmd())
	root.AddCommand(ModuleCmd())
	root.AddCommand(UpgradeCmd())
	return root
}
