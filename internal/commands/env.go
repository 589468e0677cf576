package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/config"
	"github.com/flarum/flarum-cli-sub000/internal/exec"
	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/langsub"
	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

// ErrFailed is returned once a failed run has been reported to the user.
var ErrFailed = errors.New("command failed")

// env is what a command needs to build and run a plan.
type env struct {
	cfg       *config.Config
	paths     paths.Paths
	io        prompt.IO
	providers step.Providers
	dryRun    bool
}

// newEnv loads the config and wires the step providers. With find set, the
// package root is the nearest extension at or above --dir.
func newEnv(cmd *cobra.Command, find bool) (*env, error) {
	flags := cmd.Flags()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	requested := cwd
	if dir, _ := flags.GetString("dir"); dir != "" {
		if requested, err = filepath.Abs(dir); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dir, err)
		}
	}

	pkg := requested
	if find {
		if root, ok := project.FindRoot(stagedfs.NewOS(), requested); ok {
			pkg = root
		}
	}

	v := config.New()
	if err := config.BindFlags(v, flags); err != nil {
		return nil, err
	}
	configFile, _ := flags.GetString("config")
	dirs := []string{pkg}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	cfg, err := config.Load(v, configFile, dirs...)
	if err != nil {
		return nil, err
	}
	output.SetVerbose(cfg.Verbose)
	if cfg.File != "" {
		output.Verbose("Using config " + cfg.File)
	}

	io := prompt.NewTerminal(cfg.NoInteraction)

	force, _ := flags.GetBool("force")
	skip, _ := flags.GetBool("skip")
	resolver, err := generator.NewResolver(force, skip, io)
	if err != nil {
		return nil, err
	}

	executor := exec.NewExecutor(nil)
	lang := langsub.NewClient(executor, cfg.SubsystemCommand, cfg.SubsystemArgs...)

	goMerger := codemerge.NewGoMerger()
	goMerger.Collection = cfg.ExtendCollection
	goMerger.ElemType.Import = cfg.ExtendImport

	dryRun, _ := flags.GetBool("dry-run")
	return &env{
		cfg:   cfg,
		paths: paths.New(cwd, requested, pkg),
		io:    io,
		providers: step.Providers{
			Renderer: generator.NewRenderer(),
			Resolver: resolver,
			Merger:   codemerge.Dispatch{Go: goMerger, Fallback: codemerge.NewProcessMerger(lang)},
			Lang:     lang,
			Executor: executor,
		},
		dryRun: dryRun,
	}, nil
}

// requireExtension fails unless the package root holds a manifest.
func (e *env) requireExtension() error {
	if !project.IsExtension(stagedfs.NewOS(), e.paths.Package()) {
		return fmt.Errorf("%s is not inside an extension: no %s found", e.paths.Requested(), project.ManifestFile)
	}
	return nil
}

// run executes m and reports the result.
func (e *env) run(ctx context.Context, m *step.Manager, values map[string]any) error {
	result, err := m.Run(ctx, step.RunOptions{
		Paths:     e.paths,
		IO:        e.io,
		Providers: e.providers,
		DryRun:    e.dryRun,
		Preset:    values,
	})
	if err != nil {
		return err
	}
	return e.report(result)
}

func (e *env) report(result step.Result) error {
	for _, label := range result.StepsRan {
		output.Step("✓ " + label)
	}

	switch {
	case result.Exiting():
		output.Warning("Stopped. Steps listed above were kept")
		return nil
	case !result.Succeeded:
		output.Error(result.Err.Error())
		if output.IsVerbose() {
			output.Plain(result.ErrTrace)
		} else {
			output.Step("Run with --verbose for details")
		}
		return ErrFailed
	}

	if e.dryRun {
		if preview := generator.Preview(result.FS, e.paths.Rel, nil); preview != "" {
			output.Plain(preview)
		} else {
			output.Info("Nothing would change")
		}
		output.Info("Dry run: no files were written")
		return nil
	}

	output.Success("Done")
	return nil
}

// preset collects the flags the user set, keyed by the parameter each one
// answers.
func preset(cmd *cobra.Command, params map[string]string) (map[string]any, error) {
	values := make(map[string]any)
	for flag, param := range params {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if f.Value.Type() != "bool" {
			values[param] = f.Value.String()
			continue
		}
		on, err := strconv.ParseBool(f.Value.String())
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", flag, err)
		}
		values[param] = on
	}
	return values, nil
}

// tidy is the optional go mod tidy after a plan changed go.mod.
func tidy(m *step.Manager, after string, mapPaths []string) error {
	s := steps.NewRunCommand("go", "mod", "tidy")
	s.Message = "Running go mod tidy"

	opts := step.Options{
		ShouldRun: step.ShouldRun{
			Optional:            true,
			Default:             true,
			ConfirmationMessage: "Run go mod tidy now?",
		},
		MapPaths: mapPaths,
	}
	if after != "" {
		opts.Dependencies = []step.Dependency{{Step: after, Exposed: step.DidRun}}
	}
	return m.Step(s, opts)
}
