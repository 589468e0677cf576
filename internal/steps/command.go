package steps

import (
	"context"
	"io"
	"os"

	"github.com/flarum/flarum-cli-sub000/internal/exec"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// RunCommand runs an external command in the package directory. It touches
// the real filesystem, so it cannot join atomic groups or dry runs.
type RunCommand struct {
	Name string
	Args []string
	// Dir is relative to the package root.
	Dir string
	// Message, when set, shows a spinner instead of streaming output.
	Message string
	// Prefix is prepended to every streamed output line.
	Prefix string
	// Stdout receives streamed output. Defaults to os.Stdout.
	Stdout io.Writer
}

// NewRunCommand creates a command step.
func NewRunCommand(name string, args ...string) *RunCommand {
	return &RunCommand{Name: name, Args: args, Prefix: "  │ "}
}

func (s *RunCommand) Type() string      { return "Run " + exec.String(s.Name, s.Args...) }
func (s *RunCommand) Composable() bool  { return false }
func (s *RunCommand) Exposes() []string { return nil }

func (s *RunCommand) Run(ctx context.Context, _ *stagedfs.FS, p paths.Paths, _ prompt.IO, providers step.Providers) error {
	executor := providers.Executor
	if executor == nil {
		executor = exec.NewExecutor(nil)
	}
	executor = executor.WithDir(p.Package(s.Dir))

	if s.Message != "" {
		return executor.RunWithSpinner(ctx, s.Message, s.Name, s.Args...)
	}

	out := s.Stdout
	if out == nil {
		out = os.Stdout
	}
	w := exec.NewPrefixWriter(out, s.Prefix)
	err := executor.WithOutput(w, w).Run(ctx, s.Name, s.Args...)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

func (s *RunCommand) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	return nil, nil
}
