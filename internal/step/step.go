// Package step sequences file-producing steps into a plan and runs it.
//
// A plan is built with a Manager. Steps run one at a time in registration
// order against a staged filesystem that is committed after every step, or
// once per atomic group. Named steps expose values that later steps consume
// through dependencies:
//
//	m := step.NewManager()
//	err := m.NamedStep("stub", steps.NewGenerateStub(...), step.Options{})
//	err = m.Step(steps.NewAddExtender(...), step.Options{
//	    Dependencies: []step.Dependency{
//	        {Step: "stub", Exposed: "className", As: "handler"},
//	    },
//	})
//	result, err := m.Run(ctx, step.RunOptions{Paths: p, IO: io})
//
// Registration is validated eagerly and returns ErrRegistration. Run returns
// a non-nil error only for misuse detected before any step executes; step
// failures are reported in Result.
package step

import (
	"context"
	"errors"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/exec"
	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/langsub"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// ErrRegistration marks an invalid plan.
var ErrRegistration = errors.New("invalid step registration")

// DidRun is the exposed name a dependency uses to consume "the source step
// ran" instead of one of its values.
const DidRun = "__did_run__"

// Step is one unit of generation work.
type Step interface {
	// Type is a human-readable label, used when the step is unnamed.
	Type() string
	// Composable reports whether the step only ever writes to the staged
	// filesystem it is given.
	Composable() bool
	// Exposes lists every name Exposed may return.
	Exposes() []string
	Run(ctx context.Context, fs *stagedfs.FS, p paths.Paths, io prompt.IO, providers Providers) error
	// Exposed returns the values captured during the last Run.
	Exposed(p paths.Paths, io prompt.IO) (map[string]any, error)
}

// Providers are the collaborators steps use.
type Providers struct {
	Renderer *generator.Renderer
	Resolver *generator.Resolver
	Merger   codemerge.Merger
	Lang     langsub.Caller
	Executor *exec.Executor
}

// Dependency feeds one exposed value of an earlier named step into a step's
// parameters.
type Dependency struct {
	// Step is the source step's name.
	Step string
	// Exposed is the consumed name, or DidRun.
	Exposed string
	// As renames the value. Defaults to Exposed.
	As string
	// DontRunIfFalsy skips the step when the value is falsy.
	DontRunIfFalsy bool
	// PromptWhenMissing runs the step even if the source did not run,
	// leaving the step to ask for the value itself.
	PromptWhenMissing bool
	// Transform rewrites the value before it is used.
	Transform func(any) any
}

func (d Dependency) param() string {
	if d.As != "" {
		return d.As
	}
	return d.Exposed
}

// ShouldRun is the policy deciding whether a step runs.
type ShouldRun struct {
	// Optional steps ask first, defaulting to Default. Declining skips.
	Optional bool
	Default  bool
	// ConfirmationMessage is the question for optional steps. On a required
	// step it must be confirmed, and declining aborts the run.
	ConfirmationMessage string
	// Silent steps never ask and run non-interactively.
	Silent bool
}

// Options is the scheduling metadata of a registered step.
type Options struct {
	ShouldRun    ShouldRun
	Dependencies []Dependency
	// Predefined parameters are injected without asking.
	Predefined map[string]any
	// MapPaths fans the step out over monorepo sub-projects.
	MapPaths []string
}
