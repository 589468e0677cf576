package step

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// RunOptions configures one run of a plan.
type RunOptions struct {
	Paths     paths.Paths
	IO        prompt.IO
	Providers Providers
	// DryRun stages everything and commits nothing. Only plans made of
	// composable steps can be dry-run.
	DryRun bool
	// Preset parameters are offered to every step.
	Preset map[string]any
	// FS defaults to a staging area over the real filesystem.
	FS *stagedfs.FS
	// Logger defaults to output.Logger().
	Logger *log.Logger
}

// Result reports how a run went. StepsRan is always filled.
type Result struct {
	Succeeded bool
	Err       error
	ErrTrace  string
	StepsRan  []string
	Messages  []prompt.Message
	// FS holds what a dry run staged.
	FS *stagedfs.FS
}

// Exiting reports whether the run stopped because the user declined.
func (r Result) Exiting() bool {
	return errors.Is(r.Err, prompt.ErrExiting)
}

// Run executes the plan.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (Result, error) {
	if m.group != nil {
		return Result{}, errors.New("cannot run a plan from inside an atomic group")
	}
	if opts.IO == nil {
		return Result{}, errors.New("run requires an IO")
	}
	if opts.DryRun && !m.Composable() {
		return Result{}, errors.New("dry run is only possible when every step is composable")
	}
	if opts.FS == nil {
		opts.FS = stagedfs.NewOS()
	}
	if opts.Logger == nil {
		opts.Logger = output.Logger()
	}

	r := &runner{opts: opts, store: NewStore(), fs: opts.FS, named: m.plan.named}
	stepsRan := []string{}

	var err error
	for _, e := range m.plan.entries {
		var ran []string
		if e.group != nil {
			ran, err = r.runGroup(ctx, e.group)
		} else {
			ran, err = r.runStep(ctx, e.step, !opts.DryRun)
			if err != nil && !opts.DryRun {
				r.fs.Discard()
			}
		}
		stepsRan = append(stepsRan, ran...)
		if err != nil {
			break
		}
	}

	result := Result{
		Succeeded: err == nil,
		Err:       err,
		StepsRan:  stepsRan,
		Messages:  opts.IO.Messages(),
		FS:        r.fs,
	}
	if err != nil {
		result.ErrTrace = trace(err)
	}
	return result, nil
}

type runner struct {
	opts  RunOptions
	store *Store
	fs    *stagedfs.FS
	named map[string]*storedStep
}

// runGroup runs an atomic group with a single commit. On failure the staged
// filesystem goes back to what it held before the group began and no step of
// the group counts as ran.
func (r *runner) runGroup(ctx context.Context, g *atomicGroup) ([]string, error) {
	before := r.fs.Snapshot()

	var ran []string
	for _, s := range g.steps {
		names, err := r.runStep(ctx, s, false)
		if err != nil {
			if rerr := r.fs.Restore(before); rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			return nil, err
		}
		ran = append(ran, names...)
	}

	if !r.opts.DryRun {
		if err := r.fs.Commit(); err != nil {
			r.fs.Discard()
			return nil, fmt.Errorf("committing atomic group: %w", err)
		}
	}
	return ran, nil
}

// runStep runs s once per fan-out path, committing after each run when
// commit is set. It returns a label for every run that completed.
func (r *runner) runStep(ctx context.Context, s *storedStep, commit bool) ([]string, error) {
	var ran []string
	for _, sub := range s.paths() {
		if err := ctx.Err(); err != nil {
			return ran, err
		}

		label := s.label()
		p := r.opts.Paths
		if sub != "" {
			p = p.OnMonorepoSub(sub)
			label = fmt.Sprintf("%s (%s)", label, sub)
		}

		params, reason, err := r.prepare(ctx, s, sub, label)
		if err != nil {
			return ran, err
		}
		if reason != "" {
			r.opts.Logger.Debug("skipping step", "step", s.label(), "path", sub, "reason", reason)
			continue
		}

		r.opts.Logger.Debug("running step", "step", s.label(), "path", sub)

		noInteraction := s.opts.ShouldRun.Silent || r.opts.IO.NoInteraction()
		io := r.opts.IO.NewInstance(params, noInteraction)

		if err := r.execute(ctx, s, p, io); err != nil {
			return ran, fmt.Errorf("step %s: %w", label, err)
		}

		if commit {
			if err := r.fs.Commit(); err != nil {
				return ran, fmt.Errorf("step %s: committing: %w", label, err)
			}
		}

		exposed, err := s.step.Exposed(p, io)
		if err != nil {
			return ran, fmt.Errorf("step %s: reading exposed values: %w", label, err)
		}
		for name := range exposed {
			if !slices.Contains(s.step.Exposes(), name) {
				return ran, fmt.Errorf("step %s exposed undeclared value %q", label, name)
			}
		}
		if s.name != "" {
			r.store.Record(s.name, sub, exposed)
		}

		ran = append(ran, label)
	}
	return ran, nil
}

// prepare resolves dependencies and the run policy. A non-empty reason means
// the step is skipped.
func (r *runner) prepare(ctx context.Context, s *storedStep, sub, label string) (map[string]any, string, error) {
	params := make(map[string]any)
	maps.Copy(params, r.opts.Preset)
	maps.Copy(params, s.opts.Predefined)

	for _, dep := range s.opts.Dependencies {
		sourcePath := sub
		if len(r.sourceOf(dep).opts.MapPaths) == 0 {
			sourcePath = ""
		}

		values, ran := r.store.Lookup(dep.Step, sourcePath)
		if !ran {
			if dep.PromptWhenMissing {
				continue
			}
			return nil, fmt.Sprintf("dependency %s did not run", dep.Step), nil
		}

		var value any = true
		if dep.Exposed != DidRun {
			value = values[dep.Exposed]
		}
		if dep.Transform != nil {
			value = dep.Transform(value)
		}
		if dep.DontRunIfFalsy && isFalsy(value) {
			return nil, fmt.Sprintf("%s of %s is falsy", dep.Exposed, dep.Step), nil
		}
		if dep.Exposed != DidRun || dep.As != "" {
			params[dep.param()] = value
		}
	}

	policy := s.opts.ShouldRun
	if policy.Silent {
		return params, "", nil
	}

	switch {
	case policy.Optional:
		message := policy.ConfirmationMessage
		if message == "" {
			message = fmt.Sprintf("Run %s?", label)
		}
		ok, err := r.confirm(ctx, label, message, policy.Default)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "declined", nil
		}

	case policy.ConfirmationMessage != "":
		ok, err := r.confirm(ctx, label, policy.ConfirmationMessage, true)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", prompt.ErrExiting
		}
	}

	return params, "", nil
}

// sourceOf returns the step dep consumes. Registration guarantees it exists.
func (r *runner) sourceOf(dep Dependency) *storedStep {
	return r.named[dep.Step]
}

func (r *runner) confirm(ctx context.Context, label, message string, initial bool) (bool, error) {
	answer, err := r.opts.IO.GetParam(ctx, prompt.Param{
		Name:    "run:" + label,
		Type:    prompt.Confirm,
		Message: message,
		Initial: initial,
	})
	if err != nil {
		return false, err
	}
	ok, _ := answer.(bool)
	return ok, nil
}

// execute runs the step, turning a panic into an error.
func (r *runner) execute(ctx context.Context, s *storedStep, p paths.Paths, io prompt.IO) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec, stack: debug.Stack()}
		}
	}()
	return s.step.Run(ctx, r.fs, p, io, r.opts.Providers)
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// trace renders err for the user: the stack for panics, otherwise the chain
// of wrapped errors, outermost first.
func trace(err error) string {
	var pe *panicError
	if errors.As(err, &pe) {
		return string(pe.stack)
	}

	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n  caused by: ")
}

func isFalsy(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
