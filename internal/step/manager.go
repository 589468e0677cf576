package step

import (
	"fmt"
	"slices"
)

type storedStep struct {
	name string
	step Step
	opts Options
}

// label is how the step appears in results and logs.
func (s *storedStep) label() string {
	if s.name != "" {
		return s.name
	}
	return s.step.Type()
}

// paths returns the fan-out paths, or a single "" when not fanned out.
func (s *storedStep) paths() []string {
	if len(s.opts.MapPaths) == 0 {
		return []string{""}
	}
	return s.opts.MapPaths
}

type atomicGroup struct {
	steps []*storedStep
}

// entry is either a single step or an atomic group.
type entry struct {
	step  *storedStep
	group *atomicGroup
}

// plan is shared by a Manager and the builders handed to group callbacks.
type plan struct {
	entries []entry
	named   map[string]*storedStep
}

// Manager builds a plan of steps.
type Manager struct {
	plan   *plan
	silent bool
	group  *atomicGroup
}

// NewManager creates an empty plan.
func NewManager() *Manager {
	return &Manager{plan: &plan{named: make(map[string]*storedStep)}}
}

// Step registers an unnamed step.
func (m *Manager) Step(s Step, opts Options) error {
	return m.register("", s, opts)
}

// NamedStep registers a step other steps may depend on.
func (m *Manager) NamedStep(name string, s Step, opts Options) error {
	if name == "" {
		return fmt.Errorf("%w: step name must not be empty", ErrRegistration)
	}
	if _, taken := m.plan.named[name]; taken {
		return fmt.Errorf("%w: step name %q is already taken", ErrRegistration, name)
	}
	return m.register(name, s, opts)
}

// AtomicGroup registers the steps added by build as one all-or-nothing unit.
func (m *Manager) AtomicGroup(build func(*Manager) error) error {
	if m.group != nil {
		return fmt.Errorf("%w: atomic groups cannot be nested", ErrRegistration)
	}

	g := &atomicGroup{}
	if err := build(&Manager{plan: m.plan, silent: m.silent, group: g}); err != nil {
		for _, s := range g.steps {
			if s.name != "" {
				delete(m.plan.named, s.name)
			}
		}
		return err
	}

	m.plan.entries = append(m.plan.entries, entry{group: g})
	return nil
}

// SilentGroup registers the steps added by build as silent: they run without
// asking anything, answering every question with its default.
func (m *Manager) SilentGroup(build func(*Manager) error) error {
	return build(&Manager{plan: m.plan, silent: true, group: m.group})
}

// Composable reports whether every registered step is composable.
func (m *Manager) Composable() bool {
	for _, e := range m.plan.entries {
		if e.step != nil && !e.step.step.Composable() {
			return false
		}
		if e.group != nil {
			for _, s := range e.group.steps {
				if !s.step.Composable() {
					return false
				}
			}
		}
	}
	return true
}

func (m *Manager) register(name string, s Step, opts Options) error {
	if s == nil {
		return fmt.Errorf("%w: nil step", ErrRegistration)
	}

	stored := &storedStep{name: name, step: s, opts: opts}
	if m.silent {
		stored.opts.ShouldRun.Silent = true
	}

	if m.group != nil && !s.Composable() {
		return fmt.Errorf("%w: step %s is not composable and cannot join an atomic group", ErrRegistration, stored.label())
	}

	for _, dep := range opts.Dependencies {
		if err := m.validateDependency(stored, dep); err != nil {
			return err
		}
	}

	if name != "" {
		m.plan.named[name] = stored
	}
	if m.group != nil {
		m.group.steps = append(m.group.steps, stored)
	} else {
		m.plan.entries = append(m.plan.entries, entry{step: stored})
	}
	return nil
}

func (m *Manager) validateDependency(s *storedStep, dep Dependency) error {
	source, ok := m.plan.named[dep.Step]
	if !ok {
		return fmt.Errorf("%w: step %s depends on unknown step %q", ErrRegistration, s.label(), dep.Step)
	}

	if dep.Exposed != DidRun && !slices.Contains(source.step.Exposes(), dep.Exposed) {
		return fmt.Errorf("%w: step %s depends on %q, which step %q does not expose", ErrRegistration, s.label(), dep.Exposed, dep.Step)
	}

	if len(source.opts.MapPaths) > 0 && !samePaths(source.opts.MapPaths, s.opts.MapPaths) {
		return fmt.Errorf("%w: step %s must fan out over the same paths as step %q", ErrRegistration, s.label(), dep.Step)
	}
	return nil
}

func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
