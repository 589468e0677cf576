package step

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// fakeStep records the parameters it was given and exposes fixed values.
type fakeStep struct {
	typ        string
	composable bool
	exposes    []string
	exposed    map[string]any
	// wants lists parameters read through the IO during Run.
	wants []string
	// write, when set, is written to this package-relative path.
	write string
	err   error
	panic bool

	runs   int
	params []map[string]any
	pkgs   []string
}

func newFake(typ string) *fakeStep {
	return &fakeStep{typ: typ, composable: true}
}

func (f *fakeStep) Type() string      { return f.typ }
func (f *fakeStep) Composable() bool  { return f.composable }
func (f *fakeStep) Exposes() []string { return f.exposes }

func (f *fakeStep) Run(ctx context.Context, fs *stagedfs.FS, p paths.Paths, io prompt.IO, _ Providers) error {
	f.runs++
	f.pkgs = append(f.pkgs, p.Package())

	got := map[string]any{}
	for _, name := range f.wants {
		v, err := io.GetParam(ctx, prompt.Param{Name: name, Type: prompt.Text, Initial: "prompted"})
		if err != nil {
			return err
		}
		got[name] = v
	}
	f.params = append(f.params, got)

	if f.write != "" {
		if err := fs.Write(p.Package(f.write), []byte(f.typ)); err != nil {
			return err
		}
	}
	if f.panic {
		panic("boom")
	}
	return f.err
}

func (f *fakeStep) Exposed(p paths.Paths, _ prompt.IO) (map[string]any, error) {
	if v, ok := f.exposed["@pkg"]; ok && v == true {
		return map[string]any{"pkg": p.Package()}, nil
	}
	return f.exposed, nil
}

type harness struct {
	base afero.Fs
	fs   *stagedfs.FS
	io   *prompt.Memory
	opts RunOptions
}

func newHarness(answers map[string]any) *harness {
	base := afero.NewMemMapFs()
	fs := stagedfs.New(base)
	io := prompt.NewMemory(answers)
	return &harness{
		base: base,
		fs:   fs,
		io:   io,
		opts: RunOptions{Paths: paths.New("/work", "", "/work/ext"), IO: io, FS: fs},
	}
}

func (h *harness) onDisk(t *testing.T, rel string) bool {
	t.Helper()
	ok, err := afero.Exists(h.base, filepath.Join("/work/ext", rel))
	require.NoError(t, err)
	return ok
}

func TestScenarioA_DependencyRenamed(t *testing.T) {
	h := newHarness(nil)
	a := newFake("a")
	a.exposes = []string{"id"}
	a.exposed = map[string]any{"id": "x1"}
	b := newFake("b")
	b.wants = []string{"target"}

	m := NewManager()
	require.NoError(t, m.NamedStep("stepA", a, Options{}))
	require.NoError(t, m.NamedStep("stepB", b, Options{
		Dependencies: []Dependency{{Step: "stepA", Exposed: "id", As: "target"}},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded, "%v", result.Err)

	assert.Equal(t, []map[string]any{{"target": "x1"}}, b.params)
	assert.Equal(t, []string{"stepA", "stepB"}, result.StepsRan)
	assert.False(t, h.io.WasAsked("target"))
}

func TestRegistration_Errors(t *testing.T) {
	exposing := func() *fakeStep {
		s := newFake("src")
		s.exposes = []string{"id"}
		return s
	}

	tests := []struct {
		name  string
		build func(m *Manager) error
	}{
		{
			name: "unknown source",
			build: func(m *Manager) error {
				return m.Step(newFake("b"), Options{Dependencies: []Dependency{{Step: "missing", Exposed: "id"}}})
			},
		},
		{
			name: "undeclared exposed name",
			build: func(m *Manager) error {
				if err := m.NamedStep("src", exposing(), Options{}); err != nil {
					return err
				}
				return m.Step(newFake("b"), Options{Dependencies: []Dependency{{Step: "src", Exposed: "nope"}}})
			},
		},
		{
			name: "duplicate name",
			build: func(m *Manager) error {
				if err := m.NamedStep("src", exposing(), Options{}); err != nil {
					return err
				}
				return m.NamedStep("src", exposing(), Options{})
			},
		},
		{
			name: "non fanned-out step depends on fanned-out step",
			build: func(m *Manager) error {
				if err := m.NamedStep("src", exposing(), Options{MapPaths: []string{"a", "b"}}); err != nil {
					return err
				}
				return m.Step(newFake("b"), Options{Dependencies: []Dependency{{Step: "src", Exposed: "id"}}})
			},
		},
		{
			name: "divergent fan-out",
			build: func(m *Manager) error {
				if err := m.NamedStep("src", exposing(), Options{MapPaths: []string{"a", "b"}}); err != nil {
					return err
				}
				return m.Step(newFake("b"), Options{
					MapPaths:     []string{"a", "c"},
					Dependencies: []Dependency{{Step: "src", Exposed: "id"}},
				})
			},
		},
		{
			name: "non-composable in atomic group",
			build: func(m *Manager) error {
				return m.AtomicGroup(func(g *Manager) error {
					s := newFake("cmd")
					s.composable = false
					return g.Step(s, Options{})
				})
			},
		},
		{
			name: "nested atomic group",
			build: func(m *Manager) error {
				return m.AtomicGroup(func(g *Manager) error {
					return g.AtomicGroup(func(*Manager) error { return nil })
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(NewManager())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRegistration)
		})
	}
}

func TestRegistration_Valid(t *testing.T) {
	m := NewManager()
	src := newFake("src")
	src.exposes = []string{"id"}

	require.NoError(t, m.NamedStep("src", src, Options{MapPaths: []string{"a", "b"}}))
	require.NoError(t, m.Step(newFake("same set, other order"), Options{
		MapPaths:     []string{"b", "a"},
		Dependencies: []Dependency{{Step: "src", Exposed: DidRun}},
	}))

	plain := newFake("plain")
	plain.exposes = []string{"id"}
	require.NoError(t, m.NamedStep("plain", plain, Options{}))
	require.NoError(t, m.Step(newFake("fanned on plain"), Options{
		MapPaths:     []string{"a"},
		Dependencies: []Dependency{{Step: "plain", Exposed: "id"}},
	}))
}

func TestSkip_WhenSourceDidNotRun(t *testing.T) {
	h := newHarness(map[string]any{"run:src": false})
	src := newFake("src")
	src.exposes = []string{"id"}
	dependent := newFake("dependent")

	m := NewManager()
	require.NoError(t, m.NamedStep("src", src, Options{ShouldRun: ShouldRun{Optional: true, Default: true}}))
	require.NoError(t, m.Step(dependent, Options{Dependencies: []Dependency{{Step: "src", Exposed: "id"}}}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.Zero(t, src.runs)
	assert.Zero(t, dependent.runs, "dependent of a step that did not run is skipped")
	assert.Empty(t, result.StepsRan)
}

func TestPromptWhenMissing_RunsAndAsks(t *testing.T) {
	h := newHarness(map[string]any{"run:src": false, "id": "typed"})
	src := newFake("src")
	src.exposes = []string{"id"}
	dependent := newFake("dependent")
	dependent.wants = []string{"id"}

	m := NewManager()
	require.NoError(t, m.NamedStep("src", src, Options{ShouldRun: ShouldRun{Optional: true}}))
	require.NoError(t, m.Step(dependent, Options{
		Dependencies: []Dependency{{Step: "src", Exposed: "id", PromptWhenMissing: true}},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.Equal(t, []map[string]any{{"id": "typed"}}, dependent.params)
	assert.True(t, h.io.WasAsked("id"))
}

func TestDontRunIfFalsy(t *testing.T) {
	for _, value := range []any{false, "", 0, []string{}, nil} {
		t.Run(fmt.Sprintf("%#v", value), func(t *testing.T) {
			h := newHarness(nil)
			src := newFake("src")
			src.exposes = []string{"enabled"}
			src.exposed = map[string]any{"enabled": value}
			dependent := newFake("dependent")

			m := NewManager()
			require.NoError(t, m.NamedStep("src", src, Options{}))
			require.NoError(t, m.Step(dependent, Options{
				Dependencies: []Dependency{{Step: "src", Exposed: "enabled", DontRunIfFalsy: true}},
			}))

			result, err := m.Run(context.Background(), h.opts)
			require.NoError(t, err)
			assert.True(t, result.Succeeded)
			assert.Zero(t, dependent.runs)
		})
	}
}

func TestTransformAndDidRun(t *testing.T) {
	h := newHarness(nil)
	src := newFake("src")
	src.exposes = []string{"name"}
	src.exposed = map[string]any{"name": "tags"}
	dependent := newFake("dependent")
	dependent.wants = []string{"className", "srcRan"}

	m := NewManager()
	require.NoError(t, m.NamedStep("src", src, Options{}))
	require.NoError(t, m.Step(dependent, Options{
		Dependencies: []Dependency{
			{Step: "src", Exposed: "name", As: "className", Transform: func(v any) any { return "Tag" + v.(string) }},
			{Step: "src", Exposed: DidRun, As: "srcRan"},
		},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, []map[string]any{{"className": "Tagtags", "srcRan": true}}, dependent.params)
}

func TestParamPrecedence(t *testing.T) {
	h := newHarness(nil)
	h.opts.Preset = map[string]any{"a": "preset", "b": "preset", "c": "preset"}

	src := newFake("src")
	src.exposes = []string{"c"}
	src.exposed = map[string]any{"c": "dependency"}
	dependent := newFake("dependent")
	dependent.wants = []string{"a", "b", "c"}

	m := NewManager()
	require.NoError(t, m.NamedStep("src", src, Options{}))
	require.NoError(t, m.Step(dependent, Options{
		Predefined:   map[string]any{"b": "predefined", "c": "predefined"},
		Dependencies: []Dependency{{Step: "src", Exposed: "c"}},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, []map[string]any{{"a": "preset", "b": "predefined", "c": "dependency"}}, dependent.params)
}

func TestCommitPerStep_PartialProgress(t *testing.T) {
	h := newHarness(nil)
	first := newFake("first")
	first.write = "first.txt"
	second := newFake("second")
	second.write = "second.txt"
	second.err = errors.New("template exploded")
	third := newFake("third")

	m := NewManager()
	require.NoError(t, m.Step(first, Options{}))
	require.NoError(t, m.Step(second, Options{}))
	require.NoError(t, m.Step(third, Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Err.Error(), "template exploded")
	assert.Contains(t, result.ErrTrace, "template exploded")
	assert.Equal(t, []string{"first"}, result.StepsRan)
	assert.True(t, h.onDisk(t, "first.txt"), "committed steps stay on disk")
	assert.False(t, h.onDisk(t, "second.txt"))
	assert.Zero(t, third.runs)
	assert.False(t, h.fs.Dirty())
}

func TestAtomicGroup_FailureLeavesDiskUntouched(t *testing.T) {
	h := newHarness(nil)
	before := newFake("before")
	before.write = "before.txt"
	a := newFake("a")
	a.write = "a.txt"
	b := newFake("b")
	b.write = "b.txt"
	b.err = errors.New("merge failed")

	m := NewManager()
	require.NoError(t, m.Step(before, Options{}))
	require.NoError(t, m.AtomicGroup(func(g *Manager) error {
		if err := g.Step(a, Options{}); err != nil {
			return err
		}
		return g.Step(b, Options{})
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Equal(t, []string{"before"}, result.StepsRan, "no step of a failed group counts as ran")
	assert.True(t, h.onDisk(t, "before.txt"))
	assert.False(t, h.onDisk(t, "a.txt"))
	assert.False(t, h.onDisk(t, "b.txt"))
	assert.False(t, h.fs.Dirty())
}

func TestAtomicGroup_CommitsOnceAtEnd(t *testing.T) {
	h := newHarness(nil)
	a := newFake("a")
	a.write = "a.txt"
	b := newFake("b")
	b.write = "b.txt"

	m := NewManager()
	require.NoError(t, m.AtomicGroup(func(g *Manager) error {
		if err := g.Step(a, Options{}); err != nil {
			return err
		}
		return g.Step(b, Options{})
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.Equal(t, []string{"a", "b"}, result.StepsRan)
	assert.True(t, h.onDisk(t, "a.txt"))
	assert.True(t, h.onDisk(t, "b.txt"))
}

func TestScenarioD_DryRun(t *testing.T) {
	h := newHarness(nil)
	h.opts.DryRun = true
	a := newFake("a")
	a.write = "a.txt"
	b := newFake("b")
	b.write = "b.txt"

	m := NewManager()
	require.NoError(t, m.Step(a, Options{}))
	require.NoError(t, m.AtomicGroup(func(g *Manager) error { return g.Step(b, Options{}) }))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.False(t, h.onDisk(t, "a.txt"))
	assert.False(t, h.onDisk(t, "b.txt"))
	assert.Equal(t, []stagedfs.Change{
		{Path: "/work/ext/a.txt", Kind: stagedfs.ChangeWrite},
		{Path: "/work/ext/b.txt", Kind: stagedfs.ChangeWrite},
	}, result.FS.Changes())
}

func TestAtomicGroup_DryRunFailureKeepsEarlierStaging(t *testing.T) {
	h := newHarness(nil)
	h.opts.DryRun = true
	first := newFake("first")
	first.write = "a.txt"
	a := newFake("a")
	a.write = "b.txt"
	b := newFake("b")
	b.err = errors.New("merge failed")

	m := NewManager()
	require.NoError(t, m.NamedStep("first", first, Options{}))
	require.NoError(t, m.AtomicGroup(func(g *Manager) error {
		if err := g.Step(a, Options{}); err != nil {
			return err
		}
		return g.Step(b, Options{})
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Equal(t, []string{"first"}, result.StepsRan)
	assert.True(t, result.FS.Exists("/work/ext/a.txt"), "staging from before the group survives")
	assert.False(t, result.FS.Exists("/work/ext/b.txt"))
	assert.Equal(t, []stagedfs.Change{
		{Path: "/work/ext/a.txt", Kind: stagedfs.ChangeWrite},
	}, result.FS.Changes())
	assert.False(t, h.onDisk(t, "a.txt"))
}

func TestAtomicGroup_BuildErrorForgetsNames(t *testing.T) {
	m := NewManager()
	err := m.AtomicGroup(func(g *Manager) error {
		if err := g.NamedStep("inner", newFake("inner"), Options{}); err != nil {
			return err
		}
		return errors.New("build failed")
	})
	require.Error(t, err)

	err = m.Step(newFake("after"), Options{Dependencies: []Dependency{{Step: "inner", Exposed: DidRun}}})
	require.ErrorIs(t, err, ErrRegistration)

	require.NoError(t, m.NamedStep("inner", newFake("inner"), Options{}), "the name is free again")
}

func TestScenarioD_DryRunRejectsNonComposable(t *testing.T) {
	h := newHarness(nil)
	h.opts.DryRun = true
	first := newFake("first")
	cmd := newFake("cmd")
	cmd.composable = false

	m := NewManager()
	require.NoError(t, m.Step(first, Options{}))
	require.NoError(t, m.Step(cmd, Options{}))

	_, err := m.Run(context.Background(), h.opts)
	require.Error(t, err)
	assert.Zero(t, first.runs, "nothing executes before the misuse is reported")
	assert.Zero(t, cmd.runs)
}

func TestOptional_DeclinedSkips(t *testing.T) {
	h := newHarness(map[string]any{"run:lint": false})
	lint := newFake("lint")
	after := newFake("after")

	m := NewManager()
	require.NoError(t, m.NamedStep("lint", lint, Options{ShouldRun: ShouldRun{Optional: true, Default: true, ConfirmationMessage: "Lint?"}}))
	require.NoError(t, m.Step(after, Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.Zero(t, lint.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, []string{"after"}, result.StepsRan)
}

func TestOptional_DefaultUsedWithoutInteraction(t *testing.T) {
	h := newHarness(nil)
	h.io.SetNoInteraction(true)
	yes := newFake("yes")
	no := newFake("no")

	m := NewManager()
	require.NoError(t, m.Step(yes, Options{ShouldRun: ShouldRun{Optional: true, Default: true}}))
	require.NoError(t, m.Step(no, Options{ShouldRun: ShouldRun{Optional: true, Default: false}}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, 1, yes.runs)
	assert.Zero(t, no.runs)
}

func TestConfirmation_DeclinedExits(t *testing.T) {
	h := newHarness(map[string]any{"run:danger": false})
	danger := newFake("danger")
	after := newFake("after")

	m := NewManager()
	require.NoError(t, m.Step(danger, Options{ShouldRun: ShouldRun{ConfirmationMessage: "Overwrite everything?"}}))
	require.NoError(t, m.Step(after, Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.True(t, result.Exiting())
	assert.ErrorIs(t, result.Err, prompt.ErrExiting)
	assert.Zero(t, danger.runs)
	assert.Zero(t, after.runs)
}

func TestSilentGroup_NeverAsks(t *testing.T) {
	h := newHarness(map[string]any{"run:quiet": false, "name": "scripted"})
	quiet := newFake("quiet")
	quiet.wants = []string{"name"}
	loud := newFake("loud")

	m := NewManager()
	require.NoError(t, m.SilentGroup(func(s *Manager) error {
		return s.NamedStep("quiet", quiet, Options{ShouldRun: ShouldRun{Optional: true, ConfirmationMessage: "Run quiet?"}})
	}))
	require.NoError(t, m.Step(loud, Options{ShouldRun: ShouldRun{Optional: true, Default: true}}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	assert.Equal(t, 1, quiet.runs)
	assert.False(t, h.io.WasAsked("run:quiet"))
	assert.False(t, h.io.WasAsked("name"))
	assert.Equal(t, []map[string]any{{"name": "prompted"}}, quiet.params, "silent steps take defaults")

	assert.True(t, h.io.WasAsked("run:loud"), "the mode is restored after the group")
}

func TestPanicRecovered(t *testing.T) {
	h := newHarness(nil)
	bad := newFake("bad")
	bad.panic = true

	m := NewManager()
	require.NoError(t, m.Step(bad, Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Err.Error(), "panic: boom")
	assert.Contains(t, result.ErrTrace, "goroutine")
}

func TestFanOut(t *testing.T) {
	h := newHarness(nil)
	h.opts.Paths = paths.New("/work", "", "/work/mono")

	src := newFake("src")
	src.exposes = []string{"pkg"}
	src.exposed = map[string]any{"@pkg": true}
	src.write = "out.txt"
	dependent := newFake("dependent")
	dependent.wants = []string{"pkg"}

	m := NewManager()
	mapped := []string{"packages/a", "packages/b"}
	require.NoError(t, m.NamedStep("src", src, Options{MapPaths: mapped}))
	require.NoError(t, m.Step(dependent, Options{
		MapPaths:     mapped,
		Dependencies: []Dependency{{Step: "src", Exposed: "pkg"}},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded, "%v", result.Err)

	assert.Equal(t, []string{"/work/mono/packages/a", "/work/mono/packages/b"}, src.pkgs)
	assert.Equal(t, []map[string]any{
		{"pkg": "/work/mono/packages/a"},
		{"pkg": "/work/mono/packages/b"},
	}, dependent.params, "each path reads its own exposed values")
	assert.Equal(t, []string{
		"src (packages/a)", "src (packages/b)",
		"dependent (packages/a)", "dependent (packages/b)",
	}, result.StepsRan)

	for _, p := range mapped {
		ok, _ := afero.Exists(h.base, filepath.Join("/work/mono", p, "out.txt"))
		assert.True(t, ok)
	}
}

func TestFanOut_DependsOnPlainStep(t *testing.T) {
	h := newHarness(nil)
	src := newFake("src")
	src.exposes = []string{"id"}
	src.exposed = map[string]any{"id": "shared"}
	dependent := newFake("dependent")
	dependent.wants = []string{"id"}

	m := NewManager()
	require.NoError(t, m.NamedStep("src", src, Options{}))
	require.NoError(t, m.Step(dependent, Options{
		MapPaths:     []string{"a", "b"},
		Dependencies: []Dependency{{Step: "src", Exposed: "id"}},
	}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, []map[string]any{{"id": "shared"}, {"id": "shared"}}, dependent.params)
}

func TestUndeclaredExposedValueFails(t *testing.T) {
	h := newHarness(nil)
	liar := newFake("liar")
	liar.exposed = map[string]any{"secret": 1}

	m := NewManager()
	require.NoError(t, m.NamedStep("liar", liar, Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Err.Error(), "undeclared value")
}

func TestMessagesReported(t *testing.T) {
	h := newHarness(nil)
	h.io.Info("hello")

	m := NewManager()
	require.NoError(t, m.Step(newFake("a"), Options{}))

	result, err := m.Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, []prompt.Message{{Level: prompt.LevelInfo, Text: "hello"}}, result.Messages)
}

func TestTrace_PlainErrorChain(t *testing.T) {
	inner := errors.New("disk full")
	err := fmt.Errorf("step a: %w", fmt.Errorf("writing: %w", inner))

	assert.Equal(t, "step a: writing: disk full\n  caused by: writing: disk full\n  caused by: disk full", trace(err))
}

func TestIsFalsy(t *testing.T) {
	assert.True(t, isFalsy(nil))
	assert.True(t, isFalsy(false))
	assert.True(t, isFalsy(""))
	assert.True(t, isFalsy(0))
	assert.True(t, isFalsy([]any{}))
	assert.True(t, isFalsy(map[string]any{}))
	assert.False(t, isFalsy(true))
	assert.False(t, isFalsy("x"))
	assert.False(t, isFalsy(1))
	assert.False(t, isFalsy([]string{"a"}))
}

func TestStore(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Ran("a", ""))

	s.Record("a", "", nil)
	s.Record("a", "packages/b", map[string]any{"x": 1})

	assert.True(t, s.Ran("a", ""))
	values, ok := s.Lookup("a", "packages/b")
	require.True(t, ok)
	assert.Equal(t, 1, values["x"])

	_, ok = s.Lookup("a", "packages/c")
	assert.False(t, ok)
}
