package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
)

// ConflictResolution is what to do with a generated file that already exists.
type ConflictResolution int

const (
	Skip ConflictResolution = iota
	Overwrite
	ShowDiff
	Cancel
)

func (r ConflictResolution) String() string {
	switch r {
	case Skip:
		return "skip"
	case Overwrite:
		return "overwrite"
	case ShowDiff:
		return "diff"
	default:
		return "cancel"
	}
}

// ConflictStrategy decides how to resolve one conflict.
type ConflictStrategy interface {
	Resolve(ctx context.Context, path string, existing, newer []byte) (ConflictResolution, error)
}

// Resolver handles generated files that collide with existing ones.
type Resolver struct {
	strategy ConflictStrategy
}

// NewResolver picks a strategy from the --force and --skip flags, falling
// back to asking through io.
func NewResolver(force, skip bool, io prompt.IO) (*Resolver, error) {
	if force && skip {
		return nil, fmt.Errorf("--force cannot be combined with --skip")
	}

	var strategy ConflictStrategy
	switch {
	case force:
		strategy = ForceStrategy{}
	case skip:
		strategy = SkipStrategy{}
	default:
		strategy = &AskStrategy{IO: io}
	}
	return &Resolver{strategy: strategy}, nil
}

// WithIO returns a resolver that asks through io. Force and skip resolvers
// are returned unchanged.
func (r *Resolver) WithIO(io prompt.IO) *Resolver {
	if _, ok := r.strategy.(*AskStrategy); !ok {
		return r
	}
	return &Resolver{strategy: &AskStrategy{IO: io}}
}

// ResolveConflict returns the decision for path. Identical content never
// needs a decision and resolves to Skip.
func (r *Resolver) ResolveConflict(ctx context.Context, path string, existing, newer []byte) (ConflictResolution, error) {
	if string(existing) == string(newer) {
		return Skip, nil
	}
	return r.strategy.Resolve(ctx, path, existing, newer)
}

// ForceStrategy always overwrites.
type ForceStrategy struct{}

func (ForceStrategy) Resolve(context.Context, string, []byte, []byte) (ConflictResolution, error) {
	return Overwrite, nil
}

// SkipStrategy always keeps the existing file.
type SkipStrategy struct{}

func (SkipStrategy) Resolve(context.Context, string, []byte, []byte) (ConflictResolution, error) {
	return Skip, nil
}

var conflictChoices = []string{
	"Show diff and decide",
	"Skip (keep existing file)",
	"Overwrite (replace with generated code)",
	"Cancel operation",
}

var choiceResolutions = []ConflictResolution{ShowDiff, Skip, Overwrite, Cancel}

// AskStrategy asks the user, showing the diff as often as they want it.
// Without interaction it keeps the existing file.
type AskStrategy struct {
	IO prompt.IO
}

func (s *AskStrategy) Resolve(ctx context.Context, path string, existing, newer []byte) (ConflictResolution, error) {
	for {
		answer, err := s.IO.GetParam(ctx, prompt.Param{
			Name:    "conflict:" + path,
			Type:    prompt.Select,
			Message: "⚠️  File conflict detected: " + path,
			Initial: conflictChoices[1],
			Choices: conflictChoices,
		})
		if errors.Is(err, prompt.ErrExiting) {
			return Cancel, nil
		}
		if err != nil {
			return Cancel, err
		}

		resolution := mapChoiceToResolution(answer)
		if resolution != ShowDiff {
			return resolution, nil
		}
		if err := showDiff(ctx, path, Diff(path, path, existing, newer, nil)); err != nil {
			return Cancel, err
		}
	}
}

func mapChoiceToResolution(answer any) ConflictResolution {
	choice, _ := answer.(string)
	for i, c := range conflictChoices {
		if c == choice {
			return choiceResolutions[i]
		}
	}
	return Cancel
}

// showDiff prints small diffs inline and pages large ones.
func showDiff(ctx context.Context, path, diff string) error {
	if strings.Count(diff, "\n") <= 20 {
		output.Plain(diff)
		return nil
	}

	p := tea.NewProgram(newDiffViewerModel(path, diff), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to show diff: %w", err)
	}
	return nil
}

var borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// diffViewerModel pages a diff in a full-screen viewport.
type diffViewerModel struct {
	path     string
	diff     string
	viewport viewport.Model
	ready    bool
}

func newDiffViewerModel(path, diff string) diffViewerModel {
	return diffViewerModel{path: path, diff: diff}
}

func (m diffViewerModel) Init() tea.Cmd {
	return nil
}

func (m diffViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		const chrome = 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, msg.Height-chrome)
			m.viewport.SetContent(m.diff)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = msg.Height - chrome
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m diffViewerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := fmt.Sprintf("─ Diff: %s ", m.path)
	footer := " [↑/↓] Scroll    [q] Return to menu "
	rule := func(label string) string {
		return label + strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(label)))
	}

	return borderStyle.Render(rule(title)) + "\n" +
		m.viewport.View() + "\n" +
		borderStyle.Render(rule(footer)) + "\n"
}
