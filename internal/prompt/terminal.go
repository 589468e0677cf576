package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/flarum/flarum-cli-sub000/internal/output"
)

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
)

// Terminal asks questions on a terminal.
type Terminal struct {
	in            *bufio.Reader
	rawIn         io.Reader
	out           io.Writer
	cache         map[string]any
	noInteraction bool
	log           *messageLog
}

// NewTerminal creates an IO reading stdin and writing stdout. It is
// non-interactive when noInteraction is set or stdin is not a terminal.
func NewTerminal(noInteraction bool) *Terminal {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		noInteraction = true
	}
	return NewTerminalWith(os.Stdin, os.Stdout, noInteraction)
}

// NewTerminalWith creates a Terminal over arbitrary streams.
func NewTerminalWith(in io.Reader, out io.Writer, noInteraction bool) *Terminal {
	return &Terminal{
		in:            bufio.NewReader(in),
		rawIn:         in,
		out:           out,
		cache:         map[string]any{},
		noInteraction: noInteraction,
		log:           &messageLog{},
	}
}

func (t *Terminal) GetParam(ctx context.Context, p Param) (any, error) {
	if v, ok := cached(t.cache, p); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.noInteraction {
		return DefaultValue(p)
	}

	switch p.Type {
	case Confirm:
		return t.confirm(p), nil
	case Select, MultiSelect:
		return t.choose(ctx, p)
	default:
		return t.text(p)
	}
}

// text asks for a line of input, repeating the question until it validates.
func (t *Terminal) text(p Param) (any, error) {
	def, _ := p.Initial.(string)
	for {
		if def != "" {
			fmt.Fprint(t.out, promptStyle.Render(p.Message)+" "+hintStyle.Render(fmt.Sprintf("(%s)", def))+": ")
		} else {
			fmt.Fprint(t.out, promptStyle.Render(p.Message)+": ")
		}

		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			if def == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingParam, p.Name)
			}
			return def, nil
		}

		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = def
		}
		if err := validate(p, answer); err != nil {
			output.Warning(err.Error())
			continue
		}
		return answer, nil
	}
}

func (t *Terminal) confirm(p Param) bool {
	defaultYes, _ := p.Initial.(bool)
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	fmt.Fprint(t.out, promptStyle.Render(p.Message)+" "+hintStyle.Render(hint)+": ")

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return defaultYes
	}

	answer := strings.TrimSpace(strings.ToLower(line))
	if answer == "" {
		return defaultYes
	}
	return answer == "y" || answer == "yes"
}

func (t *Terminal) choose(ctx context.Context, p Param) (any, error) {
	if len(p.Choices) == 0 {
		return DefaultValue(p)
	}

	model := newChoiceModel(p)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(t.rawIn), tea.WithOutput(t.out))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to show menu: %w", err)
	}

	result := final.(choiceModel)
	if result.cancelled {
		return nil, ErrExiting
	}

	answer := result.answer()
	if err := validate(p, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (t *Terminal) Info(msg string) {
	t.log.add(LevelInfo, msg)
	output.Info(msg)
}

func (t *Terminal) Warning(msg string) {
	t.log.add(LevelWarning, msg)
	output.Warning(msg)
}

func (t *Terminal) Error(msg string) {
	t.log.add(LevelError, msg)
	output.Error(msg)
}

func (t *Terminal) Messages() []Message { return t.log.all() }

func (t *Terminal) NoInteraction() bool { return t.noInteraction }

func (t *Terminal) NewInstance(cache map[string]any, noInteraction bool) IO {
	return &Terminal{
		in:            t.in,
		rawIn:         t.rawIn,
		out:           t.out,
		cache:         copyCache(cache),
		noInteraction: t.noInteraction || noInteraction,
		log:           t.log,
	}
}

// choiceModel is the bubbletea model behind Select and MultiSelect.
type choiceModel struct {
	message   string
	choices   []string
	multi     bool
	cursor    int
	picked    map[int]bool
	done      bool
	cancelled bool
}

func newChoiceModel(p Param) choiceModel {
	m := choiceModel{
		message: p.Message,
		choices: p.Choices,
		multi:   p.Type == MultiSelect,
		picked:  map[int]bool{},
	}

	switch initial := p.Initial.(type) {
	case string:
		for i, c := range p.Choices {
			if c == initial {
				m.cursor = i
			}
		}
	case []string:
		for _, v := range initial {
			for i, c := range p.Choices {
				if c == v {
					m.picked[i] = true
				}
			}
		}
	}
	return m
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}

	case " ", "space":
		if m.multi {
			m.picked[m.cursor] = !m.picked[m.cursor]
		}

	case "enter":
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m choiceModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptStyle.Render(m.message) + "\n")

	help := "[↑/↓] Navigate    [Enter] Select    [q] Cancel"
	if m.multi {
		help = "[↑/↓] Navigate    [Space] Toggle    [Enter] Confirm    [q] Cancel"
	}
	b.WriteString(hintStyle.Render("    "+help) + "\n\n")

	for i, choice := range m.choices {
		label := choice
		if m.multi {
			box := "[ ] "
			if m.picked[i] {
				box = "[x] "
			}
			label = box + choice
		}

		if m.cursor == i {
			b.WriteString("    " + selectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString("      " + label + "\n")
		}
	}

	return b.String()
}

// answer is the value the menu resolved to.
func (m choiceModel) answer() any {
	if !m.multi {
		return m.choices[m.cursor]
	}
	picked := make([]string, 0, len(m.picked))
	for i, choice := range m.choices {
		if m.picked[i] {
			picked = append(picked, choice)
		}
	}
	return picked
}
