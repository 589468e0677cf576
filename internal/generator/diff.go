package generator

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DiffOptions configures diff output. Zero values take defaults.
type DiffOptions struct {
	// ContextLines is the number of unchanged lines around changes. Default: 3
	ContextLines int
	// TabWidth is the number of spaces a tab expands to. Default: 4
	TabWidth int
	// Width truncates long lines. Default: the terminal width, or 80.
	Width int
}

type lineOp int

const (
	opEqual lineOp = iota
	opInsert
	opDelete
)

type diffLine struct {
	op      lineOp
	oldNum  int
	newNum  int
	content string
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []diffLine
}

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("22"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("52"))
)

// Diff returns a unified diff between old and newer, or "" when they match.
func Diff(oldPath, newPath string, old, newer []byte, opts *DiffOptions) string {
	o := DiffOptions{ContextLines: 3, TabWidth: 4}
	if opts != nil {
		if opts.ContextLines > 0 {
			o.ContextLines = opts.ContextLines
		}
		if opts.TabWidth > 0 {
			o.TabWidth = opts.TabWidth
		}
		o.Width = opts.Width
	}
	if o.Width <= 0 {
		o.Width = terminalWidth()
	}

	if isBinary(old) || isBinary(newer) {
		if bytes.Equal(old, newer) {
			return ""
		}
		return "Binary files differ\n"
	}

	a, b := splitLines(string(old)), splitLines(string(newer))
	if len(a) > 10000 || len(b) > 10000 {
		return fmt.Sprintf("Files too large for diff (%d and %d lines)\n", len(a), len(b))
	}

	hunks := groupHunks(editScript(a, b), o.ContextLines)
	if len(hunks) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(headerStyle.Render("--- "+oldPath) + "\n")
	buf.WriteString(headerStyle.Render("+++ "+newPath) + "\n")
	for _, h := range hunks {
		writeHunk(&buf, h, o)
	}
	return buf.String()
}

// editScript computes the shortest edit script from a to b with the Myers
// O(ND) algorithm, keeping one V array per edit distance for backtracking.
func editScript(a, b []string) []diffLine {
	n, m := len(a), len(b)
	maxD := n + m
	offset := maxD + 1
	v := make([]int, 2*maxD+3)
	var trace [][]int

search:
	for d := 0; d <= maxD; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	var script []diffLine
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		vd := trace[d]
		k := x - y

		prevK := k - 1
		if k == -d || (k != d && vd[offset+k-1] < vd[offset+k+1]) {
			prevK = k + 1
		}
		prevX := vd[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			script = append(script, diffLine{op: opEqual, oldNum: x + 1, newNum: y + 1, content: a[x]})
		}
		if d == 0 {
			break
		}
		if x == prevX {
			y--
			script = append(script, diffLine{op: opInsert, newNum: y + 1, content: b[y]})
		} else {
			x--
			script = append(script, diffLine{op: opDelete, oldNum: x + 1, content: a[x]})
		}
	}

	for i, j := 0, len(script)-1; i < j; i, j = i+1, j-1 {
		script[i], script[j] = script[j], script[i]
	}
	return script
}

// groupHunks collects changes with up to context unchanged lines around
// them, merging changes separated by at most 2*context unchanged lines.
func groupHunks(script []diffLine, context int) []hunk {
	var hunks []hunk
	i := 0
	for i < len(script) {
		if script[i].op == opEqual {
			i++
			continue
		}

		start := max(0, i-context)
		end := i
		for end < len(script) {
			if script[end].op != opEqual {
				end++
				continue
			}
			run := end
			for run < len(script) && script[run].op == opEqual {
				run++
			}
			if run == len(script) || run-end > 2*context {
				end = min(len(script), end+context)
				break
			}
			end = run
		}

		hunks = append(hunks, newHunk(script[start:end]))
		i = end
	}
	return hunks
}

func newHunk(lines []diffLine) hunk {
	h := hunk{lines: lines}
	for _, l := range lines {
		if l.op != opInsert {
			if h.oldStart == 0 {
				h.oldStart = l.oldNum
			}
			h.oldCount++
		}
		if l.op != opDelete {
			if h.newStart == 0 {
				h.newStart = l.newNum
			}
			h.newCount++
		}
	}
	return h
}

func writeHunk(buf *strings.Builder, h hunk, o DiffOptions) {
	buf.WriteString(hunkStyle.Render(fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.oldStart, h.oldCount, h.newStart, h.newCount)) + "\n")

	for _, l := range h.lines {
		content := truncate(expandTabs(l.content, o.TabWidth), o.Width-2)
		switch l.op {
		case opInsert:
			buf.WriteString(addedStyle.Render("+"+content) + "\n")
		case opDelete:
			buf.WriteString(removedStyle.Render("-"+content) + "\n")
		default:
			buf.WriteString(" " + content + "\n")
		}
	}
}

// isBinary reports whether data looks binary (a NUL byte in the first 8KB).
func isBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), 8192)], 0) != -1
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func expandTabs(s string, width int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			pad := width - col%width
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width < 4 || utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width-3]) + "..."
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
