package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	verboseMode bool
	writer      io.Writer = os.Stdout

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "flarum-cli",
		Level:  log.WarnLevel,
	})
)

// SetVerbose enables or disables verbose output for debugging.
// This should be called by the CLI when the --verbose flag is set.
func SetVerbose(v bool) {
	verboseMode = v
	if v {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
}

// IsVerbose reports whether verbose mode is on.
func IsVerbose() bool {
	return verboseMode
}

// SetWriter redirects console output. Passing nil restores os.Stdout.
func SetWriter(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	writer = w
}

// Logger returns the structured logger shared by the CLI packages.
// It writes to stderr and only emits debug records in verbose mode.
func Logger() *log.Logger {
	return logger
}

// Success prints a success message with ✅ emoji and green color.
//
// Example:
//
//	output.Success("Created extension: acme/blog")
func Success(msg string) {
	fmt.Fprintln(writer, successStyle.Render("✅ "+msg))
}

// Error prints an error message with ❌ emoji and red color.
func Error(msg string) {
	fmt.Fprintln(writer, errorStyle.Render("❌ "+msg))
}

// Warning prints a warning with ⚠️ emoji and yellow color.
// Use this when the user chose to stop or something was skipped.
func Warning(msg string) {
	fmt.Fprintln(writer, warningStyle.Render("⚠️  "+msg))
}

// Info prints an informational message with ℹ️ emoji and cyan color.
func Info(msg string) {
	fmt.Fprintln(writer, infoStyle.Render("ℹ️  "+msg))
}

// Step prints an indented step message in gray.
//
// Example:
//
//	output.Step("cd blog")
//	output.Step("go mod tidy")
func Step(msg string) {
	fmt.Fprintln(writer, stepStyle.Render("   "+msg))
}

// Plain prints text without decoration, e.g. a rendered diff.
func Plain(msg string) {
	fmt.Fprintln(writer, msg)
}

// Verbose prints a debug message with 🔍 emoji only if verbose mode is enabled.
func Verbose(msg string) {
	if verboseMode {
		fmt.Fprintln(writer, stepStyle.Render("🔍 "+msg))
	}
}
