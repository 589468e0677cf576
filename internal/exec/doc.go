// Package exec runs external commands for the CLI: the language subsystem
// that rewrites source files, and package tooling such as `go mod tidy`.
//
// # Basic Usage
//
//	executor := exec.NewExecutor(nil)
//	err := executor.Run(ctx, "go", "mod", "tidy")
//
// # Piping Input
//
// Output writes input to the command's stdin and returns what it printed:
//
//	out, err := executor.Output(ctx, request, "flarum-cli-lang", "--json")
//
// # Spinners
//
// RunWithSpinner hides the command's output behind a spinner when stderr is
// a terminal, and runs quietly otherwise:
//
//	err := executor.RunWithSpinner(ctx, "Tidying modules", "go", "mod", "tidy")
//
// # Testing
//
// Options.CommandFunc replaces exec.Command, so tests can route commands to a
// TestHelperProcess:
//
//	executor := exec.NewExecutor(&exec.Options{CommandFunc: mockCommand})
package exec
