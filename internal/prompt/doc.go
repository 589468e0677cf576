// Package prompt is how steps ask the user for parameters.
//
// Every step receives an IO. GetParam answers from the instance's cache of
// already-known values first (preset arguments, predefined values and values
// resolved from dependencies), then from the user, or from the parameter's
// declared default when the IO is non-interactive.
//
//	name, err := io.GetParam(ctx, prompt.Param{
//	    Name:    "routeName",
//	    Type:    prompt.Text,
//	    Message: "Route name",
//	    Initial: "forum.index",
//	})
//
// Three implementations exist: Terminal (lipgloss prompts and bubbletea
// menus), the same Terminal in no-interaction mode, and Memory, which answers
// from a script and is meant for tests.
//
// Declining a required confirmation or cancelling a menu yields ErrExiting.
package prompt
