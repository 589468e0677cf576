package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

// ExtenderCmd returns the extender command
func ExtenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extender",
		Short: "Manage extender registrations",
	}

	cmd.AddCommand(extenderAddCmd())

	return cmd
}

// extenderAddCmd merges a JSON extender definition into extend.go
func extenderAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add <definition.json|->",
		Short: "Register an extender from a JSON definition",
		Long: `Register an extender described as JSON. An equivalent existing
registration gets the missing chained calls instead of a duplicate.

Example definition:
  {
    "target": {"import": "github.com/flarum/framework/extend", "name": "Routes"},
    "args": [{"kind": "literal", "value": "api"}],
    "calls": [{"name": "Get", "args": [
      {"kind": "literal", "value": "/tags"},
      {"kind": "literal", "value": "api.tags"},
      {"kind": "const", "import": "github.com/acme/tags/api", "name": "ListTags"}
    ]}]
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := readExtenderDef(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			if err := e.requireExtension(); err != nil {
				return err
			}

			m := step.NewManager()
			s := steps.NewAddExtender(steps.ExtenderOptions{
				File: file,
				Build: func(map[string]any, *stagedfs.FS, paths.Paths) (codemerge.ExtenderDef, error) {
					return def, nil
				},
			})
			if err := m.Step(s, step.Options{}); err != nil {
				return err
			}
			return e.run(cmd.Context(), m, nil)
		},
	}

	cmd.Flags().StringVar(&file, "file", steps.ExtendFile, "File holding the extender collection, relative to the extension")

	return cmd
}

// readExtenderDef decodes a definition from a file, or stdin for "-".
func readExtenderDef(name string, stdin io.Reader) (codemerge.ExtenderDef, error) {
	var def codemerge.ExtenderDef

	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return def, fmt.Errorf("reading extender definition: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&def); err != nil {
		return def, fmt.Errorf("failed to parse extender definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}
