package steps

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// ExposedPath is the exposed name of the file a stub was written to,
// relative to the package root.
const ExposedPath = "path"

// StubOptions configures a GenerateStub step.
type StubOptions struct {
	// Type labels the step, e.g. "route handler".
	Type string
	// Stubs holds the template at Template.
	Stubs    fs.FS
	Template string
	// Params are asked in order before rendering.
	Params []prompt.Param
	// Dest is a template rendering the destination, relative to the
	// package root.
	Dest string
	// Data adds derived template values. It may be nil.
	Data func(values map[string]any, fsys *stagedfs.FS, p paths.Paths) (map[string]any, error)
	// Expose lists parameters or derived values published to later steps.
	Expose []string
}

// GenerateStub renders one template into the package.
type GenerateStub struct {
	opts StubOptions

	values map[string]any
	path   string
}

// NewGenerateStub creates a stub step.
func NewGenerateStub(opts StubOptions) *GenerateStub {
	return &GenerateStub{opts: opts}
}

func (s *GenerateStub) Type() string     { return "Generate " + s.opts.Type }
func (s *GenerateStub) Composable() bool { return true }

func (s *GenerateStub) Exposes() []string {
	return append(slices.Clone(s.opts.Expose), ExposedPath)
}

func (s *GenerateStub) Run(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, providers step.Providers) error {
	values, err := collect(ctx, io, s.opts.Params)
	if err != nil {
		return err
	}
	if s.opts.Data != nil {
		derived, err := s.opts.Data(values, fsys, p)
		if err != nil {
			return err
		}
		maps.Copy(values, derived)
	}

	r := renderer(providers)
	dest, err := r.RenderString(s.opts.Dest, s.opts.Dest, values)
	if err != nil {
		return fmt.Errorf("rendering destination: %w", err)
	}
	content, err := r.RenderFS(s.opts.Stubs, s.opts.Template, values)
	if err != nil {
		return err
	}

	res, err := resolver(providers, io)
	if err != nil {
		return err
	}
	path := p.Package(string(dest))
	rel := p.Rel(path)
	written, err := place(ctx, fsys, res, rel, path, content)
	if err != nil {
		return err
	}
	if written {
		io.Info("Created " + rel)
	} else {
		io.Info("Kept existing " + rel)
	}

	s.values = values
	s.path = rel
	return nil
}

func (s *GenerateStub) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	exposed := map[string]any{ExposedPath: s.path}
	for _, name := range s.opts.Expose {
		if v, ok := s.values[name]; ok {
			exposed[name] = v
		}
	}
	return exposed, nil
}
