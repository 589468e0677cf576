package steps

import (
	"bytes"
	"context"
	"fmt"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// ExtendFile is the file extenders are registered in by default.
const ExtendFile = "extend.go"

// BuildFunc turns collected parameters into the extender to register.
type BuildFunc func(values map[string]any, fsys *stagedfs.FS, p paths.Paths) (codemerge.ExtenderDef, error)

// ExtenderOptions configures an AddExtender step.
type ExtenderOptions struct {
	// File is relative to the package root. Defaults to ExtendFile.
	File   string
	Params []prompt.Param
	Build  BuildFunc
}

// AddExtender registers an extender in the package's extender collection,
// merging it into an equivalent existing registration when there is one.
type AddExtender struct {
	opts ExtenderOptions
}

// NewAddExtender creates an extender step.
func NewAddExtender(opts ExtenderOptions) *AddExtender {
	if opts.File == "" {
		opts.File = ExtendFile
	}
	return &AddExtender{opts: opts}
}

// NewAddExtenderDef creates a step registering a fixed extender.
func NewAddExtenderDef(def codemerge.ExtenderDef) *AddExtender {
	return NewAddExtender(ExtenderOptions{
		Build: func(map[string]any, *stagedfs.FS, paths.Paths) (codemerge.ExtenderDef, error) {
			return def, nil
		},
	})
}

func (s *AddExtender) Type() string      { return "Register extender" }
func (s *AddExtender) Composable() bool  { return true }
func (s *AddExtender) Exposes() []string { return nil }

func (s *AddExtender) Run(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, providers step.Providers) error {
	values, err := collect(ctx, io, s.opts.Params)
	if err != nil {
		return err
	}
	def, err := s.opts.Build(values, fsys, p)
	if err != nil {
		return err
	}

	path := p.Package(s.opts.File)
	src, ok, err := readOptional(fsys, path)
	if err != nil {
		return err
	}
	if !ok {
		src = []byte("package " + rootPackage(fsys, p) + "\n")
	}

	out, err := merger(providers).AddExtenders(ctx, path, src, def)
	if err != nil {
		return fmt.Errorf("registering %s in %s: %w", def.Target, p.Rel(path), err)
	}
	if ok && bytes.Equal(out, src) {
		io.Info(fmt.Sprintf("%s is already registered in %s", def.Target, p.Rel(path)))
		return nil
	}
	return fsys.Write(path, out)
}

func (s *AddExtender) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	return nil, nil
}

// rootPackage names the package at the extension root.
func rootPackage(fsys *stagedfs.FS, p paths.Paths) string {
	fallback := p.Package()
	if info, err := project.DetectModule(fsys, p.Package()); err == nil {
		fallback = info.Path
	}
	return DirPackage(fsys, p.Package(), fallback)
}
