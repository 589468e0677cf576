package steps

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/mod/modfile"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/filesystem"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// ExposedPrevious is the version a requirement had before UpdateRequirement.
const ExposedPrevious = "previous"

// UpdateRequirement sets a go.mod requirement, dropping the requirements in
// Replaces first. It is how a major version bump swaps module paths.
type UpdateRequirement struct {
	Path     string
	Version  string
	Replaces []string

	previous string
}

// NewUpdateRequirement creates a go.mod step.
func NewUpdateRequirement(path, version string, replaces ...string) *UpdateRequirement {
	return &UpdateRequirement{Path: path, Version: version, Replaces: replaces}
}

func (s *UpdateRequirement) Type() string      { return "Require " + s.Path + " " + s.Version }
func (s *UpdateRequirement) Composable() bool  { return true }
func (s *UpdateRequirement) Exposes() []string { return []string{ExposedPrevious} }

func (s *UpdateRequirement) Run(_ context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, _ step.Providers) error {
	path := p.Package("go.mod")
	data, err := fsys.Read(path)
	if err != nil {
		return fmt.Errorf("reading go.mod: %w", err)
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return fmt.Errorf("failed to parse go.mod: %w", err)
	}

	s.previous = ""
	for _, req := range f.Require {
		if req.Mod.Path == s.Path || slices.Contains(s.Replaces, req.Mod.Path) {
			s.previous = req.Mod.Version
			break
		}
	}

	for _, old := range s.Replaces {
		if old == s.Path {
			continue
		}
		if err := f.DropRequire(old); err != nil {
			return fmt.Errorf("dropping %s: %w", old, err)
		}
	}
	if err := f.AddRequire(s.Path, s.Version); err != nil {
		return fmt.Errorf("requiring %s: %w", s.Path, err)
	}
	f.Cleanup()

	out, err := f.Format()
	if err != nil {
		return fmt.Errorf("formatting go.mod: %w", err)
	}
	if s.previous != s.Version {
		io.Info(fmt.Sprintf("Updated %s to %s", s.Path, s.Version))
	}
	return fsys.Write(path, out)
}

func (s *UpdateRequirement) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	return map[string]any{ExposedPrevious: s.previous}, nil
}

// RewriteImports moves every Go import of From, or a package below it, to
// To across the package.
type RewriteImports struct {
	From string
	To   string

	changed []string
}

// NewRewriteImports creates an import rewrite step.
func NewRewriteImports(from, to string) *RewriteImports {
	return &RewriteImports{From: from, To: to}
}

func (s *RewriteImports) Type() string      { return "Rewrite imports of " + s.From }
func (s *RewriteImports) Composable() bool  { return true }
func (s *RewriteImports) Exposes() []string { return []string{ExposedChanged} }

func (s *RewriteImports) Run(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, _ step.Providers) error {
	files, err := filesystem.Files(fsys, p.Package(), filesystem.WalkOptions{}, "*.go")
	if err != nil {
		return err
	}

	s.changed = nil
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := fsys.Read(path)
		if err != nil {
			return err
		}
		out, changed, err := codemerge.RewriteImports(path, src, s.From, s.To)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Rel(path), err)
		}
		if !changed {
			continue
		}
		if err := fsys.Write(path, out); err != nil {
			return err
		}
		s.changed = append(s.changed, p.Rel(path))
	}

	if len(s.changed) > 0 {
		io.Info(fmt.Sprintf("Rewrote imports in %d file(s)", len(s.changed)))
	}
	return nil
}

func (s *RewriteImports) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	return map[string]any{ExposedChanged: s.changed}, nil
}
