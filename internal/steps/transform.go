package steps

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/flarum/flarum-cli-sub000/internal/filesystem"
	"github.com/flarum/flarum-cli-sub000/internal/langsub"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// Names exposed by Transform and RewriteImports.
const (
	ExposedCollected = "collected"
	ExposedChanged   = "changed"
)

// ErrNoSubsystem is returned by steps that need the language subsystem when
// none is configured.
var ErrNoSubsystem = errors.New("no language subsystem configured")

// TransformOptions configures a Transform step.
type TransformOptions struct {
	// Op is the subsystem operation applied to each file.
	Op string
	// Root is relative to the package root. Defaults to the package root.
	Root string
	// Patterns select files by base name, e.g. "*.js".
	Patterns []string
	// Args are sent with every request.
	Args map[string]any
}

// Transform sends every matching file through the language subsystem and
// stages the rewritten text. Metadata the subsystem collects is exposed per
// file, keyed by path relative to the package root.
type Transform struct {
	opts TransformOptions

	collected map[string]any
	changed   []string
}

// NewTransform creates a transform step.
func NewTransform(opts TransformOptions) *Transform {
	return &Transform{opts: opts}
}

func (s *Transform) Type() string     { return "Transform " + s.opts.Op }
func (s *Transform) Composable() bool { return true }

func (s *Transform) Exposes() []string {
	return []string{ExposedCollected, ExposedChanged}
}

func (s *Transform) Run(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, providers step.Providers) error {
	if providers.Lang == nil {
		return ErrNoSubsystem
	}

	files, err := filesystem.Files(fsys, p.Package(s.opts.Root), filesystem.WalkOptions{}, s.opts.Patterns...)
	if err != nil {
		return err
	}

	collected := make(map[string]any)
	var changed []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := fsys.Read(path)
		if err != nil {
			return err
		}

		rel := p.Rel(path)
		args := maps.Clone(s.opts.Args)
		if args == nil {
			args = make(map[string]any)
		}
		args["file"] = rel
		args["code"] = string(src)

		resp, err := providers.Lang.Call(ctx, langsub.NewRequest(s.opts.Op, args))
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		if len(resp.Collected) > 0 {
			collected[rel] = resp.Collected
		}
		if resp.Code == string(src) {
			continue
		}
		if err := fsys.Write(path, []byte(resp.Code)); err != nil {
			return err
		}
		changed = append(changed, rel)
	}

	if len(changed) > 0 {
		io.Info(fmt.Sprintf("%s changed %d file(s)", s.opts.Op, len(changed)))
	}
	s.collected = collected
	s.changed = changed
	return nil
}

func (s *Transform) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	return map[string]any{
		ExposedCollected: s.collected,
		ExposedChanged:   s.changed,
	}, nil
}
