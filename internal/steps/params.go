// Package steps holds the concrete steps commands plan with: stub
// generation, extender registration, module application, upgrade
// transformations and shell commands.
//
// Every step reads its parameters through the IO it is handed, so values
// supplied as presets, predefined parameters or dependencies are never
// asked for. Values a step captures while running are returned by Exposed.
package steps

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// collect asks for every parameter in order.
func collect(ctx context.Context, io prompt.IO, params []prompt.Param) (map[string]any, error) {
	values := make(map[string]any, len(params))
	for _, p := range params {
		v, err := io.GetParam(ctx, p)
		if err != nil {
			return nil, err
		}
		values[p.Name] = v
	}
	return values, nil
}

func stringParam(ctx context.Context, io prompt.IO, p prompt.Param) (string, error) {
	v, err := io.GetParam(ctx, p)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s: expected a string, got %T", p.Name, v)
	}
	return s, nil
}

// NotEmpty validates that a text answer is not blank.
func NotEmpty(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("a value is required")
	}
	return nil
}

// Identifier validates that a text answer is a Go identifier.
func Identifier(v any) error {
	s, _ := v.(string)
	if !token.IsIdentifier(s) {
		return fmt.Errorf("%q is not a valid Go identifier", s)
	}
	return nil
}

// ModulePath validates a Go module path.
func ModulePath(v any) error {
	s, _ := v.(string)
	return project.ValidateModulePath(s)
}

// DirPackage returns the package name declared by the Go files in dir,
// falling back to a name derived from fallback.
func DirPackage(fsys *stagedfs.FS, dir, fallback string) string {
	files, err := fsys.List(dir)
	if err == nil {
		for _, path := range files {
			if filepath.Dir(path) != filepath.Clean(dir) || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				continue
			}
			src, err := fsys.Read(path)
			if err != nil {
				continue
			}
			f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
			if err == nil {
				return f.Name.Name
			}
		}
	}
	return project.PackageName(fallback)
}

func renderer(providers step.Providers) *generator.Renderer {
	if providers.Renderer != nil {
		return providers.Renderer
	}
	return generator.NewRenderer()
}

func resolver(providers step.Providers, io prompt.IO) (*generator.Resolver, error) {
	if providers.Resolver != nil {
		return providers.Resolver.WithIO(io), nil
	}
	return generator.NewResolver(false, false, io)
}

func merger(providers step.Providers) codemerge.Merger {
	if providers.Merger != nil {
		return providers.Merger
	}
	return codemerge.NewGoMerger()
}

// place stages content at path, asking the resolver when a different file
// is already there. It reports whether anything was written.
func place(ctx context.Context, fsys *stagedfs.FS, res *generator.Resolver, rel, path string, content []byte) (bool, error) {
	if fsys.Exists(path) {
		existing, err := fsys.Read(path)
		if err != nil {
			return false, err
		}
		decision, err := res.ResolveConflict(ctx, rel, existing, content)
		if err != nil {
			return false, err
		}
		switch decision {
		case generator.Skip:
			return false, nil
		case generator.Cancel:
			return false, prompt.ErrExiting
		}
	}
	return true, fsys.Write(path, content)
}

func readOptional(fsys *stagedfs.FS, path string) ([]byte, bool, error) {
	data, err := fsys.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
