package module

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"dario.cat/mergo"

	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/output"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// TemplateSuffix marks scaffold files rendered as templates.
const TemplateSuffix = ".tmpl"

// ApplyOptions configures ApplyModule.
type ApplyOptions struct {
	Module  Module
	Enabled map[string]bool
	Params  map[string]any
	// Scaffold is the scaffold root the module's files are read from.
	Scaffold fs.FS
	FS       *stagedfs.FS
	Paths    paths.Paths
	// Exclude lists scaffold or destination paths to leave alone.
	Exclude []string
	// Initial is true when the project is being created.
	Initial  bool
	Renderer *generator.Renderer
}

// PlannedFile is one scaffold file ApplyModule would write.
type PlannedFile struct {
	Source  string
	Dest    string
	Content []byte
}

// Plan validates the module and renders the files it would write, without
// touching the staged filesystem. JSON augmentations are not included.
func Plan(ctx context.Context, opts ApplyOptions) ([]PlannedFile, error) {
	m := opts.Module
	if err := validate(opts); err != nil {
		return nil, err
	}
	if opts.Renderer == nil {
		opts.Renderer = generator.NewRenderer()
	}
	data := TemplateData(opts.Params, opts.Enabled)

	var planned []PlannedFile
	for _, f := range m.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !requiredEnabled(f, opts.Enabled) {
			continue
		}

		dest := Destination(f, opts.Paths)
		if excluded(opts.Exclude, f.Path, opts.Paths.Rel(dest)) {
			output.Logger().Debug("skipping excluded file", "module", m.Name, "file", f.Path)
			continue
		}

		content, err := readScaffold(opts.Scaffold, opts.Renderer, f.Path, data)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		planned = append(planned, PlannedFile{Source: f.Path, Dest: dest, Content: content})
	}
	return planned, nil
}

// ApplyModule stages the module's files and JSON augmentations.
func ApplyModule(ctx context.Context, opts ApplyOptions) error {
	if opts.Renderer == nil {
		opts.Renderer = generator.NewRenderer()
	}
	planned, err := Plan(ctx, opts)
	if err != nil {
		return err
	}

	m := opts.Module
	for _, f := range planned {
		if err := opts.FS.Write(f.Dest, f.Content); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}

	data := TemplateData(opts.Params, opts.Enabled)
	for _, target := range sortedKeys(m.JSONToAugment) {
		if err := augment(opts, target, m.JSONToAugment[target], data); err != nil {
			return fmt.Errorf("module %s: augmenting %s: %w", m.Name, target, err)
		}
	}
	return nil
}

func validate(opts ApplyOptions) error {
	m := opts.Module
	if !opts.Enabled[m.Name] {
		return fmt.Errorf("%w: module %s is not enabled", ErrValidation, m.Name)
	}
	for _, dep := range m.DependsOn {
		if !opts.Enabled[dep] {
			return fmt.Errorf("%w: module %s depends on %s, which is not enabled", ErrValidation, m.Name, dep)
		}
	}
	var missing []string
	for _, name := range m.NeedsTemplateParams {
		if _, ok := opts.Params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: module %s is missing template parameters: %s", ErrValidation, m.Name, strings.Join(missing, ", "))
	}
	if !opts.Initial && !m.Updatable {
		return fmt.Errorf("%w: module %s cannot be updated", ErrValidation, m.Name)
	}
	return nil
}

// TemplateData is what scaffold templates are rendered against.
func TemplateData(params map[string]any, enabled map[string]bool) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	if enabled == nil {
		enabled = map[string]bool{}
	}
	return map[string]any{"params": params, "modules": enabled}
}

// Destination resolves where f is written: a monorepo placement wins over a
// destination override, which wins over the scaffold path.
func Destination(f File, p paths.Paths) string {
	switch {
	case f.MonorepoPath != "":
		return p.Monorepo(f.MonorepoPath)
	case f.Destination != "":
		return p.Package(f.Destination)
	default:
		return p.Package(strings.TrimSuffix(f.Path, TemplateSuffix))
	}
}

func requiredEnabled(f File, enabled map[string]bool) bool {
	for _, name := range f.RequiresModules {
		if !enabled[name] {
			return false
		}
	}
	return true
}

func excluded(exclude []string, candidates ...string) bool {
	for _, c := range candidates {
		if slices.Contains(exclude, c) || slices.Contains(exclude, strings.TrimSuffix(c, TemplateSuffix)) {
			return true
		}
	}
	return false
}

func readScaffold(scaffold fs.FS, r *generator.Renderer, path string, data any) ([]byte, error) {
	if strings.HasSuffix(path, TemplateSuffix) {
		return r.RenderFS(scaffold, path, data)
	}
	content, err := fs.ReadFile(scaffold, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaffold file %s: %w", path, err)
	}
	return content, nil
}

// augment merges keys from the scaffold's copy of target into the project's.
func augment(opts ApplyOptions, target string, keys []string, data any) error {
	tmplPath := target
	if _, err := fs.Stat(opts.Scaffold, target+TemplateSuffix); err == nil {
		tmplPath = target + TemplateSuffix
	}
	tmpl, err := readScaffold(opts.Scaffold, opts.Renderer, tmplPath, data)
	if err != nil {
		return err
	}

	dest := opts.Paths.Package(target)
	existing, err := opts.FS.Read(dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	merged, err := MergeJSON(existing, tmpl, keys)
	if err != nil {
		return err
	}
	return opts.FS.Write(dest, merged)
}

// MergeJSON deep-merges the listed top-level keys of src into dst, keeping
// every other key of dst. An empty dst is treated as an empty object. The
// result is indented with sorted keys.
func MergeJSON(dst, src []byte, keys []string) ([]byte, error) {
	into, err := decodeObject(dst)
	if err != nil {
		return nil, fmt.Errorf("existing JSON: %w", err)
	}
	from, err := decodeObject(src)
	if err != nil {
		return nil, fmt.Errorf("template JSON: %w", err)
	}

	picked := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := from[k]; ok {
			picked[k] = v
		}
	}
	return mergeObject(into, picked)
}

func mergeObject(into, picked map[string]any) ([]byte, error) {
	if err := mergo.Merge(&into, picked, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging JSON: %w", err)
	}

	out, err := json.MarshalIndent(into, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return append(out, '\n'), nil
}

func decodeObject(data []byte) (map[string]any, error) {
	obj := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
