package module

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// Manifest is the project file module states are cached in, under
// extra.flarum-cli.modules.
const Manifest = "extension.json"

// ReadCache returns the cached module states of the project at p. A project
// without a manifest or cache yields nil.
func ReadCache(fsys *stagedfs.FS, p paths.Paths) (map[string]bool, error) {
	data, err := fsys.Read(p.Package(Manifest))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Manifest, err)
	}

	raw, ok := dig(obj, "extra", "flarum-cli", "modules").(map[string]any)
	if !ok {
		return nil, nil
	}
	cache := make(map[string]bool, len(raw))
	for name, v := range raw {
		if on, ok := v.(bool); ok {
			cache[name] = on
		}
	}
	return cache, nil
}

// WriteCache stages enabled into the project's manifest.
func WriteCache(fsys *stagedfs.FS, p paths.Paths, enabled map[string]bool) error {
	path := p.Package(Manifest)
	data, err := fsys.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	obj, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", Manifest, err)
	}

	states := make(map[string]any, len(enabled))
	for name, on := range enabled {
		states[name] = on
	}
	merged, err := mergeObject(obj, map[string]any{
		"extra": map[string]any{
			"flarum-cli": map[string]any{"modules": states},
		},
	})
	if err != nil {
		return err
	}
	return fsys.Write(path, merged)
}

func dig(obj map[string]any, keys ...string) any {
	var cur any = obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}
