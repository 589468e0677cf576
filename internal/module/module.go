// Package module describes the reusable bundles of scaffold files an
// extension is built from, and decides which of them are enabled.
//
// A Module owns files in the scaffold and may augment JSON files that other
// modules own. Untogglable modules are always enabled. Togglable ones have a
// default, may depend on other modules, and may infer their state from an
// existing project. Enabled states are cached in the project manifest.
package module

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// ErrValidation marks a module that cannot be applied as requested.
var ErrValidation = errors.New("module validation failed")

// File is a scaffold file owned by a module.
type File struct {
	// Path is relative to the scaffold root. A ".tmpl" suffix marks a
	// template and is dropped from the destination.
	Path string `yaml:"path"`
	// Destination overrides the package-relative destination.
	Destination string `yaml:"destination,omitempty"`
	// MonorepoPath places the file relative to the monorepo root instead.
	MonorepoPath string `yaml:"monorepoPath,omitempty"`
	// RequiresModules skips the file unless these modules are enabled too.
	RequiresModules []string `yaml:"requiresModules,omitempty"`
}

// InferFunc derives whether a module is in use in an existing project.
type InferFunc func(fsys *stagedfs.FS, p paths.Paths) bool

// Module is a bundle of scaffold files.
type Module struct {
	Name        string
	Description string
	Updatable   bool
	Togglable   bool
	// DefaultEnabled only applies to togglable modules.
	DefaultEnabled bool
	DependsOn      []string
	Files          []File
	// JSONToAugment maps a package-relative JSON path to the top-level keys
	// merged into it from the scaffold's copy.
	JSONToAugment map[string][]string
	// NeedsTemplateParams lists parameters the templates require.
	NeedsTemplateParams []string
	Infer               InferFunc
}

// DependenciesEnabled reports whether every module m depends on is enabled.
func (m Module) DependenciesEnabled(enabled map[string]bool) bool {
	for _, dep := range m.DependsOn {
		if !enabled[dep] {
			return false
		}
	}
	return true
}

// Find returns the module called name.
func Find(modules []Module, name string) (Module, bool) {
	i := slices.IndexFunc(modules, func(m Module) bool { return m.Name == name })
	if i < 0 {
		return Module{}, false
	}
	return modules[i], true
}

// Names lists module names in declared order.
func Names(modules []Module) []string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	return names
}

// definitions is the YAML form of a module list.
type definitions struct {
	Modules []definition `yaml:"modules"`
}

type definition struct {
	Name                string              `yaml:"name"`
	Description         string              `yaml:"description"`
	Updatable           bool                `yaml:"updatable"`
	Togglable           bool                `yaml:"togglable"`
	DefaultEnabled      bool                `yaml:"defaultEnabled"`
	DependsOn           []string            `yaml:"dependsOn"`
	Files               []File              `yaml:"files"`
	JSONToAugment       map[string][]string `yaml:"jsonToAugment"`
	NeedsTemplateParams []string            `yaml:"needsTemplateParams"`
	Infer               *inferRule          `yaml:"infer"`
}

// inferRule enables a module when every listed package-relative path exists.
type inferRule struct {
	Exists []string `yaml:"exists"`
}

func (r inferRule) fn() InferFunc {
	return func(fsys *stagedfs.FS, p paths.Paths) bool {
		for _, rel := range r.Exists {
			if !fsys.Exists(p.Package(rel)) {
				return false
			}
		}
		return true
	}
}

// Parse reads module definitions from YAML. Dependencies must be declared
// before their dependents.
func Parse(data []byte) ([]Module, error) {
	var defs definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse module definitions: %w", err)
	}

	modules := make([]Module, 0, len(defs.Modules))
	seen := make(map[string]bool)
	for _, d := range defs.Modules {
		if d.Name == "" {
			return nil, errors.New("module definition without a name")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("module %s is defined twice", d.Name)
		}
		for _, dep := range d.DependsOn {
			if !seen[dep] {
				return nil, fmt.Errorf("module %s depends on %s, which must be declared first", d.Name, dep)
			}
		}
		seen[d.Name] = true

		m := Module{
			Name:                d.Name,
			Description:         d.Description,
			Updatable:           d.Updatable,
			Togglable:           d.Togglable,
			DefaultEnabled:      d.DefaultEnabled,
			DependsOn:           d.DependsOn,
			Files:               d.Files,
			JSONToAugment:       d.JSONToAugment,
			NeedsTemplateParams: d.NeedsTemplateParams,
		}
		if d.Infer != nil {
			m.Infer = d.Infer.fn()
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// Load reads module definitions from the file at path inside fsys.
func Load(fsys fs.FS, path string) ([]Module, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module definitions: %w", err)
	}
	return Parse(data)
}
