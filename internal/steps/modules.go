package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"

	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/module"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// Names exposed by ApplyModules.
const (
	ExposedModules     = "modules"
	ExposedModulePath  = "modulePath"
	ExposedPackageName = "packageName"
)

// Licenses offered for new extensions.
var Licenses = []string{"MIT", "Apache-2.0", "BSD-3-Clause", "GPL-3.0-or-later", "proprietary"}

// ModulesOptions configures an ApplyModules step.
type ModulesOptions struct {
	Modules  []module.Module
	Scaffold fs.FS
	// Only restricts the run to the named modules. Naming a module that is
	// disabled or not updatable fails the step.
	Only []string
	// Initial decides module states by asking, for a new project. Otherwise
	// they come from the manifest cache, inference and defaults.
	Initial bool
}

// ApplyModules writes module scaffolds into the package and caches the
// module states in the manifest.
type ApplyModules struct {
	opts ModulesOptions

	enabled map[string]bool
	params  map[string]any
}

// NewApplyModules creates a module step.
func NewApplyModules(opts ModulesOptions) *ApplyModules {
	return &ApplyModules{opts: opts}
}

func (s *ApplyModules) Type() string {
	if s.opts.Initial {
		return "Scaffold extension"
	}
	return "Update modules"
}

func (s *ApplyModules) Composable() bool { return true }

func (s *ApplyModules) Exposes() []string {
	return []string{ExposedModules, ExposedModulePath, ExposedPackageName}
}

func (s *ApplyModules) Run(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, providers step.Providers) error {
	enabled, err := s.states(ctx, fsys, p, io)
	if err != nil {
		return err
	}

	targets, err := s.targets(enabled)
	if err != nil {
		return err
	}

	params, err := s.templateParams(ctx, fsys, p, io, targets)
	if err != nil {
		return err
	}

	res, err := resolver(providers, io)
	if err != nil {
		return err
	}
	r := renderer(providers)

	for _, m := range targets {
		opts := module.ApplyOptions{
			Module:   m,
			Enabled:  enabled,
			Params:   params,
			Scaffold: s.opts.Scaffold,
			FS:       fsys,
			Paths:    p,
			Initial:  s.opts.Initial,
			Renderer: r,
		}

		planned, err := module.Plan(ctx, opts)
		if err != nil {
			return err
		}
		for _, f := range planned {
			if !fsys.Exists(f.Dest) {
				continue
			}
			existing, err := fsys.Read(f.Dest)
			if err != nil {
				return err
			}
			rel := p.Rel(f.Dest)
			decision, err := res.ResolveConflict(ctx, rel, existing, f.Content)
			if err != nil {
				return err
			}
			switch decision {
			case generator.Skip:
				opts.Exclude = append(opts.Exclude, rel)
			case generator.Cancel:
				return prompt.ErrExiting
			}
		}

		if err := module.ApplyModule(ctx, opts); err != nil {
			return err
		}
		io.Info("Applied module " + m.Name)
	}

	if err := module.WriteCache(fsys, p, enabled); err != nil {
		return fmt.Errorf("caching module states: %w", err)
	}

	s.enabled = enabled
	s.params = params
	return nil
}

func (s *ApplyModules) states(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO) (map[string]bool, error) {
	if s.opts.Initial {
		return module.PromptModulesEnabled(ctx, s.opts.Modules, io)
	}
	cache, err := module.ReadCache(fsys, p)
	if err != nil {
		return nil, err
	}
	return module.CurrModulesEnabled(s.opts.Modules, fsys, p, cache), nil
}

// targets lists the modules to apply, in declared order.
func (s *ApplyModules) targets(enabled map[string]bool) ([]module.Module, error) {
	if len(s.opts.Only) == 0 {
		var out []module.Module
		for _, m := range s.opts.Modules {
			if enabled[m.Name] && (s.opts.Initial || m.Updatable) {
				out = append(out, m)
			}
		}
		return out, nil
	}

	var out []module.Module
	for _, name := range s.opts.Only {
		m, ok := module.Find(s.opts.Modules, name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown module %q (available: %v)", module.ErrValidation, name, module.Names(s.opts.Modules))
		}
		out = append(out, m)
	}
	return out, nil
}

// templateParams asks for every template parameter the targets need. For an
// existing project, defaults come from its go.mod and manifest.
func (s *ApplyModules) templateParams(ctx context.Context, fsys *stagedfs.FS, p paths.Paths, io prompt.IO, targets []module.Module) (map[string]any, error) {
	var needed []string
	for _, m := range targets {
		for _, name := range m.NeedsTemplateParams {
			if !slices.Contains(needed, name) {
				needed = append(needed, name)
			}
		}
	}
	var modulePath string
	if info, err := project.DetectModule(fsys, p.Package()); err == nil {
		modulePath = info.Path
	}
	defaults := manifestDefaults(fsys, p)

	params := make(map[string]any, len(needed))
	for _, name := range needed {
		param := templateParam(name, params, modulePath, fsys, p)
		if v, ok := defaults[name]; ok {
			param.Initial = v
		}
		v, err := io.GetParam(ctx, param)
		if err != nil {
			return nil, err
		}
		params[name] = v
	}
	return params, nil
}

func templateParam(name string, known map[string]any, modulePath string, fsys *stagedfs.FS, p paths.Paths) prompt.Param {
	switch name {
	case ExposedModulePath:
		param := prompt.Param{Name: name, Type: prompt.Text, Message: "Go module path", Validate: ModulePath}
		if modulePath != "" {
			param.Initial = modulePath
		}
		return param
	case ExposedPackageName:
		fallback := p.Package()
		if modulePath != "" {
			fallback = modulePath
		}
		if mp, ok := known[ExposedModulePath].(string); ok && mp != "" {
			fallback = mp
		}
		return prompt.Param{
			Name:     name,
			Type:     prompt.Text,
			Message:  "Package name",
			Initial:  DirPackage(fsys, p.Package(), fallback),
			Validate: Identifier,
		}
	case "extensionName":
		return prompt.Param{Name: name, Type: prompt.Text, Message: "Extension name", Validate: NotEmpty}
	case "license":
		return prompt.Param{Name: name, Type: prompt.Select, Message: "License", Initial: Licenses[0], Choices: Licenses}
	default:
		return prompt.Param{Name: name, Type: prompt.Text, Message: name}
	}
}

// manifestDefaults reads template parameters back from an existing manifest.
func manifestDefaults(fsys *stagedfs.FS, p paths.Paths) map[string]any {
	data, ok, err := readOptional(fsys, p.Package(module.Manifest))
	if err != nil || !ok {
		return nil
	}
	var manifest struct {
		License string `json:"license"`
		Extra   struct {
			Extension struct {
				Title string `json:"title"`
			} `json:"flarum-extension"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	defaults := make(map[string]any)
	if manifest.License != "" {
		defaults["license"] = manifest.License
	}
	if manifest.Extra.Extension.Title != "" {
		defaults["extensionName"] = manifest.Extra.Extension.Title
	}
	return defaults
}

func (s *ApplyModules) Exposed(paths.Paths, prompt.IO) (map[string]any, error) {
	exposed := map[string]any{ExposedModules: s.enabled}
	for _, name := range []string{ExposedModulePath, ExposedPackageName} {
		if v, ok := s.params[name]; ok {
			exposed[name] = v
		}
	}
	return exposed, nil
}
