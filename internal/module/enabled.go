package module

import (
	"context"
	"fmt"

	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// AdvancedParam is the question asking for per-module configuration.
const AdvancedParam = "advancedModules"

// EnabledParam names the question for one module.
func EnabledParam(name string) string {
	return "modules." + name
}

// PromptModulesEnabled decides which modules a new project starts with.
// Modules are decided in declared order, so a dependency check only sees
// modules decided before it.
func PromptModulesEnabled(ctx context.Context, modules []Module, io prompt.IO) (map[string]bool, error) {
	answer, err := io.GetParam(ctx, prompt.Param{
		Name:    AdvancedParam,
		Type:    prompt.Confirm,
		Message: "Configure modules individually? (Otherwise defaults are used)",
		Initial: false,
	})
	if err != nil {
		return nil, err
	}
	advanced, _ := answer.(bool)

	enabled := make(map[string]bool, len(modules))
	for _, m := range modules {
		switch {
		case !m.Togglable:
			enabled[m.Name] = true
		case !m.DependenciesEnabled(enabled):
			enabled[m.Name] = false
		case advanced:
			v, err := io.GetParam(ctx, prompt.Param{
				Name:    EnabledParam(m.Name),
				Type:    prompt.Confirm,
				Message: fmt.Sprintf("Enable %s? (%s)", m.Name, m.Description),
				Initial: m.DefaultEnabled,
			})
			if err != nil {
				return nil, err
			}
			on, _ := v.(bool)
			enabled[m.Name] = on
		default:
			enabled[m.Name] = m.DefaultEnabled
		}
	}
	return enabled, nil
}

// CurrModulesEnabled decides which modules an existing project uses: the
// cached state first, then inference, then the default. A module whose
// dependencies end up disabled is disabled too.
func CurrModulesEnabled(modules []Module, fsys *stagedfs.FS, p paths.Paths, cache map[string]bool) map[string]bool {
	enabled := make(map[string]bool, len(modules))
	for _, m := range modules {
		if !m.Togglable {
			enabled[m.Name] = true
			continue
		}

		on, cached := cache[m.Name]
		switch {
		case cached:
		case m.Infer != nil:
			on = m.Infer(fsys, p)
		default:
			on = m.DefaultEnabled
		}
		enabled[m.Name] = on && m.DependenciesEnabled(enabled)
	}
	return enabled
}
