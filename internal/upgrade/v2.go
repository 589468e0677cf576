package upgrade

import (
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/step"
	"github.com/flarum/flarum-cli-sub000/internal/steps"
)

// OpFrontendV2 is the subsystem operation moving JavaScript sources to the
// v2 frontend API.
const OpFrontendV2 = "upgrade.v2.frontend"

// V2 moves a project to framework v2: the module path gains its /v2 suffix,
// Go imports follow it, and frontend sources are rewritten by the language
// subsystem.
type V2 struct{}

func (V2) Version() string { return "v2.0.0" }

func (V2) Description() string {
	return "Require " + project.FrameworkPathFor("v2") + " and rewrite imports"
}

func (s V2) Build(m *step.Manager, opts Options) error {
	to := project.FrameworkPathFor("v2")
	stepOpts := step.Options{MapPaths: opts.MapPaths}

	if err := m.Step(steps.NewUpdateRequirement(to, s.Version(), project.FrameworkPath), stepOpts); err != nil {
		return err
	}
	if err := m.Step(steps.NewRewriteImports(project.FrameworkPath, to), stepOpts); err != nil {
		return err
	}
	if !opts.Frontend {
		return nil
	}
	return m.Step(steps.NewTransform(steps.TransformOptions{
		Op:       OpFrontendV2,
		Root:     "js/src",
		Patterns: []string{"*.js", "*.jsx", "*.ts", "*.tsx"},
		Args:     map[string]any{"target": "v2"},
	}), stepOpts)
}
