package steps

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
	"github.com/flarum/flarum-cli-sub000/internal/generator"
	"github.com/flarum/flarum-cli-sub000/internal/paths"
	"github.com/flarum/flarum-cli-sub000/internal/project"
	"github.com/flarum/flarum-cli-sub000/internal/prompt"
	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// Route parameters, shared by the handler stub and its registration.
const (
	RouteDir      = "dir"
	RouteName     = "name"
	RouteMethod   = "method"
	RoutePath     = "route"
	RouteFrontend = "frontend"
)

// DefaultRouteDir is offered for handlers when no better package exists.
const DefaultRouteDir = "api"

var (
	Frontends = []string{"forum", "admin", "api"}
	Methods   = []string{"GET", "POST", "PATCH", "PUT", "DELETE"}
)

// RouteParams are the questions for a route. dirs lists the existing
// packages, relative to the package root.
func RouteParams(dirs []string) []prompt.Param {
	choices := slices.DeleteFunc(slices.Clone(dirs), func(d string) bool { return d == "." })
	if !slices.Contains(choices, DefaultRouteDir) {
		choices = append(choices, DefaultRouteDir)
	}
	slices.Sort(choices)

	return []prompt.Param{
		{Name: RouteFrontend, Type: prompt.Select, Message: "Frontend", Initial: Frontends[0], Choices: Frontends},
		{Name: RouteMethod, Type: prompt.Select, Message: "HTTP method", Initial: Methods[0], Choices: Methods},
		{Name: RoutePath, Type: prompt.Text, Message: "Route path (e.g. /tags/{id})", Validate: routePath},
		{Name: RouteName, Type: prompt.Text, Message: "Handler function name", Validate: exported},
		{Name: RouteDir, Type: prompt.Select, Message: "Package", Initial: DefaultRouteDir, Choices: choices},
	}
}

func routePath(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, "/") {
		return errors.New("route paths start with /")
	}
	return nil
}

func exported(v any) error {
	if err := Identifier(v); err != nil {
		return err
	}
	s, _ := v.(string)
	if s[0] < 'A' || s[0] > 'Z' {
		return fmt.Errorf("%q must be exported", s)
	}
	return nil
}

// NewRouteHandler creates the step writing a route's handler stub.
func NewRouteHandler(stubs fs.FS, dirs []string) *GenerateStub {
	return NewGenerateStub(StubOptions{
		Type:     "route handler",
		Stubs:    stubs,
		Template: "handler.go.tmpl",
		Params:   RouteParams(dirs),
		Dest:     "{{ .dir }}/{{ snakeCase .name }}.go",
		Data:     handlerData,
		Expose:   []string{RouteDir, RouteName, RouteMethod, RoutePath, RouteFrontend},
	})
}

func handlerData(values map[string]any, fsys *stagedfs.FS, p paths.Paths) (map[string]any, error) {
	dir, err := cleanDir(values[RouteDir])
	if err != nil {
		return nil, err
	}
	return map[string]any{"package": DirPackage(fsys, p.Package(dir), dir)}, nil
}

// NewRouteExtender creates the step registering a route whose handler was
// written by NewRouteHandler.
func NewRouteExtender(extendImport string, dirs []string) *AddExtender {
	if extendImport == "" {
		extendImport = codemerge.DefaultExtendImport
	}
	return NewAddExtender(ExtenderOptions{
		Params: RouteParams(dirs),
		Build: func(values map[string]any, fsys *stagedfs.FS, p paths.Paths) (codemerge.ExtenderDef, error) {
			return RouteDef(extendImport, values, fsys, p)
		},
	})
}

// PlanRoute registers the steps of a new route on m: the handler stub, then
// its registration, which reuses the handler's answers.
func PlanRoute(m *step.Manager, stubs fs.FS, extendImport string, dirs []string) error {
	if err := m.NamedStep("handler", NewRouteHandler(stubs, dirs), step.Options{}); err != nil {
		return err
	}

	var deps []step.Dependency
	for _, name := range []string{RouteDir, RouteName, RouteMethod, RoutePath, RouteFrontend} {
		deps = append(deps, step.Dependency{Step: "handler", Exposed: name})
	}
	return m.Step(NewRouteExtender(extendImport, dirs), step.Options{Dependencies: deps})
}

// RouteDef builds the Routes extender for a handler:
//
//	extend.Routes("forum").Get("/tags", "forum.list-tags", api.ListTags)
func RouteDef(extendImport string, values map[string]any, fsys *stagedfs.FS, p paths.Paths) (codemerge.ExtenderDef, error) {
	info, err := project.DetectModule(fsys, p.Package())
	if err != nil {
		return codemerge.ExtenderDef{}, err
	}
	dir, err := cleanDir(values[RouteDir])
	if err != nil {
		return codemerge.ExtenderDef{}, err
	}
	handlerImport := path.Join(info.Path, dir)

	frontend, _ := values[RouteFrontend].(string)
	method, _ := values[RouteMethod].(string)
	route, _ := values[RoutePath].(string)
	name, _ := values[RouteName].(string)

	return codemerge.ExtenderDef{
		Target: codemerge.Target{Import: extendImport, Name: "Routes"},
		Args:   []codemerge.Arg{codemerge.Lit(frontend)},
		Calls: []codemerge.Call{{
			Name: generator.PascalCase(strings.ToLower(method)),
			Args: []codemerge.Arg{
				codemerge.Lit(route),
				codemerge.Lit(frontend + "." + generator.KebabCase(name)),
				codemerge.Const(handlerImport, name),
			},
		}},
	}, nil
}

func cleanDir(v any) (string, error) {
	s, _ := v.(string)
	dir := path.Clean(strings.ReplaceAll(s, "\\", "/"))
	switch {
	case path.IsAbs(dir) || dir == ".." || strings.HasPrefix(dir, "../"):
		return "", fmt.Errorf("package directory %q is outside the extension", s)
	case dir == ".":
		return "", errors.New("handlers cannot live in the extension's root package")
	}
	return dir, nil
}
