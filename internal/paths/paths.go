// Package paths describes the directories a step works against.
//
// A Paths value is immutable. Fan-out over monorepo sub-projects is expressed
// by deriving a new value with OnMonorepoSub, which redirects Package into the
// sub-project's subtree while keeping the monorepo root reachable.
package paths

import (
	"path/filepath"
	"strings"
)

// Paths is the set of directories visible to a step.
type Paths struct {
	cwd       string
	requested string
	pkg       string
	monorepo  string
	sub       string
}

// New creates paths rooted at pkg. requested is the directory the user asked
// for (it may be empty, in which case pkg is used).
func New(cwd, requested, pkg string) Paths {
	if requested == "" {
		requested = pkg
	}
	return Paths{
		cwd:       filepath.Clean(cwd),
		requested: filepath.Clean(requested),
		pkg:       filepath.Clean(pkg),
	}
}

// Cwd returns the working directory the CLI was started from.
func (p Paths) Cwd() string { return p.cwd }

// Requested returns the directory the user explicitly targeted.
func (p Paths) Requested() string { return p.requested }

// Package returns the root of the extension the step operates on.
// Inside a fan-out iteration this is the sub-project directory.
func (p Paths) Package(elem ...string) string {
	return filepath.Join(append([]string{p.pkg}, elem...)...)
}

// Monorepo returns the monorepo root, or the package root when the paths are
// not namespaced to a sub-project.
func (p Paths) Monorepo(elem ...string) string {
	root := p.monorepo
	if root == "" {
		root = p.pkg
	}
	return filepath.Join(append([]string{root}, elem...)...)
}

// Sub returns the fan-out path these paths are namespaced to ("" if none).
func (p Paths) Sub() string { return p.sub }

// OnMonorepoSub returns a view of p redirected into the sub-project at sub,
// relative to the monorepo root.
func (p Paths) OnMonorepoSub(sub string) Paths {
	root := p.Monorepo()
	sub = filepath.Clean(sub)
	return Paths{
		cwd:       p.cwd,
		requested: filepath.Join(root, sub),
		pkg:       filepath.Join(root, sub),
		monorepo:  root,
		sub:       sub,
	}
}

// Rel returns target relative to the package root, using forward slashes.
// Paths outside the package are returned unchanged.
func (p Paths) Rel(target string) string {
	rel, err := filepath.Rel(p.pkg, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return target
	}
	return filepath.ToSlash(rel)
}
