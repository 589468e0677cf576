package project

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// FrameworkPath is the module path of the framework extensions build on,
// without a major version suffix.
const FrameworkPath = "github.com/flarum/framework"

// ModuleInfo contains information from go.mod
type ModuleInfo struct {
	Path      string // Module path (e.g., "github.com/user/repo")
	GoVersion string // Go version requirement (e.g., "1.21")
	// FrameworkPath and FrameworkVersion describe the framework requirement,
	// empty when go.mod has none.
	FrameworkPath    string
	FrameworkVersion string
}

// FrameworkMajor returns the major version of the framework requirement,
// e.g. "v1", or "" without one.
func (i *ModuleInfo) FrameworkMajor() string {
	return semver.Major(i.FrameworkVersion)
}

// DetectModule reads go.mod in dir through fsys, so staged edits are seen.
func DetectModule(fsys *stagedfs.FS, dir string) (*ModuleInfo, error) {
	modPath := filepath.Join(dir, "go.mod")
	data, err := fsys.Read(modPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("go.mod not found in %s", dir)
		}
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}

	modFile, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if modFile.Module == nil {
		return nil, fmt.Errorf("%s has no module directive", modPath)
	}

	info := &ModuleInfo{Path: modFile.Module.Mod.Path}
	if modFile.Go != nil {
		info.GoVersion = modFile.Go.Version
	}
	for _, req := range modFile.Require {
		if IsFrameworkPath(req.Mod.Path) {
			info.FrameworkPath = req.Mod.Path
			info.FrameworkVersion = req.Mod.Version
			break
		}
	}
	return info, nil
}

// IsFrameworkPath reports whether p is the framework module at any major
// version.
func IsFrameworkPath(p string) bool {
	prefix, _, ok := module.SplitPathVersion(p)
	return ok && prefix == FrameworkPath
}

// FrameworkPathFor returns the framework module path for major, e.g.
// "github.com/flarum/framework/v2" for "v2".
func FrameworkPathFor(major string) string {
	if major == "" || major == "v0" || major == "v1" {
		return FrameworkPath
	}
	return FrameworkPath + "/" + major
}

// ValidateModulePath checks that p can be used as a module path.
func ValidateModulePath(p string) error {
	if err := module.CheckPath(p); err != nil {
		return fmt.Errorf("invalid module path: %w", err)
	}
	return nil
}

// PackageName derives a Go package name from a module path or directory:
// the last element, without a major version suffix, lower-cased, keeping
// only letters, digits and underscores.
func PackageName(p string) string {
	p = filepath.ToSlash(p)
	if prefix, _, ok := module.SplitPathVersion(p); ok && prefix != "" {
		p = prefix
	}
	base := path.Base(p)

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || !token.IsIdentifier(name) || token.IsKeyword(name) {
		return "ext" + name
	}
	return name
}
