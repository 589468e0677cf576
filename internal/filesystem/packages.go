package filesystem

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// Packages finds the directories below root holding non-test Go files,
// relative to root with forward slashes. The root itself is ".".
func Packages(fsys *stagedfs.FS, root string, opts WalkOptions) ([]string, error) {
	files, err := Files(fsys, root, opts, "*.go")
	if err != nil {
		return nil, fmt.Errorf("failed to discover packages: %w", err)
	}

	pkgDirs := make(map[string]bool)
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(root), filepath.Dir(path))
		if err != nil {
			continue
		}
		pkgDirs[filepath.ToSlash(rel)] = true
	}

	result := make([]string, 0, len(pkgDirs))
	for dir := range pkgDirs {
		result = append(result, dir)
	}
	sort.Strings(result)
	return result, nil
}
