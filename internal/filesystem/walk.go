package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// DefaultIgnoreDirs are common directories to skip during traversal
var DefaultIgnoreDirs = []string{
	"node_modules", "vendor", ".git", ".svn", ".hg",
	"dist", "build", "bin", "tmp", "temp",
	".idea", ".vscode", ".vs",
}

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	IgnoreDirs    []string // Directories to skip (default: DefaultIgnoreDirs)
	IncludeHidden bool     // Include hidden files/dirs (default: false)
}

func (o WalkOptions) ignoreDirs() []string {
	if len(o.IgnoreDirs) == 0 {
		return DefaultIgnoreDirs
	}
	return o.IgnoreDirs
}

// skipDir reports whether a directory called name is not descended into.
func (o WalkOptions) skipDir(name string) bool {
	if !o.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignore := range o.ignoreDirs() {
		if name == ignore {
			return true
		}
	}
	return false
}

// Walk traverses root on fsys, skipping ignored and hidden directories.
// Return filepath.SkipDir from visitor to skip a directory.
func Walk(fsys afero.Fs, root string, opts WalkOptions, visitor func(path string, info os.FileInfo) error) error {
	return afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path != root {
			if info.IsDir() && opts.skipDir(info.Name()) {
				return filepath.SkipDir
			}
			if !info.IsDir() && !opts.IncludeHidden && strings.HasPrefix(info.Name(), ".") {
				return nil
			}
		}

		return visitor(path, info)
	})
}

// Files lists the files below root whose base name matches one of patterns
// (all files when none are given), including staged writes and excluding
// staged deletes. The result is sorted.
func Files(fsys *stagedfs.FS, root string, opts WalkOptions, patterns ...string) ([]string, error) {
	root = filepath.Clean(root)
	seen := make(map[string]bool)

	err := Walk(fsys.Base(), root, opts, func(path string, info os.FileInfo) error {
		if !info.IsDir() && matches(info.Name(), patterns) {
			seen[filepath.Clean(path)] = true
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, c := range fsys.Changes() {
		if c.Kind != stagedfs.ChangeWrite || !matches(filepath.Base(c.Path), patterns) {
			continue
		}
		rel, err := filepath.Rel(root, c.Path)
		if err != nil || strings.HasPrefix(rel, "..") || hiddenOrIgnored(rel, opts) {
			continue
		}
		seen[c.Path] = true
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		if fsys.Exists(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func hiddenOrIgnored(rel string, opts WalkOptions) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		if i == len(parts)-1 {
			return !opts.IncludeHidden && strings.HasPrefix(part, ".")
		}
		if opts.skipDir(part) {
			return true
		}
	}
	return false
}

func matches(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
