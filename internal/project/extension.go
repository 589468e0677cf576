package project

import (
	"path/filepath"

	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// ManifestFile marks the root of an extension.
const ManifestFile = "extension.json"

// IsExtension checks if a directory contains an extension manifest.
func IsExtension(fsys *stagedfs.FS, dir string) bool {
	return fsys.Exists(filepath.Join(dir, ManifestFile))
}

// FindRoot walks up from start to the nearest directory holding an
// extension manifest.
func FindRoot(fsys *stagedfs.FS, start string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		if IsExtension(fsys, dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
