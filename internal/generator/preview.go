package generator

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/flarum/flarum-cli-sub000/internal/stagedfs"
)

// Preview renders every pending change in fsys as a unified diff against the
// base filesystem. rel maps absolute paths to display paths; nil keeps them.
func Preview(fsys *stagedfs.FS, rel func(string) string, opts *DiffOptions) string {
	if rel == nil {
		rel = func(p string) string { return p }
	}

	var buf strings.Builder
	for _, change := range fsys.Changes() {
		name := rel(change.Path)
		old, err := afero.ReadFile(fsys.Base(), change.Path)
		existed := err == nil

		oldPath, newPath := name, name
		if !existed {
			oldPath = "/dev/null"
		}

		var newer []byte
		if change.Kind == stagedfs.ChangeDelete {
			newPath = "/dev/null"
		} else {
			newer, _ = fsys.Read(change.Path)
		}

		buf.WriteString(Diff(oldPath, newPath, old, newer, opts))
	}
	return buf.String()
}
