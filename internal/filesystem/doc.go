// Package filesystem finds project files with sensible ignore rules.
//
// Traversal runs over the base filesystem of a staging area and then folds in
// what is staged, so callers see the project as the next commit would leave
// it:
//
//	files, err := filesystem.Files(fsys, p.Package(), filesystem.WalkOptions{}, "*.go")
//
//	pkgs, err := filesystem.Packages(fsys, p.Package(), filesystem.WalkOptions{})
//	// ["api", "internal/posts", ...]
package filesystem
