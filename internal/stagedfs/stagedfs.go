package stagedfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ChangeKind describes a pending operation on a path.
type ChangeKind int

const (
	ChangeWrite ChangeKind = iota
	ChangeDelete
)

func (k ChangeKind) String() string {
	if k == ChangeDelete {
		return "delete"
	}
	return "write"
}

// Change is one pending operation, reported by Changes.
type Change struct {
	Path string
	Kind ChangeKind
}

// FS is an in-memory overlay of pending writes, moves and deletes over a base
// filesystem. Nothing reaches the base until Commit.
type FS struct {
	base    afero.Fs
	overlay afero.Fs
	deleted map[string]bool
	order   []string
	touched map[string]bool
}

// New creates a staging area over base.
func New(base afero.Fs) *FS {
	f := &FS{base: base}
	f.reset()
	return f
}

// NewOS creates a staging area over the real filesystem.
func NewOS() *FS {
	return New(afero.NewOsFs())
}

// Base returns the filesystem commits are flushed to.
func (f *FS) Base() afero.Fs {
	return f.base
}

func (f *FS) reset() {
	f.overlay = afero.NewMemMapFs()
	f.deleted = make(map[string]bool)
	f.order = make([]string, 0)
	f.touched = make(map[string]bool)
}

func (f *FS) touch(path string) {
	if !f.touched[path] {
		f.touched[path] = true
		f.order = append(f.order, path)
	}
}

// Read returns the content of path, preferring staged content over the base.
func (f *FS) Read(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if f.deleted[path] {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	if f.touched[path] {
		return afero.ReadFile(f.overlay, path)
	}
	return afero.ReadFile(f.base, path)
}

// Write stages content for path.
func (f *FS) Write(path string, content []byte) error {
	path = filepath.Clean(path)
	if err := f.overlay.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("staging directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(f.overlay, path, content, 0644); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	delete(f.deleted, path)
	f.touch(path)
	return nil
}

// Delete stages removal of path. Directories are removed file by file.
// Deleting a path that does not exist is a no-op.
func (f *FS) Delete(path string) error {
	path = filepath.Clean(path)
	if f.isDir(path) {
		files, err := f.List(path)
		if err != nil {
			return err
		}
		for _, file := range files {
			f.deleteFile(file)
		}
		return nil
	}
	if !f.Exists(path) {
		return nil
	}
	f.deleteFile(path)
	return nil
}

func (f *FS) deleteFile(path string) {
	if f.touched[path] {
		_ = f.overlay.Remove(path)
	}
	f.deleted[path] = true
	f.touch(path)
}

// Move stages a rename of from to to.
func (f *FS) Move(from, to string) error {
	content, err := f.Read(from)
	if err != nil {
		return fmt.Errorf("moving %s: %w", from, err)
	}
	if err := f.Write(to, content); err != nil {
		return err
	}
	return f.Delete(from)
}

// Exists reports whether path exists in the staged view.
func (f *FS) Exists(path string) bool {
	path = filepath.Clean(path)
	if f.deleted[path] {
		return false
	}
	if _, err := f.overlay.Stat(path); err == nil {
		return true
	}
	if _, err := f.base.Stat(path); err == nil {
		return !f.allDeletedUnder(path)
	}
	return false
}

func (f *FS) isDir(path string) bool {
	if info, err := f.overlay.Stat(path); err == nil && info.IsDir() {
		return true
	}
	info, err := f.base.Stat(path)
	return err == nil && info.IsDir()
}

// allDeletedUnder reports whether path is a base directory whose every file
// has been staged for deletion.
func (f *FS) allDeletedUnder(path string) bool {
	if len(f.deleted) == 0 || !f.isDir(path) {
		return false
	}
	files, err := f.List(path)
	return err == nil && len(files) == 0
}

// List returns every file below root in the staged view, sorted.
func (f *FS) List(root string) ([]string, error) {
	root = filepath.Clean(root)
	seen := make(map[string]bool)

	collect := func(fsys afero.Fs) error {
		if _, err := fsys.Stat(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		return afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				seen[filepath.Clean(path)] = true
			}
			return nil
		})
	}

	if err := collect(f.base); err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	if err := collect(f.overlay); err != nil {
		return nil, fmt.Errorf("listing staged %s: %w", root, err)
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		if !f.deleted[path] {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Changes returns the pending operations in the order paths were first touched.
func (f *FS) Changes() []Change {
	changes := make([]Change, 0, len(f.order))
	for _, path := range f.order {
		kind := ChangeWrite
		if f.deleted[path] {
			kind = ChangeDelete
		}
		changes = append(changes, Change{Path: path, Kind: kind})
	}
	return changes
}

// Dirty reports whether anything is staged.
func (f *FS) Dirty() bool {
	return len(f.order) > 0
}

// Discard drops every pending operation.
func (f *FS) Discard() {
	f.reset()
}

// Snapshot is the pending state of an FS at one point in time.
type Snapshot struct {
	files   map[string][]byte
	deleted map[string]bool
	order   []string
}

// Snapshot captures the pending operations so Restore can return to them.
func (f *FS) Snapshot() Snapshot {
	s := Snapshot{
		files:   make(map[string][]byte, len(f.order)),
		deleted: make(map[string]bool, len(f.deleted)),
		order:   append([]string(nil), f.order...),
	}
	for _, path := range f.order {
		if f.deleted[path] {
			s.deleted[path] = true
			continue
		}
		if content, err := afero.ReadFile(f.overlay, path); err == nil {
			s.files[path] = content
		}
	}
	return s
}

// Restore drops everything staged since s was taken.
func (f *FS) Restore(s Snapshot) error {
	f.reset()
	for path, content := range s.files {
		if err := f.overlay.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("restoring %s: %w", path, err)
		}
		if err := afero.WriteFile(f.overlay, path, content, 0644); err != nil {
			return fmt.Errorf("restoring %s: %w", path, err)
		}
	}
	for path := range s.deleted {
		f.deleted[path] = true
	}
	for _, path := range s.order {
		f.touch(path)
	}
	return nil
}

// backup remembers what a path looked like before commit touched it.
type backup struct {
	path    string
	content []byte
	existed bool
}

// Commit flushes all pending operations to the base filesystem and clears the
// overlay. If any operation fails, paths already flushed are restored and the
// overlay is left intact so the caller can retry or Discard.
func (f *FS) Commit() error {
	flushed := make([]backup, 0, len(f.order))

	for _, path := range f.order {
		b := backup{path: path}
		if content, err := afero.ReadFile(f.base, path); err == nil {
			b.content = content
			b.existed = true
		}

		if err := f.flush(path); err != nil {
			f.rollback(append(flushed, b))
			return err
		}
		flushed = append(flushed, b)
	}

	f.reset()
	return nil
}

func (f *FS) flush(path string) error {
	if f.deleted[path] {
		if err := f.base.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		return nil
	}

	content, err := afero.ReadFile(f.overlay, path)
	if err != nil {
		return fmt.Errorf("failed to read staged %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := f.base.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := afero.WriteFile(f.base, path, content, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// rollback restores flushed paths, best effort.
func (f *FS) rollback(flushed []backup) {
	for i := len(flushed) - 1; i >= 0; i-- {
		b := flushed[i]
		if b.existed {
			_ = afero.WriteFile(f.base, b.path, b.content, 0644)
		} else {
			_ = f.base.Remove(b.path)
		}
	}
}

// Walk calls fn for every file below root whose name matches one of the glob
// patterns (matched against the base name). An empty pattern list matches all.
func (f *FS) Walk(root string, patterns []string, fn func(path string) error) error {
	files, err := f.List(root)
	if err != nil {
		return err
	}
	for _, path := range files {
		if len(patterns) > 0 && !matchAny(filepath.Base(path), patterns) {
			continue
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	return nil
}

func matchAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
