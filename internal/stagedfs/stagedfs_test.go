package stagedfs

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, files map[string]string) (*FS, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(base, path, []byte(content), 0644))
	}
	return New(base), base
}

func TestRead_FallsThroughToBase(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{"/ext/extend.go": "package ext"})

	content, err := f.Read("/ext/extend.go")
	require.NoError(t, err)
	assert.Equal(t, "package ext", string(content))
}

func TestWrite_DoesNotTouchBase(t *testing.T) {
	f, base := newTestFS(t, nil)

	require.NoError(t, f.Write("/ext/routes.go", []byte("package ext")))

	content, err := f.Read("/ext/routes.go")
	require.NoError(t, err)
	assert.Equal(t, "package ext", string(content))

	exists, err := afero.Exists(base, "/ext/routes.go")
	require.NoError(t, err)
	assert.False(t, exists, "staged write must not reach the base")
	assert.True(t, f.Exists("/ext/routes.go"))
}

func TestDelete_StagedReadFailsNotFound(t *testing.T) {
	f, base := newTestFS(t, map[string]string{"/ext/a.go": "a"})

	require.NoError(t, f.Delete("/ext/a.go"))

	_, err := f.Read("/ext/a.go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, f.Exists("/ext/a.go"))

	// Base is untouched until commit.
	exists, _ := afero.Exists(base, "/ext/a.go")
	assert.True(t, exists)
}

func TestDelete_MissingPathIsNoop(t *testing.T) {
	f, _ := newTestFS(t, nil)

	require.NoError(t, f.Delete("/nope"))
	assert.False(t, f.Dirty())
}

func TestDelete_Directory(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{
		"/ext/js/a.js": "a",
		"/ext/js/b.js": "b",
	})

	require.NoError(t, f.Delete("/ext/js"))

	assert.False(t, f.Exists("/ext/js/a.js"))
	assert.False(t, f.Exists("/ext/js"))
	assert.Len(t, f.Changes(), 2)
}

func TestWrite_AfterDeleteRevives(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{"/ext/a.go": "old"})

	require.NoError(t, f.Delete("/ext/a.go"))
	require.NoError(t, f.Write("/ext/a.go", []byte("new")))

	content, err := f.Read("/ext/a.go")
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.Equal(t, []Change{{Path: "/ext/a.go", Kind: ChangeWrite}}, f.Changes())
}

func TestMove(t *testing.T) {
	f, base := newTestFS(t, map[string]string{"/ext/old.go": "content"})

	require.NoError(t, f.Move("/ext/old.go", "/ext/new.go"))
	assert.False(t, f.Exists("/ext/old.go"))
	assert.True(t, f.Exists("/ext/new.go"))

	require.NoError(t, f.Commit())

	content, err := afero.ReadFile(base, "/ext/new.go")
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	exists, _ := afero.Exists(base, "/ext/old.go")
	assert.False(t, exists)
}

func TestMove_MissingSource(t *testing.T) {
	f, _ := newTestFS(t, nil)

	err := f.Move("/ext/missing.go", "/ext/new.go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCommit_FlushesAndClears(t *testing.T) {
	f, base := newTestFS(t, map[string]string{"/ext/gone.go": "x"})

	require.NoError(t, f.Write("/ext/deep/nested/file.go", []byte("nested")))
	require.NoError(t, f.Delete("/ext/gone.go"))
	require.NoError(t, f.Commit())

	content, err := afero.ReadFile(base, "/ext/deep/nested/file.go")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(content))

	exists, _ := afero.Exists(base, "/ext/gone.go")
	assert.False(t, exists)

	assert.False(t, f.Dirty())
	assert.Empty(t, f.Changes())
}

// failingFs refuses to open one path for writing.
type failingFs struct {
	afero.Fs
	fail string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == f.fail && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, errors.New("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestCommit_FailureRestoresAndKeepsOverlay(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/ext/a.go", []byte("original"), 0644))

	f := New(failingFs{Fs: mem, fail: "/ext/broken.go"})
	require.NoError(t, f.Write("/ext/a.go", []byte("changed")))
	require.NoError(t, f.Write("/ext/new.go", []byte("new")))
	require.NoError(t, f.Write("/ext/broken.go", []byte("boom")))

	err := f.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	content, err := afero.ReadFile(mem, "/ext/a.go")
	require.NoError(t, err)
	assert.Equal(t, "original", string(content), "flushed file should be restored")

	exists, _ := afero.Exists(mem, "/ext/new.go")
	assert.False(t, exists, "created file should be removed on rollback")

	assert.Len(t, f.Changes(), 3, "overlay must survive a failed commit")

	f.Discard()
	assert.False(t, f.Dirty())
}

func TestChanges_Order(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{"/ext/b.go": "b"})

	require.NoError(t, f.Write("/ext/c.go", []byte("c")))
	require.NoError(t, f.Delete("/ext/b.go"))
	require.NoError(t, f.Write("/ext/a.go", []byte("a")))
	require.NoError(t, f.Write("/ext/c.go", []byte("c2")))

	assert.Equal(t, []Change{
		{Path: "/ext/c.go", Kind: ChangeWrite},
		{Path: "/ext/b.go", Kind: ChangeDelete},
		{Path: "/ext/a.go", Kind: ChangeWrite},
	}, f.Changes())
}

func TestList_MergesOverlayAndBase(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{
		"/ext/src/a.go": "a",
		"/ext/src/b.go": "b",
	})

	require.NoError(t, f.Write("/ext/src/c.go", []byte("c")))
	require.NoError(t, f.Delete("/ext/src/a.go"))

	files, err := f.List("/ext/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"/ext/src/b.go", "/ext/src/c.go"}, files)
}

func TestList_MissingRoot(t *testing.T) {
	f, _ := newTestFS(t, nil)

	files, err := f.List("/nowhere")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWalk_Patterns(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{
		"/ext/extend.go":       "go",
		"/ext/js/src/index.ts": "ts",
		"/ext/README.md":       "md",
	})

	var seen []string
	err := f.Walk("/ext", []string{"*.go", "*.ts"}, func(path string) error {
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/ext/extend.go", "/ext/js/src/index.ts"}, seen)
}

func TestNewOS_CommitsToDisk(t *testing.T) {
	dir := t.TempDir()
	f := NewOS()

	path := dir + "/out.txt"
	require.NoError(t, f.Write(path, []byte("hello")))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, f.Commit())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestSnapshot_RestoreDropsLaterChanges(t *testing.T) {
	f, _ := newTestFS(t, map[string]string{"/ext/extend.go": "package ext", "/ext/old.go": "package ext"})

	require.NoError(t, f.Write("/ext/a.go", []byte("a")))
	require.NoError(t, f.Delete("/ext/old.go"))
	snap := f.Snapshot()

	require.NoError(t, f.Write("/ext/a.go", []byte("changed")))
	require.NoError(t, f.Write("/ext/b.go", []byte("b")))
	require.NoError(t, f.Delete("/ext/extend.go"))

	require.NoError(t, f.Restore(snap))

	content, err := f.Read("/ext/a.go")
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))
	assert.False(t, f.Exists("/ext/b.go"))
	assert.True(t, f.Exists("/ext/extend.go"))
	assert.False(t, f.Exists("/ext/old.go"))
	assert.Equal(t, []Change{
		{Path: "/ext/a.go", Kind: ChangeWrite},
		{Path: "/ext/old.go", Kind: ChangeDelete},
	}, f.Changes())
}
