// Package stagedfs provides an in-memory staging area over a filesystem.
//
// Every step of a generation plan writes into an FS. Reads fall through to
// the base filesystem until a path is staged; nothing reaches the base until
// Commit is called.
//
//	fs := stagedfs.NewOS()
//	fs.Write("extend.go", content)
//	fs.Move("old.go", "new.go")
//
//	if err := fs.Commit(); err != nil {
//	    // Paths flushed before the failure were restored.
//	    // The overlay is intact: retry or fs.Discard().
//	}
//
// Changes reports the pending operations in order, which is what dry runs
// render as a preview.
package stagedfs
