// Package project detects extensions and reads their go.mod.
//
// Detect the extension a command runs in:
//
//	root, ok := project.FindRoot(fsys, cwd)
//	if !ok {
//	    return errors.New("not inside an extension")
//	}
//
// Read its module information:
//
//	info, err := project.DetectModule(fsys, root)
//	fmt.Printf("Module: %s, framework %s\n", info.Path, info.FrameworkVersion)
package project
