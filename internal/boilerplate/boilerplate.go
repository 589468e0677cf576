// Package boilerplate embeds the extension skeleton, its module definitions
// and the stubs used by the make commands.
package boilerplate

import (
	"embed"
	"io/fs"

	"github.com/flarum/flarum-cli-sub000/internal/module"
)

// ModulesFile is the module definition file at the scaffold root.
const ModulesFile = "modules.yml"

//go:embed all:skeleton
var skeleton embed.FS

//go:embed stubs
var stubs embed.FS

// Scaffold returns the skeleton root.
func Scaffold() fs.FS {
	sub, err := fs.Sub(skeleton, "skeleton")
	if err != nil {
		panic(err)
	}
	return sub
}

// Stubs returns the stub templates root.
func Stubs() fs.FS {
	sub, err := fs.Sub(stubs, "stubs")
	if err != nil {
		panic(err)
	}
	return sub
}

// Modules returns the modules defined by the skeleton.
func Modules() ([]module.Module, error) {
	return module.Load(Scaffold(), ModulesFile)
}
