// Package generator renders scaffold templates and decides what happens
// when a generated file already exists.
//
// # Rendering
//
// Templates use text/template with a small set of naming helpers:
//
//	r := generator.NewRenderer()
//	out, err := r.RenderString("handler", "type {{ pascalCase .params.name }} struct{}", data)
//
// # Conflicts
//
// A Resolver decides between keeping and replacing an existing file:
//
//	resolver, err := generator.NewResolver(force, skip, io)
//	decision, err := resolver.ResolveConflict(ctx, path, existing, generated)
//
// # Previews
//
// Preview renders every pending change of a staged filesystem as a unified
// diff (Myers algorithm), which is what dry runs print.
package generator
