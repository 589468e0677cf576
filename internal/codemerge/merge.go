// Package codemerge splices extender registrations into existing source files.
//
// A registration is described by an ExtenderDef: a constructor, its
// arguments and the methods chained onto it. Merging is idempotent. An
// element that already constructs the same target with the same arguments is
// extended with whichever chained calls it lacks, and imports are reused
// when the file already has them.
//
// The matching algorithm lives in TreeMerger and only talks to a parsed file
// through the File interface, so the parser and printer are swappable per
// language. Go is handled natively; other languages go through the external
// language subsystem (ProcessMerger).
package codemerge

import (
	"context"
	"fmt"
	"path/filepath"
)

// Default collection and element type for extend.go files.
const (
	DefaultCollection   = "Extend"
	DefaultExtendImport = "github.com/flarum/framework/extend"
	DefaultExtenderType = "Extender"
)

// Merger adds extenders to the source of the file at path.
type Merger interface {
	AddExtenders(ctx context.Context, path string, src []byte, defs ...ExtenderDef) ([]byte, error)
}

// Language parses source text into a File.
type Language interface {
	Parse(path string, src []byte) (File, error)
}

// File is the set of queries and edits the merge needs from a parsed file.
// Edits apply immediately; previously returned Elements are stale afterwards.
type File interface {
	// EnsureImport returns the local name under which importPath is usable,
	// adding an import when the file has none for it.
	EnsureImport(importPath string) (string, error)
	// Collection returns the elements of the named collection, creating an
	// empty one of elemType when the file has none.
	Collection(name string, elemType Target) ([]Element, error)
	// AppendElement adds a new element for def. names maps import paths to
	// local names.
	AppendElement(def ExtenderDef, names map[string]string) error
	// AppendCalls chains calls onto an existing element.
	AppendCalls(e Element, calls []Call, names map[string]string) error
	// Bytes renders the file in its canonical style.
	Bytes() ([]byte, error)
}

// Element is an existing collection entry in comparable form.
type Element struct {
	Index  int
	Target Target
	Args   []Value
	Calls  []CallValue
}

// CallValue is a chained call in comparable form.
type CallValue struct {
	Name string
	Args []Value
}

// TreeMerger merges extenders by walking a parsed file.
type TreeMerger struct {
	Lang       Language
	Collection string
	ElemType   Target
}

// NewGoMerger returns a TreeMerger for Go files with the default collection
// (var Extend = []extend.Extender{...}).
func NewGoMerger() *TreeMerger {
	return &TreeMerger{
		Lang:       GoLanguage{},
		Collection: DefaultCollection,
		ElemType:   Target{Import: DefaultExtendImport, Name: DefaultExtenderType},
	}
}

// AddExtenders merges defs into src in order.
func (m *TreeMerger) AddExtenders(ctx context.Context, path string, src []byte, defs ...ExtenderDef) ([]byte, error) {
	f, err := m.Lang.Parse(path, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := m.add(f, def); err != nil {
			return nil, fmt.Errorf("adding %s to %s: %w", def.Target, path, err)
		}
	}

	return f.Bytes()
}

func (m *TreeMerger) add(f File, def ExtenderDef) error {
	names := make(map[string]string)
	for _, imp := range def.Imports() {
		name, err := f.EnsureImport(imp)
		if err != nil {
			return err
		}
		names[imp] = name
	}

	elems, err := f.Collection(m.Collection, m.ElemType)
	if err != nil {
		return err
	}

	for _, e := range elems {
		if !Matches(e, def) {
			continue
		}
		missing := MissingCalls(e, def.Calls)
		if len(missing) == 0 {
			return nil
		}
		return f.AppendCalls(e, missing, names)
	}

	return f.AppendElement(def, names)
}

// Matches reports whether e constructs the same target with the same
// argument values as def.
func Matches(e Element, def ExtenderDef) bool {
	if e.Target != def.Target || len(e.Args) != len(def.Args) {
		return false
	}
	for i, a := range def.Args {
		if !e.Args[i].Equal(ValueOf(a)) {
			return false
		}
	}
	return true
}

// MissingCalls returns the calls not already chained onto e. A call is
// present only if one with the same name has exactly equal arguments.
func MissingCalls(e Element, calls []Call) []Call {
	var missing []Call
	for _, c := range calls {
		if !hasCall(e.Calls, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func hasCall(existing []CallValue, c Call) bool {
	for _, cv := range existing {
		if cv.Name != c.Name || len(cv.Args) != len(c.Args) {
			continue
		}
		same := true
		for i, a := range c.Args {
			if !cv.Args[i].Equal(ValueOf(a)) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// Dispatch picks a merger by file extension. Go files are merged natively;
// everything else is sent to Fallback.
type Dispatch struct {
	Go       Merger
	Fallback Merger
}

// AddExtenders implements Merger.
func (d Dispatch) AddExtenders(ctx context.Context, path string, src []byte, defs ...ExtenderDef) ([]byte, error) {
	if filepath.Ext(path) == ".go" && d.Go != nil {
		return d.Go.AddExtenders(ctx, path, src, defs...)
	}
	if d.Fallback == nil {
		return nil, fmt.Errorf("no merger for %s", path)
	}
	return d.Fallback.AddExtenders(ctx, path, src, defs...)
}
