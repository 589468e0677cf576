package codemerge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// GoLanguage parses Go source files.
type GoLanguage struct{}

// Parse implements Language.
func (GoLanguage) Parse(path string, src []byte) (File, error) {
	f := &goFile{path: path, src: append([]byte(nil), src...)}
	if err := f.parse(); err != nil {
		return nil, err
	}
	return f, nil
}

// goFile edits Go source as text at positions taken from its syntax tree and
// reparses after every edit, so comments and layout outside the touched
// spans survive untouched.
type goFile struct {
	path string
	src  []byte
	fset *token.FileSet
	file *ast.File

	collection string
	elemType   Target
}

// edit replaces del bytes at off with text.
type edit struct {
	off  int
	del  int
	text string
}

func (f *goFile) parse() error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, f.path, f.src, parser.ParseComments)
	if err != nil {
		return err
	}
	f.fset, f.file = fset, file
	return nil
}

func (f *goFile) offset(p token.Pos) int {
	return f.fset.File(p).Offset(p)
}

// apply inserts every edit and reparses. On a parse failure the file is left
// as it was.
func (f *goFile) apply(edits ...edit) error {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].off > edits[j].off })

	out := f.src
	for _, e := range edits {
		var b bytes.Buffer
		b.Grow(len(out) + len(e.text))
		b.Write(out[:e.off])
		b.WriteString(e.text)
		b.Write(out[e.off+e.del:])
		out = b.Bytes()
	}

	prev := f.src
	f.src = out
	if err := f.parse(); err != nil {
		f.src = prev
		_ = f.parse()
		return fmt.Errorf("edit produced invalid source: %w", err)
	}
	return nil
}

// atLineStart reports whether only blanks separate off from the previous newline.
func (f *goFile) atLineStart(off int) bool {
	for i := off - 1; i >= 0; i-- {
		switch f.src[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// Bytes implements File.
func (f *goFile) Bytes() ([]byte, error) {
	out, err := format.Source(f.src)
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", f.path, err)
	}
	return out, nil
}

// importNames maps usable local names to import paths. Blank and dot imports
// cannot be referenced and are left out.
func (f *goFile) importNames() map[string]string {
	names := make(map[string]string)
	for _, spec := range f.file.Imports {
		if name, path, ok := localName(spec); ok {
			names[name] = path
		}
	}
	return names
}

func localName(spec *ast.ImportSpec) (name, path string, ok bool) {
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return "", "", false
	}
	if spec.Name == nil {
		return packageName(path), path, true
	}
	if spec.Name.Name == "_" || spec.Name.Name == "." {
		return "", "", false
	}
	return spec.Name.Name, path, true
}

// topLevelNames lists identifiers declared at package scope.
func (f *goFile) topLevelNames() map[string]bool {
	names := make(map[string]bool)
	for _, d := range f.file.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if decl.Recv == nil {
				names[decl.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, s := range decl.Specs {
				switch spec := s.(type) {
				case *ast.TypeSpec:
					names[spec.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range spec.Names {
						names[n.Name] = true
					}
				}
			}
		}
	}
	return names
}

// EnsureImport implements File.
func (f *goFile) EnsureImport(importPath string) (string, error) {
	for _, spec := range f.file.Imports {
		if name, path, ok := localName(spec); ok && path == importPath {
			return name, nil
		}
	}

	taken := f.topLevelNames()
	for name := range f.importNames() {
		taken[name] = true
	}

	name := packageName(importPath)
	local := name
	for i := 2; taken[local]; i++ {
		local = name + strconv.Itoa(i)
	}

	spec := strconv.Quote(importPath)
	if local != name {
		spec = local + " " + spec
	}

	var decl *ast.GenDecl
	for _, d := range f.file.Decls {
		if g, ok := d.(*ast.GenDecl); ok && g.Tok == token.IMPORT {
			decl = g
			break
		}
	}

	var e edit
	switch {
	case decl != nil && decl.Rparen.IsValid():
		off := f.offset(decl.Rparen)
		if f.atLineStart(off) {
			e = edit{off: off, text: "\t" + spec + "\n"}
		} else {
			e = edit{off: off, text: "\n\t" + spec + "\n"}
		}
	case decl != nil:
		e = edit{off: f.offset(decl.End()), text: "\nimport " + spec}
	default:
		e = edit{off: f.offset(f.file.Name.End()), text: "\n\nimport " + spec + "\n"}
	}

	if err := f.apply(e); err != nil {
		return "", fmt.Errorf("importing %s: %w", importPath, err)
	}
	return local, nil
}

// Collection implements File.
func (f *goFile) Collection(name string, elemType Target) ([]Element, error) {
	f.collection, f.elemType = name, elemType

	lit, err := f.findCollection()
	if err != nil {
		return nil, err
	}
	if lit == nil {
		if err := f.createCollection(); err != nil {
			return nil, err
		}
		if lit, err = f.findCollection(); err != nil {
			return nil, err
		}
		if lit == nil {
			return nil, fmt.Errorf("collection %s not found after creating it", name)
		}
	}

	imports := f.importNames()
	elems := make([]Element, 0, len(lit.Elts))
	for i, expr := range lit.Elts {
		root, links, _ := decompose(expr)
		if root == nil {
			continue
		}
		e := Element{
			Index:  i,
			Target: f.target(root, imports),
			Args:   f.values(root.Args, imports),
		}
		for _, link := range links {
			e.Calls = append(e.Calls, CallValue{
				Name: link.Fun.(*ast.SelectorExpr).Sel.Name,
				Args: f.values(link.Args, imports),
			})
		}
		elems = append(elems, e)
	}
	return elems, nil
}

// findCollection returns the literal assigned to the collection variable.
// Without one, the first exported slice literal of the element type is used.
func (f *goFile) findCollection() (*ast.CompositeLit, error) {
	var fallback *ast.CompositeLit
	for _, d := range f.file.Decls {
		g, ok := d.(*ast.GenDecl)
		if !ok || g.Tok != token.VAR {
			continue
		}
		for _, s := range g.Specs {
			vs := s.(*ast.ValueSpec)
			for i, n := range vs.Names {
				var lit *ast.CompositeLit
				if i < len(vs.Values) {
					lit, _ = vs.Values[i].(*ast.CompositeLit)
				}
				if n.Name == f.collection {
					if lit == nil {
						return nil, fmt.Errorf("%s is not a slice literal", n.Name)
					}
					return lit, nil
				}
				if fallback == nil && lit != nil && n.IsExported() && f.isElemSlice(lit) {
					fallback = lit
				}
			}
		}
	}
	return fallback, nil
}

func (f *goFile) isElemSlice(lit *ast.CompositeLit) bool {
	arr, ok := lit.Type.(*ast.ArrayType)
	if !ok || arr.Len != nil {
		return false
	}
	switch elt := arr.Elt.(type) {
	case *ast.SelectorExpr:
		id, ok := elt.X.(*ast.Ident)
		return ok && elt.Sel.Name == f.elemType.Name && f.importNames()[id.Name] == f.elemType.Import
	case *ast.Ident:
		return f.elemType.Import == "" && elt.Name == f.elemType.Name
	}
	return false
}

func (f *goFile) createCollection() error {
	if f.topLevelNames()[f.collection] {
		return fmt.Errorf("%s is already declared", f.collection)
	}

	typ := f.elemType.Name
	if f.elemType.Import != "" {
		pkg, err := f.EnsureImport(f.elemType.Import)
		if err != nil {
			return err
		}
		typ = pkg + "." + typ
	}

	text := fmt.Sprintf("\nvar %s = []%s{}\n", f.collection, typ)
	return f.apply(edit{off: len(f.src), text: text})
}

func (f *goFile) collectionLit() (*ast.CompositeLit, error) {
	lit, err := f.findCollection()
	if err != nil {
		return nil, err
	}
	if lit == nil {
		return nil, fmt.Errorf("collection %s not found", f.collection)
	}
	return lit, nil
}

// AppendElement implements File.
func (f *goFile) AppendElement(def ExtenderDef, names map[string]string) error {
	lit, err := f.collectionLit()
	if err != nil {
		return err
	}
	text := renderExtender(def, names)

	if n := len(lit.Elts); n > 0 {
		end := f.offset(lit.Elts[n-1].End())
		if !bytes.Contains(f.src[end:f.offset(lit.Rbrace)], []byte(",")) {
			return f.apply(edit{off: end, text: ",\n" + text + ",\n"})
		}
	}

	off := f.offset(lit.Rbrace)
	if f.atLineStart(off) {
		return f.apply(edit{off: off, text: text + ",\n"})
	}
	return f.apply(edit{off: off, text: "\n" + text + ",\n"})
}

// AppendCalls implements File.
func (f *goFile) AppendCalls(e Element, calls []Call, names map[string]string) error {
	lit, err := f.collectionLit()
	if err != nil {
		return err
	}
	if e.Index < 0 || e.Index >= len(lit.Elts) {
		return fmt.Errorf("element %d out of range", e.Index)
	}

	root, _, end := decompose(lit.Elts[e.Index])
	if root == nil {
		return fmt.Errorf("element %d is not a constructor call", e.Index)
	}

	parts := make([]string, len(calls))
	for i, c := range calls {
		parts[i] = renderCall(c, names)
	}
	return f.apply(edit{off: f.offset(end), text: ".\n" + strings.Join(parts, ".\n")})
}

// decompose splits an element into its constructor call and the calls
// chained onto it, outermost last. Parentheses around the element are
// looked through; end is where further calls can be chained.
func decompose(expr ast.Expr) (root *ast.CallExpr, links []*ast.CallExpr, end token.Pos) {
	e := ast.Unparen(expr)
	end = e.End()

	for {
		call, ok := e.(*ast.CallExpr)
		if !ok {
			return nil, nil, token.NoPos
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return nil, nil, token.NoPos
		}
		switch inner := ast.Unparen(sel.X).(type) {
		case *ast.CallExpr:
			links = append([]*ast.CallExpr{call}, links...)
			e = inner
		case *ast.Ident:
			return call, links, end
		default:
			return nil, nil, token.NoPos
		}
	}
}

func (f *goFile) target(root *ast.CallExpr, imports map[string]string) Target {
	sel := root.Fun.(*ast.SelectorExpr)
	id := ast.Unparen(sel.X).(*ast.Ident)
	if path, ok := imports[id.Name]; ok {
		return Target{Import: path, Name: sel.Sel.Name}
	}
	return Target{Name: id.Name + "." + sel.Sel.Name}
}

func (f *goFile) values(args []ast.Expr, imports map[string]string) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = f.value(a, imports)
	}
	return out
}

// value is the comparable form of an argument expression. Constants are keyed
// by import path so aliasing does not matter.
func (f *goFile) value(expr ast.Expr, imports map[string]string) Value {
	switch x := ast.Unparen(expr).(type) {
	case *ast.BasicLit:
		switch x.Kind {
		case token.STRING, token.CHAR:
			if s, err := strconv.Unquote(x.Value); err == nil {
				return Value{Key: "s:" + s}
			}
		case token.INT, token.FLOAT:
			return Value{Key: NumberKey(strings.ReplaceAll(x.Value, "_", ""))}
		}
	case *ast.Ident:
		switch x.Name {
		case "true", "false":
			return Value{Key: "b:" + x.Name}
		case "nil":
			return Value{Key: "nil"}
		}
		return Value{Key: "v:" + x.Name}
	case *ast.SelectorExpr:
		if id, ok := x.X.(*ast.Ident); ok {
			if path, ok := imports[id.Name]; ok {
				return Value{Key: "c:" + path + "." + x.Sel.Name}
			}
		}
	case *ast.FuncLit:
		return Value{Closure: true}
	case *ast.CompositeLit:
		if _, ok := x.Type.(*ast.ArrayType); ok {
			keys := make([]string, 0, len(x.Elts))
			for _, elt := range x.Elts {
				v := f.value(elt, imports)
				if v.Closure {
					return v
				}
				if _, kv := elt.(*ast.KeyValueExpr); kv {
					return Value{Key: "x:" + f.print(x)}
				}
				keys = append(keys, v.Key)
			}
			return Value{Key: ArrayKey(keys)}
		}
	}
	return Value{Key: "x:" + f.print(expr)}
}

func (f *goFile) print(node ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, f.fset, node); err != nil {
		return ""
	}
	return buf.String()
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// packageName guesses the package name of an import path from its last
// element: ".../v2" suffixes, "go-" prefixes and ".vN" suffixes are dropped.
func packageName(importPath string) string {
	parts := strings.Split(importPath, "/")
	name := parts[len(parts)-1]
	if majorVersion.MatchString(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "")
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func renderExtender(def ExtenderDef, names map[string]string) string {
	var b strings.Builder
	b.WriteString(qualify(names[def.Target.Import], def.Target.Name))
	b.WriteString(renderArgs(def.Args, names))
	for _, c := range def.Calls {
		b.WriteString(".\n")
		b.WriteString(renderCall(c, names))
	}
	return b.String()
}

func renderCall(c Call, names map[string]string) string {
	return c.Name + renderArgs(c.Args, names)
}

func renderArgs(args []Arg, names map[string]string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = renderArg(a, names)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func renderArg(a Arg, names map[string]string) string {
	switch a.Kind {
	case ArgConst:
		return qualify(names[a.Import], a.Name)
	case ArgVar:
		return a.Name
	case ArgClosure:
		sig := "func(" + strings.Join(a.Params, ", ") + ")"
		if a.Result != "" {
			return sig + " " + a.Result + " {\nreturn " + a.Body + "\n}"
		}
		return sig + " {\n" + a.Body + "\n}"
	default:
		return goLiteral(a.Value)
	}
}

func goLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = strconv.Quote(s)
		}
		return "[]string{" + strings.Join(parts, ", ") + "}"
	case []any:
		typ := "string"
		parts := make([]string, len(x))
		for i, e := range x {
			if _, ok := e.(string); !ok {
				typ = "any"
			}
			parts[i] = goLiteral(e)
		}
		return "[]" + typ + "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%#v", x)
	}
}
