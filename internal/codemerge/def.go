package codemerge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Target identifies an extender constructor: a function Name exported by the
// package at Import.
type Target struct {
	Import string `json:"import"`
	Name   string `json:"name"`
}

func (t Target) String() string {
	return t.Import + "." + t.Name
}

// ArgKind is the kind of an argument expression.
type ArgKind string

const (
	// ArgLiteral is a scalar or a list of scalars.
	ArgLiteral ArgKind = "literal"
	// ArgConst is an exported identifier of another package, imported as needed.
	ArgConst ArgKind = "const"
	// ArgClosure is a function literal. Closures never match existing code.
	ArgClosure ArgKind = "closure"
	// ArgVar is an identifier inserted verbatim.
	ArgVar ArgKind = "var"
)

// Arg is one argument expression of a constructor or chained call.
type Arg struct {
	Kind ArgKind `json:"kind"`

	Value any `json:"value,omitempty"`

	Import string `json:"import,omitempty"`
	Name   string `json:"name,omitempty"`

	Params  []string `json:"params,omitempty"`
	Result  string   `json:"result,omitempty"`
	Body    string   `json:"body,omitempty"`
	Imports []string `json:"imports,omitempty"`
}

// Lit is a literal argument.
func Lit(v any) Arg { return Arg{Kind: ArgLiteral, Value: v} }

// Const references name exported by the package at importPath.
func Const(importPath, name string) Arg { return Arg{Kind: ArgConst, Import: importPath, Name: name} }

// Var references an identifier in scope at the insertion point.
func Var(name string) Arg { return Arg{Kind: ArgVar, Name: name} }

// Closure is a function literal. With a result type the body is an
// expression that gets returned; without one it is a statement list.
// imports lists packages the closure refers to.
func Closure(params []string, result, body string, imports ...string) Arg {
	return Arg{Kind: ArgClosure, Params: params, Result: result, Body: body, Imports: imports}
}

// Call is a method chained onto an extender.
type Call struct {
	Name string `json:"name"`
	Args []Arg  `json:"args,omitempty"`
}

// ExtenderDef describes one extender to register.
type ExtenderDef struct {
	Target Target `json:"target"`
	Args   []Arg  `json:"args,omitempty"`
	Calls  []Call `json:"calls,omitempty"`
}

// Validate checks that def can be rendered.
func (def ExtenderDef) Validate() error {
	if def.Target.Import == "" || def.Target.Name == "" {
		return errors.New("extender target needs an import path and a name")
	}
	check := func(where string, args []Arg) error {
		for i, a := range args {
			switch a.Kind {
			case ArgLiteral:
			case ArgConst:
				if a.Import == "" || a.Name == "" {
					return fmt.Errorf("%s argument %d: constant needs an import path and a name", where, i)
				}
			case ArgVar:
				if a.Name == "" {
					return fmt.Errorf("%s argument %d: variable needs a name", where, i)
				}
			case ArgClosure:
				if strings.TrimSpace(a.Body) == "" {
					return fmt.Errorf("%s argument %d: closure needs a body", where, i)
				}
			default:
				return fmt.Errorf("%s argument %d: unknown kind %q", where, i, a.Kind)
			}
		}
		return nil
	}

	if err := check(def.Target.Name, def.Args); err != nil {
		return err
	}
	for _, c := range def.Calls {
		if c.Name == "" {
			return errors.New("chained call needs a name")
		}
		if err := check(c.Name, c.Args); err != nil {
			return err
		}
	}
	return nil
}

// Imports lists every package def refers to, target first, without repeats.
func (def ExtenderDef) Imports() []string {
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	add(def.Target.Import)
	collect := func(args []Arg) {
		for _, a := range args {
			if a.Kind == ArgConst {
				add(a.Import)
			}
			for _, imp := range a.Imports {
				add(imp)
			}
		}
	}
	collect(def.Args)
	for _, c := range def.Calls {
		collect(c.Args)
	}
	return out
}

// Value is the comparable form of an argument. Formatting is irrelevant to
// it: a constant is keyed by its import path, not its local package name.
type Value struct {
	Key     string
	Closure bool
}

// Equal reports whether two values are the same. Closures equal nothing.
func (v Value) Equal(o Value) bool {
	return !v.Closure && !o.Closure && v.Key == o.Key
}

// ValueOf returns the comparable form of a.
func ValueOf(a Arg) Value {
	switch a.Kind {
	case ArgConst:
		return Value{Key: "c:" + a.Import + "." + a.Name}
	case ArgVar:
		return Value{Key: "v:" + a.Name}
	case ArgClosure:
		return Value{Closure: true}
	default:
		return Value{Key: literalKey(a.Value)}
	}
}

func literalKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	case json.Number:
		return NumberKey(x.String())
	case int:
		return NumberKey(strconv.Itoa(x))
	case int64:
		return NumberKey(strconv.FormatInt(x, 10))
	case float64:
		return NumberKey(strconv.FormatFloat(x, 'g', -1, 64))
	case []string:
		keys := make([]string, len(x))
		for i, s := range x {
			keys[i] = literalKey(s)
		}
		return ArrayKey(keys)
	case []any:
		keys := make([]string, len(x))
		for i, e := range x {
			keys[i] = literalKey(e)
		}
		return ArrayKey(keys)
	default:
		return fmt.Sprintf("x:%v", x)
	}
}

// ArrayKey joins element keys so that no two different arrays share a key.
func ArrayKey(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = strconv.Quote(k)
	}
	return "a:[" + strings.Join(quoted, ",") + "]"
}

// NumberKey normalizes a numeric literal so 1, 1.0 and 0x1 compare equal.
func NumberKey(lit string) string {
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if i, err := strconv.ParseInt(lit, 0, 64); err == nil {
		return "n:" + strconv.FormatInt(i, 10)
	}
	return "n:" + lit
}
