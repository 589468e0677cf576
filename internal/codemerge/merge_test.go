package codemerge

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarum/flarum-cli-sub000/internal/langsub"
)

const apiImport = "github.com/acme/blog/api"

func routesDef(calls ...Call) ExtenderDef {
	return ExtenderDef{
		Target: Target{Import: DefaultExtendImport, Name: "Routes"},
		Args:   []Arg{Lit("forum")},
		Calls:  calls,
	}
}

func addCall(path, name string) Call {
	return Call{Name: "Add", Args: []Arg{Lit(path), Lit(name), Const(apiImport, "Handler")}}
}

func merge(t *testing.T, src string, defs ...ExtenderDef) string {
	t.Helper()
	out, err := NewGoMerger().AddExtenders(context.Background(), "extend.go", []byte(src), defs...)
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "", out, 0)
	require.NoError(t, err, "merged output must parse:\n%s", out)
	return string(out)
}

const emptyExtend = `package blog

import (
	"github.com/flarum/framework/extend"
)

var Extend = []extend.Extender{}
`

func TestAddExtenders_NewElement(t *testing.T) {
	out := merge(t, emptyExtend, routesDef(addCall("/x", "x.index")))

	want := `package blog

import (
	"github.com/acme/blog/api"
	"github.com/flarum/framework/extend"
)

var Extend = []extend.Extender{
	extend.Routes("forum").
		Add("/x", "x.index", api.Handler),
}
`
	assert.Equal(t, want, out)
}

func TestAddExtenders_Idempotent(t *testing.T) {
	def := routesDef(addCall("/x", "x.index"))

	first := merge(t, emptyExtend, def)
	second := merge(t, first, def)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, strings.Count(second, `extend.Routes("forum")`))
	assert.Equal(t, 1, strings.Count(second, `"github.com/acme/blog/api"`))
	assert.Equal(t, 1, strings.Count(second, `"github.com/flarum/framework/extend"`))
}

func TestAddExtenders_AppendsMissingCalls(t *testing.T) {
	first := merge(t, emptyExtend, routesDef(addCall("/x", "x.index")))
	out := merge(t, first, routesDef(addCall("/x", "x.index"), addCall("/y", "y.index")))

	assert.Equal(t, 1, strings.Count(out, `extend.Routes("forum")`))
	assert.Equal(t, 1, strings.Count(out, `Add("/x", "x.index", api.Handler)`))
	assert.Equal(t, 1, strings.Count(out, `Add("/y", "y.index", api.Handler)`))
	assert.Less(t, strings.Index(out, `"/x"`), strings.Index(out, `"/y"`))

	again := merge(t, out, routesDef(addCall("/y", "y.index")))
	assert.Equal(t, out, again)
}

func TestAddExtenders_DifferentArgsMakeNewElement(t *testing.T) {
	first := merge(t, emptyExtend, routesDef(addCall("/x", "x.index")))

	api := routesDef(addCall("/x", "x.index"))
	api.Args = []Arg{Lit("api")}
	out := merge(t, first, api)

	assert.Equal(t, 1, strings.Count(out, `extend.Routes("forum")`))
	assert.Equal(t, 1, strings.Count(out, `extend.Routes("api")`))
}

func TestAddExtenders_ChainedCallEqualityIsStrict(t *testing.T) {
	first := merge(t, emptyExtend, routesDef(addCall("/x", "x.index")))

	// Same route, different handler name: not the same call.
	out := merge(t, first, routesDef(addCall("/x", "x.show")))
	assert.Equal(t, 2, strings.Count(out, `Add("/x"`))
}

func TestAddExtenders_ReusesAliasedImports(t *testing.T) {
	src := `package blog

import (
	handlers "github.com/acme/blog/api"
	fl "github.com/flarum/framework/extend"
)

var Extend = []fl.Extender{
	fl.Routes("forum").
		Add("/x", "x.index", handlers.Handler),
}
`
	out := merge(t, src, routesDef(addCall("/x", "x.index"), addCall("/y", "y.index")))

	assert.Equal(t, 1, strings.Count(out, `github.com/flarum/framework/extend`))
	assert.Equal(t, 1, strings.Count(out, `github.com/acme/blog/api`))
	assert.Contains(t, out, `Add("/y", "y.index", handlers.Handler)`)
	assert.Equal(t, 1, strings.Count(out, `fl.Routes("forum")`))
}

func TestAddExtenders_AliasesOnNameCollision(t *testing.T) {
	src := `package blog

import (
	extend "github.com/acme/extend"
)

var Helpers = extend.Helpers()
`
	out := merge(t, src, routesDef())

	assert.Contains(t, out, `extend2 "github.com/flarum/framework/extend"`)
	assert.Contains(t, out, `var Extend = []extend2.Extender{`)
	assert.Contains(t, out, `extend2.Routes("forum")`)
	assert.Contains(t, out, `var Helpers = extend.Helpers()`)
}

func TestAddExtenders_CreatesImportAndCollection(t *testing.T) {
	out := merge(t, "package blog\n", routesDef())

	want := `package blog

import "github.com/flarum/framework/extend"

var Extend = []extend.Extender{
	extend.Routes("forum"),
}
`
	assert.Equal(t, want, out)
}

func TestAddExtenders_ParenthesizedElement(t *testing.T) {
	src := `package blog

import (
	"github.com/acme/blog/api"
	"github.com/flarum/framework/extend"
)

var Extend = []extend.Extender{
	(extend.Routes("forum").
		Add("/x", "x.index", api.Handler)),
}
`
	out := merge(t, src, routesDef(addCall("/x", "x.index"), addCall("/y", "y.index")))

	assert.Equal(t, 1, strings.Count(out, `extend.Routes("forum")`))
	assert.Equal(t, 1, strings.Count(out, `Add("/x"`))
	assert.Contains(t, out, `Add("/y", "y.index", api.Handler))`)
}

func TestAddExtenders_BareConstructorGainsCalls(t *testing.T) {
	src := `package blog

import "github.com/flarum/framework/extend"

var Extend = []extend.Extender{extend.Routes("forum")}
`
	out := merge(t, src, routesDef(addCall("/x", "x.index")))

	assert.Equal(t, 1, strings.Count(out, `extend.Routes("forum")`))
	assert.Contains(t, out, `Add("/x", "x.index", api.Handler)`)
}

func TestAddExtenders_SingleLineCollectionWithoutTrailingComma(t *testing.T) {
	src := `package blog

import "github.com/flarum/framework/extend"

var Extend = []extend.Extender{extend.Locales("locale")}
`
	out := merge(t, src, routesDef())

	assert.Contains(t, out, `extend.Locales("locale")`)
	assert.Contains(t, out, `extend.Routes("forum")`)
}

func TestAddExtenders_ClosuresNeverMatch(t *testing.T) {
	def := ExtenderDef{
		Target: Target{Import: DefaultExtendImport, Name: "Model"},
		Args:   []Arg{Const("github.com/acme/blog/post", "Post")},
		Calls: []Call{{
			Name: "Relationship",
			Args: []Arg{
				Lit("tags"),
				Closure([]string{"p *post.Post"}, "any", "p.Tags()"),
			},
		}},
	}

	first := merge(t, emptyExtend, def)
	second := merge(t, first, def)

	assert.Equal(t, 1, strings.Count(second, `extend.Model(post.Post)`))
	assert.Equal(t, 2, strings.Count(second, `Relationship("tags"`))
	assert.Contains(t, second, "return p.Tags()")
}

func TestAddExtenders_ClosureConstructorArgAlwaysNew(t *testing.T) {
	def := ExtenderDef{
		Target: Target{Import: DefaultExtendImport, Name: "Event"},
		Args:   []Arg{Closure(nil, "", `println("hi")`)},
	}

	out := merge(t, merge(t, emptyExtend, def), def)
	assert.Equal(t, 2, strings.Count(out, "extend.Event(func()"))
}

func TestAddExtenders_MultipleDefs(t *testing.T) {
	out := merge(t, emptyExtend,
		routesDef(addCall("/x", "x.index")),
		ExtenderDef{
			Target: Target{Import: DefaultExtendImport, Name: "Frontend"},
			Args:   []Arg{Lit("forum")},
			Calls:  []Call{{Name: "JS", Args: []Arg{Lit("js/dist/forum.js")}}},
		},
	)

	assert.Less(t, strings.Index(out, "extend.Routes"), strings.Index(out, "extend.Frontend"))
	assert.Contains(t, out, `JS("js/dist/forum.js")`)
}

func TestAddExtenders_Errors(t *testing.T) {
	m := NewGoMerger()
	ctx := context.Background()

	_, err := m.AddExtenders(ctx, "extend.go", []byte("package"), routesDef())
	assert.Error(t, err, "unparsable source")

	_, err = m.AddExtenders(ctx, "extend.go", []byte(emptyExtend), ExtenderDef{Target: Target{Name: "Routes"}})
	assert.Error(t, err, "target without import")

	notLiteral := "package blog\n\nvar Extend = build()\n"
	_, err = m.AddExtenders(ctx, "extend.go", []byte(notLiteral), routesDef())
	assert.ErrorContains(t, err, "not a slice literal")

	taken := "package blog\n\nfunc Extend() {}\n"
	_, err = m.AddExtenders(ctx, "extend.go", []byte(taken), routesDef())
	assert.ErrorContains(t, err, "already declared")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.AddExtenders(cancelled, "extend.go", []byte(emptyExtend), routesDef())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollection_ComparableValues(t *testing.T) {
	src := `package blog

import (
	"github.com/flarum/framework/extend"
	p "github.com/acme/blog/post"
)

var Extend = []extend.Extender{
	extend.Settings().
		Default("blog.limit", 1_0).
		Default("blog.tags", []string{"a", "b"}).
		Serialize(p.Key, true, nil, local),
}
`
	f, err := GoLanguage{}.Parse("extend.go", []byte(src))
	require.NoError(t, err)

	elems, err := f.Collection(DefaultCollection, Target{Import: DefaultExtendImport, Name: DefaultExtenderType})
	require.NoError(t, err)
	require.Len(t, elems, 1)

	e := elems[0]
	assert.Equal(t, Target{Import: DefaultExtendImport, Name: "Settings"}, e.Target)
	require.Len(t, e.Calls, 3)

	assert.Equal(t, []Value{{Key: "s:blog.limit"}, {Key: "n:10"}}, e.Calls[0].Args)
	assert.Equal(t, Value{Key: `a:["s:a","s:b"]`}, e.Calls[1].Args[1])
	assert.Equal(t, []Value{
		{Key: "c:github.com/acme/blog/post.Key"},
		{Key: "b:true"},
		{Key: "nil"},
		{Key: "v:local"},
	}, e.Calls[2].Args)

	assert.Empty(t, MissingCalls(e, []Call{
		{Name: "Default", Args: []Arg{Lit("blog.limit"), Lit(10.0)}},
		{Name: "Default", Args: []Arg{Lit("blog.tags"), Lit([]any{"a", "b"})}},
		{Name: "Serialize", Args: []Arg{Const("github.com/acme/blog/post", "Key"), Lit(true), Lit(nil), Var("local")}},
	}))
}

func TestAddExtenders_ArrayElementsWithCommas(t *testing.T) {
	src := `package blog

import (
	"github.com/flarum/framework/extend"
)

var Extend = []extend.Extender{
	extend.Settings([]string{"a", "b"}),
}
`
	def := ExtenderDef{
		Target: Target{Import: DefaultExtendImport, Name: "Settings"},
		Args:   []Arg{Lit([]string{"a,s:b"})},
		Calls:  []Call{{Name: "Serialize", Args: []Arg{Lit("k")}}},
	}
	out := merge(t, src, def)

	assert.Equal(t, 2, strings.Count(out, "extend.Settings("))
	assert.Contains(t, out, `extend.Settings([]string{"a", "b"}),`)
	assert.NotEqual(t, ArrayKey([]string{"s:a,s:b"}), ArrayKey([]string{"s:a", "s:b"}))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Value{Key: "s:a"}.Equal(Value{Key: "s:a"}))
	assert.False(t, Value{Key: "s:a"}.Equal(Value{Key: "s:b"}))
	assert.False(t, Value{Closure: true}.Equal(Value{Closure: true}))
}

func TestNumberKey(t *testing.T) {
	assert.Equal(t, "n:1", NumberKey("1"))
	assert.Equal(t, "n:1", NumberKey("1.0"))
	assert.Equal(t, "n:1", NumberKey("0x1"))
	assert.Equal(t, "n:0.5", NumberKey("0.5"))
}

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"github.com/flarum/framework/extend": "extend",
		"github.com/acme/go-blog":            "blog",
		"github.com/acme/blog/v2":            "blog",
		"gopkg.in/yaml.v3":                   "yaml",
		"github.com/acme/blog-tags":          "blogtags",
	}
	for path, want := range tests {
		assert.Equal(t, want, packageName(path), path)
	}
}

func TestExtenderDef_Imports(t *testing.T) {
	def := ExtenderDef{
		Target: Target{Import: DefaultExtendImport, Name: "Model"},
		Args:   []Arg{Const("github.com/acme/blog/post", "Post")},
		Calls: []Call{
			{Name: "Cast", Args: []Arg{Const(DefaultExtendImport, "Bool")}},
			{Name: "Fn", Args: []Arg{Closure(nil, "", "x()", "github.com/acme/blog/x")}},
		},
	}

	assert.Equal(t, []string{
		DefaultExtendImport,
		"github.com/acme/blog/post",
		"github.com/acme/blog/x",
	}, def.Imports())
}

type recordingCaller struct {
	requests []langsub.Request
	respond  func(req langsub.Request) (langsub.Response, error)
}

func (c *recordingCaller) Call(_ context.Context, req langsub.Request) (langsub.Response, error) {
	c.requests = append(c.requests, req)
	return c.respond(req)
}

func TestProcessMerger(t *testing.T) {
	caller := &recordingCaller{respond: func(req langsub.Request) (langsub.Response, error) {
		return langsub.Response{Code: req["code"].(string) + "+"}, nil
	}}
	m := NewProcessMerger(caller)

	out, err := m.AddExtenders(context.Background(), "extend.php", []byte("src"), routesDef(), routesDef())
	require.NoError(t, err)

	assert.Equal(t, "src++", string(out))
	require.Len(t, caller.requests, 2)
	assert.Equal(t, OpExtenderAdd, caller.requests[0].Op())
	assert.Equal(t, "extend.php", caller.requests[0]["file"])
	assert.Equal(t, "src+", caller.requests[1]["code"])
	assert.Equal(t, routesDef(), caller.requests[1]["params"])
}

func TestProcessMerger_PropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewProcessMerger(&recordingCaller{respond: func(langsub.Request) (langsub.Response, error) {
		return langsub.Response{}, boom
	}})

	_, err := m.AddExtenders(context.Background(), "extend.php", []byte("src"), routesDef())
	assert.ErrorIs(t, err, boom)
}

type stubMerger struct{ name string }

func (s stubMerger) AddExtenders(context.Context, string, []byte, ...ExtenderDef) ([]byte, error) {
	return []byte(s.name), nil
}

func TestDispatch(t *testing.T) {
	d := Dispatch{Go: stubMerger{"go"}, Fallback: stubMerger{"other"}}
	ctx := context.Background()

	out, err := d.AddExtenders(ctx, "extend.go", nil)
	require.NoError(t, err)
	assert.Equal(t, "go", string(out))

	out, err = d.AddExtenders(ctx, "extend.php", nil)
	require.NoError(t, err)
	assert.Equal(t, "other", string(out))

	_, err = Dispatch{Go: stubMerger{"go"}}.AddExtenders(ctx, "extend.php", nil)
	assert.Error(t, err)
}
