package generator

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	r := NewRenderer()
	assert.NotNil(t, r.funcMap)
	assert.Empty(t, r.cache)
}

func TestRenderString(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name        string
		templateStr string
		data        any
		expected    string
		wantErr     bool
		errContains string
	}{
		{
			name:        "plain text",
			templateStr: "Hello World",
			expected:    "Hello World",
		},
		{
			name:        "nested params",
			templateStr: "package {{ .params.packageName }}",
			data:        map[string]any{"params": map[string]any{"packageName": "blog"}},
			expected:    "package blog",
		},
		{
			name:        "module flag",
			templateStr: `{{ if .modules.frontend }}js{{ else }}none{{ end }}`,
			data:        map[string]any{"modules": map[string]bool{"frontend": true}},
			expected:    "js",
		},
		{
			name:        "syntax error",
			templateStr: "{{ .Name }",
			wantErr:     true,
			errContains: "failed to parse template",
		},
		{
			name:        "missing key",
			templateStr: "{{ .params.nope }}",
			data:        map[string]any{"params": map[string]any{}},
			wantErr:     true,
			errContains: "failed to render template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.RenderString(tt.name, tt.templateStr, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestRenderString_Caches(t *testing.T) {
	r := NewRenderer()

	_, err := r.RenderString("x", "first", nil)
	require.NoError(t, err)

	// Same name hits the cache and ignores the new text.
	out, err := r.RenderString("x", "second", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", string(out))

	out, err = NewRenderer().RenderString("x", "second", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", string(out))
}

func TestRenderFS(t *testing.T) {
	fsys := fstest.MapFS{
		"skeleton/extend.go": {Data: []byte(`package {{ snakeCase .params.name }}`)},
	}
	r := NewRenderer()

	out, err := r.RenderFS(fsys, "skeleton/extend.go", map[string]any{"params": map[string]any{"name": "FlarumTags"}})
	require.NoError(t, err)
	assert.Equal(t, "package flarum_tags", string(out))

	_, err = r.RenderFS(fsys, "skeleton/missing.go", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read template")
}

func TestCaseHelpers(t *testing.T) {
	tests := []struct {
		in     string
		pascal string
		camel  string
		snake  string
		kebab  string
	}{
		{"user_name", "UserName", "userName", "user_name", "user-name"},
		{"userName", "UserName", "userName", "user_name", "user-name"},
		{"UserID", "UserID", "userID", "user_id", "user-id"},
		{"HTTPServer", "HTTPServer", "httpServer", "http_server", "http-server"},
		{"flarum-tags", "FlarumTags", "flarumTags", "flarum_tags", "flarum-tags"},
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.pascal, PascalCase(tt.in))
			assert.Equal(t, tt.camel, CamelCase(tt.in))
			assert.Equal(t, tt.snake, SnakeCase(tt.in))
			assert.Equal(t, tt.kebab, KebabCase(tt.in))
		})
	}
}

func TestDict(t *testing.T) {
	m, err := Dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)

	_, err = Dict("a")
	assert.Error(t, err)

	_, err = Dict(1, 2)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "d", Default("d", nil))
	assert.Equal(t, "d", Default("d", ""))
	assert.Equal(t, "d", Default("d", []any{}))
	assert.Equal(t, "v", Default("d", "v"))
	assert.Equal(t, 0, Default(5, 0))
}
