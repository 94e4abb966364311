package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
)

func fileSet(paths ...string) *FileSet {
	ids := make(map[string]string, len(paths))
	for _, p := range paths {
		ids[p] = fileID(p)
	}
	return NewFileSet(ids)
}

func TestFile_Line(t *testing.T) {
	f := &File{Content: []byte("a\nb\nc")}
	assert.Equal(t, 1, f.Line(0))
	assert.Equal(t, 1, f.Line(1))
	assert.Equal(t, 2, f.Line(2))
	assert.Equal(t, 3, f.Line(4))
}

func TestFileSet(t *testing.T) {
	fs := fileSet("b.py", "a.py")
	assert.Equal(t, []string{"a.py", "b.py"}, fs.Paths())
	assert.Equal(t, 2, fs.Len())
	id, ok := fs.Lookup("./a.py")
	assert.True(t, ok)
	assert.Equal(t, fileID("a.py"), id)
}

func TestPyBases(t *testing.T) {
	assert.Equal(t, []string{"models.Model", "Generic"}, pyBases("models.Model, Generic[T, U], metaclass=Meta"))
	assert.Empty(t, pyBases(""))
	assert.Equal(t, []string{"Base"}, pyBases(" Base ,*mixins"))
}

func TestResolveJSImport(t *testing.T) {
	fs := fileSet("src/app.ts", "src/lib/index.tsx", "src/util.js", "shared/env.ts")

	tests := []struct {
		module, from, want string
	}{
		{"./util", "src/app.ts", "src/util.js"},
		{"./lib", "src/app.ts", "src/lib/index.tsx"},
		{"../shared/env", "src/app.ts", "shared/env.ts"},
		{"@/shared/env", "src/app.ts", "shared/env.ts"},
		{"~/src/util.js", "src/app.ts", "src/util.js"},
		{"./missing", "src/app.ts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			id, ok := resolveJSImport(fs, tt.module, tt.from)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, fileID(tt.want), id)
		})
	}
}

func TestGoExtractor_Extract(t *testing.T) {
	fs := fileSet("cmd/main.go", "lib/a.go", "lib/b.go")
	e := NewGoExtractor(quietLogger())
	e.pkgFiles = map[string][]string{
		"example.com/m/lib": {"lib/a.go", "lib/b.go"},
	}

	f := &File{
		Rel:   "cmd/main.go",
		ID:    fileID("cmd/main.go"),
		Files: fs,
		Content: []byte(`package main

import (
	"fmt"

	"example.com/m/lib"
)
`),
	}
	facts, err := e.Extract(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for i, target := range []string{"lib/a.go", "lib/b.go"} {
		require.NotNil(t, facts[i].Edge)
		assert.Equal(t, fileID(target), facts[i].Edge.Target)
		assert.Equal(t, graph.EdgeTypeImports, facts[i].Edge.Type)
		assert.Equal(t, "example.com/m/lib", facts[i].Edge.Metadata.Value("module"))
	}

	f.Content = []byte("package main\nimport (")
	facts, err = e.Extract(context.Background(), f)
	assert.NoError(t, err)
	assert.Empty(t, facts)
}

func TestGoExtractor_NoPackages(t *testing.T) {
	e := NewGoExtractor(quietLogger())
	require.NoError(t, e.Prepare(context.Background(), t.TempDir(), fileSet("a.py")))
	facts, err := e.Extract(context.Background(), &File{Rel: "x.go", Content: []byte("package x\nimport \"fmt\"\n")})
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestGenericExtractor_Match(t *testing.T) {
	e := NewGenericExtractor()
	assert.True(t, e.Match("a/b.rb"))
	assert.True(t, e.Match("main.go"))
	assert.True(t, e.Match("Program.cs"))
	assert.False(t, e.Match("app.py"))
	assert.False(t, e.Match("index.ts"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "ab", truncate("ab", 3))
	// never splits a multi-byte rune
	assert.Equal(t, "a", truncate("aé", 2))
}
