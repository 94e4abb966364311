package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/storage"
)

func sampleSnapshot() *graph.Snapshot {
	b := graph.NewBuilder("shop")
	a := b.AddFileNode("app/a.py")
	c := b.AddFileNode("app/c.py")
	b.AddEdge(a, c, graph.EdgeTypeImports, nil)
	return b.Export()
}

func TestParseLanguages(t *testing.T) {
	langs, err := parseLanguages(" Python, ,javascript")
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "javascript"}, langs)

	_, err = parseLanguages("python,cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown languages: cobol")
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"graph.json", "graph.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, saveSnapshot(ctx, path, sampleSnapshot()))

			s, err := loadSnapshot(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, "shop", s.Project)
			assert.Len(t, s.Nodes, 2)
			assert.Len(t, s.Edges, 1)
		})
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := loadSnapshot(ctx, filepath.Join(dir, "missing.db"))
	assert.ErrorIs(t, err, graph.ErrGraphNotFound)

	empty := filepath.Join(dir, "empty.db")
	db, err := storage.Open(empty)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	_, err = loadSnapshot(ctx, empty)
	assert.ErrorIs(t, err, graph.ErrGraphNotFound)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestTopOr(t *testing.T) {
	defer func() { TopN = 0 }()
	assert.Equal(t, 15, topOr(15))
	TopN = 3
	assert.Equal(t, 3, topOr(15))
}

func TestImpactCmd_DepthFlag(t *testing.T) {
	f := impactCmd().Flags().Lookup("depth")
	require.NotNil(t, f)
	assert.Equal(t, "3", f.DefValue)
	assert.Contains(t, f.Usage, "depth+1 hops")
}
