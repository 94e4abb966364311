package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// a -> b -> c, d -> b, c -> a closes a cycle; one ghost edge
func sampleSnapshot() *graph.Snapshot {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := graph.NewBuilder("demo", graph.WithClock(func() time.Time { return fixed }))
	b.AddNode("a", "a.py", graph.NodeTypeFile, "a.py", 0, nil)
	b.AddNode("b", "orders.py", graph.NodeTypeService, "svc/orders.py", 3, graph.Meta("k", "v", "z", "ü"))
	b.AddNode("c", "Order", graph.NodeTypeCollection, "", 0, nil)
	b.AddNode("d", "views.py", graph.NodeTypeEndpoint, "app/views.py", 0, nil)
	b.AddEdge("a", "b", graph.EdgeTypeImports, graph.Meta("module", "svc.orders"))
	b.AddEdge("b", "c", graph.EdgeTypeDBWrite, nil)
	b.AddEdge("d", "b", graph.EdgeTypeImports, nil)
	b.AddEdge("c", "a", graph.EdgeTypeCalls, nil)
	b.AddEdge("d", "ghost", graph.EdgeTypeCalls, nil)
	return b.Export()
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, db.SaveSnapshot(ctx, want))
	got, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	nodes, edges, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), nodes)
	assert.Equal(t, int64(5), edges)

	// saving again replaces rather than appends
	require.NoError(t, db.SaveSnapshot(ctx, want))
	nodes, _, err = db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), nodes)
}

func TestLoadSnapshot_Empty(t *testing.T) {
	db := openDB(t)
	_, err := db.LoadSnapshot(context.Background())
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestSaveSnapshot_DuplicateIDs(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	s := &graph.Snapshot{
		Project: "dup",
		Nodes: []graph.Node{
			{ID: "x", Label: "first", Type: graph.NodeTypeFile},
			{ID: "x", Label: "second", Type: graph.NodeTypeFile},
		},
	}
	require.NoError(t, db.SaveSnapshot(ctx, s))
	n, err := db.GetNodeByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "first", n.Label)
}

func TestFindNodesByPattern(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveSnapshot(ctx, sampleSnapshot()))

	nodes, err := db.FindNodesByPattern(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "b", nodes[0].ID)
	assert.Equal(t, "ü", nodes[0].Metadata.Value("z"))

	nodes, err = db.FindNodesByPattern(ctx, ".py")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	// label suffix matches rank by label length, then snapshot order
	assert.Equal(t, []string{"a", "d", "b"}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID})
}

func TestGetUpstreamDependents(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveSnapshot(ctx, sampleSnapshot()))

	ids := func(nodes []graph.Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.ID)
		}
		return out
	}

	direct, err := db.GetUpstreamDependents(ctx, "b", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(direct))

	two, err := db.GetUpstreamDependents(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "c"}, ids(two))

	// the cycle back to b terminates and b itself is excluded
	all, err := db.GetUpstreamDependents(ctx, "b", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, ids(all))
}
