package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
)

func node(id string, typ graph.NodeType) graph.Node {
	return graph.Node{ID: id, Label: id, Type: typ, File: id + ".py"}
}

func edge(src, tgt string, typ graph.EdgeType) graph.Edge {
	return graph.Edge{Source: src, Target: tgt, Type: typ}
}

func buildIndex(t *testing.T, nodes []graph.Node, edges []graph.Edge) *Index {
	t.Helper()
	return New(&graph.Snapshot{Project: "test", Nodes: nodes, Edges: edges})
}

func TestNew_GhostEdges(t *testing.T) {
	idx := buildIndex(t,
		[]graph.Node{node("a", graph.NodeTypeFile), node("b", graph.NodeTypeFile)},
		[]graph.Edge{
			edge("a", "b", graph.EdgeTypeImports),
			edge("a", "ghost", graph.EdgeTypeImports),
		},
	)

	assert.Equal(t, 1, idx.GhostEdges())
	require.Len(t, idx.Edges(), 1)
	assert.Len(t, idx.Outgoing("a"), 1)
	assert.Empty(t, idx.Incoming("ghost"))
	assert.Equal(t, 1, idx.Degree("a"))
	assert.Equal(t, 0, idx.Degree("ghost"))
}

func TestNew_GhostBothEndsCountedOnce(t *testing.T) {
	idx := buildIndex(t,
		[]graph.Node{node("a", graph.NodeTypeFile)},
		[]graph.Edge{edge("x", "y", graph.EdgeTypeCalls)},
	)
	assert.Equal(t, 1, idx.GhostEdges())
	assert.Empty(t, idx.Edges())
}

func TestNew_Adjacency(t *testing.T) {
	idx := buildIndex(t,
		[]graph.Node{node("a", graph.NodeTypeFile), node("b", graph.NodeTypeFile), node("c", graph.NodeTypeFile)},
		[]graph.Edge{
			edge("a", "b", graph.EdgeTypeImports),
			edge("c", "b", graph.EdgeTypeCalls),
			edge("b", "a", graph.EdgeTypeImports),
		},
	)

	in := idx.Incoming("b")
	require.Len(t, in, 2)
	assert.Equal(t, "a", in[0].Other)
	assert.Equal(t, "c", in[1].Other)
	assert.Equal(t, graph.EdgeTypeCalls, in[1].Edge.Type)

	out := idx.Outgoing("b")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Other)

	assert.Equal(t, 3, idx.Degree("b"))
	assert.Equal(t, 2, idx.Degree("a"))
	assert.Equal(t, []string{"a", "b", "c"}, idx.HubOrder())
}

func TestNew_DuplicateNodeFirstWins(t *testing.T) {
	first := graph.Node{ID: "a", Label: "first", Type: graph.NodeTypeService}
	second := graph.Node{ID: "a", Label: "second", Type: graph.NodeTypeRouter}
	idx := buildIndex(t, []graph.Node{first, second}, nil)

	require.Len(t, idx.Nodes(), 1)
	n, ok := idx.Node("a")
	require.True(t, ok)
	assert.Equal(t, "first", n.Label)
	assert.Equal(t, 0, idx.Order("a"))
	assert.Equal(t, -1, idx.Order("missing"))
}

func TestFindByFile(t *testing.T) {
	idx := buildIndex(t, []graph.Node{
		{ID: "1", Label: "views.py", Type: graph.NodeTypeEndpoint, File: "app/Views.py"},
		{ID: "2", Label: "Order", Type: graph.NodeTypeCollection},
		{ID: "3", Label: "urls.py", Type: graph.NodeTypeRouter, File: "app/urls.py"},
	}, nil)

	got := idx.FindByFile("/app/")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	got = idx.FindByFile("ORDER")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Empty(t, idx.FindByFile("nothing"))
	assert.Len(t, idx.FindModel("ord"), 1)
	assert.Empty(t, idx.FindEndpoint("ord"))
}

func TestRisk(t *testing.T) {
	tests := []struct {
		name     string
		typ      graph.NodeType
		incoming int
		outgoing int
		want     Tier
	}{
		{"twenty connections", graph.NodeTypeFile, 0, 20, TierCritical},
		{"router overrides count", graph.NodeTypeRouter, 5, 5, TierCritical},
		{"isolated config", graph.NodeTypeConfig, 0, 0, TierCritical},
		{"ten connections", graph.NodeTypeFile, 0, 10, TierHigh},
		{"popular service", graph.NodeTypeService, 5, 0, TierHigh},
		{"popular file", graph.NodeTypeFile, 5, 0, TierMedium},
		{"four connections", graph.NodeTypeFile, 0, 4, TierMedium},
		{"two dependents", graph.NodeTypeFile, 2, 0, TierMedium},
		{"one dependent", graph.NodeTypeFile, 1, 2, TierLow},
		{"no edges", graph.NodeTypeFile, 0, 0, TierLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := []graph.Node{node("x", tt.typ)}
			var edges []graph.Edge
			for i := 0; i < tt.incoming; i++ {
				id := fmt.Sprintf("in%d", i)
				nodes = append(nodes, node(id, graph.NodeTypeFile))
				edges = append(edges, edge(id, "x", graph.EdgeTypeImports))
			}
			for i := 0; i < tt.outgoing; i++ {
				id := fmt.Sprintf("out%d", i)
				nodes = append(nodes, node(id, graph.NodeTypeFile))
				edges = append(edges, edge("x", id, graph.EdgeTypeImports))
			}
			idx := buildIndex(t, nodes, edges)

			r := idx.Risk("x")
			assert.Equal(t, tt.want, r.Tier)
			assert.Equal(t, tt.incoming+tt.outgoing, r.Connections)
			assert.Equal(t, tt.incoming, r.Incoming)
		})
	}
}

func TestRisk_Detail(t *testing.T) {
	idx := buildIndex(t, []graph.Node{node("a", graph.NodeTypeFile), node("b", graph.NodeTypeRouter)},
		[]graph.Edge{edge("a", "b", graph.EdgeTypeImports)})

	assert.Equal(t, "1 connections, 0 dependents", idx.Risk("a").Detail)
	assert.Equal(t, "1 connections, hub node, changes affect many files", idx.Risk("b").Detail)
	assert.Equal(t, TierLow, idx.Risk("unknown").Tier)
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "CRITICAL", TierCritical.String())
	assert.Equal(t, "LOW", TierLow.String())
	text, err := TierHigh.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "HIGH", string(text))
	assert.Equal(t, "Tier(9)", Tier(9).String())
}

func TestTier_UnmarshalText(t *testing.T) {
	var tier Tier
	require.NoError(t, tier.UnmarshalText([]byte("MEDIUM")))
	assert.Equal(t, TierMedium, tier)
	assert.Error(t, tier.UnmarshalText([]byte("SEVERE")))
}
