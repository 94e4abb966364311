package impact

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// fixture describes a graph compactly: nodes as id -> type, edges as
// "src>tgt:type"
type fixture struct {
	nodes [][2]string
	edges []string
}

func newBuilder(t *testing.T, f fixture) *graph.Builder {
	t.Helper()
	b := graph.NewBuilder("test")
	for _, n := range f.nodes {
		b.AddNode(n[0], n[0], graph.NodeType(n[1]), n[0]+".py", 0, nil)
	}
	for _, e := range f.edges {
		var src, tgt, typ string
		_, err := fmt.Sscanf(replaceSep(e), "%s %s %s", &src, &tgt, &typ)
		require.NoError(t, err, e)
		b.AddEdge(src, tgt, graph.EdgeType(typ), nil)
	}
	return b
}

func replaceSep(e string) string {
	out := []byte(e)
	for i, c := range out {
		if c == '>' || c == ':' {
			out[i] = ' '
		}
	}
	return string(out)
}

func newAnalyzer(t *testing.T, f fixture) *Analyzer {
	t.Helper()
	return NewAnalyzer(index.New(newBuilder(t, f).Export()))
}

func labels(nodes []graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}

func TestFind(t *testing.T) {
	a := newAnalyzer(t, fixture{nodes: [][2]string{{"alpha", "file"}, {"beta", "file"}}})

	got, err := a.Find("alp")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, labels(got))

	_, err = a.Find("zzz")
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestImpact_Levels(t *testing.T) {
	// a <- b <- c <- d <- e <- f, plus x -> a
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "file"}, {"c", "file"}, {"d", "file"}, {"e", "file"}, {"f", "file"}, {"x", "file"}},
		edges: []string{"b>a:imports", "x>a:imports", "c>b:imports", "d>c:imports", "e>d:imports", "f>e:imports", "a>f:calls"},
	})

	r := a.Impact("a", 1)
	require.Len(t, r.Levels, 2)
	assert.Equal(t, 1, r.Levels[0].Depth)
	assert.Equal(t, []string{"b", "x"}, labels(r.Levels[0].Nodes))
	// depth is checked on dequeue, so maxDepth+1 hops are reached
	assert.Equal(t, 2, r.Levels[1].Depth)
	assert.Equal(t, []string{"c"}, labels(r.Levels[1].Nodes))
	assert.Equal(t, 3, r.Total)

	require.Len(t, r.DependsOn, 1)
	assert.Equal(t, "f", r.DependsOn[0].Node.Label)
	assert.Equal(t, graph.EdgeTypeCalls, r.DependsOn[0].Type)
}

func TestImpact_DefaultDepthReachesFour(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "file"}, {"c", "file"}, {"d", "file"}, {"e", "file"}, {"f", "file"}},
		edges: []string{"b>a:imports", "c>b:imports", "d>c:imports", "e>d:imports", "f>e:imports"},
	})

	r := a.Impact("a", DefaultImpactDepth)
	require.Len(t, r.Levels, 4)
	assert.Equal(t, 4, r.Levels[3].Depth)
	assert.Equal(t, []string{"e"}, labels(r.Levels[3].Nodes))
	assert.Equal(t, 4, r.Total)
}

func TestImpact_NoDependents(t *testing.T) {
	a := newAnalyzer(t, fixture{nodes: [][2]string{{"a", "file"}, {"b", "file"}}, edges: []string{"a>b:imports"}})

	r := a.Impact("a", DefaultImpactDepth)
	assert.Empty(t, r.Levels)
	assert.Equal(t, 0, r.Total)
}

func TestImpact_Cycle(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "file"}},
		edges: []string{"a>b:imports", "b>a:imports"},
	})
	r := a.Impact("a", 10)
	require.Len(t, r.Levels, 1)
	assert.Equal(t, []string{"b"}, labels(r.Levels[0].Nodes))
}

func TestDependentsAndDependencies(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"m", "collection"}, {"v1", "endpoint"}, {"v2", "endpoint"}, {"s", "service"}},
		edges: []string{"v1>m:db_write", "v2>m:db_read", "s>m:db_read", "v1>s:imports"},
	})

	deps := a.Dependents("m")
	assert.Equal(t, 3, deps.Total)
	require.Len(t, deps.Groups, 2)
	assert.Equal(t, graph.EdgeTypeDBRead, deps.Groups[0].Type)
	assert.Equal(t, []string{"v2", "s"}, labels(deps.Groups[0].Nodes))
	assert.Equal(t, graph.EdgeTypeDBWrite, deps.Groups[1].Type)

	out := a.Dependencies("v1")
	require.Len(t, out.Groups, 2)
	assert.Equal(t, graph.EdgeTypeDBWrite, out.Groups[0].Type)
	assert.Equal(t, graph.EdgeTypeImports, out.Groups[1].Type)
}

func TestCluster(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "service"}, {"c", "file"}, {"d", "file"}, {"lone", "file"}},
		edges: []string{"a>b:imports", "c>b:calls", "d>e:imports"},
	})

	c := a.Cluster("a")
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []string{"a", "b", "c"}, labels(c.Members))
	require.Len(t, c.Groups, 2)
	assert.Equal(t, graph.NodeTypeFile, c.Groups[0].Type)
	assert.Len(t, c.Groups[0].Nodes, 2)

	assert.Equal(t, 1, a.Cluster("lone").Size())
}

func TestCountComponents(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "service"}, {"c", "file"}, {"d", "test"}, {"e", "file"}},
		edges: []string{"a>b:imports", "b>c:calls", "d>a:imports"},
	})

	assert.Equal(t, 2, a.CountComponents(Filter{}))
	// hiding the service splits a from c: {a,d}, {c}, {e}
	assert.Equal(t, 3, a.CountComponents(Filter{NodeTypes: []graph.NodeType{graph.NodeTypeFile, graph.NodeTypeTest}}))
	// only import edges: {a,b,d}, {c}, {e}
	assert.Equal(t, 3, a.CountComponents(Filter{EdgeTypes: []graph.EdgeType{graph.EdgeTypeImports}}))
	// only a matches the query
	assert.Equal(t, 1, a.CountComponents(Filter{Query: "A"}))
	assert.Equal(t, 0, a.CountComponents(Filter{Query: "nothing"}))
	assert.Len(t, a.VisibleNodes(Filter{NodeTypes: []graph.NodeType{graph.NodeTypeFile}}), 3)
}

func TestPath(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"A", "file"}, {"B", "file"}, {"C", "file"}, {"Z", "file"}},
		edges: []string{"A>B:imports", "B>C:imports"},
	})

	r := a.Path("A", []string{"C"})
	require.True(t, r.Found)
	assert.False(t, r.Capped)
	assert.Equal(t, []string{"A", "B", "C"}, labels(r.Nodes))
	require.Len(t, r.Hops, 2)
	for _, h := range r.Hops {
		assert.Equal(t, graph.EdgeTypeImports, h.Type)
		assert.True(t, h.Forward)
	}
	end, ok := r.End()
	require.True(t, ok)
	assert.Equal(t, "C", end.Label)

	miss := a.Path("A", []string{"Z"})
	assert.False(t, miss.Found)
	assert.False(t, miss.Capped)
	assert.Empty(t, miss.Nodes)
}

func TestPath_Backward(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"A", "file"}, {"B", "file"}, {"C", "file"}},
		edges: []string{"B>A:imports", "B>C:db_read"},
	})

	r := a.Path("A", []string{"C"})
	require.True(t, r.Found)
	assert.Equal(t, []string{"A", "B", "C"}, labels(r.Nodes))
	assert.Equal(t, Hop{From: "A", To: "B", Type: graph.EdgeTypeImports, Forward: false}, r.Hops[0])
	assert.Equal(t, Hop{From: "B", To: "C", Type: graph.EdgeTypeDBRead, Forward: true}, r.Hops[1])
}

func TestPath_StartIsTarget(t *testing.T) {
	a := newAnalyzer(t, fixture{nodes: [][2]string{{"A", "file"}}})
	r := a.Path("A", []string{"A"})
	require.True(t, r.Found)
	assert.Equal(t, []string{"A"}, labels(r.Nodes))
	assert.Empty(t, r.Hops)
}

func TestPath_Shortest(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"A", "file"}, {"B", "file"}, {"C", "file"}, {"D", "file"}},
		edges: []string{"A>B:imports", "B>C:imports", "C>D:imports", "A>D:calls"},
	})
	r := a.Path("A", []string{"D", "C"})
	require.True(t, r.Found)
	assert.Equal(t, []string{"A", "D"}, labels(r.Nodes))
}

func TestPath_Capped(t *testing.T) {
	// a star of 600 leaves around the hub; the target hangs off the last leaf
	f := fixture{nodes: [][2]string{{"hub", "file"}, {"target", "file"}}}
	for i := 0; i < 600; i++ {
		id := fmt.Sprintf("n%d", i)
		f.nodes = append(f.nodes, [2]string{id, "file"})
		f.edges = append(f.edges, "hub>"+id+":imports")
	}
	f.edges = append(f.edges, "n599>target:imports")
	a := newAnalyzer(t, f)

	r := a.Path("hub", []string{"target"})
	assert.False(t, r.Found)
	assert.True(t, r.Capped)
}

func TestDeadCode(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{
			{"orphan", "file"}, {"settings", "config"},
			{"svc", "service"}, {"spec", "test"}, {"seed", "script"},
			{"lib", "utility"},
		},
		edges: []string{"svc>lib:imports", "spec>lib:imports", "seed>lib:calls"},
	})

	r := a.DeadCode()
	assert.Equal(t, []string{"orphan"}, labels(r.Isolated))
	assert.Equal(t, []string{"svc"}, labels(r.NoDependents))
}

func TestRiskyFiles(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"plain", "file"}, {"urls", "router"}, {"x", "file"}, {"y", "file"}},
		edges: []string{"x>plain:imports", "y>urls:imports"},
	})

	first := a.RiskyFiles(0)
	require.Len(t, first, 4)
	assert.Equal(t, "urls", first[0].Node.Label)
	assert.Equal(t, 8.0, first[0].Score)
	assert.Equal(t, "plain", first[1].Node.Label)
	assert.Equal(t, 4.0, first[1].Score)
	// x and y tie at 2; snapshot order breaks the tie
	assert.Equal(t, []string{"x", "y"}, []string{first[2].Node.Label, first[3].Node.Label})

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.RiskyFiles(0))
	}
	assert.Len(t, a.RiskyFiles(2), 2)
}

func TestScore_TypeFactors(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"m", "collection"}, {"t", "test"}, {"src", "file"}},
		edges: []string{"src>m:db_read", "src>t:imports"},
	})
	// (1*3 + 0 + 1) * 1.5
	assert.Equal(t, 6.0, a.Score("m"))
	// (1*3 + 0 + 1) * 0.1
	assert.InDelta(t, 0.4, a.Score("t"), 1e-9)
	// (0 + 2 + 2) * 1
	assert.Equal(t, 4.0, a.Score("src"))
}

func TestHubs(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "file"}, {"c", "file"}, {"d", "file"}, {"iso", "file"}},
		edges: []string{"a>b:imports", "c>d:imports", "c>b:imports"},
	})

	hubs := a.Hubs(0)
	require.Len(t, hubs, 4)
	assert.Equal(t, "b", hubs[0].Node.Label)
	assert.Equal(t, "c", hubs[1].Node.Label)
	// a and d tie at degree 1; a appears first in the edge list
	assert.Equal(t, "a", hubs[2].Node.Label)
	assert.Equal(t, "d", hubs[3].Node.Label)
	assert.Len(t, a.Hubs(1), 1)
}

func TestRoundTrip(t *testing.T) {
	b := newBuilder(t, fixture{
		nodes: [][2]string{{"r", "router"}, {"v", "endpoint"}, {"s", "service"}, {"m", "collection"}, {"u", "utility"}, {"t", "test"}},
		edges: []string{"r>v:imports", "v>s:calls", "s>m:db_read", "s>m:db_write", "v>m:db_read", "s>u:imports", "t>s:imports", "u>ghost:imports"},
	})
	direct := NewAnalyzer(index.New(b.Export()))

	var buf bytes.Buffer
	require.NoError(t, graph.WriteSnapshot(&buf, b.Export()))
	snap, err := graph.DecodeSnapshot(&buf)
	require.NoError(t, err)
	reloaded := NewAnalyzer(index.New(snap))

	for _, n := range direct.Index().Nodes() {
		assert.Equal(t, direct.Index().Degree(n.ID), reloaded.Index().Degree(n.ID), n.ID)
		assert.Equal(t, direct.Index().Risk(n.ID), reloaded.Index().Risk(n.ID), n.ID)
	}
	assert.Equal(t, direct.RiskyFiles(0), reloaded.RiskyFiles(0))
	assert.Equal(t, direct.Hubs(0), reloaded.Hubs(0))
	assert.Equal(t, direct.DeadCode(), reloaded.DeadCode())
}

func TestParseFilter(t *testing.T) {
	f := ParseFilter([]string{"service", " ", "file"}, []string{"imports"}, "  app ")
	assert.Equal(t, []graph.NodeType{graph.NodeTypeService, graph.NodeTypeFile}, f.NodeTypes)
	assert.Equal(t, []graph.EdgeType{graph.EdgeTypeImports}, f.EdgeTypes)
	assert.Equal(t, "app", f.Query)
	assert.Empty(t, ParseFilter(nil, nil, "").NodeTypes)
}

func TestDescribe(t *testing.T) {
	a := newAnalyzer(t, fixture{
		nodes: [][2]string{{"a", "file"}, {"b", "file"}},
		edges: []string{"a>b:imports"},
	})
	hubs := a.Describe(a.Index().Nodes())
	require.Len(t, hubs, 2)
	assert.Equal(t, "b", hubs[1].Node.ID)
	assert.Equal(t, 1, hubs[1].Degree)
	assert.Equal(t, 1, hubs[1].Incoming)
	assert.Equal(t, 0, hubs[1].Outgoing)
}
