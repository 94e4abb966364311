package impact

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

func shopAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	b := graph.NewBuilder("shop")
	views := b.AddFileNode("app/views.py")
	svc := b.AddFileNode("app/services/orders.py")
	urls := b.AddFileNode("app/urls.py")
	tests := b.AddFileNode("tests/test_orders.py")
	b.AddFileNode("README.md")
	order := b.AddNode(graph.MakeID(graph.ModelKey("Order")), "Order", graph.NodeTypeCollection, "", 0, nil)
	route := b.AddNode(graph.MakeID(graph.RouteKey("GET", "/orders")), "GET /orders", graph.NodeTypeEndpoint, "app/views.py", 10,
		graph.Meta("method", "GET", "path", "/orders"))

	b.AddEdge(urls, views, graph.EdgeTypeImports, nil)
	b.AddEdge(views, svc, graph.EdgeTypeImports, nil)
	b.AddEdge(svc, order, graph.EdgeTypeDBRead, nil)
	b.AddEdge(svc, order, graph.EdgeTypeDBWrite, nil)
	b.AddEdge(views, order, graph.EdgeTypeDBRead, nil)
	b.AddEdge(route, views, graph.EdgeTypeEndpointHandler, nil)
	b.AddEdge(views, route, graph.EdgeTypeCalls, nil)
	b.AddEdge(tests, svc, graph.EdgeTypeImports, nil)
	return NewAnalyzer(index.New(b.Export()))
}

func TestModels(t *testing.T) {
	a := shopAnalyzer(t)

	models, err := a.Models("ord")
	require.NoError(t, err)
	require.Len(t, models, 1)
	m := models[0]
	assert.Equal(t, "Order", m.Model.Label)
	require.Len(t, m.Readers, 2)
	assert.Equal(t, "orders.py", m.Readers[0].Node.Label)
	assert.Equal(t, "views.py", m.Readers[1].Node.Label)
	require.Len(t, m.Writers, 1)
	assert.Empty(t, m.Other)

	_, err = a.Models("invoice")
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestEndpoints(t *testing.T) {
	a := shopAnalyzer(t)

	eps, err := a.Endpoints("/orders")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	ep := eps[0]
	assert.Equal(t, "GET", ep.Method)
	assert.Equal(t, "/orders", ep.Path)

	var trace []string
	for _, s := range ep.Chain {
		trace = append(trace, fmt.Sprintf("%d:%s:%s", s.Depth, s.Type, s.Node.Label))
	}
	assert.Equal(t, []string{
		"0:endpoint_handler:views.py",
		"1:imports:orders.py",
		"2:db_read:Order",
		"2:db_write:Order",
		"1:db_read:Order",
		"1:calls:GET /orders",
	}, trace)

	_, err = a.Endpoints("/missing")
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestEndpoints_ByFile(t *testing.T) {
	a := shopAnalyzer(t)
	// the views file classifies as an endpoint; the orders file is not kept
	eps, err := a.Endpoints("app/")
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "views.py", eps[0].Endpoint.Label)
	assert.Equal(t, "GET /orders", eps[1].Endpoint.Label)
}

func TestOverview(t *testing.T) {
	a := shopAnalyzer(t)
	ov := a.Overview()

	assert.Equal(t, "shop", ov.Project)
	assert.Equal(t, 7, ov.TotalNodes)
	require.Len(t, ov.Dirs, 2)
	assert.Equal(t, "app", ov.Dirs[0].Name)
	assert.Equal(t, 4, ov.Dirs[0].Count)
	assert.Equal(t, RootDir, ov.Dirs[1].Name)
	assert.Equal(t, 2, ov.Dirs[1].Count)

	var names []string
	for _, l := range ov.Layers {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"API Layer", "Business Logic", "Data Layer", "Quality"}, names)
	assert.Equal(t, 3, ov.Layers[0].Count)
}

func TestChanges(t *testing.T) {
	a := shopAnalyzer(t)
	r := a.Changes([]string{"services/orders", "app/views.py", "nope.go"})

	require.Len(t, r.Entries, 3)
	require.NotNil(t, r.Entries[0].Node)
	assert.Equal(t, "orders.py", r.Entries[0].Node.Label)
	assert.Equal(t, 2, r.Entries[0].Incoming)
	assert.Nil(t, r.Entries[2].Node)
	// views.py depends on orders.py and is changed too; it counts once
	assert.Equal(t, []string{"views.py", "test_orders.py", "urls.py", "GET /orders"}, labels(r.Affected))
}

func TestCoverageGaps(t *testing.T) {
	b := graph.NewBuilder("gaps")
	core := b.AddNode("core", "core", graph.NodeTypeService, "core.py", 0, nil)
	covered := b.AddNode("covered", "covered", graph.NodeTypeService, "covered.py", 0, nil)
	spec := b.AddNode("spec", "spec", graph.NodeTypeTest, "test_covered.py", 0, nil)
	b.AddEdge(spec, covered, graph.EdgeTypeImports, nil)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("user%d", i)
		b.AddNode(id, id, graph.NodeTypeFile, id+".py", 0, nil)
		b.AddEdge(id, core, graph.EdgeTypeImports, nil)
		b.AddEdge(id, covered, graph.EdgeTypeImports, nil)
	}
	a := NewAnalyzer(index.New(b.Export()))

	gaps := a.CoverageGaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, "core", gaps[0].Node.ID)
}

func TestReportAndStats(t *testing.T) {
	a := shopAnalyzer(t)

	r := a.Report()
	assert.Equal(t, 1, r.IsolatedN)
	require.Len(t, r.Isolated, 1)
	assert.Equal(t, "README.md", r.Isolated[0].Nodes[0].Label)
	// orders.py and Order tie at 18; snapshot order puts the service first
	assert.Equal(t, "orders.py", r.Risky[0].Node.Label)
	assert.Equal(t, 18.0, r.Risky[0].Score)
	assert.Equal(t, "Order", r.Risky[1].Node.Label)

	s := a.Stats(Filter{})
	assert.Equal(t, 8, s.Edges)
	assert.Equal(t, 0, s.GhostEdges)
	assert.Equal(t, 2, s.Components)
	assert.Equal(t, 7, s.Visible)
	assert.Len(t, s.TopHubs, 5)
}

func TestImpactFormat(t *testing.T) {
	a := shopAnalyzer(t)
	svc := a.Index().FindByFile("services/orders")[0]
	r := a.Impact(svc.ID, DefaultImpactDepth)

	md := r.FormatMarkdown()
	assert.Contains(t, md, "## Impact analysis: orders.py")
	assert.Contains(t, md, "### Direct dependents (2)")
	assert.Contains(t, md, "| db_write | Order |  |")

	tree := r.FormatTree()
	assert.True(t, strings.HasPrefix(tree, "services/orders.py"))
	assert.Contains(t, tree, "2nd-level impact")
	assert.Contains(t, r.Summary(), "Affected: 4")
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "Direct dependents", LevelName(1))
	assert.Equal(t, "3rd-level impact", LevelName(3))
	assert.Equal(t, "3rd-level impact", LevelName(7))
}
