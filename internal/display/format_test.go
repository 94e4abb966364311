package display

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
	"github.com/zheng/codegraph/internal/index"
)

func newAnalyzer(t *testing.T, build func(b *graph.Builder)) *impact.Analyzer {
	t.Helper()
	b := graph.NewBuilder("demo", graph.WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	build(b)
	return impact.NewAnalyzer(index.New(b.Export()))
}

// chain: router c -> endpoint b -> service a
func chain(b *graph.Builder) {
	b.AddNode("a", "orders.py", graph.NodeTypeService, "app/orders.py", 0, nil)
	b.AddNode("b", "views.py", graph.NodeTypeEndpoint, "app/views.py", 0, nil)
	b.AddNode("c", "urls.py", graph.NodeTypeRouter, "app/urls.py", 0, nil)
	b.AddEdge("b", "a", graph.EdgeTypeImports, nil)
	b.AddEdge("c", "b", graph.EdgeTypeEndpointHandler, nil)
}

func plain(buf *bytes.Buffer, opts ...Option) *Printer {
	return NewPrinter(buf, append([]Option{WithIcons(false)}, opts...)...)
}

func TestPrinter_Tier(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "[HIGH]", plain(&buf).Tier(index.TierHigh))
	assert.Equal(t, "⛔ CRITICAL", NewPrinter(&buf, WithIcons(true)).Tier(index.TierCritical))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestPrinter_Age(t *testing.T) {
	now := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	p := plain(&bytes.Buffer{}, WithNow(func() time.Time { return now }))
	assert.Equal(t, "3 hours ago", p.Age("2026-01-01T00:00:00Z"))
	assert.Equal(t, "not a time", p.Age("not a time"))
}

func TestPrinter_Impact(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	plain(&buf).Impact(a.Impact("a", impact.DefaultImpactDepth))

	out := buf.String()
	assert.Contains(t, out, "Impact Analysis: orders.py")
	assert.Contains(t, out, "  → Direct dependents (1 files):\n    [endpoint] views.py (app/views.py)\n")
	assert.Contains(t, out, "  →→ 2nd-level impact (1 files):\n    [router] urls.py (app/urls.py)\n")
	assert.Contains(t, out, "Total affected: 2 files across 2 levels")
	assert.NotContains(t, out, "📊")
}

func TestPrinter_ImpactSafe(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	plain(&buf).Impact(a.Impact("c", impact.DefaultImpactDepth))

	out := buf.String()
	assert.Contains(t, out, "No other files depend on this, safe to change")
	assert.Contains(t, out, "This file depends on 1 other nodes:\n    [endpoint_handler] views.py (app/views.py)\n")
}

func TestPrinter_Neighbors(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	p := plain(&buf)
	p.Dependents(a.Dependents("a"))
	p.Dependencies(a.Dependencies("a"))

	out := buf.String()
	assert.Contains(t, out, "Dependents of: orders.py (app/orders.py)\n\n  [imports]:\n    ← views.py (app/views.py)\n")
	assert.Contains(t, out, "Dependencies of: orders.py (app/orders.py)\n  No outgoing dependencies\n")
}

func TestPrinter_Path(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	p := plain(&buf)
	p.Path(a.Path("a", []string{"c"}), "orders", "urls")

	assert.Equal(t, "Path from orders.py → urls.py:\n\n"+
		"  [service] orders.py (app/orders.py)\n"+
		"    ↑ [imports]\n"+
		"  → [endpoint] views.py (app/views.py)\n"+
		"    ↑ [endpoint_handler]\n"+
		"  → [router] urls.py (app/urls.py)\n", buf.String())

	buf.Reset()
	p.Path(&impact.PathResult{Capped: true}, "x", "y")
	assert.Equal(t, "No path found between 'x' and 'y' (search limit reached)\n", buf.String())
}

func isolated(n int) func(b *graph.Builder) {
	return func(b *graph.Builder) {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("u%02d", i)
			b.AddNode(id, id, graph.NodeTypeUtility, "lib/"+id+".py", 0, nil)
		}
	}
}

func TestPrinter_DeadCode(t *testing.T) {
	a := newAnalyzer(t, isolated(10))

	var buf bytes.Buffer
	plain(&buf).DeadCode(a.DeadCode())
	out := buf.String()
	assert.Contains(t, out, "Completely isolated (10 nodes):")
	assert.Contains(t, out, "[utility] (10):")
	assert.Contains(t, out, "u07 (lib/u07.py)")
	assert.NotContains(t, out, "u08 (lib/u08.py)")
	assert.Contains(t, out, "... +2 more (use --all to see all)")

	buf.Reset()
	plain(&buf, WithAll(true)).DeadCode(a.DeadCode())
	assert.Contains(t, buf.String(), "u09 (lib/u09.py)")
	assert.NotContains(t, buf.String(), "more")
}

func TestPrinter_Stats(t *testing.T) {
	a := newAnalyzer(t, func(b *graph.Builder) {
		isolated(1500)(b)
	})
	now := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	plain(&buf, WithNow(func() time.Time { return now })).Stats(a.Stats(impact.Filter{}))

	out := buf.String()
	assert.Contains(t, out, "Project: demo")
	assert.Contains(t, out, "Generated: 2026-01-01T00:00:00Z (2 days ago)")
	assert.Contains(t, out, "Nodes: 1,500")
	assert.Contains(t, out, "utility: 1,500")
	assert.Contains(t, out, "Components: 1,500 (1,500 visible nodes)")
}

func TestPrinter_Search(t *testing.T) {
	a := newAnalyzer(t, isolated(25))
	var buf bytes.Buffer
	plain(&buf).Search("u", a.Describe(a.Index().Search("u")))

	out := buf.String()
	assert.Contains(t, out, "Found 25 nodes matching 'u':")
	assert.Contains(t, out, "  [LOW] [utility] u00 (0 connections)\n      lib/u00.py\n")
	assert.Contains(t, out, "... and 5 more results")
}

func TestPrinter_Changes(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	plain(&buf).Changes(a.Changes([]string{"orders.py", "missing.py"}))

	out := buf.String()
	assert.Contains(t, out, "Pre-Change Analysis for 2 files:")
	assert.Contains(t, out, "(1↓ 0↑) app/orders.py")
	assert.Contains(t, out, "'missing.py' not found in graph")
	assert.Contains(t, out, "Total files potentially affected: 1")
	assert.Contains(t, out, "[endpoint] views.py\n")
}

func TestPrinter_Report(t *testing.T) {
	a := newAnalyzer(t, chain)
	var buf bytes.Buffer
	plain(&buf).Report(a.Report())

	out := buf.String()
	for _, want := range []string{
		"Architecture Overview: demo",
		"app/ 3 nodes",
		"Riskiest Files to Change",
		"Hub Nodes",
		"Dead Code: 0 isolated nodes",
		"All high-risk files have test coverage\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPrinter_Endpoints(t *testing.T) {
	a := newAnalyzer(t, func(b *graph.Builder) {
		b.AddNode("e", "GET /orders", graph.NodeTypeEndpoint, "app/api.ts", 3, graph.Meta("method", "GET", "path", "/orders"))
		b.AddNode("s", "orders.ts", graph.NodeTypeService, "app/orders.ts", 0, nil)
		b.AddNode("m", "Order", graph.NodeTypeCollection, "", 0, nil)
		b.AddEdge("e", "s", graph.EdgeTypeCalls, nil)
		b.AddEdge("s", "m", graph.EdgeTypeDBRead, nil)
	})
	reports, err := a.Endpoints("orders")
	require.NoError(t, err)

	var buf bytes.Buffer
	plain(&buf).Endpoints(reports)
	out := buf.String()
	assert.Contains(t, out, "Method: GET\n   Path: /orders\n")
	assert.Contains(t, out, "   → [calls] orders.ts [service]\n     → [db_read] Order [collection]\n")
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "graph/builder.go", ShortPath("internal/graph/builder.go"))
	assert.Equal(t, "a/b.go", ShortPath("a/b.go"))
}
