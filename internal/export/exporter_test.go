package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
	"github.com/zheng/codegraph/internal/index"
)

var fixedNow = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	b := graph.NewBuilder("shop", graph.WithClock(fixedNow))
	svc := b.AddNode("s1", "orders.py", graph.NodeTypeService, "app/orders.py", 0, nil)
	view := b.AddNode("v1", `say "hi"`, graph.NodeTypeEndpoint, "app/views.py", 0, nil)
	model := b.AddNode(graph.MakeID(graph.ModelKey("Order")), "Order", graph.NodeTypeCollection, "", 0, nil)
	b.AddNode("x1", "unused.py", graph.NodeTypeUtility, "lib/unused.py", 0, nil)
	b.AddEdge(view, svc, graph.EdgeTypeImports, nil)
	b.AddEdge(svc, model, graph.EdgeTypeDBWrite, nil)
	return NewExporter(impact.NewAnalyzer(index.New(b.Export())))
}

func TestExport(t *testing.T) {
	e := newExporter(t)
	opts := DefaultExportOptions()
	opts.Now = fixedNow

	var buf bytes.Buffer
	require.NoError(t, e.Export(&buf, opts))
	out := buf.String()

	assert.Contains(t, out, "# shop code graph\n")
	assert.Contains(t, out, "> Exported: 2026-02-01T12:00:00Z\n")
	assert.Contains(t, out, "> Snapshot: 2026-02-01T12:00:00Z | Nodes: 4 | Edges: 2\n")
	assert.Contains(t, out, "| `app/` | 2 | service:1, endpoint:1 |\n")
	assert.Contains(t, out, "- **Data Layer**: 1 nodes (collection:1)\n")

	// diagram
	assert.Contains(t, out, "```mermaid\nflowchart LR\n")
	assert.Contains(t, out, "    subgraph service [service]\n        ns1[\"orders.py\"]\n    end\n")
	assert.Contains(t, out, `nv1["say #quot;hi#quot;"]`)
	assert.Contains(t, out, "    nv1 -->|imports| ns1\n")
	assert.NotContains(t, out, "nx1[")

	// the service ranks first: (1*3 + 1 + 2) * 1.5
	assert.Contains(t, out, "| `orders.py` | service | app/orders.py | 9 | 1 | LOW |\n")
	assert.Contains(t, out, "### Isolated (1)\n\n- [utility] `unused.py` lib/unused.py\n")
	assert.Contains(t, out, "### No dependents (1)\n\n- [endpoint] `say \"hi\"` app/views.py\n")
}

func TestExport_NoMermaid(t *testing.T) {
	e := newExporter(t)
	var buf bytes.Buffer
	require.NoError(t, e.Export(&buf, ExportOptions{Now: fixedNow}))
	assert.NotContains(t, buf.String(), "mermaid")
	assert.Contains(t, buf.String(), "## Change risk")
}

func TestExportChanges(t *testing.T) {
	e := newExporter(t)

	var buf bytes.Buffer
	require.NoError(t, e.ExportChanges(&buf, nil, ExportOptions{}))
	assert.Contains(t, buf.String(), "No changes detected")

	buf.Reset()
	require.NoError(t, e.ExportChanges(&buf, []string{"app/orders.py", "gone.py"}, ExportOptions{Now: fixedNow}))
	out := buf.String()
	assert.Contains(t, out, "> Changed files: 2 | Directly affected: 1\n")
	assert.Contains(t, out, "- `app/orders.py` LOW (1 dependents)\n")
	assert.Contains(t, out, "- `gone.py` (not in graph)\n")
	assert.Contains(t, out, "## Impact analysis: orders.py")
	assert.Contains(t, out, "| say \"hi\" | endpoint | app/views.py |")
}

func TestMermaid(t *testing.T) {
	e := newExporter(t)
	nodes, err := e.a.Find("orders.py")
	require.NoError(t, err)
	view, ok := e.a.Index().Node("v1")
	require.True(t, ok)

	var buf bytes.Buffer
	e.Mermaid(&buf, append(nodes, view))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
	assert.Contains(t, out, "    nv1 -->|imports| ns1\n")
	assert.NotContains(t, out, "db_write")
}
