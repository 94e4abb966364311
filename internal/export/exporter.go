package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
)

// Exporter generates a Markdown architecture document from a loaded graph
type Exporter struct {
	a *impact.Analyzer
}

// NewExporter creates a new exporter
func NewExporter(a *impact.Analyzer) *Exporter {
	return &Exporter{a: a}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	IncludeMermaid bool
	MermaidHubs    int // hub nodes drawn in the diagram
	Top            int // rows in the ranked tables
	Now            func() time.Time
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeMermaid: true,
		MermaidHubs:    15,
		Top:            20,
		Now:            time.Now,
	}
}

// Export writes the complete document
func (e *Exporter) Export(w io.Writer, opts ExportOptions) error {
	opts = withDefaults(opts)
	ov := e.a.Overview()

	fmt.Fprintf(w, "# %s code graph\n\n", ov.Project)
	fmt.Fprintf(w, "> Exported: %s\n", opts.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "> Snapshot: %s | Nodes: %d | Edges: %d\n\n", ov.GeneratedAt, ov.TotalNodes, ov.TotalEdges)

	e.writeStructure(w, ov)
	if opts.IncludeMermaid && ov.TotalNodes > 0 {
		e.writeDiagram(w, opts.MermaidHubs)
	}
	e.writeRiskTable(w, opts.Top)
	e.writeDeadCode(w)
	return nil
}

func withDefaults(opts ExportOptions) ExportOptions {
	def := DefaultExportOptions()
	if opts.MermaidHubs <= 0 {
		opts.MermaidHubs = def.MermaidHubs
	}
	if opts.Top <= 0 {
		opts.Top = def.Top
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return opts
}

// writeStructure writes the directory breakdown, relationships and layers
func (e *Exporter) writeStructure(w io.Writer, ov *impact.Overview) {
	fmt.Fprintf(w, "## Structure\n\n")
	fmt.Fprintf(w, "| Directory | Nodes | Top types |\n")
	fmt.Fprintf(w, "|-----------|-------|-----------|\n")
	for _, d := range ov.Dirs {
		fmt.Fprintf(w, "| `%s/` | %d | %s |\n", d.Name, d.Count, typeList(d.TopTypes))
	}
	fmt.Fprintf(w, "\n")

	if len(ov.Layers) > 0 {
		fmt.Fprintf(w, "### Layers\n\n")
		for _, l := range ov.Layers {
			fmt.Fprintf(w, "- **%s**: %d nodes (%s)\n", l.Name, l.Count, typeList(l.Types))
		}
		fmt.Fprintf(w, "\n")
	}

	if len(ov.EdgeTypes) > 0 {
		fmt.Fprintf(w, "### Relationships\n\n")
		for _, tc := range ov.EdgeTypes {
			fmt.Fprintf(w, "- `%s`: %d\n", tc.Type, tc.Count)
		}
		fmt.Fprintf(w, "\n")
	}
}

// writeDiagram writes a Mermaid flowchart of the top hubs
func (e *Exporter) writeDiagram(w io.Writer, top int) {
	hubs := e.a.Hubs(top)
	if len(hubs) == 0 {
		return
	}
	nodes := make([]graph.Node, 0, len(hubs))
	for _, h := range hubs {
		nodes = append(nodes, h.Node)
	}
	fmt.Fprintf(w, "## Hub diagram\n\n```mermaid\n")
	e.Mermaid(w, nodes)
	fmt.Fprintf(w, "```\n\n")
}

// Mermaid writes a flowchart of nodes and the edges among them, one subgraph
// per node type. The fence is left to the caller.
func (e *Exporter) Mermaid(w io.Writer, nodes []graph.Node) {
	fmt.Fprintf(w, "flowchart LR\n")

	drawn := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		drawn[n.ID] = true
	}
	for _, g := range impact.GroupByType(nodes) {
		fmt.Fprintf(w, "    subgraph %s [%s]\n", g.Type, g.Type)
		for _, n := range g.Nodes {
			fmt.Fprintf(w, "        %s[\"%s\"]\n", makeNodeID(n.ID), escapeLabel(n.Label))
		}
		fmt.Fprintf(w, "    end\n")
	}

	fmt.Fprintf(w, "\n")
	for _, edge := range e.a.Index().Edges() {
		if drawn[edge.Source] && drawn[edge.Target] {
			fmt.Fprintf(w, "    %s -->|%s| %s\n", makeNodeID(edge.Source), edge.Type, makeNodeID(edge.Target))
		}
	}
}

// writeRiskTable writes the ranked change-risk table
func (e *Exporter) writeRiskTable(w io.Writer, top int) {
	fmt.Fprintf(w, "## Change risk\n\n")
	fmt.Fprintf(w, "| Node | Type | File | Score | Dependents | Risk |\n")
	fmt.Fprintf(w, "|------|------|------|-------|------------|------|\n")
	for _, r := range e.a.RiskyFiles(top) {
		fmt.Fprintf(w, "| `%s` | %s | %s | %.0f | %d | %s |\n",
			r.Node.Label, r.Node.Type, r.Node.File, r.Score, r.Incoming, r.Risk.Tier)
	}
	fmt.Fprintf(w, "\n")
}

// writeDeadCode writes the isolated and dependent-free node lists
func (e *Exporter) writeDeadCode(w io.Writer) {
	dead := e.a.DeadCode()
	fmt.Fprintf(w, "## Potential dead code\n\n")
	if len(dead.Isolated) == 0 && len(dead.NoDependents) == 0 {
		fmt.Fprintf(w, "_No isolated or unreferenced nodes_\n")
		return
	}
	if len(dead.Isolated) > 0 {
		fmt.Fprintf(w, "### Isolated (%d)\n\n", len(dead.Isolated))
		for _, g := range impact.GroupByType(dead.Isolated) {
			for _, n := range g.Nodes {
				fmt.Fprintf(w, "- [%s] `%s` %s\n", g.Type, n.Label, n.File)
			}
		}
		fmt.Fprintf(w, "\n")
	}
	if len(dead.NoDependents) > 0 {
		fmt.Fprintf(w, "### No dependents (%d)\n\n", len(dead.NoDependents))
		for _, n := range dead.NoDependents {
			fmt.Fprintf(w, "- [%s] `%s` %s\n", n.Type, n.Label, n.File)
		}
		fmt.Fprintf(w, "\n")
	}
}

// ExportChanges writes an impact document for a set of changed files
func (e *Exporter) ExportChanges(w io.Writer, changed []string, opts ExportOptions) error {
	opts = withDefaults(opts)
	if len(changed) == 0 {
		fmt.Fprintf(w, "# Change report\n\n> No changes detected\n")
		return nil
	}

	report := e.a.Changes(changed)
	fmt.Fprintf(w, "# Change report\n\n")
	fmt.Fprintf(w, "> Exported: %s\n", opts.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "> Changed files: %d | Directly affected: %d\n\n", len(changed), len(report.Affected))

	fmt.Fprintf(w, "## Changed\n\n")
	for _, entry := range report.Entries {
		if entry.Node == nil {
			fmt.Fprintf(w, "- `%s` (not in graph)\n", entry.Query)
			continue
		}
		fmt.Fprintf(w, "- `%s` %s (%d dependents)\n", entry.Node.File, entry.Risk.Tier, entry.Incoming)
	}
	fmt.Fprintf(w, "\n")

	for _, entry := range report.Entries {
		if entry.Node == nil || entry.Incoming == 0 {
			continue
		}
		r := e.a.Impact(entry.Node.ID, impact.DefaultImpactDepth)
		if _, err := io.WriteString(w, r.FormatMarkdown()); err != nil {
			return err
		}
	}
	return nil
}

func typeList(tc graph.TypeCounts) string {
	parts := make([]string, 0, len(tc))
	for _, c := range tc {
		parts = append(parts, fmt.Sprintf("%s:%d", c.Type, c.Count))
	}
	return strings.Join(parts, ", ")
}

// makeNodeID returns a valid Mermaid node ID for a graph node ID
func makeNodeID(id string) string {
	return "n" + id
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
