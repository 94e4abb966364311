package display

import (
	"strings"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
)

// Node prints one node with its location, risk and metadata
func (p *Printer) Node(n graph.Node, risk string) {
	p.printf("  %s\n", n.Label)
	p.printf("    Type: %s\n", n.Type)
	p.printf("    File: %s\n", fileOf(n))
	if n.Line > 0 {
		p.printf("    Line: %d\n", n.Line)
	}
	if risk != "" {
		p.printf("    Risk: %s\n", risk)
	}
	for _, f := range n.Metadata {
		if f.Value != "" {
			p.printf("    %s: %s\n", f.Key, f.Value)
		}
	}
}

// Files prints the connection report of each matched node
func (p *Printer) Files(reports []*impact.FileReport) {
	for _, r := range reports {
		p.printf("%s%s\n", p.icon("📄"), r.Node.Label)
		p.Node(r.Node, p.Tier(r.Risk.Tier)+" ("+r.Risk.Detail+")")
		p.edgeGroups("→ Depends on", r.DependsOn)
		p.edgeGroups("← Depended on by", r.DependedOnBy)
		p.println()
	}
}

func (p *Printer) edgeGroups(title string, groups []impact.EdgeGroup) {
	total := 0
	for _, g := range groups {
		total += len(g.Nodes)
	}
	if total == 0 {
		return
	}
	p.printf("\n  %s (%d):\n", title, total)
	for _, g := range groups {
		shown := p.limit(len(g.Nodes), groupLimit)
		p.printf("    [%s] %s\n", g.Type, labels(g.Nodes, shown))
		p.more("      ", shown, len(g.Nodes))
	}
}

// Impact prints an impact report level by level
func (p *Printer) Impact(r *impact.ImpactReport) {
	p.printf("%sImpact Analysis: %s\n", p.icon("💥"), r.Target.Label)
	p.printf("   Risk: %s (%s)\n\n", p.Tier(r.Risk.Tier), r.Risk.Detail)

	if r.Total == 0 {
		p.printf("  %sNo other files depend on this, safe to change\n", p.icon("✅"))
	}
	for _, lvl := range r.Levels {
		p.printf("  %s %s (%d files):\n", strings.Repeat("→", lvl.Depth), impact.LevelName(lvl.Depth), len(lvl.Nodes))
		shown := p.limit(len(lvl.Nodes), levelLimit)
		for _, n := range lvl.Nodes[:shown] {
			p.printf("    [%s] %s (%s)\n", n.Type, n.Label, n.File)
		}
		p.more("    ", shown, len(lvl.Nodes))
		p.println()
	}
	if r.Total > 0 {
		p.printf("  %sTotal affected: %s files across %d levels\n", p.icon("📊"), count(r.Total), len(r.Levels))
	}

	if len(r.DependsOn) > 0 {
		p.printf("\n  %sThis file depends on %d other nodes:\n", p.icon("⚠️ "), len(r.DependsOn))
		shown := p.limit(len(r.DependsOn), dependsLimit)
		for _, l := range r.DependsOn[:shown] {
			p.printf("    [%s] %s (%s)\n", l.Type, l.Node.Label, l.Node.File)
		}
	}
	p.println()
}

// Dependencies prints the outgoing neighbours of a node
func (p *Printer) Dependencies(n *impact.Neighbors) {
	p.printf("%sDependencies of: %s (%s)\n", p.icon("📤"), n.Target.Label, n.Target.File)
	p.neighbors(n, "→", "No outgoing dependencies")
}

// Dependents prints the incoming neighbours of a node
func (p *Printer) Dependents(n *impact.Neighbors) {
	p.printf("%sDependents of: %s (%s)\n", p.icon("📥"), n.Target.Label, n.Target.File)
	p.neighbors(n, "←", "No files depend on this")
}

func (p *Printer) neighbors(n *impact.Neighbors, arrow, empty string) {
	if n.Total == 0 {
		p.printf("  %s\n\n", empty)
		return
	}
	for _, g := range n.Groups {
		p.printf("\n  [%s]:\n", g.Type)
		for _, m := range g.Nodes {
			p.printf("    %s %s (%s)\n", arrow, m.Label, m.File)
		}
	}
	p.println()
}

// Models prints the readers and writers of each matched model
func (p *Printer) Models(reports []impact.ModelReport) {
	for _, r := range reports {
		p.printf("%sModel: %s (%s)\n", p.icon("🗄️ "), r.Model.Label, r.Model.File)
		p.printf("   Risk: %s (%s)\n", p.Tier(r.Risk.Tier), r.Risk.Detail)
		p.links(p.icon("📖")+"Read by", r.Readers, false)
		p.links(p.icon("✏️ ")+"Written by", r.Writers, false)
		p.links(p.icon("🔗")+"Other connections", r.Other, true)
		p.println()
	}
}

func (p *Printer) links(title string, links []impact.Link, withType bool) {
	if len(links) == 0 {
		return
	}
	p.printf("\n  %s (%d):\n", title, len(links))
	shown := len(links)
	if withType {
		shown = p.limit(shown, levelLimit)
	}
	for _, l := range links[:shown] {
		if withType {
			p.printf("    [%s] %s (%s)\n", l.Type, l.Node.Label, l.Node.File)
			continue
		}
		p.printf("    %s [%s] (%s)\n", l.Node.Label, l.Node.Type, l.Node.File)
	}
}

// Hubs prints the most connected nodes
func (p *Printer) Hubs(hubs []impact.Hub) {
	p.printf("%sTop %d Hub Nodes (highest risk to change):\n\n", p.icon("🔥"), len(hubs))
	for i, h := range hubs {
		p.printf("  %2d. %s %s [%s] %s total (%d↓ %d↑)\n      %s\n",
			i+1, p.Tier(h.Risk.Tier), h.Node.Label, h.Node.Type, count(h.Degree), h.Incoming, h.Outgoing, h.Node.File)
	}
}

// Cluster prints the connected component of a node grouped by type
func (p *Printer) Cluster(c *impact.ClusterResult) {
	p.printf("%sCluster containing: %s\n\n", p.icon("🔗"), c.Target.Label)
	p.printf("  Cluster size: %s nodes\n\n", count(c.Size()))
	for _, g := range c.Groups {
		p.printf("  [%s] (%d):\n", g.Type, len(g.Nodes))
		shown := p.limit(len(g.Nodes), groupLimit)
		for _, n := range g.Nodes[:shown] {
			p.printf("    %s (%s)\n", n.Label, n.File)
		}
		p.more("    ", shown, len(g.Nodes))
	}
}

// Path prints a shortest path with the edge type of every hop
func (p *Printer) Path(r *impact.PathResult, from, to string) {
	end, ok := r.End()
	if !ok {
		reason := ""
		if r.Capped {
			reason = " (search limit reached)"
		}
		p.printf("%sNo path found between '%s' and '%s'%s\n", p.icon("❌"), from, to, reason)
		return
	}
	p.printf("%sPath from %s → %s:\n\n", p.icon("🔗"), r.Start.Label, end.Label)
	for i, n := range r.Nodes {
		prefix := "  "
		if i > 0 {
			prefix = "  → "
		}
		p.printf("%s[%s] %s (%s)\n", prefix, n.Type, n.Label, n.File)
		if i < len(r.Hops) {
			arrow := "↓"
			if !r.Hops[i].Forward {
				arrow = "↑"
			}
			p.printf("    %s [%s]\n", arrow, r.Hops[i].Type)
		}
	}
}

// Search prints the nodes matching a query
func (p *Printer) Search(query string, matches []impact.Hub) {
	p.printf("%sFound %s nodes matching '%s':\n\n", p.icon("🔍"), count(len(matches)), query)
	shown := p.limit(len(matches), searchLimit)
	for _, m := range matches[:shown] {
		p.printf("  %s [%s] %s (%d connections)\n      %s\n", p.Tier(m.Risk.Tier), m.Node.Type, m.Node.Label, m.Degree, m.Node.File)
	}
	if shown < len(matches) {
		p.printf("\n  ... and %d more results\n", len(matches)-shown)
	}
}

// Nodes prints a plain node list under a title
func (p *Printer) Nodes(title string, nodes []graph.Node) {
	p.printf("%s (%s):\n", title, count(len(nodes)))
	for _, n := range nodes {
		p.printf("  [%s] %s (%s)\n", n.Type, n.Label, n.File)
	}
}

// Stats prints the project summary
func (p *Printer) Stats(s *impact.Stats) {
	p.printf("%sProject: %s\n", p.icon("📊"), s.Project)
	p.printf("   Generated: %s (%s)\n", s.GeneratedAt, p.Age(s.GeneratedAt))
	p.printf("   Nodes: %s\n", count(s.TotalNodes))
	p.printf("   Edges: %s\n", count(s.Edges))
	if s.GhostEdges > 0 {
		p.printf("   %sGhost edges filtered: %d (edges pointing to non-existent nodes)\n", p.icon("⚠️ "), s.GhostEdges)
	}
	p.printf("   Components: %s (%s visible nodes)\n", count(s.Components), count(s.Visible))

	p.println("\n  Node Types:")
	for _, tc := range s.NodeTypes {
		p.printf("    %s: %s\n", tc.Type, count(tc.Count))
	}
	p.println("\n  Edge Types:")
	for _, tc := range s.EdgeTypes {
		p.printf("    %s: %s\n", tc.Type, count(tc.Count))
	}
	p.printf("\n  Top %d Hub Nodes:\n", len(s.TopHubs))
	for _, h := range s.TopHubs {
		p.printf("    %s [%s] %d connections\n", h.Node.Label, h.Node.Type, h.Degree)
	}
}

// DeadCode prints isolated and dependent-free nodes
func (p *Printer) DeadCode(d *impact.DeadCodeResult) {
	p.printf("%sPotential Dead Code Analysis:\n\n", p.icon("🗑️ "))
	if len(d.Isolated) == 0 {
		p.printf("  No completely isolated nodes%s\n", p.suffix("✅"))
	} else {
		p.printf("  Completely isolated (%s nodes):\n\n", count(len(d.Isolated)))
		for _, g := range impact.GroupByType(d.Isolated) {
			p.printf("  [%s] (%d):\n", g.Type, len(g.Nodes))
			shown := p.limit(len(g.Nodes), groupLimit)
			for _, n := range g.Nodes[:shown] {
				p.printf("    %s (%s)\n", n.Label, n.File)
			}
			p.hint(shown, len(g.Nodes))
			p.println()
		}
	}

	if len(d.NoDependents) > 0 {
		p.printf("\n  No incoming dependencies (%s nodes):\n", count(len(d.NoDependents)))
		shown := p.limit(len(d.NoDependents), noDepsLimit)
		for _, n := range d.NoDependents[:shown] {
			p.printf("    [%s] %s (%s)\n", n.Type, n.Label, n.File)
		}
		p.hint(shown, len(d.NoDependents))
	}
}

func (p *Printer) hint(shown, n int) {
	if shown < n {
		p.printf("    ... +%d more (use --all to see all)\n", n-shown)
	}
}

func (p *Printer) suffix(s string) string {
	if !p.icons {
		return ""
	}
	return " " + s
}

// RiskyFiles prints nodes ranked by change risk
func (p *Printer) RiskyFiles(ranked []impact.RankedNode) {
	p.printf("%sTop %d Riskiest Files to Change:\n\n", p.icon("⚠️ "), len(ranked))
	for i, r := range ranked {
		p.printf("  %2d. %s %s [%s] risk score: %.0f (%d dependents)\n      %s\n",
			i+1, p.Tier(r.Risk.Tier), r.Node.Label, r.Node.Type, r.Score, r.Incoming, r.Node.File)
	}
}

// Endpoints prints each endpoint with its request chain
func (p *Printer) Endpoints(reports []impact.EndpointReport) {
	shown := p.limit(len(reports), endpointLimit)
	for _, r := range reports[:shown] {
		p.printf("%sEndpoint: %s\n", p.icon("🌐"), r.Endpoint.Label)
		p.printf("   File: %s\n", r.Endpoint.File)
		if r.Method != "" {
			p.printf("   Method: %s\n", r.Method)
		}
		if r.Path != "" {
			p.printf("   Path: %s\n", r.Path)
		}
		p.println("\n   Request chain:")
		for _, s := range r.Chain {
			p.printf("   %s→ [%s] %s [%s]\n", strings.Repeat("  ", s.Depth), s.Type, s.Node.Label, s.Node.Type)
		}
		p.println()
	}
}

// Overview prints the architecture summary
func (p *Printer) Overview(ov *impact.Overview) {
	p.printf("%sArchitecture Overview: %s\n", p.icon("🏗️ "), ov.Project)
	p.printf("   %s nodes, %s edges\n\n", count(ov.TotalNodes), count(ov.TotalEdges))

	p.printf("  %sDirectory breakdown:\n", p.icon("📁"))
	for _, d := range ov.Dirs {
		p.printf("    %s/ %s nodes (%s)\n", d.Name, count(d.Count), typeCounts(d.TopTypes))
	}
	p.printf("\n  %sKey relationships:\n", p.icon("🔗"))
	for _, tc := range ov.EdgeTypes {
		p.printf("    %s: %s\n", tc.Type, count(tc.Count))
	}
	p.printf("\n  %sLayers:\n", p.icon("🏛️ "))
	for _, l := range ov.Layers {
		p.printf("    %s: %s nodes (%s)\n", l.Name, count(l.Count), typeCounts(l.Types))
	}
}

func typeCounts(tc graph.TypeCounts) string {
	parts := make([]string, 0, len(tc))
	for _, c := range tc {
		parts = append(parts, c.Type+":"+count(c.Count))
	}
	return strings.Join(parts, ", ")
}

// Report prints the full project report
func (p *Printer) Report(r *impact.Report) {
	p.Overview(r.Overview)
	p.println()
	if r.GhostEdges > 0 {
		p.printf("%s%d ghost edges filtered (edges pointing to non-existent nodes)\n\n", p.icon("⚠️ "), r.GhostEdges)
	}
	p.RiskyFiles(r.Risky)
	p.println()
	p.Hubs(r.Hubs)
	p.println()

	p.printf("%sDead Code: %s isolated nodes\n", p.icon("🗑️ "), count(r.IsolatedN))
	for _, g := range r.Isolated {
		p.printf("  [%s] (%d): %s%s\n", g.Type, len(g.Nodes), labels(g.Nodes, summaryLimit), plus(len(g.Nodes)))
	}
	p.println()

	p.printf("%sCoverage Gaps (high-risk files without test connections):\n", p.icon("🧪"))
	if len(r.CoverageGaps) == 0 {
		p.printf("  All high-risk files have test coverage%s\n", p.suffix("✅"))
	}
	for _, h := range r.CoverageGaps {
		p.printf("  %s %s [%s] (%s)\n", p.Tier(h.Risk.Tier), h.Node.Label, h.Node.Type, h.Node.File)
	}
}

func plus(n int) string {
	if n <= summaryLimit {
		return ""
	}
	return " +" + count(n-summaryLimit)
}

// Changes prints the pre-change analysis of a set of paths
func (p *Printer) Changes(r *impact.ChangesReport) {
	p.printf("%sPre-Change Analysis for %d files:\n\n", p.icon("📋"), len(r.Entries))
	for _, e := range r.Entries {
		if e.Node == nil {
			p.printf("  %s'%s' not found in graph\n", p.icon("❌"), e.Query)
			continue
		}
		p.printf("  %s %s (%d↓ %d↑) %s\n", p.Tier(e.Risk.Tier), e.Node.Label, e.Incoming, e.Outgoing, e.Node.File)
	}
	if len(r.Affected) == 0 {
		return
	}
	p.printf("\n  %sTotal files potentially affected: %s\n", p.icon("📊"), count(len(r.Affected)))
	for _, g := range r.ByType {
		p.printf("    [%s] %s%s\n", g.Type, labels(g.Nodes, summaryLimit), plus(len(g.Nodes)))
	}
}
