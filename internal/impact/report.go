package impact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// FileReport describes one node's connections in both directions
type FileReport struct {
	Node         graph.Node  `json:"node"`
	Risk         index.Risk  `json:"risk"`
	DependsOn    []EdgeGroup `json:"depends_on"`
	DependedOnBy []EdgeGroup `json:"depended_on_by"`
}

// File builds the connection report for id
func (a *Analyzer) File(id string) *FileReport {
	n, _ := a.idx.Node(id)
	return &FileReport{
		Node:         n,
		Risk:         a.idx.Risk(id),
		DependsOn:    a.groupByEdgeType(a.idx.Outgoing(id)),
		DependedOnBy: a.groupByEdgeType(a.idx.Incoming(id)),
	}
}

// ModelReport lists the readers and writers of a data model
type ModelReport struct {
	Model   graph.Node `json:"model"`
	Risk    index.Risk `json:"risk"`
	Readers []Link     `json:"readers"`
	Writers []Link     `json:"writers"`
	Other   []Link     `json:"other"`
}

// Models reports every collection whose label contains name
func (a *Analyzer) Models(name string) ([]ModelReport, error) {
	models := a.idx.FindModel(name)
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: model %q", ErrNoMatch, name)
	}
	out := make([]ModelReport, 0, len(models))
	for _, m := range models {
		r := ModelReport{Model: m, Risk: a.idx.Risk(m.ID)}
		for _, l := range a.links(a.idx.Incoming(m.ID)) {
			switch l.Type {
			case graph.EdgeTypeDBRead:
				r.Readers = append(r.Readers, l)
			case graph.EdgeTypeDBWrite:
				r.Writers = append(r.Writers, l)
			default:
				r.Other = append(r.Other, l)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// EndpointChainDepth bounds the request chain trace
const EndpointChainDepth = 4

// ChainStep is one edge of a traced request chain
type ChainStep struct {
	Depth int            `json:"depth"`
	Type  graph.EdgeType `json:"type"`
	Node  graph.Node     `json:"node"`
}

// EndpointReport traces what an endpoint reaches
type EndpointReport struct {
	Endpoint graph.Node  `json:"endpoint"`
	Method   string      `json:"method,omitempty"`
	Path     string      `json:"path,omitempty"`
	Chain    []ChainStep `json:"chain"`
}

// Endpoints finds endpoint nodes by file first and label second, and traces
// the request chain of each
func (a *Analyzer) Endpoints(query string) ([]EndpointReport, error) {
	var eps []graph.Node
	for _, n := range a.idx.FindByFile(query) {
		if n.Type == graph.NodeTypeEndpoint {
			eps = append(eps, n)
		}
	}
	if len(eps) == 0 {
		eps = a.idx.FindEndpoint(query)
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: endpoint %q", ErrNoMatch, query)
	}

	out := make([]EndpointReport, 0, len(eps))
	for _, ep := range eps {
		r := EndpointReport{
			Endpoint: ep,
			Method:   ep.Metadata.Value("method"),
			Path:     ep.Metadata.Value("path"),
		}
		a.traceChain(ep.ID, 0, map[string]bool{}, &r.Chain)
		out = append(out, r)
	}
	return out, nil
}

// traceChain follows outgoing edges depth first. The visited set is shared
// across the whole trace, so a node is expanded at most once.
func (a *Analyzer) traceChain(id string, depth int, visited map[string]bool, steps *[]ChainStep) {
	if depth > EndpointChainDepth || visited[id] {
		return
	}
	visited[id] = true
	for _, ad := range a.idx.Outgoing(id) {
		n, ok := a.idx.Node(ad.Other)
		if !ok {
			continue
		}
		*steps = append(*steps, ChainStep{Depth: depth, Type: ad.Edge.Type, Node: n})
		a.traceChain(ad.Other, depth+1, visited, steps)
	}
}

// DirSummary counts nodes under one top-level directory
type DirSummary struct {
	Name     string           `json:"name"`
	Count    int              `json:"count"`
	TopTypes graph.TypeCounts `json:"top_types"`
}

// Layer groups node types into an architectural layer
type Layer struct {
	Name  string           `json:"name"`
	Count int              `json:"count"`
	Types graph.TypeCounts `json:"types"`
}

var layers = []struct {
	name  string
	types []graph.NodeType
}{
	{"API Layer", []graph.NodeType{graph.NodeTypeEndpoint, graph.NodeTypeRouter, graph.NodeTypeSerializer, graph.NodeTypeMiddleware}},
	{"Business Logic", []graph.NodeType{graph.NodeTypeService, graph.NodeTypeTask, graph.NodeTypeUtility}},
	{"Data Layer", []graph.NodeType{graph.NodeTypeCollection, graph.NodeTypeCacheKey}},
	{"Frontend", []graph.NodeType{graph.NodeTypeComponent, graph.NodeTypeTemplate}},
	{"Integration", []graph.NodeType{graph.NodeTypeWebhook, graph.NodeTypeExternalAPI, graph.NodeTypeEvent}},
	{"Quality", []graph.NodeType{graph.NodeTypeTest}},
}

// RootDir names the group of nodes that live at the project root or carry no
// file
const RootDir = "root"

// Overview is a compact architecture summary
type Overview struct {
	Project     string           `json:"project"`
	GeneratedAt string           `json:"generated_at"`
	TotalNodes  int              `json:"total_nodes"`
	TotalEdges  int              `json:"total_edges"`
	Dirs        []DirSummary     `json:"dirs"`
	EdgeTypes   graph.TypeCounts `json:"edge_types"`
	Layers      []Layer          `json:"layers"`
}

// Overview summarizes the graph by directory, edge type and layer. Directories
// holding a single node are left out.
func (a *Analyzer) Overview() *Overview {
	snap := a.idx.Snapshot()
	ov := &Overview{
		Project:     snap.Project,
		GeneratedAt: snap.GeneratedAt,
		TotalNodes:  snap.Stats.TotalNodes,
		TotalEdges:  snap.Stats.TotalEdges,
		EdgeTypes:   snap.Stats.EdgeTypes.Sorted(),
	}

	var dirNames []string
	dirTypes := make(map[string][]string)
	for _, n := range a.idx.Nodes() {
		dir := RootDir
		if i := strings.Index(n.File, "/"); i > 0 {
			dir = n.File[:i]
		}
		if _, ok := dirTypes[dir]; !ok {
			dirNames = append(dirNames, dir)
		}
		dirTypes[dir] = append(dirTypes[dir], string(n.Type))
	}
	var dirs []DirSummary
	for _, name := range dirNames {
		types := dirTypes[name]
		if len(types) < 2 {
			continue
		}
		top := graph.CountTypes(types)
		if len(top) > 3 {
			top = top[:3]
		}
		dirs = append(dirs, DirSummary{Name: name, Count: len(types), TopTypes: top})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		return dirs[i].Count > dirs[j].Count
	})
	ov.Dirs = dirs

	nodeTypes := snap.Stats.NodeTypes
	for _, l := range layers {
		layer := Layer{Name: l.name}
		for _, t := range l.types {
			if c := nodeTypes.Get(string(t)); c > 0 {
				layer.Count += c
				layer.Types = append(layer.Types, graph.TypeCount{Type: string(t), Count: c})
			}
		}
		if layer.Count > 0 {
			ov.Layers = append(ov.Layers, layer)
		}
	}
	return ov
}

// Stats is the summary printed by the stats command
type Stats struct {
	Project     string           `json:"project"`
	GeneratedAt string           `json:"generated_at"`
	TotalNodes  int              `json:"total_nodes"`
	Edges       int              `json:"edges"`
	GhostEdges  int              `json:"ghost_edges"`
	NodeTypes   graph.TypeCounts `json:"node_types"`
	EdgeTypes   graph.TypeCounts `json:"edge_types"`
	TopHubs     []Hub            `json:"top_hubs"`
	Components  int              `json:"components"`
	Visible     int              `json:"visible_nodes"`
}

// Stats summarizes the snapshot. Component and visible counts are taken over
// the subgraph selected by f.
func (a *Analyzer) Stats(f Filter) *Stats {
	snap := a.idx.Snapshot()
	return &Stats{
		Project:     snap.Project,
		GeneratedAt: snap.GeneratedAt,
		TotalNodes:  snap.Stats.TotalNodes,
		Edges:       len(a.idx.Edges()),
		GhostEdges:  a.idx.GhostEdges(),
		NodeTypes:   snap.Stats.NodeTypes.Sorted(),
		EdgeTypes:   snap.Stats.EdgeTypes.Sorted(),
		TopHubs:     a.Hubs(5),
		Components:  a.CountComponents(f),
		Visible:     len(a.VisibleNodes(f)),
	}
}

// coverage gap thresholds
const (
	gapCandidates = 50
	gapMinDegree  = 8
	gapLimit      = 10
)

var gapExempt = map[graph.NodeType]bool{
	graph.NodeTypeTest:      true,
	graph.NodeTypeConfig:    true,
	graph.NodeTypeRouter:    true,
	graph.NodeTypeComponent: true,
}

// CoverageGaps returns well-connected nodes that have no edge to or from a test
func (a *Analyzer) CoverageGaps() []Hub {
	tested := make(map[string]bool)
	for _, e := range a.idx.Edges() {
		src, _ := a.idx.Node(e.Source)
		tgt, _ := a.idx.Node(e.Target)
		if src.Type == graph.NodeTypeTest {
			tested[e.Target] = true
		}
		if tgt.Type == graph.NodeTypeTest {
			tested[e.Source] = true
		}
	}

	var gaps []Hub
	for _, h := range a.Hubs(gapCandidates) {
		if h.Degree >= gapMinDegree && !gapExempt[h.Node.Type] && !tested[h.Node.ID] {
			gaps = append(gaps, h)
		}
	}
	return truncate(gaps, gapLimit)
}

// Report bundles the project-wide summaries
type Report struct {
	Overview     *Overview    `json:"overview"`
	GhostEdges   int          `json:"ghost_edges"`
	Risky        []RankedNode `json:"risky"`
	Hubs         []Hub        `json:"hubs"`
	Isolated     []TypeGroup  `json:"isolated"`
	IsolatedN    int          `json:"isolated_count"`
	CoverageGaps []Hub        `json:"coverage_gaps"`
}

// Report builds the full project report
func (a *Analyzer) Report() *Report {
	dead := a.DeadCode()
	return &Report{
		Overview:     a.Overview(),
		GhostEdges:   a.idx.GhostEdges(),
		Risky:        a.RiskyFiles(10),
		Hubs:         a.Hubs(10),
		Isolated:     GroupByType(dead.Isolated),
		IsolatedN:    len(dead.Isolated),
		CoverageGaps: a.CoverageGaps(),
	}
}

// ChangeEntry is the pre-change summary of one requested path
type ChangeEntry struct {
	Query    string      `json:"query"`
	Node     *graph.Node `json:"node,omitempty"`
	Risk     index.Risk  `json:"risk"`
	Incoming int         `json:"incoming"`
	Outgoing int         `json:"outgoing"`
}

// ChangesReport aggregates the direct dependents of a set of changed files
type ChangesReport struct {
	Entries  []ChangeEntry `json:"entries"`
	Affected []graph.Node  `json:"affected"`
	ByType   []TypeGroup   `json:"by_type"`
}

// Changes resolves each path to its first matching node and collects the union
// of their direct dependents in discovery order
func (a *Analyzer) Changes(paths []string) *ChangesReport {
	res := &ChangesReport{}
	seen := make(map[string]bool)
	for _, p := range paths {
		entry := ChangeEntry{Query: p}
		nodes := a.idx.FindByFile(p)
		if len(nodes) == 0 {
			res.Entries = append(res.Entries, entry)
			continue
		}
		n := nodes[0]
		entry.Node = &n
		entry.Risk = a.idx.Risk(n.ID)
		entry.Incoming = len(a.idx.Incoming(n.ID))
		entry.Outgoing = len(a.idx.Outgoing(n.ID))
		res.Entries = append(res.Entries, entry)

		for _, ad := range a.idx.Incoming(n.ID) {
			if seen[ad.Other] {
				continue
			}
			seen[ad.Other] = true
			dep, _ := a.idx.Node(ad.Other)
			res.Affected = append(res.Affected, dep)
		}
	}
	res.ByType = GroupByType(res.Affected)
	return res
}
