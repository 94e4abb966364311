package impact

import (
	"strings"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// DefaultImpactDepth is the depth bound used by the impact command
const DefaultImpactDepth = 3

// ImpactLevel holds the nodes first discovered at one BFS depth
type ImpactLevel struct {
	Depth int          `json:"depth"`
	Nodes []graph.Node `json:"nodes"`
}

// ImpactReport is the result of a reverse BFS from a target node
type ImpactReport struct {
	Target    graph.Node    `json:"target"`
	Risk      index.Risk    `json:"risk"`
	MaxDepth  int           `json:"max_depth"`
	Levels    []ImpactLevel `json:"levels"`
	Total     int           `json:"total"`
	DependsOn []Link        `json:"depends_on"`
}

// Impact walks incoming edges from id to find every consumer affected by a
// change.
//
// The depth bound is tested when a node is dequeued, after it has already been
// recorded, so consumers up to maxDepth+1 hops away are reported.
func (a *Analyzer) Impact(id string, maxDepth int) *ImpactReport {
	target, _ := a.idx.Node(id)
	report := &ImpactReport{
		Target:    target,
		Risk:      a.idx.Risk(id),
		MaxDepth:  maxDepth,
		DependsOn: a.links(a.idx.Outgoing(id)),
	}

	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []item{{id, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > maxDepth {
			continue
		}
		for _, ad := range a.idx.Incoming(cur.id) {
			if visited[ad.Other] {
				continue
			}
			visited[ad.Other] = true
			d := cur.depth + 1
			// BFS discovers depths in non-decreasing order
			if n := len(report.Levels); n == 0 || report.Levels[n-1].Depth != d {
				report.Levels = append(report.Levels, ImpactLevel{Depth: d})
			}
			n, _ := a.idx.Node(ad.Other)
			last := &report.Levels[len(report.Levels)-1]
			last.Nodes = append(last.Nodes, n)
			report.Total++
			queue = append(queue, item{ad.Other, d})
		}
	}
	return report
}

// Neighbors lists the direct neighbours of a node in one direction
type Neighbors struct {
	Target graph.Node  `json:"target"`
	Groups []EdgeGroup `json:"groups"`
	Total  int         `json:"total"`
}

// Dependents returns the nodes with an edge into id, grouped by edge type
func (a *Analyzer) Dependents(id string) *Neighbors {
	target, _ := a.idx.Node(id)
	in := a.idx.Incoming(id)
	return &Neighbors{Target: target, Groups: a.groupByEdgeType(in), Total: len(in)}
}

// Dependencies returns the nodes id has an edge to, grouped by edge type
func (a *Analyzer) Dependencies(id string) *Neighbors {
	target, _ := a.idx.Node(id)
	out := a.idx.Outgoing(id)
	return &Neighbors{Target: target, Groups: a.groupByEdgeType(out), Total: len(out)}
}

// ClusterResult is the undirected connected component containing a node
type ClusterResult struct {
	Target  graph.Node   `json:"target"`
	Members []graph.Node `json:"members"`
	Groups  []TypeGroup  `json:"groups"`
}

// Size returns the number of nodes in the component
func (c *ClusterResult) Size() int {
	return len(c.Members)
}

// Cluster returns every node reachable from id ignoring edge direction and type.
// Members are in BFS discovery order, starting with id.
func (a *Analyzer) Cluster(id string) *ClusterResult {
	target, _ := a.idx.Node(id)
	ids := a.component(id, func(string) bool { return true }, func(graph.Edge) bool { return true })

	members := make([]graph.Node, 0, len(ids))
	for _, mid := range ids {
		if n, ok := a.idx.Node(mid); ok {
			members = append(members, n)
		}
	}
	return &ClusterResult{Target: target, Members: members, Groups: GroupByType(members)}
}

// component runs an undirected BFS from start over edges accepted by edgeOK
// whose far end is accepted by nodeOK
func (a *Analyzer) component(start string, nodeOK func(string) bool, edgeOK func(graph.Edge) bool) []string {
	visited := map[string]bool{start: true}
	order := []string{start}
	queue := []string{start}
	visit := func(adj []index.Adjacent) {
		for _, ad := range adj {
			if visited[ad.Other] || !edgeOK(ad.Edge) || !nodeOK(ad.Other) {
				continue
			}
			visited[ad.Other] = true
			order = append(order, ad.Other)
			queue = append(queue, ad.Other)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visit(a.idx.Outgoing(cur))
		visit(a.idx.Incoming(cur))
	}
	return order
}

// Filter selects a visible subgraph. Empty type lists allow every type; an
// empty query matches every node.
type Filter struct {
	NodeTypes []graph.NodeType
	EdgeTypes []graph.EdgeType
	Query     string
}

// ParseFilter builds a Filter from type names; blank names are dropped
func ParseFilter(nodeTypes, edgeTypes []string, query string) Filter {
	f := Filter{Query: strings.TrimSpace(query)}
	for _, t := range nodeTypes {
		if t = strings.TrimSpace(t); t != "" {
			f.NodeTypes = append(f.NodeTypes, graph.NodeType(t))
		}
	}
	for _, t := range edgeTypes {
		if t = strings.TrimSpace(t); t != "" {
			f.EdgeTypes = append(f.EdgeTypes, graph.EdgeType(t))
		}
	}
	return f
}

// VisibleNodes returns the nodes passing the filter in snapshot order
func (a *Analyzer) VisibleNodes(f Filter) []graph.Node {
	nodeOK, _ := a.visibility(f)
	var out []graph.Node
	for _, n := range a.idx.Nodes() {
		if nodeOK(n.ID) {
			out = append(out, n)
		}
	}
	return out
}

func (a *Analyzer) visibility(f Filter) (func(string) bool, func(graph.Edge) bool) {
	nodeTypes := make(map[graph.NodeType]bool, len(f.NodeTypes))
	for _, t := range f.NodeTypes {
		nodeTypes[t] = true
	}
	edgeTypes := make(map[graph.EdgeType]bool, len(f.EdgeTypes))
	for _, t := range f.EdgeTypes {
		edgeTypes[t] = true
	}
	q := strings.ToLower(f.Query)

	nodeOK := func(id string) bool {
		n, ok := a.idx.Node(id)
		if !ok {
			return false
		}
		if len(nodeTypes) > 0 && !nodeTypes[n.Type] {
			return false
		}
		return index.MatchesQuery(n, q)
	}
	edgeOK := func(e graph.Edge) bool {
		if len(edgeTypes) > 0 && !edgeTypes[e.Type] {
			return false
		}
		return nodeOK(e.Source) && nodeOK(e.Target)
	}
	return nodeOK, edgeOK
}

// CountComponents counts the connected components of the visible subgraph
func (a *Analyzer) CountComponents(f Filter) int {
	nodeOK, edgeOK := a.visibility(f)
	seen := make(map[string]bool)
	count := 0
	for _, n := range a.idx.Nodes() {
		if seen[n.ID] || !nodeOK(n.ID) {
			continue
		}
		count++
		for _, id := range a.component(n.ID, nodeOK, edgeOK) {
			seen[id] = true
		}
	}
	return count
}
