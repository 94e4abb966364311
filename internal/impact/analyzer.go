package impact

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// ErrNoMatch is returned when a query matches no node
var ErrNoMatch = errors.New("no matching node")

// Analyzer answers structural queries over a loaded graph index
type Analyzer struct {
	idx *index.Index
}

// NewAnalyzer creates a new analyzer over idx
func NewAnalyzer(idx *index.Index) *Analyzer {
	return &Analyzer{idx: idx}
}

// Index returns the underlying graph index
func (a *Analyzer) Index() *index.Index {
	return a.idx
}

// Find resolves a file or label query to nodes in snapshot order
func (a *Analyzer) Find(query string) ([]graph.Node, error) {
	nodes := a.idx.FindByFile(query)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}
	return nodes, nil
}

// Link is a neighbour reached over an edge of the given type
type Link struct {
	Type graph.EdgeType `json:"type"`
	Node graph.Node     `json:"node"`
}

// EdgeGroup collects neighbours reached over one edge type
type EdgeGroup struct {
	Type  graph.EdgeType `json:"type"`
	Nodes []graph.Node   `json:"nodes"`
}

// TypeGroup collects nodes of one node type
type TypeGroup struct {
	Type  graph.NodeType `json:"type"`
	Nodes []graph.Node   `json:"nodes"`
}

func (a *Analyzer) links(adj []index.Adjacent) []Link {
	out := make([]Link, 0, len(adj))
	for _, ad := range adj {
		n, _ := a.idx.Node(ad.Other)
		out = append(out, Link{Type: ad.Edge.Type, Node: n})
	}
	return out
}

// groupByEdgeType groups adjacency entries by edge type, sorted by type name.
// Within a group, entries keep edge order.
func (a *Analyzer) groupByEdgeType(adj []index.Adjacent) []EdgeGroup {
	pos := make(map[graph.EdgeType]int)
	var groups []EdgeGroup
	for _, ad := range adj {
		n, _ := a.idx.Node(ad.Other)
		i, ok := pos[ad.Edge.Type]
		if !ok {
			i = len(groups)
			pos[ad.Edge.Type] = i
			groups = append(groups, EdgeGroup{Type: ad.Edge.Type})
		}
		groups[i].Nodes = append(groups[i].Nodes, n)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Type < groups[j].Type
	})
	return groups
}

// GroupByType groups nodes by node type. Groups are ordered by size
// descending, ties by first appearance; members keep input order.
func GroupByType(nodes []graph.Node) []TypeGroup {
	pos := make(map[graph.NodeType]int)
	var groups []TypeGroup
	for _, n := range nodes {
		i, ok := pos[n.Type]
		if !ok {
			i = len(groups)
			pos[n.Type] = i
			groups = append(groups, TypeGroup{Type: n.Type})
		}
		groups[i].Nodes = append(groups[i].Nodes, n)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Nodes) > len(groups[j].Nodes)
	})
	return groups
}
