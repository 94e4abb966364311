// Package index derives the read-only query structures from a loaded snapshot:
// node lookup, ghost-edge filtering, adjacency lists and degree counts.
package index

import (
	"github.com/zheng/codegraph/internal/graph"
)

// Adjacent is one entry of an adjacency list: the edge and the node at its
// other end
type Adjacent struct {
	Edge  graph.Edge
	Other string
}

// Index is built once per snapshot and never mutated afterwards
type Index struct {
	snap     *graph.Snapshot
	nodes    []graph.Node
	nodeByID map[string]*graph.Node
	order    map[string]int

	edges    []graph.Edge // kept edges, snapshot order
	ghosts   int
	outgoing map[string][]Adjacent
	incoming map[string][]Adjacent
	hubOrder []string
}

// New builds the index for s. Edges whose source or target is not a known node
// are dropped and counted in GhostEdges.
//
// When several nodes share an id the first record wins, both its position and
// its fields. A plain map keyed by id would keep the first position with the
// last record's fields; here later duplicates are ignored.
func New(s *graph.Snapshot) *Index {
	idx := &Index{
		snap:     s,
		nodeByID: make(map[string]*graph.Node, len(s.Nodes)),
		order:    make(map[string]int, len(s.Nodes)),
		outgoing: make(map[string][]Adjacent),
		incoming: make(map[string][]Adjacent),
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		if _, dup := idx.nodeByID[n.ID]; dup {
			continue
		}
		idx.nodeByID[n.ID] = n
		idx.order[n.ID] = len(idx.nodes)
		idx.nodes = append(idx.nodes, *n)
	}

	seen := make(map[string]bool)
	touch := func(id string) {
		if !seen[id] {
			seen[id] = true
			idx.hubOrder = append(idx.hubOrder, id)
		}
	}
	for _, e := range s.Edges {
		_, okSrc := idx.nodeByID[e.Source]
		_, okTgt := idx.nodeByID[e.Target]
		if !okSrc || !okTgt {
			idx.ghosts++
			continue
		}
		idx.edges = append(idx.edges, e)
		idx.outgoing[e.Source] = append(idx.outgoing[e.Source], Adjacent{Edge: e, Other: e.Target})
		idx.incoming[e.Target] = append(idx.incoming[e.Target], Adjacent{Edge: e, Other: e.Source})
		touch(e.Source)
		touch(e.Target)
	}
	return idx
}

// Snapshot returns the snapshot the index was built from
func (idx *Index) Snapshot() *graph.Snapshot {
	return idx.snap
}

// Nodes returns the unique nodes in snapshot order
func (idx *Index) Nodes() []graph.Node {
	return idx.nodes
}

// Node looks up a node by ID
func (idx *Index) Node(id string) (graph.Node, bool) {
	n, ok := idx.nodeByID[id]
	if !ok {
		return graph.Node{}, false
	}
	return *n, true
}

// Has reports whether id names a known node
func (idx *Index) Has(id string) bool {
	_, ok := idx.nodeByID[id]
	return ok
}

// Order returns the insertion rank of id, or -1 if unknown
func (idx *Index) Order(id string) int {
	if i, ok := idx.order[id]; ok {
		return i
	}
	return -1
}

// Edges returns the kept edges in snapshot order
func (idx *Index) Edges() []graph.Edge {
	return idx.edges
}

// GhostEdges returns the number of edges dropped because an endpoint is missing
func (idx *Index) GhostEdges() int {
	return idx.ghosts
}

func (idx *Index) Outgoing(id string) []Adjacent {
	return idx.outgoing[id]
}

func (idx *Index) Incoming(id string) []Adjacent {
	return idx.incoming[id]
}

// Degree is the number of kept edges touching id, counted once per endpoint
func (idx *Index) Degree(id string) int {
	return len(idx.outgoing[id]) + len(idx.incoming[id])
}

// HubOrder returns the IDs of nodes touched by kept edges in order of first
// appearance
func (idx *Index) HubOrder() []string {
	return idx.hubOrder
}
