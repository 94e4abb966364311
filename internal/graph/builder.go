package graph

import (
	"path"
	"time"
)

// Builder collects nodes and edges during a single scan. It is not safe for
// concurrent use; extractors running in parallel must hand their results to
// one goroutine that owns the Builder.
type Builder struct {
	project string
	clock   func() time.Time

	nodes   []Node
	nodeIdx map[string]int // node ID -> position in nodes
	edges   []Edge
	edgeSet map[edgeKey]struct{}
	fileIDs map[string]string // normalized relative path -> node ID
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithClock overrides the time source used for generated_at
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.clock = clock
	}
}

// NewBuilder creates an empty builder for the named project
func NewBuilder(project string, opts ...BuilderOption) *Builder {
	b := &Builder{
		project: project,
		clock:   time.Now,
		nodeIdx: make(map[string]int),
		edgeSet: make(map[edgeKey]struct{}),
		fileIDs: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Project returns the project name recorded in the snapshot
func (b *Builder) Project() string {
	return b.project
}

// AddNode registers a node and returns its ID. If the ID is already known the
// call is a no-op: the first registration wins.
func (b *Builder) AddNode(id, label string, typ NodeType, file string, line int, meta Metadata) string {
	if _, ok := b.nodeIdx[id]; ok {
		return id
	}
	b.nodeIdx[id] = len(b.nodes)
	b.nodes = append(b.nodes, Node{
		ID:       id,
		Label:    label,
		Type:     typ,
		File:     file,
		Line:     line,
		Metadata: meta,
	})
	return id
}

// AddFileNode registers the file at rel (relative to the project root),
// classifying it by path, and returns its ID
func (b *Builder) AddFileNode(rel string) string {
	norm := NormalizePath(rel)
	id := MakeID(FileKey(norm))
	b.fileIDs[norm] = id
	return b.AddNode(id, path.Base(norm), ClassifyPath(norm), norm, 0, nil)
}

// FileID returns the node ID of a registered file
func (b *Builder) FileID(rel string) (string, bool) {
	id, ok := b.fileIDs[NormalizePath(rel)]
	return id, ok
}

// Files returns a copy of the registered relative path -> node ID mapping
func (b *Builder) Files() map[string]string {
	out := make(map[string]string, len(b.fileIDs))
	for k, v := range b.fileIDs {
		out[k] = v
	}
	return out
}

// HasNode reports whether id is registered
func (b *Builder) HasNode(id string) bool {
	_, ok := b.nodeIdx[id]
	return ok
}

// AddEdge registers a directed edge. Self edges and duplicates of an existing
// (source, target, type) triple are dropped; the return value reports whether
// the edge was inserted.
func (b *Builder) AddEdge(source, target string, typ EdgeType, meta Metadata) bool {
	if source == target {
		return false
	}
	e := Edge{Source: source, Target: target, Type: typ, Metadata: meta}
	k := e.key()
	if _, ok := b.edgeSet[k]; ok {
		return false
	}
	b.edgeSet[k] = struct{}{}
	b.edges = append(b.edges, e)
	return true
}

// NodeCount returns the number of registered nodes
func (b *Builder) NodeCount() int {
	return len(b.nodes)
}

// EdgeCount returns the number of registered edges
func (b *Builder) EdgeCount() int {
	return len(b.edges)
}

// Export produces the exchange snapshot. Nodes and edges keep insertion order.
func (b *Builder) Export() *Snapshot {
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	edges := make([]Edge, len(b.edges))
	copy(edges, b.edges)

	nodeTypes := make([]string, len(nodes))
	for i, n := range nodes {
		nodeTypes[i] = string(n.Type)
	}
	edgeTypes := make([]string, len(edges))
	for i, e := range edges {
		edgeTypes[i] = string(e.Type)
	}

	nodeColors := make(map[string]string, len(NodeColors))
	for t, c := range NodeColors {
		nodeColors[string(t)] = c
	}
	edgeColors := make(map[string]string, len(EdgeColors))
	for t, c := range EdgeColors {
		edgeColors[string(t)] = c
	}

	return &Snapshot{
		Project:     b.project,
		GeneratedAt: b.clock().UTC().Format(time.RFC3339),
		Stats: Stats{
			TotalNodes: len(nodes),
			TotalEdges: len(edges),
			NodeTypes:  CountTypes(nodeTypes),
			EdgeTypes:  CountTypes(edgeTypes),
		},
		NodeColors: nodeColors,
		EdgeColors: edgeColors,
		Nodes:      nodes,
		Edges:      edges,
	}
}

// CountTypes tallies tags, ordered by count descending with ties broken by
// first appearance
func CountTypes(tags []string) TypeCounts {
	pos := make(map[string]int)
	var out TypeCounts
	for _, t := range tags {
		if i, ok := pos[t]; ok {
			out[i].Count++
			continue
		}
		pos[t] = len(out)
		out = append(out, TypeCount{Type: t, Count: 1})
	}
	return out.Sorted()
}
