package index

import (
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

// FindByFile returns nodes whose file or label contains query, compared
// case-insensitively after trimming surrounding slashes. Results keep node order.
func (idx *Index) FindByFile(query string) []graph.Node {
	q := strings.ToLower(strings.Trim(query, "/"))
	var out []graph.Node
	for _, n := range idx.nodes {
		if strings.Contains(strings.ToLower(n.File), q) || strings.Contains(strings.ToLower(n.Label), q) {
			out = append(out, n)
		}
	}
	return out
}

// Search returns nodes whose label or file contains query, case-insensitively
func (idx *Index) Search(query string) []graph.Node {
	q := strings.ToLower(query)
	var out []graph.Node
	for _, n := range idx.nodes {
		if MatchesQuery(n, q) {
			out = append(out, n)
		}
	}
	return out
}

// MatchesQuery reports whether the lower-cased query q occurs in the node's
// label or file. An empty query matches every node.
func MatchesQuery(n graph.Node, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Label), q) || strings.Contains(strings.ToLower(n.File), q)
}

// FindModel returns collection nodes whose label contains name,
// case-insensitively
func (idx *Index) FindModel(name string) []graph.Node {
	q := strings.ToLower(name)
	var out []graph.Node
	for _, n := range idx.nodes {
		if n.Type == graph.NodeTypeCollection && strings.Contains(strings.ToLower(n.Label), q) {
			out = append(out, n)
		}
	}
	return out
}

// FindEndpoint returns endpoint nodes whose label contains pattern,
// case-insensitively
func (idx *Index) FindEndpoint(pattern string) []graph.Node {
	q := strings.ToLower(pattern)
	var out []graph.Node
	for _, n := range idx.nodes {
		if n.Type == graph.NodeTypeEndpoint && strings.Contains(strings.ToLower(n.Label), q) {
			out = append(out, n)
		}
	}
	return out
}
