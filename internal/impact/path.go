package impact

import (
	"github.com/zheng/codegraph/internal/graph"
)

// PathVisitLimit caps the number of nodes the path search may visit
const PathVisitLimit = 500

// Hop is one step of a path. Forward is true when the step follows an edge in
// its own direction.
type Hop struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Type    graph.EdgeType `json:"type"`
	Forward bool           `json:"forward"`
}

// PathResult is the outcome of a shortest path search
type PathResult struct {
	Start  graph.Node   `json:"start"`
	Found  bool         `json:"found"`
	Capped bool         `json:"capped"`
	Nodes  []graph.Node `json:"nodes,omitempty"`
	Hops   []Hop        `json:"hops,omitempty"`
}

// End returns the last node of a found path
func (r *PathResult) End() (graph.Node, bool) {
	if !r.Found || len(r.Nodes) == 0 {
		return graph.Node{}, false
	}
	return r.Nodes[len(r.Nodes)-1], true
}

// Path finds a shortest path from start to any of targets, ignoring edge
// direction. The search gives up once more than PathVisitLimit nodes have been
// visited, so a path beyond the cap is reported as not found.
func (a *Analyzer) Path(start string, targets []string) *PathResult {
	startNode, _ := a.idx.Node(start)
	res := &PathResult{Start: startNode}

	isTarget := make(map[string]bool, len(targets))
	for _, t := range targets {
		isTarget[t] = true
	}

	visited := map[string]bool{start: true}
	prev := make(map[string]string)
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if isTarget[cur] {
			a.fillPath(res, start, cur, prev)
			return res
		}

		for _, ad := range a.idx.Outgoing(cur) {
			if !visited[ad.Other] {
				visited[ad.Other] = true
				prev[ad.Other] = cur
				queue = append(queue, ad.Other)
			}
		}
		for _, ad := range a.idx.Incoming(cur) {
			if !visited[ad.Other] {
				visited[ad.Other] = true
				prev[ad.Other] = cur
				queue = append(queue, ad.Other)
			}
		}

		if len(visited) > PathVisitLimit {
			res.Capped = true
			return res
		}
	}
	return res
}

func (a *Analyzer) fillPath(res *PathResult, start, end string, prev map[string]string) {
	ids := []string{end}
	for cur := end; cur != start; {
		cur = prev[cur]
		ids = append(ids, cur)
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	res.Found = true
	res.Nodes = make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		n, _ := a.idx.Node(id)
		res.Nodes = append(res.Nodes, n)
	}
	for i := 0; i+1 < len(ids); i++ {
		res.Hops = append(res.Hops, a.hop(ids[i], ids[i+1]))
	}
}

// hop annotates the step from -> to, preferring an outgoing edge of from
func (a *Analyzer) hop(from, to string) Hop {
	for _, ad := range a.idx.Outgoing(from) {
		if ad.Other == to {
			return Hop{From: from, To: to, Type: ad.Edge.Type, Forward: true}
		}
	}
	for _, ad := range a.idx.Incoming(from) {
		if ad.Other == to {
			return Hop{From: from, To: to, Type: ad.Edge.Type, Forward: false}
		}
	}
	return Hop{From: from, To: to}
}
