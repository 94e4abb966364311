package impact

import (
	"sort"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// RankedNode is a node with its change-risk score
type RankedNode struct {
	Node     graph.Node `json:"node"`
	Score    float64    `json:"score"`
	Risk     index.Risk `json:"risk"`
	Incoming int        `json:"incoming"`
	Outgoing int        `json:"outgoing"`
}

// typeFactor weights the raw score by node type
func typeFactor(t graph.NodeType) float64 {
	switch t {
	case graph.NodeTypeCollection, graph.NodeTypeService:
		return 1.5
	case graph.NodeTypeRouter, graph.NodeTypeConfig:
		return 2.0
	case graph.NodeTypeTest:
		return 0.1
	default:
		return 1.0
	}
}

// Score computes (incoming*3 + outgoing + degree) * typeFactor for id
func (a *Analyzer) Score(id string) float64 {
	n, _ := a.idx.Node(id)
	in := len(a.idx.Incoming(id))
	out := len(a.idx.Outgoing(id))
	return float64(in*3+out+a.idx.Degree(id)) * typeFactor(n.Type)
}

// RiskyFiles ranks every node by Score, highest first. Equal scores keep
// snapshot order. top <= 0 returns all nodes.
func (a *Analyzer) RiskyFiles(top int) []RankedNode {
	nodes := a.idx.Nodes()
	ranked := make([]RankedNode, 0, len(nodes))
	for _, n := range nodes {
		ranked = append(ranked, RankedNode{
			Node:     n,
			Score:    a.Score(n.ID),
			Risk:     a.idx.Risk(n.ID),
			Incoming: len(a.idx.Incoming(n.ID)),
			Outgoing: len(a.idx.Outgoing(n.ID)),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return truncate(ranked, top)
}

// Hub is a node ranked by total degree
type Hub struct {
	Node     graph.Node `json:"node"`
	Degree   int        `json:"degree"`
	Incoming int        `json:"incoming"`
	Outgoing int        `json:"outgoing"`
	Risk     index.Risk `json:"risk"`
}

// Hubs ranks nodes touched by at least one edge by degree, highest first. Equal
// degrees keep the order in which nodes first appear in the edge list. top <= 0
// returns all.
func (a *Analyzer) Hubs(top int) []Hub {
	order := a.idx.HubOrder()
	hubs := make([]Hub, 0, len(order))
	for _, id := range order {
		n, _ := a.idx.Node(id)
		hubs = append(hubs, Hub{
			Node:     n,
			Degree:   a.idx.Degree(id),
			Incoming: len(a.idx.Incoming(id)),
			Outgoing: len(a.idx.Outgoing(id)),
			Risk:     a.idx.Risk(id),
		})
	}
	sort.SliceStable(hubs, func(i, j int) bool {
		return hubs[i].Degree > hubs[j].Degree
	})
	return truncate(hubs, top)
}

func truncate[T any](s []T, top int) []T {
	if top > 0 && len(s) > top {
		return s[:top]
	}
	return s
}

// Describe attaches degree and risk to nodes, keeping their order
func (a *Analyzer) Describe(nodes []graph.Node) []Hub {
	out := make([]Hub, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Hub{
			Node:     n,
			Degree:   a.idx.Degree(n.ID),
			Incoming: len(a.idx.Incoming(n.ID)),
			Outgoing: len(a.idx.Outgoing(n.ID)),
			Risk:     a.idx.Risk(n.ID),
		})
	}
	return out
}
