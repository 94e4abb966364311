package impact

import (
	"github.com/zheng/codegraph/internal/graph"
)

// DeadCodeResult lists nodes that look unused. Nothing is removed from the
// graph.
type DeadCodeResult struct {
	// Isolated nodes touch no edge at all
	Isolated []graph.Node `json:"isolated"`
	// NoDependents nodes depend on others but nothing depends on them
	NoDependents []graph.Node `json:"no_dependents"`
}

var (
	isolatedExempt     = map[graph.NodeType]bool{graph.NodeTypeConfig: true}
	noDependentsExempt = map[graph.NodeType]bool{
		graph.NodeTypeConfig: true,
		graph.NodeTypeTest:   true,
		graph.NodeTypeScript: true,
	}
)

// DeadCode reports isolated and dependent-free nodes in snapshot order
func (a *Analyzer) DeadCode() *DeadCodeResult {
	res := &DeadCodeResult{}
	for _, n := range a.idx.Nodes() {
		in := len(a.idx.Incoming(n.ID))
		out := len(a.idx.Outgoing(n.ID))
		switch {
		case in+out == 0:
			if !isolatedExempt[n.Type] {
				res.Isolated = append(res.Isolated, n)
			}
		case in == 0 && out > 0:
			if !noDependentsExempt[n.Type] {
				res.NoDependents = append(res.NoDependents, n)
			}
		}
	}
	return res
}
