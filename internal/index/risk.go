package index

import (
	"fmt"

	"github.com/zheng/codegraph/internal/graph"
)

// Tier is a coarse risk level for changing a node
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

var tierNames = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (t Tier) String() string {
	if t < TierLow || t > TierCritical {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name
func (t *Tier) UnmarshalText(text []byte) error {
	for i, name := range tierNames {
		if name == string(text) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk tier %q", text)
}

// Risk is the classification of one node
type Risk struct {
	Tier        Tier   `json:"tier"`
	Connections int    `json:"connections"`
	Incoming    int    `json:"incoming"`
	Detail      string `json:"detail"`
}

type riskInput struct {
	typ         graph.NodeType
	connections int
	incoming    int
}

type riskRule struct {
	tier  Tier
	match func(riskInput) bool
}

// riskRules is evaluated top to bottom; the first match wins and LOW is the
// fallback
var riskRules = []riskRule{
	{TierCritical, func(in riskInput) bool {
		return in.connections >= 20 || in.typ == graph.NodeTypeRouter || in.typ == graph.NodeTypeConfig
	}},
	{TierHigh, func(in riskInput) bool {
		return in.connections >= 10 ||
			(in.incoming >= 5 && (in.typ == graph.NodeTypeCollection || in.typ == graph.NodeTypeService))
	}},
	{TierMedium, func(in riskInput) bool {
		return in.connections >= 4 || in.incoming >= 2
	}},
}

func classify(in riskInput) Tier {
	for _, r := range riskRules {
		if r.match(in) {
			return r.tier
		}
	}
	return TierLow
}

// Risk classifies id from its degree, incoming count and type. Unknown IDs
// classify as LOW with zero counts.
func (idx *Index) Risk(id string) Risk {
	in := riskInput{
		connections: idx.Degree(id),
		incoming:    len(idx.incoming[id]),
	}
	if n, ok := idx.nodeByID[id]; ok {
		in.typ = n.Type
	}
	tier := classify(in)
	detail := fmt.Sprintf("%d connections, %d dependents", in.connections, in.incoming)
	if tier == TierCritical {
		detail = fmt.Sprintf("%d connections, hub node, changes affect many files", in.connections)
	}
	return Risk{
		Tier:        tier,
		Connections: in.connections,
		Incoming:    in.incoming,
		Detail:      detail,
	}
}
