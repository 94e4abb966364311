package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
	"github.com/zheng/codegraph/internal/index"
)

const (
	defaultLimit  = 50
	defaultTop    = 20
	maxTargets    = 3
	mermaidDepth  = 2
	directionBoth = "both"
)

// NodeInfo is the compact node form returned by every tool
type NodeInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line,omitempty"`
}

// RiskInfo is a risk assessment with its tier spelled out
type RiskInfo struct {
	Tier        string `json:"tier"`
	Connections int    `json:"connections"`
	Incoming    int    `json:"incoming"`
	Detail      string `json:"detail"`
}

// RankInfo is a node with its connection counts
type RankInfo struct {
	Node     NodeInfo `json:"node"`
	Score    float64  `json:"score,omitempty"`
	Degree   int      `json:"degree"`
	Incoming int      `json:"incoming"`
	Outgoing int      `json:"outgoing"`
	Risk     string   `json:"risk"`
}

func nodeInfo(n graph.Node) NodeInfo {
	return NodeInfo{ID: n.ID, Label: n.Label, Type: string(n.Type), File: n.File, Line: n.Line}
}

func nodeInfos(nodes []graph.Node) []NodeInfo {
	out := make([]NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeInfo(n))
	}
	return out
}

func riskInfo(r index.Risk) RiskInfo {
	return RiskInfo{Tier: r.Tier.String(), Connections: r.Connections, Incoming: r.Incoming, Detail: r.Detail}
}

func hubInfos(hubs []impact.Hub) []RankInfo {
	out := make([]RankInfo, 0, len(hubs))
	for _, h := range hubs {
		out = append(out, RankInfo{
			Node:     nodeInfo(h.Node),
			Degree:   h.Degree,
			Incoming: h.Incoming,
			Outgoing: h.Outgoing,
			Risk:     h.Risk.Tier.String(),
		})
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// find resolves query to at most maxTargets nodes
func (s *Service) find(query string) ([]graph.Node, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	nodes, err := s.a.Find(query)
	if err != nil {
		return nil, err
	}
	if len(nodes) > maxTargets {
		nodes = nodes[:maxTargets]
	}
	return nodes, nil
}

// QueryInput is the input of the tools taking a single file query
type QueryInput struct {
	Query string `json:"query" jsonschema:"file path or label to look up (substring or path-suffix match)"`
}

// ImpactInput is the input of the impact tool
type ImpactInput struct {
	Query string `json:"query" jsonschema:"file path or label to analyze (substring or path-suffix match)"`
	Depth int    `json:"depth,omitempty" jsonschema:"traversal depth (default: 3); dependents up to depth+1 hops away are returned"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum nodes returned per level (default: 50)"`
}

// ImpactLevel is one distance band of an impact result
type ImpactLevel struct {
	Depth   int        `json:"depth"`
	Name    string     `json:"name"`
	Nodes   []NodeInfo `json:"nodes"`
	Omitted int        `json:"omitted,omitempty"`
}

// ImpactResult is the impact of changing one node
type ImpactResult struct {
	Target  NodeInfo      `json:"target"`
	Risk    RiskInfo      `json:"risk"`
	Levels  []ImpactLevel `json:"levels"`
	Total   int           `json:"total"`
	Summary string        `json:"summary"`
}

// ImpactOutput is the result of the impact tool
type ImpactOutput struct {
	Results []ImpactResult `json:"results"`
}

// Impact reports the transitive dependents of every match of the query
func (s *Service) Impact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ImpactInput,
) (*mcp.CallToolResult, ImpactOutput, error) {
	nodes, err := s.find(input.Query)
	if err != nil {
		return nil, ImpactOutput{}, err
	}
	limit := orDefault(input.Limit, defaultLimit)

	out := ImpactOutput{Results: make([]ImpactResult, 0, len(nodes))}
	for _, n := range nodes {
		r := s.a.Impact(n.ID, orDefault(input.Depth, impact.DefaultImpactDepth))
		res := ImpactResult{
			Target:  nodeInfo(r.Target),
			Risk:    riskInfo(r.Risk),
			Total:   r.Total,
			Summary: r.Summary(),
		}
		for _, lvl := range r.Levels {
			shown := lvl.Nodes
			if len(shown) > limit {
				shown = shown[:limit]
			}
			res.Levels = append(res.Levels, ImpactLevel{
				Depth:   lvl.Depth,
				Name:    impact.LevelName(lvl.Depth),
				Nodes:   nodeInfos(shown),
				Omitted: len(lvl.Nodes) - len(shown),
			})
		}
		out.Results = append(out.Results, res)
	}
	return nil, out, nil
}

// EdgeGroup is the neighbours reached over one edge type
type EdgeGroup struct {
	Type  string     `json:"type"`
	Nodes []NodeInfo `json:"nodes"`
}

// NeighborsResult is the direct neighbourhood of one node
type NeighborsResult struct {
	Target NodeInfo    `json:"target"`
	Groups []EdgeGroup `json:"groups"`
	Total  int         `json:"total"`
}

// NeighborsOutput is the result of the dependents and dependencies tools
type NeighborsOutput struct {
	Results []NeighborsResult `json:"results"`
}

func (s *Service) neighbors(query string, fn func(id string) *impact.Neighbors) (NeighborsOutput, error) {
	nodes, err := s.find(query)
	if err != nil {
		return NeighborsOutput{}, err
	}
	out := NeighborsOutput{Results: make([]NeighborsResult, 0, len(nodes))}
	for _, n := range nodes {
		nb := fn(n.ID)
		res := NeighborsResult{Target: nodeInfo(nb.Target), Total: nb.Total}
		for _, g := range nb.Groups {
			res.Groups = append(res.Groups, EdgeGroup{Type: string(g.Type), Nodes: nodeInfos(g.Nodes)})
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

// Dependents lists what directly depends on every match of the query
func (s *Service) Dependents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, NeighborsOutput, error) {
	out, err := s.neighbors(input.Query, s.a.Dependents)
	return nil, out, err
}

// Dependencies lists what every match of the query directly depends on
func (s *Service) Dependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, NeighborsOutput, error) {
	out, err := s.neighbors(input.Query, s.a.Dependencies)
	return nil, out, err
}

// SearchInput is the input of the search tool
type SearchInput struct {
	Query string `json:"query" jsonschema:"substring of a node label or file path"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 50)"`
}

// RankOutput is a list of ranked nodes
type RankOutput struct {
	Nodes []RankInfo `json:"nodes"`
	Total int        `json:"total"`
}

// Search finds nodes by label or file substring
func (s *Service) Search(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, RankOutput, error) {
	q := strings.TrimSpace(input.Query)
	if q == "" {
		return nil, RankOutput{}, fmt.Errorf("query is required")
	}
	nodes := s.a.Index().Search(q)
	total := len(nodes)
	if limit := orDefault(input.Limit, defaultLimit); len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nil, RankOutput{Nodes: hubInfos(s.a.Describe(nodes)), Total: total}, nil
}

// ListInput is the input of the list tool
type ListInput struct {
	Type   string `json:"type,omitempty" jsonschema:"only list nodes of this type, e.g. service or endpoint"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of nodes (default: 50)"`
	Offset int    `json:"offset,omitempty" jsonschema:"skip the first N nodes, for paging (default: 0)"`
}

// ListOutput is the result of the list tool
type ListOutput struct {
	Nodes []NodeInfo `json:"nodes"`
	Total int        `json:"total"`
}

// List pages through the nodes in snapshot order
func (s *Service) List(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	var nodes []graph.Node
	for _, n := range s.a.Index().Nodes() {
		if input.Type == "" || string(n.Type) == input.Type {
			nodes = append(nodes, n)
		}
	}
	out := ListOutput{Total: len(nodes)}
	if input.Offset > 0 {
		if input.Offset >= len(nodes) {
			nodes = nil
		} else {
			nodes = nodes[input.Offset:]
		}
	}
	if limit := orDefault(input.Limit, defaultLimit); len(nodes) > limit {
		nodes = nodes[:limit]
	}
	out.Nodes = nodeInfos(nodes)
	return nil, out, nil
}

// PathInput is the input of the path tool
type PathInput struct {
	From string `json:"from" jsonschema:"file the path starts at"`
	To   string `json:"to" jsonschema:"file the path ends at; any of its matches will do"`
}

// Hop is one step of a path
type Hop struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Type    string `json:"type"`
	Forward bool   `json:"forward"`
}

// PathOutput is the result of the path tool
type PathOutput struct {
	Found  bool       `json:"found"`
	Capped bool       `json:"capped"`
	Nodes  []NodeInfo `json:"nodes"`
	Hops   []Hop      `json:"hops"`
}

// Path finds the shortest undirected path between two queries
func (s *Service) Path(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PathInput,
) (*mcp.CallToolResult, PathOutput, error) {
	from, err := s.a.Find(strings.TrimSpace(input.From))
	if err != nil {
		return nil, PathOutput{}, fmt.Errorf("from: %w", err)
	}
	to, err := s.a.Find(strings.TrimSpace(input.To))
	if err != nil {
		return nil, PathOutput{}, fmt.Errorf("to: %w", err)
	}
	targets := make([]string, 0, len(to))
	for _, n := range to {
		targets = append(targets, n.ID)
	}

	res := s.a.Path(from[0].ID, targets)
	out := PathOutput{Found: res.Found, Capped: res.Capped, Nodes: nodeInfos(res.Nodes)}
	for _, h := range res.Hops {
		out.Hops = append(out.Hops, Hop{From: h.From, To: h.To, Type: string(h.Type), Forward: h.Forward})
	}
	return nil, out, nil
}

// TopInput is the input of the ranking tools
type TopInput struct {
	Top int `json:"top,omitempty" jsonschema:"number of nodes to return (default: 20)"`
}

// RiskyFiles ranks nodes by weighted dependents
func (s *Service) RiskyFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TopInput,
) (*mcp.CallToolResult, RankOutput, error) {
	ranked := s.a.RiskyFiles(orDefault(input.Top, defaultTop))
	out := RankOutput{Nodes: make([]RankInfo, 0, len(ranked)), Total: len(ranked)}
	for _, r := range ranked {
		out.Nodes = append(out.Nodes, RankInfo{
			Node:     nodeInfo(r.Node),
			Score:    r.Score,
			Degree:   r.Incoming + r.Outgoing,
			Incoming: r.Incoming,
			Outgoing: r.Outgoing,
			Risk:     r.Risk.Tier.String(),
		})
	}
	return nil, out, nil
}

// Hubs ranks nodes by connection count
func (s *Service) Hubs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TopInput,
) (*mcp.CallToolResult, RankOutput, error) {
	hubs := hubInfos(s.a.Hubs(orDefault(input.Top, defaultTop)))
	return nil, RankOutput{Nodes: hubs, Total: len(hubs)}, nil
}

// EmptyInput is the input of tools without arguments
type EmptyInput struct{}

// DeadCodeOutput is the result of the dead_code tool
type DeadCodeOutput struct {
	Isolated     []NodeInfo `json:"isolated"`
	NoDependents []NodeInfo `json:"noDependents"`
}

// DeadCode lists unconnected and unreferenced nodes
func (s *Service) DeadCode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, DeadCodeOutput, error) {
	res := s.a.DeadCode()
	return nil, DeadCodeOutput{
		Isolated:     nodeInfos(res.Isolated),
		NoDependents: nodeInfos(res.NoDependents),
	}, nil
}

// StatsInput narrows the component count to a visible subgraph
type StatsInput struct {
	NodeTypes []string `json:"nodeTypes,omitempty" jsonschema:"only count nodes of these types"`
	EdgeTypes []string `json:"edgeTypes,omitempty" jsonschema:"only follow edges of these types"`
	Query     string   `json:"query,omitempty" jsonschema:"only count nodes whose label or file contains this"`
}

// StatsOutput is the result of the stats tool
type StatsOutput struct {
	Project      string         `json:"project"`
	GeneratedAt  string         `json:"generatedAt"`
	TotalNodes   int            `json:"totalNodes"`
	Edges        int            `json:"edges"`
	GhostEdges   int            `json:"ghostEdges"`
	NodeTypes    map[string]int `json:"nodeTypes"`
	EdgeTypes    map[string]int `json:"edgeTypes"`
	Components   int            `json:"components"`
	VisibleNodes int            `json:"visibleNodes"`
}

func countMap(tc graph.TypeCounts) map[string]int {
	m := make(map[string]int, len(tc))
	for _, c := range tc {
		m[c.Type] = c.Count
	}
	return m
}

// Stats summarizes the graph
func (s *Service) Stats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	st := s.a.Stats(impact.ParseFilter(input.NodeTypes, input.EdgeTypes, input.Query))
	return nil, StatsOutput{
		Project:      st.Project,
		GeneratedAt:  st.GeneratedAt,
		TotalNodes:   st.TotalNodes,
		Edges:        st.Edges,
		GhostEdges:   st.GhostEdges,
		NodeTypes:    countMap(st.NodeTypes),
		EdgeTypes:    countMap(st.EdgeTypes),
		Components:   st.Components,
		VisibleNodes: st.Visible,
	}, nil
}

// MermaidInput is the input of the mermaid tool
type MermaidInput struct {
	Query     string `json:"query" jsonschema:"file at the centre of the diagram"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (dependents), downstream (dependencies) or both. Default: both"`
	Depth     int    `json:"depth,omitempty" jsonschema:"hops to follow from the file (default: 2)"`
}

// MermaidOutput is the result of the mermaid tool
type MermaidOutput struct {
	Diagram string `json:"diagram"`
	Nodes   int    `json:"nodes"`
}

// Mermaid draws the neighbourhood of the first match of the query
func (s *Service) Mermaid(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MermaidInput,
) (*mcp.CallToolResult, MermaidOutput, error) {
	dir := strings.ToLower(strings.TrimSpace(input.Direction))
	if dir == "" {
		dir = directionBoth
	}
	if dir != "upstream" && dir != "downstream" && dir != directionBoth {
		return nil, MermaidOutput{}, fmt.Errorf("unknown direction %q", input.Direction)
	}
	nodes, err := s.find(input.Query)
	if err != nil {
		return nil, MermaidOutput{}, err
	}

	reach := s.neighbourhood(nodes[0].ID, dir, orDefault(input.Depth, mermaidDepth))
	var buf bytes.Buffer
	buf.WriteString("```mermaid\n")
	s.ex.Mermaid(&buf, reach)
	buf.WriteString("```\n")
	return nil, MermaidOutput{Diagram: buf.String(), Nodes: len(reach)}, nil
}

// neighbourhood walks up to depth hops from start in dir, breadth first
func (s *Service) neighbourhood(start, dir string, depth int) []graph.Node {
	idx := s.a.Index()
	seen := map[string]bool{start: true}
	order := []string{start}
	frontier := []string{start}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			var adj []index.Adjacent
			if dir != "downstream" {
				adj = append(adj, idx.Incoming(id)...)
			}
			if dir != "upstream" {
				adj = append(adj, idx.Outgoing(id)...)
			}
			for _, ad := range adj {
				if !seen[ad.Other] && idx.Has(ad.Other) {
					seen[ad.Other] = true
					order = append(order, ad.Other)
					next = append(next, ad.Other)
				}
			}
		}
		frontier = next
	}

	out := make([]graph.Node, 0, len(order))
	for _, id := range order {
		n, _ := idx.Node(id)
		out = append(out, n)
	}
	return out
}
