package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/codegraph/internal/export"
	"github.com/zheng/codegraph/internal/impact"
)

// version is set by the linker at build time.
var version = "dev"

// Service answers MCP tool calls against one loaded graph
type Service struct {
	a  *impact.Analyzer
	ex *export.Exporter
}

// NewService creates a tool service over a
func NewService(a *impact.Analyzer) *Service {
	return &Service{a: a, ex: export.NewExporter(a)}
}

// NewServer creates an MCP server with every graph query tool registered
func NewServer(a *impact.Analyzer) *mcp.Server {
	svc := NewService(a)
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "impact",
		Description: "Analyze the blast radius of changing a file. Returns the nodes that transitively depend on every match, grouped by distance, with a risk tier.",
	}, svc.Impact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dependents",
		Description: "List the nodes that directly depend on a file, grouped by edge type.",
	}, svc.Dependents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dependencies",
		Description: "List the nodes a file directly depends on, grouped by edge type.",
	}, svc.Dependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search nodes whose label or file contains the query (case-insensitive).",
	}, svc.Search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list",
		Description: "List the nodes of the graph in snapshot order, optionally of one type, with paging.",
	}, svc.List)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "path",
		Description: "Find the shortest connection between two files, following edges in either direction.",
	}, svc.Path)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "risky_files",
		Description: "Rank nodes by change risk: dependents weighted by node type.",
	}, svc.RiskyFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hubs",
		Description: "Rank nodes by total connection count.",
	}, svc.Hubs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dead_code",
		Description: "List isolated nodes and files nothing depends on.",
	}, svc.DeadCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Summarize the graph: node and edge counts by type, ghost edges and connected components under an optional filter.",
	}, svc.Stats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mermaid",
		Description: "Render the neighbourhood of a file as a Mermaid flowchart: its dependents, its dependencies, or both.",
	}, svc.Mermaid)

	return server
}

// Run serves the graph tools over stdio until the client disconnects or ctx
// is canceled
func Run(ctx context.Context, a *impact.Analyzer) error {
	return NewServer(a).Run(ctx, &mcp.StdioTransport{})
}
