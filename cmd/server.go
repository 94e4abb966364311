package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/config"
	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/mcptools"
	"github.com/zheng/codegraph/internal/watcher"
	"github.com/zheng/codegraph/internal/web"
)

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server on stdio",
		Long: `Start an MCP server so an AI assistant can query the graph directly.

Tools:
  - impact: transitive dependents of a file, by distance
  - dependents / dependencies: direct neighbours by edge type
  - search / list: find nodes
  - path: shortest connection between two files
  - risky_files / hubs: ranked nodes
  - dead_code: isolated and unreferenced nodes
  - stats: counts and connected components
  - mermaid: flowchart of a file's neighbourhood`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			logger.Debug("mcp server starting", "graph", GraphPath)
			return mcptools.Run(ctx, a)
		},
	}

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON query API",
		Long: `Start a local HTTP server answering graph queries as JSON:

  GET /api/graph              the whole snapshot
  GET /api/stats              counts (types, edges, q narrow the components)
  GET /api/search?q=          matching nodes with degree and risk
  GET /api/node/{id}          one node with its connections
  GET /api/impact?q=&depth=   impact reports of the first matches
  GET /api/path?from=&to=     shortest path
  GET /api/risky?top=         change-risk ranking
  GET /api/hubs?top=          most connected nodes
  GET /api/dead-code          isolated and unreferenced nodes
  GET /api/components         component count under types, edges, q`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ServeAddr()
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			return web.NewServer(a, addr, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then "+config.DefaultServeAddr+")")

	return cmd
}

func watchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "Rebuild the graph whenever source files change",
		Long: `Watch a project and rewrite the graph snapshot after every change.

Features:
  - watches every directory the scan would walk
  - debounces bursts of changes into one rebuild
  - skips excluded, hidden and ignored directories

Examples:
  codegraph watch .                   # watch the current directory
  codegraph watch . -g graph.db       # keep a SQLite store up to date
  codegraph watch . --debounce 1000   # wait one second for changes to settle`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			scanner, err := newScanner(projectPath)
			if err != nil {
				return err
			}

			sink := func(ctx context.Context, s *graph.Snapshot) error {
				return saveSnapshot(ctx, GraphPath, s)
			}
			w, err := watcher.New(scanner, sink,
				watcher.WithLogger(logger),
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnAnalysisStart(func(changed []string) {
					fmt.Printf("[%s] %d files changed, rebuilding...\n", time.Now().Format("15:04:05"), len(changed))
				}),
				watcher.WithOnAnalysisDone(func(stats graph.Stats, d time.Duration) {
					fmt.Printf("[%s] Rebuilt: %d nodes, %d edges (%v)\n",
						time.Now().Format("15:04:05"), stats.TotalNodes, stats.TotalEdges, d.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] Error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer w.Stop()

			ctx, stop := signalContext(cmd)
			defer stop()

			fmt.Println("Running initial analysis...")
			snap, err := w.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("initial analysis: %w", err)
			}
			fmt.Printf("Initial analysis done: %d nodes, %d edges\n", snap.Stats.TotalNodes, snap.Stats.TotalEdges)

			fmt.Printf("\nWatching: %s\n", scanner.Root())
			fmt.Printf("Graph: %s\n", GraphPath)
			fmt.Printf("Debounce: %dms\n", debounceMs)
			fmt.Println("\nPress Ctrl+C to stop...")
			fmt.Println()

			w.Start()
			<-ctx.Done()

			fmt.Println("\nStopping watcher...")
			return nil
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", int(watcher.DefaultDebounceDelay/time.Millisecond), "debounce delay in milliseconds")

	return cmd
}
