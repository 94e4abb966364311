package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/analyzer"
	"github.com/zheng/codegraph/internal/config"
	"github.com/zheng/codegraph/internal/graph"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var exclude string
	var maxDepth int
	var languages string

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "Scan a project and build its dependency graph",
		Long: `Scan a project tree, extract relationships between files, models, routes
and external APIs, and write the graph snapshot.

Examples:
  codegraph analyze .                        # writes .code_graph.json
  codegraph analyze . -o graph.db            # writes a SQLite store
  codegraph analyze . --languages python,javascript --exclude fixtures`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			if outputPath == "" {
				outputPath = GraphPath
			}
			if projectPath != "." {
				projectCfg, err := config.Load(projectPath)
				if err != nil {
					return err
				}
				if projectCfg.Path != "" {
					cfg = projectCfg
				}
			}

			if exclude != "" {
				cfg.Exclude = append(cfg.Exclude, strings.Split(exclude, ",")...)
			}
			if maxDepth > 0 {
				cfg.MaxDepth = maxDepth
			}
			if languages != "" {
				langs, err := parseLanguages(languages)
				if err != nil {
					return err
				}
				cfg.Languages = langs
			}

			scanner, err := newScanner(projectPath)
			if err != nil {
				return err
			}

			human := Format != formatJSON
			if human {
				fmt.Printf("📂 Scanning project: %s\n", scanner.Root())
			}
			start := time.Now()
			snap, err := scanner.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("analyze %s: %w", projectPath, err)
			}
			elapsed := time.Since(start).Round(time.Millisecond)
			logger.Debug("scan finished", "root", scanner.Root(), "elapsed", elapsed)

			if err := saveSnapshot(cmd.Context(), outputPath, snap); err != nil {
				return fmt.Errorf("save graph: %w", err)
			}
			if !human {
				return outputJSON(snap.Stats)
			}
			fmt.Printf("✅ Analysis complete: %d nodes, %d edges (%v)\n",
				snap.Stats.TotalNodes, snap.Stats.TotalEdges, elapsed)
			fmt.Printf("💾 Graph saved to: %s\n", outputPath)
			printSummary(snap)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default: --graph)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "comma-separated extra directories to skip")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, fmt.Sprintf("deepest directory level scanned (default %d)", analyzer.DefaultMaxDepth))
	cmd.Flags().StringVar(&languages, "languages", "", "comma-separated languages to scan (default: all)")

	return cmd
}

func parseLanguages(list string) ([]string, error) {
	var langs, unknown []string
	for _, l := range strings.Split(list, ",") {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := analyzer.LanguageExtensions[l]; !ok {
			unknown = append(unknown, l)
			continue
		}
		langs = append(langs, l)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown languages: %s (supported: %s)",
			strings.Join(unknown, ", "), strings.Join(analyzer.Languages(), ", "))
	}
	return langs, nil
}

func printSummary(s *graph.Snapshot) {
	fmt.Printf("\n📊 Summary for '%s':\n", s.Project)
	fmt.Printf("   Nodes: %d\n", s.Stats.TotalNodes)
	fmt.Printf("   Edges: %d\n", s.Stats.TotalEdges)
	fmt.Printf("\n   Node types:\n")
	for _, c := range s.Stats.NodeTypes.Sorted() {
		fmt.Printf("     %s: %d\n", c.Type, c.Count)
	}
	fmt.Printf("\n   Edge types:\n")
	for _, c := range s.Stats.EdgeTypes.Sorted() {
		fmt.Printf("     %s: %d\n", c.Type, c.Count)
	}
}
