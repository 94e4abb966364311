package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/analyzer"
	"github.com/zheng/codegraph/internal/display"
	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
)

// match caps per command
const (
	fileMatches   = 5
	impactMatches = 3
	depsMatches   = 3
	defaultHubs   = 15
	defaultRisky  = 20
)

// queryFunc runs one query against the loaded graph
type queryFunc func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error

// queryCmd wraps fn with graph loading
func queryCmd(use, short string, args cobra.PositionalArgs, fn queryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}
			return fn(cmd, a, newPrinter(), args)
		},
	}
}

// find resolves query to at most max nodes
func find(a *impact.Analyzer, query string, max int) ([]graph.Node, error) {
	nodes, err := a.Find(query)
	if err != nil {
		return nil, err
	}
	if len(nodes) > max {
		nodes = nodes[:max]
	}
	return nodes, nil
}

func fileCmd() *cobra.Command {
	return queryCmd("file <path>", "Show a file's connections and risk", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			nodes, err := find(a, args[0], fileMatches)
			if err != nil {
				return noMatch(p, err, "nodes found", args[0])
			}
			reports := make([]*impact.FileReport, 0, len(nodes))
			for _, n := range nodes {
				reports = append(reports, a.File(n.ID))
			}
			if Format == formatJSON {
				return outputJSON(reports)
			}
			p.Files(reports)
			return nil
		})
}

func impactCmd() *cobra.Command {
	var depth int

	cmd := queryCmd("impact <path>", "Show what transitively depends on a file", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			nodes, err := find(a, args[0], impactMatches)
			if err != nil {
				return noMatch(p, err, "nodes found", args[0])
			}
			reports := make([]*impact.ImpactReport, 0, len(nodes))
			for _, n := range nodes {
				reports = append(reports, a.Impact(n.ID, depth))
			}

			switch Format {
			case formatJSON:
				return outputJSON(reports)
			case formatMarkdown:
				for _, r := range reports {
					fmt.Print(r.FormatMarkdown())
				}
			case "tree":
				for _, r := range reports {
					fmt.Print(r.FormatTree())
				}
			default:
				for _, r := range reports {
					p.Impact(r)
				}
			}
			return nil
		})
	cmd.Long = `Show the nodes that reach a file through incoming edges, grouped by
distance. Formats: text (default), json, markdown, tree.`
	cmd.Flags().IntVar(&depth, "depth", impact.DefaultImpactDepth, "traversal depth; consumers up to depth+1 hops away are reported")

	return cmd
}

func neighborsCmd(use, short string, query func(a *impact.Analyzer, id string) *impact.Neighbors,
	show func(p *display.Printer, n *impact.Neighbors)) *cobra.Command {
	return queryCmd(use, short, cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			nodes, err := find(a, args[0], depsMatches)
			if err != nil {
				return noMatch(p, err, "nodes found", args[0])
			}
			results := make([]*impact.Neighbors, 0, len(nodes))
			for _, n := range nodes {
				results = append(results, query(a, n.ID))
			}
			if Format == formatJSON {
				return outputJSON(results)
			}
			for _, r := range results {
				show(p, r)
			}
			return nil
		})
}

func depsCmd() *cobra.Command {
	return neighborsCmd("deps <path>", "Show what a file depends on",
		(*impact.Analyzer).Dependencies, (*display.Printer).Dependencies)
}

func dependentsCmd() *cobra.Command {
	return neighborsCmd("dependents <path>", "Show what directly depends on a file",
		(*impact.Analyzer).Dependents, (*display.Printer).Dependents)
}

func modelCmd() *cobra.Command {
	return queryCmd("model <name>", "Show a model's readers and writers", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			reports, err := a.Models(args[0])
			if err != nil {
				return noMatch(p, err, "model found", args[0])
			}
			if Format == formatJSON {
				return outputJSON(reports)
			}
			p.Models(reports)
			return nil
		})
}

func hubsCmd() *cobra.Command {
	return queryCmd("hubs", "List the most connected nodes", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			hubs := a.Hubs(topOr(defaultHubs))
			if Format == formatJSON {
				return outputJSON(hubs)
			}
			p.Hubs(hubs)
			return nil
		})
}

func clusterCmd() *cobra.Command {
	return queryCmd("cluster <path>", "Show everything connected to a file", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			nodes, err := find(a, args[0], 1)
			if err != nil {
				return noMatch(p, err, "nodes found", args[0])
			}
			c := a.Cluster(nodes[0].ID)
			if Format == formatJSON {
				return outputJSON(c)
			}
			p.Cluster(c)
			return nil
		})
}

func pathCmd() *cobra.Command {
	return queryCmd("path <from> <to>", "Find the shortest connection between two files", cobra.ExactArgs(2),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			from, err := a.Find(args[0])
			if err != nil {
				return noMatch(p, err, "nodes found", args[0])
			}
			to, err := a.Find(args[1])
			if err != nil {
				return noMatch(p, err, "nodes found", args[1])
			}
			targets := make([]string, 0, len(to))
			for _, n := range to {
				targets = append(targets, n.ID)
			}

			res := a.Path(from[0].ID, targets)
			if Format == formatJSON {
				return outputJSON(res)
			}
			p.Path(res, args[0], args[1])
			return nil
		})
}

func searchCmd() *cobra.Command {
	return queryCmd("search <query>", "Search nodes by label or file", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			matches := a.Describe(a.Index().Search(args[0]))
			if Format == formatJSON {
				return outputJSON(matches)
			}
			if len(matches) == 0 {
				p.NoMatch(fmt.Sprintf("nodes matching '%s'", args[0]))
				return nil
			}
			p.Search(args[0], matches)
			return nil
		})
}

func statsCmd() *cobra.Command {
	var types, edges, filter string

	cmd := queryCmd("stats", "Summarize the graph", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			f := impact.ParseFilter(splitList(types), splitList(edges), filter)
			s := a.Stats(f)
			if Format == formatJSON {
				return outputJSON(s)
			}
			p.Stats(s)
			return nil
		})
	cmd.Long = `Summarize the graph. The connected-component count honours the
--types, --edges and --filter options, so it describes the subgraph a viewer
with the same filters would show.`
	cmd.Flags().StringVar(&types, "types", "", "comma-separated node types to keep")
	cmd.Flags().StringVar(&edges, "edges", "", "comma-separated edge types to follow")
	cmd.Flags().StringVar(&filter, "filter", "", "keep nodes whose label or file contains this")

	return cmd
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func deadCodeCmd() *cobra.Command {
	cmd := queryCmd("dead-code", "List isolated and unreferenced nodes", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			d := a.DeadCode()
			if Format == formatJSON {
				return outputJSON(d)
			}
			p.DeadCode(d)
			return nil
		})
	cmd.Aliases = []string{"dead_code"}
	return cmd
}

func riskyFilesCmd() *cobra.Command {
	cmd := queryCmd("risky-files", "Rank nodes by change risk", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			ranked := a.RiskyFiles(topOr(defaultRisky))
			if Format == formatJSON {
				return outputJSON(ranked)
			}
			p.RiskyFiles(ranked)
			return nil
		})
	cmd.Aliases = []string{"risky_files"}
	return cmd
}

func endpointCmd() *cobra.Command {
	return queryCmd("endpoint <pattern>", "Trace the request chain of matching endpoints", cobra.ExactArgs(1),
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			reports, err := a.Endpoints(args[0])
			if err != nil {
				return noMatch(p, err, "endpoints found", args[0])
			}
			if Format == formatJSON {
				return outputJSON(reports)
			}
			p.Endpoints(reports)
			return nil
		})
}

func overviewCmd() *cobra.Command {
	return queryCmd("overview", "Show the project structure by directory and layer", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			ov := a.Overview()
			if Format == formatJSON {
				return outputJSON(ov)
			}
			p.Overview(ov)
			return nil
		})
}

func reportCmd() *cobra.Command {
	return queryCmd("report", "Print the full health report", cobra.NoArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			r := a.Report()
			if Format == formatJSON {
				return outputJSON(r)
			}
			p.Report(r)
			return nil
		})
}

func changesCmd() *cobra.Command {
	var useGit bool
	var gitBase string
	var remote bool

	cmd := queryCmd("changes [path...]", "Analyze what a set of changed files affects", cobra.ArbitraryArgs,
		func(cmd *cobra.Command, a *impact.Analyzer, p *display.Printer, args []string) error {
			paths := args
			if len(paths) == 0 {
				if !useGit {
					return fmt.Errorf("no paths given (pass files or --git)")
				}
				var err error
				if paths, err = gitChangedFiles(cmd, gitBase, remote); err != nil {
					return err
				}
				if len(paths) == 0 {
					if Format == formatJSON {
						return outputJSON(a.Changes(nil))
					}
					fmt.Println("No changes detected")
					return nil
				}
			}

			r := a.Changes(paths)
			if Format == formatJSON {
				return outputJSON(r)
			}
			p.Changes(r)
			return nil
		})
	cmd.Flags().BoolVar(&useGit, "git", false, "use the files changed since --base when no paths are given")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git base to diff against")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "diff against the remote tracking branch")

	return cmd
}

// gitChangedFiles lists the files changed in the working directory's
// repository since base, or since the upstream branch with remote
func gitChangedFiles(cmd *cobra.Command, base string, remote bool) ([]string, error) {
	ctx := cmd.Context()
	if remote {
		branch, err := analyzer.GetRemoteTrackingBranch(ctx, ".")
		if err != nil {
			logger.Warn("no remote tracking branch, using base", "base", base, "error", err)
		} else {
			base = branch
		}
	}
	changes, err := analyzer.GetGitChanges(ctx, ".", base)
	if err != nil {
		return nil, err
	}
	logger.Debug("git changes", "summary", changes.String())
	return changes.Files, nil
}
