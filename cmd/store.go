package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/storage"
)

// DefaultStorePath is the SQLite store used by the store subcommands
const DefaultStorePath = ".code_graph.db"

func storeCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep the graph in a SQLite store",
		Long: `Copy snapshots between the JSON file and a SQLite store, and query the
store directly. Any query command reads a store with --graph <file>.db.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", DefaultStorePath, "SQLite store path")

	open := func() (*storage.DB, error) {
		return storage.Open(dbPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Copy the --graph snapshot into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSnapshot(cmd.Context(), GraphPath)
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveSnapshot(cmd.Context(), s); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			nodes, edges, err := db.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("💾 Stored %d nodes, %d edges in %s\n", nodes, edges, dbPath)
			return nil
		},
	})

	var outputPath string
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Write the stored snapshot back to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := db.LoadSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("load %s: %w", dbPath, err)
			}
			if outputPath == "" || outputPath == "-" {
				return graph.WriteSnapshot(cmd.OutOrStdout(), s)
			}
			if err := graph.SaveSnapshot(outputPath, s); err != nil {
				return err
			}
			fmt.Printf("💾 Graph saved to: %s\n", outputPath)
			return nil
		},
	}
	loadCmd.Flags().StringVarP(&outputPath, "output", "o", graph.DefaultGraphFile, "output file, - for stdout")
	cmd.AddCommand(loadCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "search <pattern>",
		Short: "Search the store by label or file, best matches first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			nodes, err := db.FindNodesByPattern(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if Format == formatJSON {
				return outputJSON(nodes)
			}
			p := newPrinter()
			if len(nodes) == 0 {
				p.NoMatch(fmt.Sprintf("nodes matching '%s'", args[0]))
				return nil
			}
			p.Nodes(fmt.Sprintf("Nodes matching '%s'", args[0]), nodes)
			return nil
		},
	})

	var depth int
	upstreamCmd := &cobra.Command{
		Use:   "dependents <pattern>",
		Short: "List everything that reaches the best match, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			matches, err := db.FindNodesByPattern(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			p := newPrinter()
			if len(matches) == 0 {
				if Format == formatJSON {
					return outputJSON([]any{})
				}
				p.NoMatch(fmt.Sprintf("nodes found matching '%s'", args[0]))
				return nil
			}

			target := matches[0]
			nodes, err := db.GetUpstreamDependents(cmd.Context(), target.ID, depth)
			if err != nil {
				return fmt.Errorf("dependents of %s: %w", target.ID, err)
			}
			if Format == formatJSON {
				return outputJSON(nodes)
			}
			p.Nodes(fmt.Sprintf("Dependents of %s", target.Label), nodes)
			return nil
		},
	}
	upstreamCmd.Flags().IntVar(&depth, "depth", 0, "maximum hops, 0 for no limit")
	cmd.AddCommand(upstreamCmd)

	return cmd
}
