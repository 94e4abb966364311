package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/export"
)

func exportCmd() *cobra.Command {
	var outputFile string
	var changes bool
	var gitBase string
	var remote bool
	var noMermaid bool

	cmd := &cobra.Command{
		Use:   "export [path...]",
		Short: "Export the graph as a Markdown document",
		Long: `Export the project graph as a Markdown document (structure, layers, a
Mermaid diagram of the hubs, change risk and dead code), usable as context for
code review or AI-assisted edits.

With --changes the document covers only the given paths, or the files changed
since --base when no paths are given.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}

			exporter := export.NewExporter(a)
			opts := export.DefaultExportOptions()
			opts.IncludeMermaid = !noMermaid
			if TopN > 0 {
				opts.Top = TopN
			}

			var w *os.File
			if outputFile == "" || outputFile == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer w.Close()
			}

			if changes {
				paths := args
				if len(paths) == 0 {
					if paths, err = gitChangedFiles(cmd, gitBase, remote); err != nil {
						return fmt.Errorf("git changes: %w", err)
					}
				}
				logger.Info("exporting change report", "files", len(paths))
				return exporter.ExportChanges(w, paths, opts)
			}

			return exporter.Export(w, opts)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVarP(&changes, "changes", "c", false, "export only the impact of changed files")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git base to diff against")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "diff against the remote tracking branch")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "skip the Mermaid diagram")

	return cmd
}
