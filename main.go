package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/cmd"
	"github.com/zheng/codegraph/internal/graph"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codegraph",
		Short: "codegraph - code dependency graph and change impact analysis",
		Long: `codegraph scans a project into a graph of files, models, routes and
external APIs, then answers questions about it: what breaks if a file changes,
how two files are connected, which files are risky to touch and what looks
like dead code.`,
	}

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, graph.ErrGraphNotFound) {
			cmd.PrintGraphMissing(os.Stderr, cmd.GraphPath)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
