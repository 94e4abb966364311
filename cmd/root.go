package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/codegraph/internal/config"
	"github.com/zheng/codegraph/internal/graph"
)

// output formats
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

var (
	GraphPath string
	TopN      int
	ShowAll   bool
	Format    string
	Verbose   bool

	cfg    = &config.ProjectConfig{}
	logger = slog.Default()
)

// RegisterCommands adds the persistent flags and all subcommands to the root
// command
func RegisterCommands(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&GraphPath, "graph", "g", graph.DefaultGraphFile, "graph snapshot (.json) or SQLite store (.db)")
	flags.IntVarP(&TopN, "top", "n", 0, "number of results for ranked queries")
	flags.BoolVarP(&ShowAll, "all", "a", false, "show every result instead of a capped list")
	flags.StringVar(&Format, "format", formatText, "output format: text, json (markdown for impact)")
	flags.BoolVarP(&Verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	}
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(fileCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(depsCmd())
	rootCmd.AddCommand(dependentsCmd())
	rootCmd.AddCommand(modelCmd())
	rootCmd.AddCommand(hubsCmd())
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(pathCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(deadCodeCmd())
	rootCmd.AddCommand(riskyFilesCmd())
	rootCmd.AddCommand(endpointCmd())
	rootCmd.AddCommand(overviewCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(changesCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(storeCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
}

// setup loads the project config from the working directory and builds the
// logger. Flags given on the command line win over the config.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(".")
	if err != nil {
		return err
	}
	cfg = loaded

	if cfg.Graph != "" && !cmd.Flags().Changed("graph") {
		GraphPath = cfg.Graph
	}

	level := cfg.Level()
	if Verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Path != "" {
		logger.Debug("config loaded", "path", cfg.Path)
	}
	return nil
}
