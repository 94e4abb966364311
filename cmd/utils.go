package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zheng/codegraph/internal/analyzer"
	"github.com/zheng/codegraph/internal/display"
	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/impact"
	"github.com/zheng/codegraph/internal/index"
	"github.com/zheng/codegraph/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintGraphMissing writes the guidance shown when no snapshot can be found
func PrintGraphMissing(w io.Writer, path string) {
	fmt.Fprintf(w, "❌ Graph not found at '%s'\n", path)
	fmt.Fprintln(w, "   Run `codegraph analyze` first to generate it.")
}

func isStore(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".db")
}

// loadSnapshot reads the snapshot at path: a SQLite store when the path ends
// in .db, a JSON snapshot (with the usual fallback locations) otherwise
func loadSnapshot(ctx context.Context, path string) (*graph.Snapshot, error) {
	if !isStore(path) {
		resolved, err := graph.ResolveGraphPath(path)
		if err != nil {
			return nil, err
		}
		return graph.LoadSnapshot(resolved)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrGraphNotFound, path)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s, err := db.LoadSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil, fmt.Errorf("%w: %s: %w", graph.ErrGraphNotFound, path, err)
	}
	return s, err
}

// loadAnalyzer loads the graph named by --graph and indexes it
func loadAnalyzer(ctx context.Context) (*impact.Analyzer, error) {
	s, err := loadSnapshot(ctx, GraphPath)
	if err != nil {
		return nil, err
	}
	idx := index.New(s)
	if n := idx.GhostEdges(); n > 0 {
		logger.Debug("ghost edges dropped", "count", n)
	}
	logger.Debug("graph loaded", "project", s.Project, "nodes", len(idx.Nodes()), "edges", len(idx.Edges()))
	return impact.NewAnalyzer(idx), nil
}

func newPrinter() *display.Printer {
	return display.NewPrinter(os.Stdout, display.WithAll(ShowAll))
}

// topOr returns --top when set, def otherwise
func topOr(def int) int {
	if TopN > 0 {
		return TopN
	}
	return def
}

// noMatch turns a failed lookup into the "no match" line; other errors pass
// through
func noMatch(p *display.Printer, err error, what, query string) error {
	if errors.Is(err, impact.ErrNoMatch) {
		if Format == formatJSON {
			return outputJSON([]any{})
		}
		p.NoMatch(fmt.Sprintf("%s matching '%s'", what, query))
		return nil
	}
	return err
}

// newScanner builds a scanner for root from the project config
func newScanner(root string) (*analyzer.Scanner, error) {
	opts := []analyzer.Option{
		analyzer.WithLogger(logger),
		analyzer.WithExclude(cfg.Exclude...),
		analyzer.WithGitignore(cfg.GitignoreEnabled()),
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, analyzer.WithLanguages(cfg.Languages...))
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, analyzer.WithMaxDepth(cfg.MaxDepth))
	}
	if cfg.Workers > 0 {
		opts = append(opts, analyzer.WithWorkers(cfg.Workers))
	}
	return analyzer.NewScanner(root, opts...)
}

// saveSnapshot writes s to path, as a SQLite store when it ends in .db
func saveSnapshot(ctx context.Context, path string, s *graph.Snapshot) error {
	if !isStore(path) {
		return graph.SaveSnapshot(path, s)
	}
	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveSnapshot(ctx, s)
}
