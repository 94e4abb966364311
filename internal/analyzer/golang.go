package analyzer

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/zheng/codegraph/internal/graph"
)

// GoExtractor links Go files to the project packages they import. Package
// membership comes from go/packages; the per-file pass only parses imports.
type GoExtractor struct {
	logger *slog.Logger
	// import path -> non-test files of the package, relative and sorted
	pkgFiles map[string][]string
}

// NewGoExtractor creates a Go extractor
func NewGoExtractor(logger *slog.Logger) *GoExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoExtractor{logger: logger}
}

func (e *GoExtractor) Name() string { return "go" }

func (e *GoExtractor) Match(rel string) bool {
	return strings.HasSuffix(strings.ToLower(rel), ".go")
}

// Prepare loads every package under root. Without a loadable module the
// extractor emits nothing.
func (e *GoExtractor) Prepare(ctx context.Context, root string, files *FileSet) error {
	e.pkgFiles = nil
	if !hasGoFiles(files) {
		return nil
	}

	pkgs, err := LoadPackages(ctx, root)
	if err != nil {
		return err
	}

	// packages with errors may still list their files
	var errs int
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		errs += len(pkg.Errors)
	})
	if errs > 0 {
		e.logger.Warn("go package errors encountered", "count", errs)
	}

	out := make(map[string][]string)
	for _, pkg := range pkgs {
		for _, gf := range pkg.GoFiles {
			rel, err := filepath.Rel(root, gf)
			if err != nil {
				continue
			}
			rel = graph.NormalizePath(rel)
			if _, ok := files.Lookup(rel); ok {
				out[pkg.PkgPath] = append(out[pkg.PkgPath], rel)
			}
		}
	}
	for k := range out {
		sort.Strings(out[k])
	}
	e.pkgFiles = out
	e.logger.Debug("loaded go packages", "packages", len(out))
	return nil
}

// LoadPackages loads the names and files of all Go packages under root
func LoadPackages(ctx context.Context, root string) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
		Dir:     root,
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	return pkgs, nil
}

func hasGoFiles(files *FileSet) bool {
	for _, p := range files.Paths() {
		if strings.HasSuffix(p, ".go") {
			return true
		}
	}
	return false
}

func (e *GoExtractor) Extract(_ context.Context, f *File) ([]Fact, error) {
	if len(e.pkgFiles) == 0 {
		return nil, nil
	}

	parsed, err := parser.ParseFile(token.NewFileSet(), f.Rel, f.Content, parser.ImportsOnly)
	if err != nil {
		// broken files still contribute nothing rather than failing the scan
		return nil, nil
	}

	var facts []Fact
	for _, imp := range parsed.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		for _, target := range e.pkgFiles[importPath] {
			if id, ok := f.Files.Lookup(target); ok {
				facts = append(facts, edgeFact(f.ID, id, graph.EdgeTypeImports, graph.Meta("module", importPath)))
			}
		}
	}
	return facts, nil
}
