package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/zheng/codegraph/internal/graph"
)

// Scanner walks a project tree and builds its dependency graph
type Scanner struct {
	root       string
	exclude    []string
	maxDepth   int
	languages  []string
	workers    int
	gitignore  bool
	logger     *slog.Logger
	extractors []Extractor
	clock      func() time.Time
}

// Option configures a Scanner
type Option func(*Scanner)

// WithExclude adds directory names (or path.Match globs) to skip, on top of
// DefaultExcludeDirs
func WithExclude(dirs ...string) Option {
	return func(s *Scanner) {
		for _, d := range dirs {
			if d = strings.TrimSpace(d); d != "" {
				s.exclude = append(s.exclude, d)
			}
		}
	}
}

// WithMaxDepth sets the deepest directory level scanned
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithLanguages limits the scan to the named languages
func WithLanguages(langs ...string) Option {
	return func(s *Scanner) {
		s.languages = append(s.languages, langs...)
	}
}

// WithWorkers sets how many files are extracted concurrently
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithGitignore toggles honouring the root .gitignore
func WithGitignore(enabled bool) Option {
	return func(s *Scanner) {
		s.gitignore = enabled
	}
}

// WithLogger sets the logger used for progress and extractor warnings
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExtractors replaces the default extractor set
func WithExtractors(ex ...Extractor) Option {
	return func(s *Scanner) {
		s.extractors = ex
	}
}

// WithClock overrides the time source used for generated_at
func WithClock(clock func() time.Time) Option {
	return func(s *Scanner) {
		s.clock = clock
	}
}

// NewScanner creates a scanner for the project rooted at root
func NewScanner(root string, opts ...Option) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	s := &Scanner{
		root:      abs,
		exclude:   append([]string(nil), DefaultExcludeDirs...),
		maxDepth:  DefaultMaxDepth,
		workers:   runtime.NumCPU(),
		gitignore: true,
		logger:    slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractors == nil {
		s.extractors = DefaultExtractors(s.logger)
	}
	return s, nil
}

// DefaultExtractors returns the built-in extractor set
func DefaultExtractors(logger *slog.Logger) []Extractor {
	return []Extractor{
		NewPythonExtractor(),
		NewDjangoURLExtractor(),
		NewJSExtractor(),
		NewGoExtractor(logger),
		NewGenericExtractor(),
	}
}

// Root returns the absolute project root
func (s *Scanner) Root() string {
	return s.root
}

// Discover returns the relative paths of every source file the scan covers,
// sorted
func (s *Scanner) Discover(ctx context.Context) ([]string, error) {
	exts := extensionSet(s.languages)

	var gi *ignore.GitIgnore
	if s.gitignore {
		giPath := filepath.Join(s.root, ".gitignore")
		if _, err := os.Stat(giPath); err == nil {
			gi, err = ignore.CompileIgnoreFile(giPath)
			if err != nil {
				s.logger.Warn("invalid .gitignore, ignoring it", "error", err)
				gi = nil
			}
		}
	}

	var files []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root {
				return err
			}
			s.logger.Debug("skip unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == s.root {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 > s.maxDepth {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := exts[strings.ToLower(path.Ext(rel))]; !ok {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Strings(files)
	return files, nil
}

// SkipsDir reports whether directories with this base name are left out of
// the walk
func (s *Scanner) SkipsDir(name string) bool {
	return s.skipDir(name)
}

// Covers reports whether a file at rel has an extension the scan includes
func (s *Scanner) Covers(rel string) bool {
	_, ok := extensionSet(s.languages)[strings.ToLower(path.Ext(rel))]
	return ok
}

func (s *Scanner) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range s.exclude {
		if pattern == name {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Scan discovers files, runs every extractor and returns the snapshot
func (s *Scanner) Scan(ctx context.Context) (*graph.Snapshot, error) {
	start := time.Now()
	s.logger.Info("scanning project", "root", s.root)

	files, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("found source files", "count", len(files))

	// Phase 1: file nodes
	b := graph.NewBuilder(filepath.Base(s.root), graph.WithClock(s.clock))
	ids := make([]string, len(files))
	for i, rel := range files {
		ids[i] = b.AddFileNode(rel)
	}
	set := NewFileSet(b.Files())

	for _, ex := range s.extractors {
		if p, ok := ex.(Preparer); ok {
			if err := p.Prepare(ctx, s.root, set); err != nil {
				s.logger.Warn("extractor setup failed", "extractor", ex.Name(), "error", err)
			}
		}
	}

	// Phase 2: relationships, extracted concurrently and applied in file order
	results := make([][]Fact, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.extractFile(gCtx, rel, ids[i], set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var pending []Inheritance
	classes := make(map[string]string)
	for i := range results {
		for _, f := range results[i] {
			switch {
			case f.Node != nil:
				n := f.Node
				b.AddNode(n.ID, n.Label, n.Type, n.File, n.Line, n.Metadata)
				if f.Class {
					if _, ok := classes[n.Label]; !ok {
						classes[n.Label] = n.ID
					}
				}
			case f.Edge != nil:
				e := f.Edge
				b.AddEdge(e.Source, e.Target, e.Type, e.Metadata)
			case f.Inherit != nil:
				pending = append(pending, *f.Inherit)
			}
		}
		if (i+1)%100 == 0 {
			s.logger.Debug("analyzed files", "done", i+1, "total", len(files))
		}
	}
	resolved := resolveInheritance(b, classes, pending)

	snap := b.Export()
	s.logger.Info("analysis complete",
		"nodes", snap.Stats.TotalNodes,
		"edges", snap.Stats.TotalEdges,
		"inherits", resolved,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return snap, nil
}

func (s *Scanner) extractFile(ctx context.Context, rel, id string, set *FileSet) []Fact {
	var matched []Extractor
	for _, ex := range s.extractors {
		if ex.Match(rel) {
			matched = append(matched, ex)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		s.logger.Debug("skip unreadable file", "file", rel, "error", err)
		return nil
	}

	var facts []Fact
	for _, ex := range matched {
		f := &File{Root: s.root, Rel: rel, ID: id, Content: content, Files: set}
		out, err := ex.Extract(ctx, f)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return facts
			}
			s.logger.Warn("extractor failed", "extractor", ex.Name(), "file", rel, "error", err)
			continue
		}
		facts = append(facts, out...)
	}
	return facts
}

// resolveInheritance links classes to base classes declared elsewhere in the
// tree, matching on the last segment of the base name
func resolveInheritance(b *graph.Builder, classes map[string]string, pending []Inheritance) int {
	n := 0
	for _, inh := range pending {
		name := inh.Base
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		target, ok := classes[name]
		if !ok {
			continue
		}
		if b.AddEdge(inh.ClassID, target, graph.EdgeTypeInherits, graph.Meta("base", inh.Base)) {
			n++
		}
	}
	return n
}
