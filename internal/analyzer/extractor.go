package analyzer

import (
	"bytes"
	"context"
	"path"
	"sort"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

// Fact is one candidate node, edge or inheritance link produced by an
// extractor. Exactly one of Node, Edge and Inherit is set. Class marks a node
// fact as a class declaration that inheritance links may target.
type Fact struct {
	Node    *graph.Node
	Edge    *graph.Edge
	Inherit *Inheritance
	Class   bool
}

// Inheritance records that a class declared in the scanned tree extends a base
// class known only by name. Links are resolved after every file is processed.
type Inheritance struct {
	ClassID string
	Base    string
}

// Extractor turns the contents of one source file into facts. Extract may be
// called concurrently for different files and must not retain f.
type Extractor interface {
	Name() string
	Match(rel string) bool
	Extract(ctx context.Context, f *File) ([]Fact, error)
}

// Preparer is implemented by extractors that need a project-wide pass before
// files are extracted
type Preparer interface {
	Prepare(ctx context.Context, root string, files *FileSet) error
}

// File is the input handed to an extractor
type File struct {
	Root    string
	Rel     string
	ID      string
	Content []byte
	Files   *FileSet

	lineStarts []int
}

// Line returns the 1-based line number of a byte offset in the content
func (f *File) Line(offset int) int {
	if f.lineStarts == nil {
		f.lineStarts = []int{0}
		for i, c := range f.Content {
			if c == '\n' {
				f.lineStarts = append(f.lineStarts, i+1)
			}
		}
	}
	return sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > offset })
}

// Lines splits the content into lines without their terminators
func (f *File) Lines() []string {
	return strings.Split(string(bytes.ReplaceAll(f.Content, []byte("\r\n"), []byte("\n"))), "\n")
}

// FileSet is the read-only set of discovered files, keyed by normalized
// relative path
type FileSet struct {
	ids   map[string]string
	paths []string
}

// NewFileSet builds a FileSet from a relative path -> node ID mapping
func NewFileSet(ids map[string]string) *FileSet {
	fs := &FileSet{ids: make(map[string]string, len(ids))}
	for p, id := range ids {
		fs.ids[p] = id
		fs.paths = append(fs.paths, p)
	}
	sort.Strings(fs.paths)
	return fs
}

// Lookup returns the node ID of the file at rel
func (fs *FileSet) Lookup(rel string) (string, bool) {
	id, ok := fs.ids[graph.NormalizePath(rel)]
	return id, ok
}

// Paths returns every relative path in sorted order
func (fs *FileSet) Paths() []string {
	return fs.paths
}

// Len returns the number of files
func (fs *FileSet) Len() int {
	return len(fs.paths)
}

// fact helpers

func nodeFact(id, label string, typ graph.NodeType, file string, line int, meta graph.Metadata) Fact {
	return Fact{Node: &graph.Node{ID: id, Label: label, Type: typ, File: file, Line: line, Metadata: meta}}
}

func edgeFact(source, target string, typ graph.EdgeType, meta graph.Metadata) Fact {
	return Fact{Edge: &graph.Edge{Source: source, Target: target, Type: typ, Metadata: meta}}
}

// stem returns the base name of p without its extension
func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// keep whole runes
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
