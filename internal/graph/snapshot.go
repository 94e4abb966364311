package graph

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

var (
	// ErrGraphNotFound is returned when no snapshot file exists at the given path
	ErrGraphNotFound = errors.New("graph file not found")
	// ErrMalformedSnapshot is returned when a snapshot cannot be parsed
	ErrMalformedSnapshot = errors.New("malformed graph snapshot")
)

// DefaultGraphFile is the snapshot file name written by analyze
const DefaultGraphFile = ".code_graph.json"

// fallbackGraphFiles are tried in order when the requested path does not exist
var fallbackGraphFiles = []string{
	".code_graph.json",
	"code_graph.json",
	filepath.Join(".claude", "code_graph.json"),
}

// Snapshot is the exchange format between the builder and the query engine
type Snapshot struct {
	Project     string            `json:"project"`
	GeneratedAt string            `json:"generated_at"`
	Stats       Stats             `json:"stats"`
	NodeColors  map[string]string `json:"node_colors"`
	EdgeColors  map[string]string `json:"edge_colors"`
	Nodes       []Node            `json:"nodes"`
	Edges       []Edge            `json:"edges"`
}

// Stats summarizes a snapshot
type Stats struct {
	TotalNodes int        `json:"total_nodes"`
	TotalEdges int        `json:"total_edges"`
	NodeTypes  TypeCounts `json:"node_types"`
	EdgeTypes  TypeCounts `json:"edge_types"`
}

// TypeCount is the number of nodes or edges carrying a type tag
type TypeCount struct {
	Type  string
	Count int
}

// TypeCounts is an ordered tally that encodes as a JSON object in order
type TypeCounts []TypeCount

// Get returns the count for typ, or 0
func (tc TypeCounts) Get(typ string) int {
	for _, c := range tc {
		if c.Type == typ {
			return c.Count
		}
	}
	return 0
}

// Sorted returns a copy ordered by count descending, keeping the existing order
// among equal counts
func (tc TypeCounts) Sorted() TypeCounts {
	if len(tc) == 0 {
		return nil
	}
	out := make(TypeCounts, len(tc))
	copy(out, tc)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// MarshalJSON encodes the counts as a JSON object preserving order
func (tc TypeCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, c.Type); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of counts preserving key order
func (tc *TypeCounts) UnmarshalJSON(data []byte) error {
	var out TypeCounts
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("count for %q: %w", key, err)
		}
		out = append(out, TypeCount{Type: key, Count: n})
		return nil
	})
	if err != nil {
		return err
	}
	*tc = out
	return nil
}

// WriteSnapshot encodes s as indented JSON
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// SaveSnapshot writes s to the file at path, creating parent directories
func SaveSnapshot(path string, s *Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteSnapshot(w, s); err != nil {
		f.Close()
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write graph file: %w", err)
	}
	return f.Close()
}

// DecodeSnapshot parses a snapshot from r
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return &s, nil
}

// LoadSnapshot reads and parses the snapshot file at path
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, path)
		}
		return nil, fmt.Errorf("open graph file: %w", err)
	}
	defer f.Close()

	s, err := DecodeSnapshot(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ResolveGraphPath returns path if it names an existing file, otherwise the
// first existing fallback location
func ResolveGraphPath(path string) (string, error) {
	if isFile(path) {
		return path, nil
	}
	for _, candidate := range fallbackGraphFiles {
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrGraphNotFound, path)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
