package graph

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	b := newBuilder(t)
	a := b.AddFileNode("src/api/orders.py")
	m := b.AddNode(MakeID(ModelKey("Order")), "Order", NodeTypeCollection, "", 0, Meta("source", "orm", "access", "read"))
	b.AddEdge(a, m, EdgeTypeDBRead, Meta("line", "12"))
	want := b.Export()

	path := filepath.Join(t.TempDir(), "out", "graph.json")
	require.NoError(t, SaveSnapshot(path, want))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"source", "access"}, []string{got.Nodes[1].Metadata[0].Key, got.Nodes[1].Metadata[1].Key})
}

func TestWriteSnapshot_Layout(t *testing.T) {
	b := newBuilder(t)
	b.AddNode("n1", "café", NodeTypeFile, "café.py", 0, Meta("z", "1", "a", "<b>"))
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, b.Export()))

	out := buf.String()
	assert.Contains(t, out, `"café"`)
	assert.Contains(t, out, `"<b>"`)
	assert.Less(t, strings.Index(out, `"z"`), strings.Index(out, `"a"`))
	assert.Less(t, strings.Index(out, `"project"`), strings.Index(out, `"nodes"`))
}

func TestDecodeSnapshot_Lenient(t *testing.T) {
	in := `{
		"project": "p",
		"stats": {"total_nodes": 1, "total_edges": 1, "node_types": {"widget": 1}, "edge_types": null},
		"nodes": [{"id": "a", "label": "A", "type": "widget", "file": null, "line": null, "metadata": {"n": 3, "ok": true}}],
		"edges": [{"source": "a", "target": "ghost", "type": "pulls"}]
	}`
	s, err := DecodeSnapshot(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, NodeType("widget"), s.Nodes[0].Type)
	assert.Equal(t, "", s.Nodes[0].File)
	assert.Equal(t, "3", s.Nodes[0].Metadata.Value("n"))
	assert.Equal(t, "true", s.Nodes[0].Metadata.Value("ok"))
	assert.Equal(t, 1, s.Stats.NodeTypes.Get("widget"))
	// ghost edges survive decoding
	require.Len(t, s.Edges, 1)
	assert.Equal(t, EdgeType("pulls"), s.Edges[0].Type)
}

func TestMetadata_NonStringValuesReencode(t *testing.T) {
	var m Metadata
	require.NoError(t, m.UnmarshalJSON([]byte(`{"n": 3, "l": ["x"], "s": "y", "o": {"k": null}}`)))
	assert.Equal(t, "3", m.Value("n"))

	out, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"n":3,"l":["x"],"s":"y","o":{"k":null}}`, string(out))

	// overwriting a raw value makes it a plain string again
	m = m.With("n", "4")
	out, err = m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"n":"4","l":["x"],"s":"y","o":{"k":null}}`, string(out))
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	_, err := DecodeSnapshot(strings.NewReader(`{"nodes": [`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSnapshot))
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGraphNotFound))
}

func TestResolveGraphPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := ResolveGraphPath("custom.json")
	assert.True(t, errors.Is(err, ErrGraphNotFound))

	require.NoError(t, os.MkdirAll(".claude", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(".claude", "code_graph.json"), []byte("{}"), 0o644))
	got, err := ResolveGraphPath("custom.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".claude", "code_graph.json"), got)

	require.NoError(t, os.WriteFile("custom.json", []byte("{}"), 0o644))
	got, err = ResolveGraphPath("custom.json")
	require.NoError(t, err)
	assert.Equal(t, "custom.json", got)
}
