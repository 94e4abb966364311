package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.True(t, cfg.GitignoreEnabled())
	assert.Equal(t, DefaultServeAddr, cfg.ServeAddr())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := `graph: build/graph.json
exclude: [migrations, fixtures]
languages:
  - python
  - typescript
maxDepth: 4
workers: 2
gitignore: false
logLevel: DEBUG
serve:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "build/graph.json", cfg.Graph)
	assert.Equal(t, []string{"migrations", "fixtures"}, cfg.Exclude)
	assert.Equal(t, []string{"python", "typescript"}, cfg.Languages)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.GitignoreEnabled())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, ":9000", cfg.ServeAddr())
	assert.Equal(t, filepath.Join(dir, ".codegraph.yaml"), cfg.Path)
}

func TestLoad_PrefersYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yml"), []byte("workers: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yaml"), []byte("workers: 9\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph.yml"), []byte("workers: [oops\n"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
