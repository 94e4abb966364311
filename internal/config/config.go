package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileNames are the config file names looked up in the project root, in order
var FileNames = []string{".codegraph.yml", ".codegraph.yaml"}

// DefaultServeAddr is the listen address of the query API
const DefaultServeAddr = "127.0.0.1:8765"

// ProjectConfig holds project-level settings loaded from .codegraph.yml.
type ProjectConfig struct {
	Graph     string      `yaml:"graph,omitempty"`
	Exclude   []string    `yaml:"exclude,omitempty"`
	Languages []string    `yaml:"languages,omitempty"`
	MaxDepth  int         `yaml:"maxDepth,omitempty"`
	Workers   int         `yaml:"workers,omitempty"`
	Gitignore *bool       `yaml:"gitignore,omitempty"`
	LogLevel  string      `yaml:"logLevel,omitempty"`
	Serve     ServeConfig `yaml:"serve,omitempty"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// ServeConfig configures the HTTP query API
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load attempts to read .codegraph.yml or .codegraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Path = path
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// GitignoreEnabled reports whether the scan honours .gitignore (default on)
func (c *ProjectConfig) GitignoreEnabled() bool {
	return c.Gitignore == nil || *c.Gitignore
}

// ServeAddr returns the configured listen address or the default
func (c *ProjectConfig) ServeAddr() string {
	if c.Serve.Addr != "" {
		return c.Serve.Addr
	}
	return DefaultServeAddr
}

// Level parses LogLevel; unknown or empty values mean info
func (c *ProjectConfig) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
