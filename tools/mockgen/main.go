package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir     string
	NumPackages   int
	NumModsPerPkg int
	MaxDepth      int
	ImportDensity float64 // average imports per module
	NumModels     int
	Seed          int64
}

// ModuleInfo represents a Python module in the mock project
type ModuleInfo struct {
	Package string
	Name    string
	Depth   int
	PkgIdx  int
}

// Path returns the module's file path relative to the project root
func (m *ModuleInfo) Path() string {
	return filepath.Join(m.Package, m.Name+".py")
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "output directory")
	flag.IntVar(&cfg.NumPackages, "pkgs", 20, "number of Python packages")
	flag.IntVar(&cfg.NumModsPerPkg, "mods", 50, "modules per package")
	flag.IntVar(&cfg.MaxDepth, "depth", 10, "import layers")
	flag.Float64Var(&cfg.ImportDensity, "density", 3.0, "average imports per module")
	flag.IntVar(&cfg.NumModels, "models", 12, "number of ORM models")
	flag.Int64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.Parse()

	fmt.Printf("Generating mock project...\n")
	fmt.Printf("  Packages: %d\n", cfg.NumPackages)
	fmt.Printf("  Modules per package: %d\n", cfg.NumModsPerPkg)
	fmt.Printf("  Total modules: %d\n", cfg.NumPackages*cfg.NumModsPerPkg)
	fmt.Printf("  Layers: %d\n", cfg.MaxDepth)
	fmt.Printf("  Import density: %.1f\n", cfg.ImportDensity)

	if err := generateProject(&cfg, rand.New(rand.NewSource(cfg.Seed))); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Project generated: %s\n", cfg.OutputDir)
	fmt.Printf("\nNext:\n")
	fmt.Printf("  codegraph analyze %s -o %s\n", cfg.OutputDir, filepath.Join(cfg.OutputDir, ".code_graph.json"))
}

func generateProject(cfg *Config, rng *rand.Rand) error {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}

	models := modelNames(cfg.NumModels)
	if err := generateModels(cfg, models); err != nil {
		return err
	}

	allMods := generateModuleRegistry(cfg)
	modsByDepth := organizeModsByDepth(allMods, cfg.MaxDepth)

	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		if err := generatePackage(cfg, rng, pkgIdx, modsByDepth, allMods, models); err != nil {
			return err
		}
		fmt.Printf("  ✓ package pkg%02d (%d/%d)\n", pkgIdx, pkgIdx+1, cfg.NumPackages)
	}

	return generateFrontend(cfg, rng, allMods)
}

func modelNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Model%02d", i)
	}
	return names
}

// generateModels writes one Django-style models module
func generateModels(cfg *Config, models []string) error {
	dir := filepath.Join(cfg.OutputDir, "core")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("from django.db import models\n\n\n")
	for _, m := range models {
		fmt.Fprintf(&sb, "class %s(models.Model):\n    name = models.CharField(max_length=64)\n\n\n", m)
	}
	if err := os.WriteFile(filepath.Join(dir, "__init__.py"), nil, 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "models.py"), []byte(sb.String()), 0644)
}

func generateModuleRegistry(cfg *Config) []*ModuleInfo {
	var mods []*ModuleInfo
	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		for modIdx := 0; modIdx < cfg.NumModsPerPkg; modIdx++ {
			mods = append(mods, &ModuleInfo{
				Package: fmt.Sprintf("pkg%02d", pkgIdx),
				Name:    fmt.Sprintf("mod%04d", modIdx),
				PkgIdx:  pkgIdx,
			})
		}
	}
	return mods
}

func organizeModsByDepth(allMods []*ModuleInfo, maxDepth int) [][]*ModuleInfo {
	modsByDepth := make([][]*ModuleInfo, maxDepth+1)

	// spread modules evenly over the layers
	for i, m := range allMods {
		m.Depth = i % (maxDepth + 1)
		modsByDepth[m.Depth] = append(modsByDepth[m.Depth], m)
	}

	return modsByDepth
}

func generatePackage(cfg *Config, rng *rand.Rand, pkgIdx int, modsByDepth [][]*ModuleInfo, allMods []*ModuleInfo, models []string) error {
	pkgName := fmt.Sprintf("pkg%02d", pkgIdx)
	pkgDir := filepath.Join(cfg.OutputDir, pkgName)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "__init__.py"), nil, 0644); err != nil {
		return err
	}

	start := pkgIdx * cfg.NumModsPerPkg
	for _, m := range allMods[start : start+cfg.NumModsPerPkg] {
		content := generateModule(m, generateImports(m, rng, modsByDepth, cfg), models, rng)
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, m.Path()), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// generateImports picks modules in deeper layers only, so the graph has no
// cycles
func generateImports(m *ModuleInfo, rng *rand.Rand, modsByDepth [][]*ModuleInfo, cfg *Config) []*ModuleInfo {
	if m.Depth >= len(modsByDepth)-1 || cfg.ImportDensity <= 0 {
		return nil
	}

	n := rng.Intn(int(cfg.ImportDensity*2)+1) + 1
	if n > int(cfg.ImportDensity*1.5) {
		n = int(cfg.ImportDensity)
	}

	var imports []*ModuleInfo
	seen := make(map[*ModuleInfo]bool)
	next := m.Depth + 1
	for i := 0; i < n; i++ {
		var target *ModuleInfo
		if rng.Float64() < 0.8 && len(modsByDepth[next]) > 0 {
			target = modsByDepth[next][rng.Intn(len(modsByDepth[next]))]
		} else {
			var deeper []*ModuleInfo
			for d := next; d < len(modsByDepth); d++ {
				deeper = append(deeper, modsByDepth[d]...)
			}
			if len(deeper) > 0 {
				target = deeper[rng.Intn(len(deeper))]
			}
		}
		if target != nil && target != m && !seen[target] {
			imports = append(imports, target)
			seen[target] = true
		}
	}
	return imports
}

func generateModule(m *ModuleInfo, imports []*ModuleInfo, models []string, rng *rand.Rand) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\"\"\"%s.%s: mock module at layer %d.\"\"\"\n", m.Package, m.Name, m.Depth)
	for _, imp := range imports {
		fmt.Fprintf(&sb, "from %s import %s\n", imp.Package, imp.Name)
	}

	// a third of the modules touch the ORM
	var model string
	if len(models) > 0 && rng.Intn(3) == 0 {
		model = models[rng.Intn(len(models))]
		fmt.Fprintf(&sb, "from core.models import %s\n", model)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "def run(value):\n")
	fmt.Fprintf(&sb, "    result = value\n")
	for i, imp := range imports {
		fmt.Fprintf(&sb, "    result += %s.run(result + %d)\n", imp.Name, i)
	}
	if model != "" {
		if rng.Intn(2) == 0 {
			fmt.Fprintf(&sb, "    result += %s.objects.filter(name=str(value)).count()\n", model)
		} else {
			fmt.Fprintf(&sb, "    %s.objects.create(name=str(result))\n", model)
		}
	}
	fmt.Fprintf(&sb, "    return result\n")
	return sb.String()
}

// generateFrontend writes a small JS client calling the API of the top layer
func generateFrontend(cfg *Config, rng *rand.Rand, allMods []*ModuleInfo) error {
	dir := filepath.Join(cfg.OutputDir, "web", "src")
	if err := os.MkdirAll(filepath.Join(dir, "lib"), 0755); err != nil {
		return err
	}
	lib := "export function get(url) {\n  return fetch(\"https://api.mockproject.dev/v1\" + url);\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "lib", "http.js"), []byte(lib), 0644); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("import express from \"express\";\nimport { get } from \"./lib/http\";\n\nconst router = express.Router();\n\n")
	for _, m := range allMods {
		if m.Depth != 0 || rng.Intn(4) != 0 {
			continue
		}
		fmt.Fprintf(&sb, "router.get(\"/%s/%s\", (req, res) => get(\"/%s\"));\n", m.Package, m.Name, m.Name)
	}
	sb.WriteString("\nexport default router;\n")
	return os.WriteFile(filepath.Join(dir, "routes.js"), []byte(sb.String()), 0644)
}
