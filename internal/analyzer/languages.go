package analyzer

import (
	"path"
	"sort"
	"strings"
)

// Language names recognised by the scanner
const (
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangPHP        = "php"
	LangRuby       = "ruby"
	LangJava       = "java"
	LangGo         = "go"
	LangRust       = "rust"
	LangCSharp     = "csharp"
	LangVue        = "vue"
	LangSvelte     = "svelte"
)

// LanguageExtensions maps a language name to the file extensions it covers
var LanguageExtensions = map[string][]string{
	LangPython:     {".py"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	LangTypeScript: {".ts", ".tsx", ".mts", ".cts"},
	LangPHP:        {".php"},
	LangRuby:       {".rb"},
	LangJava:       {".java"},
	LangGo:         {".go"},
	LangRust:       {".rs"},
	LangCSharp:     {".cs"},
	LangVue:        {".vue"},
	LangSvelte:     {".svelte"},
}

// DefaultExcludeDirs are directory names (or path.Match globs) never descended into
var DefaultExcludeDirs = []string{
	"node_modules", ".git", "__pycache__", ".venv", "venv", "env", ".env",
	"dist", "build", ".next", ".nuxt", ".svelte-kit", "vendor", ".tox",
	".mypy_cache", ".pytest_cache", ".ruff_cache", "htmlcov", "coverage",
	".coverage", "eggs", "*.egg-info", ".idea", ".vscode", ".DS_Store",
	"staticfiles", "media",
}

// DefaultMaxDepth is the deepest directory level scanned
const DefaultMaxDepth = 10

// Languages returns every known language name in sorted order
func Languages() []string {
	out := make([]string, 0, len(LanguageExtensions))
	for lang := range LanguageExtensions {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// extensionSet returns the extensions for the given languages. Unknown names
// are ignored; an empty list selects every language.
func extensionSet(langs []string) map[string]string {
	if len(langs) == 0 {
		langs = Languages()
	}
	out := make(map[string]string)
	for _, lang := range langs {
		for _, ext := range LanguageExtensions[strings.ToLower(lang)] {
			out[ext] = strings.ToLower(lang)
		}
	}
	return out
}

// LanguageOf returns the language of a relative path, or "" if unknown
func LanguageOf(rel string) string {
	ext := strings.ToLower(path.Ext(rel))
	for lang, exts := range LanguageExtensions {
		for _, e := range exts {
			if e == ext {
				return lang
			}
		}
	}
	return ""
}
