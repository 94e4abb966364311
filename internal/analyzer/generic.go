package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

// import patterns for languages without a dedicated extractor
var genericImportPatterns = map[string][]*regexp.Regexp{
	LangPHP: {
		regexp.MustCompile(`use\s+([A-Z][\w\\]+)`),
		regexp.MustCompile(`require(?:_once)?\s*(?:\()?\s*["']([^"']+)["']`),
		regexp.MustCompile(`include(?:_once)?\s*(?:\()?\s*["']([^"']+)["']`),
	},
	LangRuby: {
		regexp.MustCompile(`require\s+["']([^"']+)["']`),
		regexp.MustCompile(`require_relative\s+["']([^"']+)["']`),
		regexp.MustCompile(`include\s+(\w+)`),
	},
	LangJava: {
		regexp.MustCompile(`import\s+([\w.]+)`),
	},
	LangRust: {
		regexp.MustCompile(`use\s+([\w:]+)`),
		regexp.MustCompile(`mod\s+(\w+)`),
	},
	LangCSharp: {
		regexp.MustCompile(`using\s+([\w.]+)`),
	},
}

var genericURLRe = regexp.MustCompile(`https?://[\w\-_.~:/?#\[\]@!$&'()*+,;=%]+`)

var skipURLHosts = []string{"example.com", "localhost", "127.0.0.1", "schema.org"}

// GenericExtractor resolves imports by file stem for PHP, Ruby, Java, Rust
// and C#, and records absolute URLs as external APIs. Go files only get the
// URL pass; their imports come from GoExtractor.
type GenericExtractor struct{}

// NewGenericExtractor creates a generic extractor
func NewGenericExtractor() *GenericExtractor {
	return &GenericExtractor{}
}

func (e *GenericExtractor) Name() string { return "generic" }

func (e *GenericExtractor) Match(rel string) bool {
	lang := LanguageOf(rel)
	if lang == LangGo {
		return true
	}
	_, ok := genericImportPatterns[lang]
	return ok
}

func (e *GenericExtractor) Extract(_ context.Context, f *File) ([]Fact, error) {
	content := string(f.Content)
	var facts []Fact

	for _, re := range genericImportPatterns[LanguageOf(f.Rel)] {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			module := m[1]
			if target, ok := matchStem(f, module); ok {
				facts = append(facts, edgeFact(f.ID, target, graph.EdgeTypeImports, graph.Meta("module", module)))
			}
		}
	}

	for _, loc := range genericURLRe.FindAllStringIndex(content, -1) {
		url := content[loc[0]:loc[1]]
		if containsAnyOf(url, skipURLHosts) {
			continue
		}
		label := truncate(url, 50)
		id := graph.MakeID(graph.APIKey(label))
		facts = append(facts,
			nodeFact(id, label, graph.NodeTypeExternalAPI, f.Rel, f.Line(loc[0]), nil),
			edgeFact(f.ID, id, graph.EdgeTypeAPICall, graph.Meta("url", url)))
	}
	return facts, nil
}

// matchStem returns the first other file, in path order, whose stem occurs in
// the module name
func matchStem(f *File, module string) (string, bool) {
	for _, p := range f.Files.Paths() {
		if p == f.Rel {
			continue
		}
		s := stem(p)
		if s == "" || !strings.Contains(module, s) {
			continue
		}
		return f.Files.Lookup(p)
	}
	return "", false
}

func containsAnyOf(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
