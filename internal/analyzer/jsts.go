package analyzer

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

var jsImportPatterns = []*regexp.Regexp{
	// ES6 imports
	regexp.MustCompile(`import\s+(?:(?:\{[^}]*\}|\w+|\*\s+as\s+\w+)\s*,?\s*)*\s*from\s*["']([^"']+)["']`),
	// require()
	regexp.MustCompile(`require\s*\(\s*["']([^"']+)["']\s*\)`),
	// dynamic import
	regexp.MustCompile(`import\s*\(\s*["']([^"']+)["']\s*\)`),
}

var (
	jsRouteCallRe      = regexp.MustCompile(`(app|router)\.(get|post|put|patch|delete|all|use)\s*\(\s*["']([^"']+)["']`)
	jsRouteDecoratorRe = regexp.MustCompile(`@(Get|Post|Put|Patch|Delete|All)\s*\(\s*["']?([^"')\s]*)`)
	jsRouteConfigRe    = regexp.MustCompile(`path\s*:\s*["']([^"']+)["']`)
)

var jsDBPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(find|findOne|findMany|findById|findAll|aggregate|count|countDocuments)\s*\(`),
	regexp.MustCompile(`\.(create|insertOne|insertMany|save|updateOne|updateMany|deleteOne|deleteMany|remove|bulkWrite)\s*\(`),
	regexp.MustCompile(`\.(select|from|where|join|groupBy|orderBy|having)\s*\(`),
	regexp.MustCompile(`prisma\.(\w+)\.(findUnique|findFirst|findMany|create|update|delete|upsert|aggregate)`),
	regexp.MustCompile(`(SELECT|INSERT|UPDATE|DELETE)\s+`),
}

var jsFetchPatterns = []*regexp.Regexp{
	regexp.MustCompile("fetch\\s*\\(\\s*[\"`']([^\"`']+)[\"`']"),
	regexp.MustCompile("axios\\.(get|post|put|patch|delete)\\s*\\(\\s*[\"`']([^\"`']+)[\"`']"),
	regexp.MustCompile("http\\.(get|post|put|patch|delete)\\s*\\(\\s*[\"`']([^\"`']+)[\"`']"),
}

var (
	jsReadWords     = []string{"find", "findOne", "findMany", "findById", "findAll", "aggregate", "count", "countDocuments", "select", "findUnique", "findFirst", "SELECT"}
	// receivers that name a client or runtime object rather than a model
	jsSkipReceivers = setOf("this", "self", "db", "req", "res", "console", "JSON", "Object", "Array", "Promise", "Math", "document", "window")
)

var (
	jsExtensions      = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".vue", ".svelte", ""}
	jsIndexFiles      = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}
	jsSourceExtension = setOf(".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".vue", ".svelte")
)

// JSExtractor finds imports, routes, database calls and outbound HTTP calls
// in JavaScript, TypeScript and single-file component sources
type JSExtractor struct{}

// NewJSExtractor creates a JS/TS extractor
func NewJSExtractor() *JSExtractor {
	return &JSExtractor{}
}

func (e *JSExtractor) Name() string { return "jsts" }

func (e *JSExtractor) Match(rel string) bool {
	return jsSourceExtension[strings.ToLower(path.Ext(rel))]
}

func (e *JSExtractor) Extract(ctx context.Context, f *File) ([]Fact, error) {
	content := string(f.Content)
	var facts []Fact
	facts = append(facts, e.imports(f, content)...)
	facts = append(facts, e.routes(f, content)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	facts = append(facts, e.database(f, content)...)
	facts = append(facts, e.apiCalls(f, content)...)
	return facts, nil
}

func (e *JSExtractor) imports(f *File, content string) []Fact {
	var facts []Fact
	for _, re := range jsImportPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			module := m[1]
			// package imports never resolve to project files
			if !strings.HasPrefix(module, ".") && !isAliasImport(module) {
				continue
			}
			if target, ok := resolveJSImport(f.Files, module, f.Rel); ok {
				facts = append(facts, edgeFact(f.ID, target, graph.EdgeTypeImports, graph.Meta("module", module)))
			}
		}
	}
	return facts
}

func isAliasImport(module string) bool {
	return strings.HasPrefix(module, "@/") || strings.HasPrefix(module, "~/")
}

// resolveJSImport probes the known files for an import specifier: the path as
// written with each source extension, then as a directory with an index file
func resolveJSImport(files *FileSet, module, from string) (string, bool) {
	clean, base := module, path.Dir(from)
	if isAliasImport(module) {
		clean, base = module[2:], ""
	}
	target := path.Join(base, clean)

	for _, ext := range jsExtensions {
		if id, ok := files.Lookup(target + ext); ok {
			return id, true
		}
	}
	for _, idx := range jsIndexFiles {
		if id, ok := files.Lookup(path.Join(target, idx)); ok {
			return id, true
		}
	}
	return "", false
}

func (e *JSExtractor) routes(f *File, content string) []Fact {
	var facts []Fact
	add := func(method, routePath string, offset int) {
		if routePath == "" {
			return
		}
		id := graph.MakeID(graph.RouteKey(method, routePath))
		facts = append(facts,
			nodeFact(id, method+" "+routePath, graph.NodeTypeEndpoint, f.Rel, f.Line(offset),
				graph.Meta("method", method, "path", routePath)),
			edgeFact(f.ID, id, graph.EdgeTypeEndpointHandler, nil))
	}

	for _, m := range jsRouteCallRe.FindAllStringSubmatchIndex(content, -1) {
		add(strings.ToUpper(content[m[4]:m[5]]), content[m[6]:m[7]], m[0])
	}
	for _, m := range jsRouteDecoratorRe.FindAllStringSubmatchIndex(content, -1) {
		add(strings.ToUpper(content[m[2]:m[3]]), content[m[4]:m[5]], m[0])
	}
	for _, m := range jsRouteConfigRe.FindAllStringSubmatchIndex(content, -1) {
		add("GET", content[m[2]:m[3]], m[0])
	}
	return facts
}

func (e *JSExtractor) database(f *File, content string) []Fact {
	var facts []Fact
	for i, re := range jsDBPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			text := content[m[0]:m[1]]
			edge := graph.EdgeTypeDBWrite
			for _, w := range jsReadWords {
				if strings.Contains(text, w) {
					edge = graph.EdgeTypeDBRead
					break
				}
			}

			var model string
			switch {
			case i == 3:
				model = content[m[2]:m[3]]
			case strings.HasPrefix(text, "."):
				if r := receiverBefore(content, m[0]); !jsSkipReceivers[r] {
					model = r
				}
			}
			if model == "" {
				continue
			}

			id := graph.MakeID(graph.ModelKey(model))
			facts = append(facts,
				nodeFact(id, model, graph.NodeTypeCollection, f.Rel, f.Line(m[0]), nil),
				edgeFact(f.ID, id, edge, nil))
		}
	}
	return facts
}

// receiverBefore returns the identifier that ends right before pos, skipping
// whitespace, or "" if there is none
func receiverBefore(content string, pos int) string {
	end := pos
	for end > 0 && (content[end-1] == ' ' || content[end-1] == '\t') {
		end--
	}
	start := end
	for start > 0 && isWordByte(content[start-1]) {
		start--
	}
	return content[start:end]
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (e *JSExtractor) apiCalls(f *File, content string) []Fact {
	var facts []Fact
	for _, re := range jsFetchPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			last := len(m)/2 - 1
			url := content[m[2*last]:m[2*last+1]]
			if !strings.Contains(url, "http") && !strings.HasPrefix(url, "/") {
				continue
			}
			label := truncate(url, 50)
			id := graph.MakeID(graph.APIKey(label))
			facts = append(facts,
				nodeFact(id, label, graph.NodeTypeExternalAPI, f.Rel, f.Line(m[0]), nil),
				edgeFact(f.ID, id, graph.EdgeTypeAPICall, graph.Meta("url", url)))
		}
	}
	return facts
}
