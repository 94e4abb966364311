package analyzer

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

var (
	pyImportRe     = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([\w.]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\w.]+(?:[ \t]+as[ \t]+\w+)?)*)`)
	pyFromImportRe = regexp.MustCompile(`(?m)^[ \t]*from[ \t]+(\.*[\w.]*)[ \t]+import[ \t]+(\([^)]*\)|[^\n#;]+)`)
	pyClassRe      = regexp.MustCompile(`(?m)^[ \t]*class[ \t]+(\w+)[ \t]*(?:\(([^)]*)\))?[ \t]*:`)
	pyDecoratorRe  = regexp.MustCompile(`^[ \t]*@([\w.]+)`)
	pyDefRe        = regexp.MustCompile(`^[ \t]*(?:async[ \t]+)?def[ \t]+(\w+)`)

	pyModelRe  = regexp.MustCompile(`(\w+)\.objects`)
	pyCacheRe  = regexp.MustCompile(`["']([a-zA-Z_:]+)["']`)
	pyURLRe    = regexp.MustCompile(`["']https?://([^"']+)["']`)
	pySignalRe = regexp.MustCompile(`(\w+)\.(send|send_robust|emit|publish|dispatch)`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var (
	pyDBRead = compileAll(
		`\.objects\.(all|filter|get|exclude|values|values_list|annotate|aggregate|count|exists|first|last|order_by|select_related|prefetch_related)`,
		`\.objects\.(raw|extra)`,
		`SELECT\s+.*\s+FROM`,
		`session\.(query|execute).*SELECT`,
		`cursor\.execute.*SELECT`,
	)
	pyDBWrite = compileAll(
		`\.objects\.(create|get_or_create|update_or_create|bulk_create|bulk_update)`,
		`\.(save|delete)\(\)`,
		`\.objects\.filter.*\.(update|delete)`,
		`INSERT\s+INTO`,
		`UPDATE\s+.*\s+SET`,
		`DELETE\s+FROM`,
		`session\.(add|merge|delete|commit)`,
	)
	pyCacheRead = compileAll(
		`cache\.(get|get_many|get_or_set)`,
		`redis.*\.(get|hget|hgetall|lrange|smembers|mget)`,
	)
	pyCacheWrite = compileAll(
		`cache\.(set|set_many|delete|clear)`,
		`redis.*\.(set|hset|lpush|rpush|sadd|setex|mset)`,
	)
	pyAPICall = compileAll(
		`requests\.(get|post|put|patch|delete|head|options)`,
		`httpx\.(get|post|put|patch|delete|head|options)`,
		`aiohttp\.ClientSession`,
		`urllib\.request\.urlopen`,
		`fetch\(`,
		`axios\.(get|post|put|patch|delete)`,
	)
	pyWebhookSend = compileAll(
		`webhook.*send|send.*webhook`,
		`webhook.*post|post.*webhook`,
		`webhook.*trigger|trigger.*webhook`,
	)
	pyEventPublish = compileAll(
		`\.send\(|\.send_robust\(`,
		`signal.*send|emit\(`,
		`publish\(|dispatch\(`,
		`event.*fire|fire.*event`,
	)
)

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var (
	pyModelBases      = setOf("Model", "models.Model", "Document", "Base", "DeclarativeBase", "AbstractBaseUser", "AbstractUser")
	pyViewBases       = setOf("ViewSet", "ModelViewSet", "APIView", "GenericAPIView", "ListAPIView", "CreateAPIView", "RetrieveAPIView", "UpdateAPIView", "DestroyAPIView", "View", "TemplateView", "ListView", "DetailView", "FormView")
	pySerializerBases = setOf("Serializer", "ModelSerializer", "HyperlinkedModelSerializer")
	pyTaskDecorators  = setOf("task", "shared_task", "app.task", "celery.task")
	pyRouteDecorators = setOf("api_view", "action", "route", "app.route", "router.get", "router.post", "router.put", "router.delete", "router.patch")
)

// framework bases never produce inheritance links
var pyBuiltinBases = func() map[string]bool {
	m := setOf("object", "type", "Exception")
	for _, group := range []map[string]bool{pyModelBases, pyViewBases, pySerializerBases} {
		for k := range group {
			m[k] = true
		}
	}
	return m
}()

// PythonExtractor finds imports, framework classes, decorated functions and
// data-access patterns in Python sources
type PythonExtractor struct{}

// NewPythonExtractor creates a Python extractor
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

func (e *PythonExtractor) Name() string { return "python" }

func (e *PythonExtractor) Match(rel string) bool {
	return strings.ToLower(path.Ext(rel)) == ".py"
}

func (e *PythonExtractor) Extract(ctx context.Context, f *File) ([]Fact, error) {
	var facts []Fact
	facts = append(facts, e.imports(f)...)
	facts = append(facts, e.classes(f)...)
	facts = append(facts, e.functions(f)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	facts = append(facts, e.patterns(f)...)
	return facts, nil
}

func (e *PythonExtractor) imports(f *File) []Fact {
	var facts []Fact
	content := string(f.Content)

	for _, m := range pyImportRe.FindAllStringSubmatch(content, -1) {
		for _, part := range strings.Split(m[1], ",") {
			module := strings.Fields(strings.TrimSpace(part))
			if len(module) == 0 {
				continue
			}
			if fact, ok := e.resolveImport(f, module[0], ""); ok {
				facts = append(facts, fact)
			}
		}
	}

	for _, m := range pyFromImportRe.FindAllStringSubmatch(content, -1) {
		module := strings.TrimLeft(m[1], ".")
		if module == "" {
			continue
		}
		var names []string
		for _, part := range strings.Split(strings.Trim(m[2], "() \t\r\n"), ",") {
			fields := strings.Fields(part)
			if len(fields) > 0 {
				names = append(names, fields[0])
			}
		}
		if fact, ok := e.resolveImport(f, module, strings.Join(names, ", ")); ok {
			facts = append(facts, fact)
		}
	}
	return facts
}

// resolveImport maps a dotted module name onto a known file, trying the
// project root first and then the importing file's directory
func (e *PythonExtractor) resolveImport(f *File, module, names string) (Fact, bool) {
	parts := strings.Split(module, ".")
	dir := path.Dir(f.Rel)

	var candidates []string
	for _, base := range []string{"", dir} {
		for i := len(parts); i > 0; i-- {
			partial := path.Join(append([]string{base}, parts[:i]...)...)
			candidates = append(candidates, partial+".py", path.Join(partial, "__init__.py"))
		}
	}

	for _, c := range candidates {
		if target, ok := f.Files.Lookup(c); ok {
			if names == "" {
				names = module
			}
			return edgeFact(f.ID, target, graph.EdgeTypeImports, graph.Meta("module", module, "names", names)), true
		}
	}
	return Fact{}, false
}

func (e *PythonExtractor) classes(f *File) []Fact {
	var facts []Fact
	content := string(f.Content)

	for _, loc := range pyClassRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[loc[2]:loc[3]]
		var bases []string
		if loc[4] >= 0 {
			bases = pyBases(content[loc[4]:loc[5]])
		}
		line := f.Line(loc[2])
		id := graph.MakeID(f.Rel + ":" + name)
		joined := strings.Join(bases, ", ")
		declared := false

		add := func(typ graph.NodeType, meta graph.Metadata, edge graph.EdgeType) {
			fact := nodeFact(id, name, typ, f.Rel, line, meta)
			fact.Class = true
			facts = append(facts, fact, edgeFact(f.ID, id, edge, graph.Meta("relation", "defines")))
			declared = true
		}

		if anyIn(bases, pyModelBases) {
			add(graph.NodeTypeCollection, graph.Meta("bases", joined), graph.EdgeTypeEndpointHandler)
		}
		if anyIn(bases, pyViewBases) {
			add(graph.NodeTypeEndpoint, graph.Meta("bases", joined), graph.EdgeTypeEndpointHandler)
		}
		if anyIn(bases, pySerializerBases) {
			add(graph.NodeTypeSerializer, nil, graph.EdgeTypeEndpointHandler)
		}
		if strings.Contains(name, "Middleware") || anyContains(bases, "Middleware") {
			add(graph.NodeTypeMiddleware, nil, graph.EdgeTypeMiddlewareChain)
		}

		if !declared {
			continue
		}
		for _, base := range bases {
			if !pyBuiltinBases[base] {
				facts = append(facts, Fact{Inherit: &Inheritance{ClassID: id, Base: base}})
			}
		}
	}
	return facts
}

// pyBases splits a class argument list into base names, dropping keyword
// arguments and generic subscripts
func pyBases(args string) []string {
	var out []string
	depth := 0
	start := 0
	flush := func(end int) {
		arg := strings.TrimSpace(args[start:end])
		start = end + 1
		if arg == "" || strings.Contains(arg, "=") || strings.HasPrefix(arg, "*") {
			return
		}
		if i := strings.IndexAny(arg, "[("); i >= 0 {
			arg = strings.TrimSpace(arg[:i])
		}
		out = append(out, arg)
	}
	for i, c := range args {
		switch c {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
			}
		}
	}
	flush(len(args))
	return out
}

func anyIn(items []string, set map[string]bool) bool {
	for _, it := range items {
		if set[it] {
			return true
		}
	}
	return false
}

func anyContains(items []string, sub string) bool {
	for _, it := range items {
		if strings.Contains(it, sub) {
			return true
		}
	}
	return false
}

func (e *PythonExtractor) functions(f *File) []Fact {
	var facts []Fact
	var decorators []string
	decIndent := 0

	for i, line := range f.Lines() {
		if m := pyDecoratorRe.FindStringSubmatch(line); m != nil {
			if len(decorators) == 0 {
				decIndent = indentOf(line)
			}
			decorators = append(decorators, m[1])
			continue
		}
		m := pyDefRe.FindStringSubmatch(line)
		if m == nil {
			// continuation lines of a multi-line decorator call keep the pending names
			trimmed := strings.TrimSpace(line)
			if len(decorators) > 0 && trimmed != "" && !strings.HasPrefix(trimmed, "#") &&
				!strings.HasPrefix(trimmed, ")") && indentOf(line) <= decIndent {
				decorators = nil
			}
			continue
		}

		name, lineNo := m[1], i+1
		id := graph.MakeID(f.Rel + ":" + name)
		for _, dec := range decorators {
			switch {
			case pyTaskDecorators[dec]:
				facts = append(facts,
					nodeFact(id, name, graph.NodeTypeTask, f.Rel, lineNo, graph.Meta("decorator", dec)),
					edgeFact(f.ID, id, graph.EdgeTypeEndpointHandler, graph.Meta("relation", "defines_task")))
			case pyRouteDecorators[dec]:
				facts = append(facts,
					nodeFact(id, name, graph.NodeTypeEndpoint, f.Rel, lineNo, graph.Meta("decorator", dec)),
					edgeFact(f.ID, id, graph.EdgeTypeEndpointHandler, graph.Meta("relation", "defines_endpoint")))
			case dec == "receiver":
				facts = append(facts,
					nodeFact(id, name, graph.NodeTypeEvent, f.Rel, lineNo, nil),
					edgeFact(f.ID, id, graph.EdgeTypeEventSubscribe, graph.Meta("relation", "signal_receiver")))
			}
		}
		decorators = nil
	}
	return facts
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func firstMatch(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (e *PythonExtractor) patterns(f *File) []Fact {
	var facts []Fact
	for i, line := range f.Lines() {
		n := i + 1

		for _, rule := range []struct {
			patterns []*regexp.Regexp
			edge     graph.EdgeType
		}{{pyDBRead, graph.EdgeTypeDBRead}, {pyDBWrite, graph.EdgeTypeDBWrite}} {
			if !firstMatch(rule.patterns, line) {
				continue
			}
			if m := pyModelRe.FindStringSubmatch(line); m != nil {
				id := graph.MakeID(graph.ModelKey(m[1]))
				facts = append(facts,
					nodeFact(id, m[1], graph.NodeTypeCollection, f.Rel, n, graph.Meta("detected_via", "pattern")),
					edgeFact(f.ID, id, rule.edge, graph.Meta("operation", truncate(strings.TrimSpace(line), 100))))
			}
		}

		for _, rule := range []struct {
			patterns []*regexp.Regexp
			edge     graph.EdgeType
		}{{pyCacheRead, graph.EdgeTypeCacheRead}, {pyCacheWrite, graph.EdgeTypeCacheWrite}} {
			if !firstMatch(rule.patterns, line) {
				continue
			}
			label := "cache"
			if m := pyCacheRe.FindStringSubmatch(line); m != nil {
				label = m[1]
			}
			id := graph.MakeID("cache:" + label)
			facts = append(facts,
				nodeFact(id, label, graph.NodeTypeCacheKey, f.Rel, n, nil),
				edgeFact(f.ID, id, rule.edge, nil))
		}

		if firstMatch(pyAPICall, line) {
			label := "external_api"
			if m := pyURLRe.FindStringSubmatch(line); m != nil {
				label = truncate(m[1], 40)
			}
			id := graph.MakeID(graph.APIKey(label))
			facts = append(facts,
				nodeFact(id, label, graph.NodeTypeExternalAPI, f.Rel, n, nil),
				edgeFact(f.ID, id, graph.EdgeTypeAPICall, nil))
		}

		if firstMatch(pyWebhookSend, line) {
			id := graph.MakeID("webhook:send:" + f.Rel)
			facts = append(facts,
				nodeFact(id, "webhook_out", graph.NodeTypeWebhook, f.Rel, n, nil),
				edgeFact(f.ID, id, graph.EdgeTypeWebhookSend, nil))
		}

		if firstMatch(pyEventPublish, line) {
			if m := pySignalRe.FindStringSubmatch(line); m != nil {
				id := graph.MakeID("event:" + m[1])
				facts = append(facts,
					nodeFact(id, m[1], graph.NodeTypeEvent, f.Rel, n, nil),
					edgeFact(f.ID, id, graph.EdgeTypeEventPublish, nil))
			}
		}
	}
	return facts
}
