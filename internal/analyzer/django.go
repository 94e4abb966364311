package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

var (
	djangoPathRe    = regexp.MustCompile(`(?:path|re_path)\s*\(\s*["']([^"']*)["'].*?(\w+(?:\.\w+)*)`)
	djangoIncludeRe = regexp.MustCompile(`include\s*\(\s*["']([^"']+)["']`)
)

// DjangoURLExtractor maps Django URL configurations to route nodes
type DjangoURLExtractor struct{}

// NewDjangoURLExtractor creates a Django URL extractor
func NewDjangoURLExtractor() *DjangoURLExtractor {
	return &DjangoURLExtractor{}
}

func (e *DjangoURLExtractor) Name() string { return "django-urls" }

func (e *DjangoURLExtractor) Match(rel string) bool {
	lower := strings.ToLower(rel)
	return strings.HasSuffix(lower, ".py") && strings.Contains(lower, "urls")
}

func (e *DjangoURLExtractor) Extract(_ context.Context, f *File) ([]Fact, error) {
	content := string(f.Content)
	var facts []Fact

	add := func(routePath, view string, offset int) {
		label := routePath
		if label == "" {
			label = "/"
		}
		id := graph.MakeID(graph.RouteKey("", routePath))
		facts = append(facts,
			nodeFact(id, label, graph.NodeTypeEndpoint, f.Rel, f.Line(offset), graph.Meta("path", routePath)),
			edgeFact(f.ID, id, graph.EdgeTypeEndpointHandler, graph.Meta("view", view)))
	}

	for _, m := range djangoPathRe.FindAllStringSubmatchIndex(content, -1) {
		add(content[m[2]:m[3]], content[m[4]:m[5]], m[0])
	}
	for _, m := range djangoIncludeRe.FindAllStringSubmatchIndex(content, -1) {
		add(content[m[2]:m[3]], "", m[0])
	}
	return facts, nil
}
