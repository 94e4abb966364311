package graph

import (
	"path"
	"strings"
)

// ClassRule tags a file path with a node type when Match reports true.
// lower is the lower-cased relative path, base its last element.
type ClassRule struct {
	Type  NodeType
	Match func(lower, base string) bool
}

// configFiles are base names that always classify as config
var configFiles = map[string]bool{
	"settings.py": true, "config.py": true, "conf.py": true, ".env": true,
	"config.js": true, "config.ts": true, "webpack.config.js": true,
	"tsconfig.json": true, "package.json": true, "pyproject.toml": true,
	"setup.py": true, "setup.cfg": true, "manage.py": true,
	"docker-compose.yml": true, "dockerfile": true, "makefile": true,
	".eslintrc.js": true, "babel.config.js": true, "jest.config.js": true,
	"vite.config.ts": true, "tailwind.config.js": true, "next.config.js": true,
	"nuxt.config.ts": true, "go.mod": true,
}

func containsAny(patterns ...string) func(lower, base string) bool {
	return func(lower, _ string) bool {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

// ClassRules is evaluated top to bottom; the first matching rule wins.
var ClassRules = []ClassRule{
	{NodeTypeTest, containsAny("test_", "_test.", "tests/", "spec.", "__tests__", ".test.", ".spec.")},
	{NodeTypeConfig, func(_, base string) bool { return configFiles[base] }},
	{NodeTypeRouter, containsAny("urls.py", "routes.", "router.", "routing.")},
	{NodeTypeMiddleware, containsAny("middleware")},
	{NodeTypeSerializer, containsAny("serializer", "schema", "dto")},
	{NodeTypeCollection, containsAny("models/", "models.py", "model.", "entities/", "entity.")},
	{NodeTypeEndpoint, containsAny("views/", "views.py", "viewset", "controller", "endpoints/", "handlers/", "api/")},
	{NodeTypeService, containsAny("services/", "service.", "use_cases/", "usecases/")},
	{NodeTypeTask, containsAny("tasks/", "tasks.py", "celery", "jobs/", "cron", "workers/")},
	{NodeTypeWebhook, containsAny("webhook")},
	{NodeTypeEvent, containsAny("signals", "events/", "event.", "listeners/")},
	{NodeTypeUtility, containsAny("utils/", "utils.py", "helpers/", "helpers.", "lib/", "common/")},
	{NodeTypeScript, containsAny("management/commands/", "scripts/", "bin/")},
	{NodeTypeTemplate, containsAny("templates/", "template.", ".html", ".jinja")},
	{NodeTypeComponent, containsAny("components/", "component.", ".vue", ".svelte", ".jsx", ".tsx")},
}

// ClassifyPath assigns a node type to a relative file path using ClassRules.
// Paths matching no rule are plain files.
func ClassifyPath(rel string) NodeType {
	lower := strings.ToLower(NormalizePath(rel))
	base := path.Base(lower)
	for _, r := range ClassRules {
		if r.Match(lower, base) {
			return r.Type
		}
	}
	return NodeTypeFile
}
