package impact

import (
	"fmt"
	"strings"

	"github.com/zheng/codegraph/internal/graph"
)

var levelNames = []string{"Direct dependents", "2nd-level impact", "3rd-level impact"}

// LevelName returns the display heading for an impact depth
func LevelName(depth int) string {
	i := depth - 1
	if i < 0 {
		i = 0
	}
	if i >= len(levelNames) {
		i = len(levelNames) - 1
	}
	return levelNames[i]
}

// FormatMarkdown formats the impact report as markdown
func (r *ImpactReport) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Impact analysis: %s\n\n", r.Target.Label))
	if r.Target.File != "" {
		sb.WriteString(fmt.Sprintf("**File:** %s\n\n", r.Target.File))
	}
	sb.WriteString(fmt.Sprintf("**Risk:** %s (%s)\n\n", r.Risk.Tier, r.Risk.Detail))

	if len(r.Levels) == 0 {
		sb.WriteString("_No other nodes depend on this one_\n\n")
	}
	for _, lvl := range r.Levels {
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", LevelName(lvl.Depth), len(lvl.Nodes)))
		writeNodeTable(&sb, lvl.Nodes)
	}

	if len(r.DependsOn) > 0 {
		sb.WriteString("### Depends on\n\n")
		sb.WriteString("| Edge | Node | File |\n")
		sb.WriteString("|------|------|------|\n")
		for _, l := range r.DependsOn {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", l.Type, l.Node.Label, l.Node.File))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeNodeTable(sb *strings.Builder, nodes []graph.Node) {
	sb.WriteString("| Node | Type | File |\n")
	sb.WriteString("|------|------|------|\n")
	for _, n := range nodes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", n.Label, n.Type, n.File))
	}
	sb.WriteString("\n")
}

// FormatTree formats the impact report as a tree, one branch per level
func (r *ImpactReport) FormatTree() string {
	var sb strings.Builder

	maxWidth := len(shortPath(r.Target.File))
	for _, lvl := range r.Levels {
		for _, n := range lvl.Nodes {
			if w := len(shortPath(n.File)); w > maxWidth {
				maxWidth = w
			}
		}
	}

	sb.WriteString(fmt.Sprintf("%-*s  %s [%s]\n", maxWidth, shortPath(r.Target.File), r.Target.Label, r.Risk.Tier))
	if len(r.Levels) == 0 {
		sb.WriteString("└── (none)\n")
		return sb.String()
	}
	for li, lvl := range r.Levels {
		lastLevel := li == len(r.Levels)-1
		branch, indent := "├──", "│   "
		if lastLevel {
			branch, indent = "└──", "    "
		}
		sb.WriteString(fmt.Sprintf("%s %s (%d)\n", branch, LevelName(lvl.Depth), len(lvl.Nodes)))
		for i, n := range lvl.Nodes {
			prefix := "├──"
			if i == len(lvl.Nodes)-1 {
				prefix = "└──"
			}
			sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, maxWidth, shortPath(n.File), n.Label))
		}
	}
	return sb.String()
}

// shortPath extracts the last two path components
// e.g., "internal/graph/builder.go" -> "graph/builder.go"
func shortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Summary returns a brief summary of the impact report
func (r *ImpactReport) Summary() string {
	return fmt.Sprintf("Target: %s, Risk: %s, Affected: %d across %d levels",
		r.Target.Label, r.Risk.Tier, r.Total, len(r.Levels))
}
