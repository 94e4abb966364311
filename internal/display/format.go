package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/zheng/codegraph/internal/graph"
	"github.com/zheng/codegraph/internal/index"
)

// list caps applied unless the printer shows everything
const (
	groupLimit    = 8
	levelLimit    = 10
	searchLimit   = 20
	noDepsLimit   = 15
	summaryLimit  = 5
	dependsLimit  = 10
	endpointLimit = 5
)

var tierIcons = map[index.Tier]string{
	index.TierCritical: "⛔",
	index.TierHigh:     "🔴",
	index.TierMedium:   "🟡",
	index.TierLow:      "🟢",
}

// Printer renders query results as text
type Printer struct {
	w     io.Writer
	icons bool
	all   bool
	now   func() time.Time
}

// Option configures a Printer
type Option func(*Printer)

// WithIcons forces emoji markers on or off
func WithIcons(on bool) Option {
	return func(p *Printer) {
		p.icons = on
	}
}

// WithAll disables list truncation
func WithAll(all bool) Option {
	return func(p *Printer) {
		p.all = all
	}
}

// WithNow sets the clock used for relative times
func WithNow(now func() time.Time) Option {
	return func(p *Printer) {
		p.now = now
	}
}

// NewPrinter creates a printer writing to w. Emoji markers are used only when
// w is a terminal.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:     w,
		icons: IsTerminal(w),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tier renders a risk tier, e.g. "🔴 HIGH" on a terminal and "[HIGH]" otherwise
func (p *Printer) Tier(t index.Tier) string {
	if p.icons {
		return tierIcons[t] + " " + t.String()
	}
	return "[" + t.String() + "]"
}

// Age renders an RFC 3339 timestamp relative to now. Unparseable input is
// returned unchanged.
func (p *Printer) Age(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.RelTime(t, p.now(), "ago", "from now")
}

// NoMatch prints the "nothing found" line for a query
func (p *Printer) NoMatch(what string) {
	p.printf("%sNo %s\n", p.icon("❌"), what)
}

// icon returns the emoji followed by a space, or nothing off a terminal
func (p *Printer) icon(s string) string {
	if !p.icons {
		return ""
	}
	return s + " "
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// limit returns how many of n items to show under cap
func (p *Printer) limit(n, cap int) int {
	if p.all || n <= cap {
		return n
	}
	return cap
}

// more prints the "... and N more" trailer when shown < n
func (p *Printer) more(indent string, shown, n int) {
	if shown < n {
		p.printf("%s... and %d more\n", indent, n-shown)
	}
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func fileOf(n graph.Node) string {
	if n.File == "" {
		return "N/A"
	}
	return n.File
}

// labels joins the labels of the first max nodes
func labels(nodes []graph.Node, max int) string {
	parts := make([]string, 0, max)
	for i, n := range nodes {
		if i == max {
			break
		}
		parts = append(parts, n.Label)
	}
	return strings.Join(parts, ", ")
}

// ShortPath extracts the last two path components
// e.g., "internal/graph/builder.go" -> "graph/builder.go"
func ShortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
