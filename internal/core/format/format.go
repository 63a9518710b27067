// Package format renders search results for terminals, files and tools.
package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
)

// Format names.
const (
	Table    = "table"
	List     = "list"
	CSV      = "csv"
	Markdown = "markdown"
	JSON     = "json"
)

// Options tune the output of a formatter.
type Options struct {
	IncludeStats   bool
	Stats          *results.Stats
	MaxWidth       int // table only, defaults to 120
	TruncateLength int

	// Now anchors relative times. Zero means time.Now().
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) stats() (results.Stats, bool) {
	if !o.IncludeStats || o.Stats == nil {
		return results.Stats{}, false
	}
	return *o.Stats, true
}

// Formatter renders a result list.
type Formatter interface {
	Format(results []*models.SearchResult, opts Options) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func([]*models.SearchResult, Options) (string, error)

func (f FormatterFunc) Format(r []*models.SearchResult, opts Options) (string, error) {
	return f(r, opts)
}

var registry = map[string]Formatter{
	Table:    FormatterFunc(formatTable),
	List:     FormatterFunc(formatList),
	CSV:      FormatterFunc(formatCSV),
	Markdown: FormatterFunc(formatMarkdown),
	JSON:     FormatterFunc(formatJSON),
}

// Names lists the available formats.
func Names() []string {
	return []string{Table, List, CSV, Markdown, JSON}
}

// IsValid reports whether name is a known format.
func IsValid(name string) bool {
	_, ok := registry[name]
	return ok
}

// Get returns the named formatter. Unknown names get the JSON formatter.
func Get(name string) Formatter {
	if f, ok := registry[name]; ok {
		return f
	}
	return registry[JSON]
}

// Render formats results with the named formatter.
func Render(results []*models.SearchResult, name string, opts Options) (string, error) {
	out, err := Get(name).Format(results, opts)
	if err != nil {
		return "", fmt.Errorf("failed to format results as %s: %w", name, err)
	}
	return out, nil
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// cut returns the first n runes of s.
func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func matchCount(r *models.SearchResult) int {
	if r.MatchCount == 0 {
		return 1
	}
	return r.MatchCount
}

// durationText renders a search duration the way stats footers show it.
func durationText(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case d <= 0:
		return "unknown"
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		return fmt.Sprintf("%dm %ds", ms/60000, (ms%60000)/1000)
	}
}

// sortedProjects returns distribution keys in a stable order: most
// results first, then by name.
func sortedProjects(dist map[string]int) []string {
	names := make([]string, 0, len(dist))
	for name := range dist {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if dist[names[i]] != dist[names[j]] {
			return dist[names[i]] > dist[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
