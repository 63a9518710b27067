package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
)

const markdownTemplate = `# Search Results

**Found {{count}} matches**

{{#groups}}
{{#grouped}}
## Project: {{{title}}}

{{/grouped}}
{{#results}}
### {{index}}. Session ` + "`{{{sessionId}}}`" + `

- **Time:** {{{time}}}
- **Score:** {{score}}
{{#hasBranch}}
- **Branch:** {{{branch}}}
{{/hasBranch}}
{{#hasFiles}}
- **Files:** {{{files}}}
{{/hasFiles}}
- **Matches:** {{matches}}

**Preview:**
{{{preview}}}

{{#divider}}
---

{{/divider}}
{{/results}}
{{/groups}}
{{#stats}}

## Search Statistics

| Metric | Value |
|--------|-------|
| Conversations Searched | {{searched}} |
| Total Matches | {{matched}} |
| Average Score | {{average}} |
{{#hasDuration}}
| Search Time | {{duration}} |
{{/hasDuration}}
{{#hasProjects}}

### Results by Project

{{#projects}}
- **{{{name}}}**: {{count}} matches
{{/projects}}
{{/hasProjects}}
{{/stats}}
`

var markdownTmpl = mustMarkdownTemplate()

func mustMarkdownTemplate() *mustache.Template {
	t, err := mustache.ParseString(markdownTemplate)
	if err != nil {
		panic(fmt.Sprintf("invalid markdown template: %v", err))
	}
	return t
}

func formatMarkdown(rs []*models.SearchResult, opts Options) (string, error) {
	if len(rs) == 0 {
		return "## No results found", nil
	}
	now := opts.now()

	// group by project, keeping first-seen project order
	var order []string
	byProject := make(map[string][]*models.SearchResult)
	for _, r := range rs {
		name := r.ProjectName
		if name == "" {
			name = "unknown"
		}
		if _, ok := byProject[name]; !ok {
			order = append(order, name)
		}
		byProject[name] = append(byProject[name], r)
	}

	grouped := len(order) > 1
	var groups []map[string]any
	if grouped {
		for _, name := range order {
			groups = append(groups, map[string]any{
				"grouped": true,
				"title":   name,
				"results": markdownResults(byProject[name], now),
			})
		}
	} else {
		groups = append(groups, map[string]any{"results": markdownResults(rs, now)})
	}

	data := map[string]any{
		"count":  len(rs),
		"groups": groups,
	}
	if s, ok := opts.stats(); ok {
		data["stats"] = markdownStats(s)
	}

	out, err := markdownTmpl.Render(data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

func markdownResults(rs []*models.SearchResult, now time.Time) []map[string]any {
	items := make([]map[string]any, len(rs))
	for i, r := range rs {
		files := make([]string, len(r.Files))
		for j, f := range r.Files {
			files[j] = "`" + f + "`"
		}

		lines := strings.Split(r.MatchedContent, "\n")
		for j, line := range lines {
			lines[j] = "> " + line
		}

		items[i] = map[string]any{
			"index":     i + 1,
			"sessionId": r.SessionID,
			"time":      markdownTime(r.Timestamp, now),
			"score":     fmt.Sprintf("%.3f", r.Score),
			"hasBranch": r.Branch != "",
			"branch":    r.Branch,
			"hasFiles":  len(files) > 0,
			"files":     strings.Join(files, ", "),
			"matches":   matchCount(r),
			"preview":   strings.Join(lines, "\n"),
			"divider":   i < len(rs)-1,
		}
	}
	return items
}

// markdownTime is relative within a week and a date beyond.
func markdownTime(t, now time.Time) string {
	if now.Sub(t) > 8*24*time.Hour {
		return t.Local().Format("1/2/2006")
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func markdownStats(s results.Stats) map[string]any {
	var projects []map[string]any
	for _, name := range sortedProjects(s.ProjectDistribution) {
		projects = append(projects, map[string]any{"name": name, "count": s.ProjectDistribution[name]})
	}
	return map[string]any{
		"searched":    s.TotalConversationsSearched,
		"matched":     s.TotalMatchesFound,
		"average":     fmt.Sprintf("%.3f", s.AverageScore),
		"hasDuration": s.SearchDuration > 0,
		"duration":    durationText(s.SearchDuration),
		"hasProjects": len(projects) > 0,
		"projects":    projects,
	}
}
