package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
)

const (
	sessionWidth = 20
	timeWidth    = 13
	scoreWidth   = 5
	filesWidth   = 30
)

func formatTable(rs []*models.SearchResult, opts Options) (string, error) {
	if len(rs) == 0 {
		return "No results found.", nil
	}

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	previewWidth := max(20, maxWidth-sessionWidth-timeWidth-scoreWidth-filesWidth-16)
	now := opts.now()

	headers := []string{
		pad("Session", sessionWidth),
		pad("Time", timeWidth),
		pad("Score", scoreWidth),
		pad("Files", filesWidth),
		pad("Preview", previewWidth),
	}
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", runewidth.StringWidth(h))
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, " | ") + "\n")
	b.WriteString(strings.Join(dashes, " | ") + "\n")

	for _, r := range rs {
		row := []string{
			pad(truncate(r.SessionID, sessionWidth), sessionWidth),
			pad(compactAge(r.Timestamp, now), timeWidth),
			pad(fmt.Sprintf("%.2f", r.Score), scoreWidth),
			pad(truncate(strings.Join(r.Files, ", "), filesWidth), filesWidth),
			truncate(flatten(r.MatchedContent), previewWidth),
		}
		b.WriteString(strings.Join(row, " | ") + "\n")
	}

	if stats, ok := opts.stats(); ok {
		b.WriteString("\n" + tableStats(stats))
	}
	return b.String(), nil
}

// pad fills s with spaces up to w display cells.
func pad(s string, w int) string {
	return runewidth.FillRight(s, w)
}

// truncate cuts s to w display cells, ending in "..." when cut.
func truncate(s string, w int) string {
	if runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, "...")
}

// compactAge renders "3d ago", "5h ago" or "12m ago".
func compactAge(t, now time.Time) string {
	diff := now.Sub(t)
	hours := int(diff.Hours())
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	}
}

func tableStats(s results.Stats) string {
	lines := []string{
		fmt.Sprintf("Found %d matches in %d conversations", s.TotalMatchesFound, s.TotalConversationsSearched),
		"Search completed in " + durationText(s.SearchDuration),
	}
	if len(s.ProjectDistribution) > 1 {
		var parts []string
		for _, name := range sortedProjects(s.ProjectDistribution) {
			parts = append(parts, fmt.Sprintf("%s (%d)", name, s.ProjectDistribution[name]))
		}
		lines = append(lines, "Projects: "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}
