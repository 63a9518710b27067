package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
)

func formatList(rs []*models.SearchResult, opts Options) (string, error) {
	if len(rs) == 0 {
		return "No results found.", nil
	}
	now := opts.now()

	var b strings.Builder
	fmt.Fprintf(&b, "Search Results (%d matches)\n\n", len(rs))

	for i, r := range rs {
		fmt.Fprintf(&b, "%d. Session %s (%s)\n", i+1, r.SessionID, humanize.RelTime(r.Timestamp, now, "ago", "from now"))
		fmt.Fprintf(&b, "   Project: %s\n", r.ProjectName)
		if r.Branch != "" {
			fmt.Fprintf(&b, "   Branch: %s\n", r.Branch)
		}
		if len(r.Files) > 0 {
			fmt.Fprintf(&b, "   Files: %s\n", strings.Join(r.Files, ", "))
		}
		fmt.Fprintf(&b, "   Score: %.2f\n", r.Score)
		fmt.Fprintf(&b, "   Matches: %d\n", matchCount(r))

		preview := cut(flatten(r.MatchedContent), 200)
		if len([]rune(r.MatchedContent)) > 200 {
			preview += "..."
		}
		fmt.Fprintf(&b, "   Preview: \"%s\"\n\n", preview)
	}

	if stats, ok := opts.stats(); ok {
		b.WriteString(listStats(stats))
	}
	return b.String(), nil
}

func listStats(s results.Stats) string {
	lines := []string{
		"\n--- Statistics ---",
		fmt.Sprintf("Total conversations searched: %d", s.TotalConversationsSearched),
		fmt.Sprintf("Total matches found: %d", s.TotalMatchesFound),
		fmt.Sprintf("Average score: %.3f", s.AverageScore),
	}
	if s.SearchDuration > 0 {
		lines = append(lines, "Search time: "+durationText(s.SearchDuration))
	}
	if !s.DateRange.Earliest.IsZero() {
		lines = append(lines, fmt.Sprintf("Date range: %s - %s",
			s.DateRange.Earliest.Local().Format("1/2/2006"), s.DateRange.Latest.Local().Format("1/2/2006")))
	}
	return strings.Join(lines, "\n")
}
