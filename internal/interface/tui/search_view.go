package tui

import (
	"fmt"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/neilberkman/claude-grep/internal/core/search"
)

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.mode = listView
		m.searchInput.SetValue("")
		m.searchResults = nil
		m.searchSelectedIdx = 0
		m.searchViewOffset = 0
		m.searchSeq++
		m.searching = false
		return m, nil

	case "enter":
		if len(m.searchResults) > 0 && m.searchSelectedIdx < len(m.searchResults) {
			return m, loadConversation(m.svc, m.searchResults[m.searchSelectedIdx].SessionID)
		}
		return m, nil

	// Navigation: Use Ctrl+j or arrow keys (allow j/k to be typed in search)
	case "ctrl+j", "down":
		if len(m.searchResults) > 0 {
			m.searchSelectedIdx = min(m.searchSelectedIdx+1, len(m.searchResults)-1)
			return adjustSearchViewport(m), nil
		}
		return m, nil

	case "up":
		if len(m.searchResults) > 0 {
			m.searchSelectedIdx = max(m.searchSelectedIdx-1, 0)
			return adjustSearchViewport(m), nil
		}
		return m, nil
	}

	before := m.searchInput.Value()
	m.searchInput, cmd = m.searchInput.Update(msg)
	query := m.searchInput.Value()
	if query == before {
		return m, cmd
	}

	m.searchSeq++
	return m, tea.Batch(cmd, scheduleSearch(query, m.searchSeq))
}

func (m Model) viewSearch() string {
	var b strings.Builder
	width := m.width
	if width <= 0 {
		width = 80
	}

	// Header with search input - ALWAYS at top
	b.WriteString(searchHeaderStyle.Render("Search: "))
	b.WriteString(m.searchInput.View())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", width))
	b.WriteString("\n\n")

	query := m.searchInput.Value()
	switch {
	case m.searching:
		b.WriteString(searchMetaStyle.Render("Searching..."))
	case m.searchResults == nil:
		b.WriteString(searchMetaStyle.Render("Type to search (words of three or more letters)"))
	case len(m.searchResults) == 0:
		b.WriteString(searchMetaStyle.Render("No results found"))
	default:
		b.WriteString(searchMetaStyle.Render(fmt.Sprintf("Found %d conversations:", len(m.searchResults))))
		b.WriteString("\n\n")

		startIdx := m.searchViewOffset
		endIdx := min(startIdx+visibleSearchResults(m.height), len(m.searchResults))

		for i := startIdx; i < endIdx; i++ {
			result := m.searchResults[i]

			prefix := "  "
			title := truncate.StringWithTail(result.SessionID, uint(max(width-4, 10)), "…")
			if i == m.searchSelectedIdx {
				prefix = "► "
				title = searchSelectedStyle.Render(title)
			}

			meta := fmt.Sprintf("%s | %s | score %.2f", result.ProjectName, humanize.Time(result.Timestamp), result.Score)
			if result.HasErrors() {
				meta += " | " + errorBadgeStyle.Render("errors")
			}
			b.WriteString(prefix + title + "\n")
			b.WriteString("  " + searchMetaStyle.Render(meta) + "\n")

			snippet := truncate.StringWithTail(firstLine(result.MatchedContent), uint(max(width-6, 20)), "…")
			b.WriteString("    " + highlightQuery(snippet, query) + "\n\n")
		}

		if startIdx > 0 {
			b.WriteString(searchMetaStyle.Render(fmt.Sprintf("... %d results above\n", startIdx)))
		}
		if endIdx < len(m.searchResults) {
			b.WriteString(searchMetaStyle.Render(fmt.Sprintf("... %d results below\n", len(m.searchResults)-endIdx)))
		}
	}

	b.WriteString("\n\n")
	if len(m.searchResults) > 0 {
		b.WriteString("Ctrl+j or ↑↓: navigate | Enter: open | Ctrl+k: kill line | esc: back")
	} else {
		b.WriteString("Ctrl+k: kill line | esc: back")
	}
	return b.String()
}

// highlightQuery marks every keyword of query in text.
func highlightQuery(text, query string) string {
	keywords := search.Keywords(query)
	if len(keywords) == 0 {
		return text
	}

	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	re, err := regexp.Compile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return searchMatchStyle.Render(match)
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
