package tui

const (
	linesPerResult = 4 // title, meta, snippet, blank
	reservedLines  = 8 // header and footer
)

func visibleSearchResults(height int) int {
	return max((height-reservedLines)/linesPerResult, 2)
}

// adjustSearchViewport ensures the selected search result is visible within the viewport.
func adjustSearchViewport(m Model) Model {
	visible := visibleSearchResults(m.height)

	// Scroll down if selected item is below visible window
	if m.searchSelectedIdx >= m.searchViewOffset+visible {
		m.searchViewOffset = m.searchSelectedIdx - visible + 1
	}

	// Scroll up if selected item is above visible window
	if m.searchSelectedIdx < m.searchViewOffset {
		m.searchViewOffset = m.searchSelectedIdx
	}

	return m
}

// handleSearchMouseWheel moves the selection one result per wheel step.
func handleSearchMouseWheel(m Model, wheelDown bool) Model {
	if len(m.searchResults) == 0 {
		return m
	}

	if wheelDown {
		m.searchSelectedIdx = min(m.searchSelectedIdx+1, len(m.searchResults)-1)
	} else {
		m.searchSelectedIdx = max(m.searchSelectedIdx-1, 0)
	}
	return adjustSearchViewport(m)
}

// detailHeight is the viewport height left after the header and footer.
func detailHeight(height int) int {
	return max(height-4, 1)
}
