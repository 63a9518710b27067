package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.mode = m.helpBack
		return m, nil
	}

	return m, nil
}

func (m Model) viewHelp() string {
	help := `
claude-grep - Help
══════════════════

CONVERSATION LIST
─────────────────
  ↑/↓, j/k     Navigate conversations
  Enter        Read conversation
  /            Search
  p            Toggle between current project and all projects
  ?            Show this help
  q            Quit

SEARCH
──────
  Type         Enter search query (live)
  Enter        Read selected conversation
  Ctrl+j, ↑/↓  Navigate results
  esc          Back to conversation list

CONVERSATION
────────────
  j/k          Scroll line by line
  d/u          Scroll half page
  g/G          Jump to top/bottom
  c            Copy session ID to clipboard
  y            Copy resume command to clipboard
  r            Resume conversation in Claude Code
  esc          Back

Press esc to return
`

	return helpStyle.Render(help)
}
