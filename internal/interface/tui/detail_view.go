package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/search"
)

// resumeCommand is the shell command that continues a conversation.
func resumeCommand(sessionID string) string {
	return "claude --resume " + sessionID
}

func createViewport(d *conversation.Details, query string, width, height int) viewport.Model {
	vp := viewport.New(width, detailHeight(height))
	vp.SetContent(renderConversation(d, query, width))
	return vp
}

func renderConversation(d *conversation.Details, query string, width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Conversation: "+d.SessionID) + "\n")
	b.WriteString(fmt.Sprintf("Project: %s\n", d.ProjectName))
	b.WriteString(fmt.Sprintf("Messages: %d", d.Metadata.TotalMessages))
	if d.Metadata.Branch != "" {
		b.WriteString(fmt.Sprintf(" | Branch: %s", d.Metadata.Branch))
	}
	if !d.Metadata.End.IsZero() {
		b.WriteString(fmt.Sprintf(" | Last message: %s", humanize.Time(d.Metadata.End)))
	}
	b.WriteString("\n")
	if len(d.Metadata.Files) > 0 {
		b.WriteString(fmt.Sprintf("Files: %s\n", strings.Join(d.Metadata.Files, ", ")))
	}
	b.WriteString(strings.Repeat("─", width) + "\n\n")

	wrapWidth := max(width-10, 40)
	for _, msg := range d.Messages {
		var style lipgloss.Style
		var label string

		switch msg.Role {
		case search.RoleUser:
			style = userStyle
			label = "USER"
		case search.RoleAssistant:
			style = assistantStyle
			label = "ASSISTANT"
		default:
			style = lipgloss.NewStyle()
			label = strings.ToUpper(msg.Role)
		}

		b.WriteString(style.Render(fmt.Sprintf("▸ %s", label)))
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(search.FormatMessageTime(msg.Timestamp)))
		if msg.HasError {
			b.WriteString(" " + errorBadgeStyle.Render("[error]"))
		}
		b.WriteString("\n")

		b.WriteString(highlightQuery(wordwrap.String(msg.Content, wrapWidth), query))
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("─", width) + "\n\n")
	}

	return b.String()
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.current == nil {
		m.mode = m.backMode
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = m.backMode
		m.current = nil
		return m, nil

	case "c":
		if err := clipboard.WriteAll(m.current.SessionID); err != nil {
			m.status = "Copy failed: " + err.Error()
		} else {
			m.status = "Copied session ID"
		}
		return m, nil

	case "y":
		if err := clipboard.WriteAll(resumeCommand(m.current.SessionID)); err != nil {
			m.status = "Copy failed: " + err.Error()
		} else {
			m.status = "Copied: " + resumeCommand(m.current.SessionID)
		}
		return m, nil

	case "r":
		m.LaunchSessionID = m.current.SessionID
		m.LaunchProjectPath = m.current.Metadata.Cwd
		return m, tea.Quit

	case "g":
		m.viewport.GotoTop()
		return m, nil

	case "G":
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) viewDetail() string {
	footer := fmt.Sprintf("%3.f%% • j/k scroll • d/u half page • g/G top/bottom • c copy id • y copy resume • r resume • esc back • ? help",
		m.viewport.ScrollPercent()*100)
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	}
	return m.viewport.View() + "\n" + helpStyle.Render(footer)
}
