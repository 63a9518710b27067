package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/claude-grep/internal/core/models"
)

type conversationListItem struct {
	file           models.ConversationFile
	currentProject bool
}

func (i conversationListItem) FilterValue() string {
	return i.file.SessionID + " " + i.file.ProjectName
}

func (i conversationListItem) Title() string {
	return i.file.SessionID
}

func (i conversationListItem) Description() string {
	return fmt.Sprintf("%s | Updated: %s", i.file.ProjectName, humanize.Time(i.file.LastModified))
}

// Custom delegate to highlight conversations of the current project
type conversationDelegate struct {
	list.DefaultDelegate
}

func (d conversationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(conversationListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := c.Title()
	desc := c.Description()

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render("▸ " + title)
		desc = selectedItemStyle.Faint(true).Render("  " + desc)
	case c.currentProject:
		title = currentProjectItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createConversationList(files []models.ConversationFile, project string, width, height int) list.Model {
	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = conversationListItem{file: f, currentProject: project != "" && f.ProjectName == project}
	}

	delegate := conversationDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, max(height-1, 1)) // Reserve 1 line for help text only
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // search has its own view on /

	return l
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if selected, ok := m.list.SelectedItem().(conversationListItem); ok {
			return m, loadConversation(m.svc, selected.file.SessionID)
		}
		return m, nil

	case "/":
		m.mode = searchView
		return m, textinput.Blink

	case "p":
		if m.project == "" {
			m.status = "No project detected in this directory"
			return m, nil
		}
		m.projectFilterEnabled = !m.projectFilterEnabled
		return m, loadConversations(m.svc, m.scope())
	}

	if len(m.conversations) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	scope := "all projects"
	if m.projectFilterEnabled {
		scope = m.project
	}
	helpText := fmt.Sprintf("%s • ↑/k up • ↓/j down • enter open • / search • p project • q quit • ? more", scope)
	if m.status != "" {
		helpText = statusStyle.Render(m.status)
	}

	if len(m.conversations) == 0 {
		return "No conversations found.\n\n" + helpText
	}

	return m.list.View() + "\n" + helpText
}
