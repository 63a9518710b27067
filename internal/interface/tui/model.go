// Package tui is the interactive terminal browser: a conversation list,
// a live search box and a conversation reader.
package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/service"
)

type viewMode int

const (
	listView viewMode = iota
	searchView
	detailView
	helpView
)

type Model struct {
	svc      *service.Service
	mode     viewMode
	backMode viewMode // where esc leaves the detail view
	helpBack viewMode
	list     list.Model
	viewport viewport.Model
	width    int
	height   int
	err      error
	status   string

	// project is the detected project; the list and search are limited
	// to it while projectFilterEnabled is set.
	project              string
	projectFilterEnabled bool

	conversations []models.ConversationFile

	searchInput       textinput.Model
	searchResults     []*models.SearchResult
	searchSelectedIdx int
	searchViewOffset  int
	searchSeq         int
	searching         bool

	current *conversation.Details

	// Set when the user asked to resume a conversation; the caller execs
	// claude after the program exits.
	LaunchSessionID   string
	LaunchProjectPath string
}

// New creates the model. project may be empty.
func New(svc *service.Service, project string) Model {
	ti := textinput.New()
	ti.Placeholder = "search conversations"
	ti.CharLimit = 200
	ti.Focus()

	return Model{
		svc:                  svc,
		mode:                 listView,
		project:              project,
		projectFilterEnabled: project != "",
		list:                 createConversationList(nil, project, 80, 24),
		searchInput:          ti,
	}
}

func (m Model) scope() string {
	if m.projectFilterEnabled {
		return m.project
	}
	return ""
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadConversations(m.svc, m.scope()), textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-1)
		m.viewport.Width = msg.Width
		m.viewport.Height = detailHeight(msg.Height)
		if m.current != nil {
			m.viewport.SetContent(renderConversation(m.current, m.searchInput.Value(), m.width))
		}
		return m, nil

	case tea.MouseMsg:
		switch m.mode {
		case searchView:
			if msg.Button == tea.MouseButtonWheelDown || msg.Button == tea.MouseButtonWheelUp {
				return handleSearchMouseWheel(m, msg.Button == tea.MouseButtonWheelDown), nil
			}
		case detailView:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (m.err != nil && msg.String() == "q") {
			return m, tea.Quit
		}
		m.status = ""

		// The search box takes every printable key, including q and ?.
		if m.mode != searchView {
			switch msg.String() {
			case "q":
				if m.mode == listView {
					return m, tea.Quit
				}
			case "?":
				if m.mode != helpView {
					m.helpBack = m.mode
					m.mode = helpView
					return m, nil
				}
			}
		}

		switch m.mode {
		case listView:
			return m.updateList(msg)
		case searchView:
			return m.updateSearch(msg)
		case detailView:
			return m.updateDetail(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case conversationsLoadedMsg:
		m.conversations = msg.conversations
		m.list = createConversationList(msg.conversations, m.project, m.width, m.height)
		return m, nil

	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.searching = true
		return m, performSearch(m.svc, m.scope(), msg.query, msg.seq)

	case searchResultsMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.searching = false
		m.searchResults = msg.results
		m.searchSelectedIdx = 0
		m.searchViewOffset = 0
		return m, nil

	case conversationLoadedMsg:
		m.current = msg.details
		m.viewport = createViewport(msg.details, m.searchQuery(), m.width, m.height)
		m.backMode = m.mode
		m.mode = detailView
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	if m.mode == searchView {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// searchQuery is the query to highlight in the reader.
func (m Model) searchQuery() string {
	if m.mode == searchView {
		return m.searchInput.Value()
	}
	return ""
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit"
	}

	switch m.mode {
	case listView:
		return m.viewList()
	case searchView:
		return m.viewSearch()
	case detailView:
		return m.viewDetail()
	case helpView:
		return m.viewHelp()
	}

	return ""
}
