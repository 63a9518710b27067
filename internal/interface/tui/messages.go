package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/scanner"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
)

const (
	maxListedConversations = 1000
	maxSearchResults       = 50
	searchDebounce         = 250 * time.Millisecond
)

type errMsg struct {
	err error
}

type conversationsLoadedMsg struct {
	conversations []models.ConversationFile
}

type conversationLoadedMsg struct {
	details *conversation.Details
}

type searchTickMsg struct {
	seq   int
	query string
}

type searchResultsMsg struct {
	seq     int
	results []*models.SearchResult
}

func loadConversations(svc *service.Service, project string) tea.Cmd {
	return func() tea.Msg {
		files, err := svc.Scanner.Scan(context.Background(), scanner.Options{Project: project})
		if err != nil {
			return errMsg{err}
		}
		if len(files) > maxListedConversations {
			files = files[:maxListedConversations]
		}
		return conversationsLoadedMsg{conversations: files}
	}
}

func loadConversation(svc *service.Service, sessionID string) tea.Cmd {
	return func() tea.Msg {
		details, err := svc.Loader.Load(context.Background(), sessionID)
		if err != nil {
			return errMsg{err}
		}
		return conversationLoadedMsg{details: details}
	}
}

// scheduleSearch waits for typing to pause before searching. Ticks for
// older keystrokes are dropped by Update.
func scheduleSearch(query string, seq int) tea.Cmd {
	return tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq, query: query}
	})
}

// performSearch runs a live search. It bypasses the service so keystrokes
// do not end up in the search history.
func performSearch(svc *service.Service, project, query string, seq int) tea.Cmd {
	return func() tea.Msg {
		// Queries without a usable keyword would match every message.
		if len(search.Keywords(query)) == 0 {
			return searchResultsMsg{seq: seq}
		}

		found, err := search.New(svc.Scanner).Collect(context.Background(), search.Options{
			Query:   query,
			Project: project,
			Limit:   maxSearchResults,
		})
		if err != nil {
			return errMsg{err}
		}

		processed := results.Process(found, results.Options{
			MaxResults:  maxSearchResults,
			Deduplicate: true,
		})
		if processed.Results == nil {
			processed.Results = []*models.SearchResult{}
		}
		return searchResultsMsg{seq: seq, results: processed.Results}
	}
}
