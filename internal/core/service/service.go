// Package service wires the core packages together. The CLI, MCP server,
// web server and TUI all search through it so they behave the same way.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/config"
	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/progress"
	"github.com/neilberkman/claude-grep/internal/core/project"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/scanner"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompSearch)

// ErrNoProject is returned when a search needs a project and none was
// given or detected.
var ErrNoProject = errors.New("no project detected")

// ProgressInterval throttles progress updates.
const ProgressInterval = 100 * time.Millisecond

// Service holds the long-lived components.
type Service struct {
	Env      *config.Env
	Prefs    *config.Store
	Scanner  *scanner.Scanner
	Engine   *search.Engine
	Projects *project.Manager
	Loader   *conversation.Loader

	// History is nil when the database could not be opened.
	History *history.Store
}

// New builds the service from the environment. Failing to open the
// history database is logged and tolerated.
func New(env *config.Env) (*Service, error) {
	prefs := config.NewStore(env.PreferencesPath())
	if err := prefs.Load(); err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	s := scanner.New(env.ProjectsPath)
	engine := search.New(s)

	svc := &Service{
		Env:      env,
		Prefs:    prefs,
		Scanner:  s,
		Engine:   engine,
		Projects: project.NewManager(s, project.NewDetector(s), env.ProjectsStatePath()),
		Loader:   conversation.NewLoader(engine),
	}

	h, err := history.Open(env.HistoryPath())
	if err != nil {
		log.Warn("search history disabled", "error", err)
	} else {
		svc.History = h
	}
	return svc, nil
}

// Close releases the history database.
func (s *Service) Close() error {
	if s.History == nil {
		return nil
	}
	return s.History.Close()
}

// ResolveProject picks the project a search runs against. all searches
// every project; an explicit name must exist; otherwise the current
// context decides and ErrNoProject is returned when there is none.
func (s *Service) ResolveProject(ctx context.Context, explicit string, all bool) (string, error) {
	if all {
		return "", nil
	}
	if explicit != "" {
		if !s.Scanner.ProjectExists(explicit) {
			return "", &project.NotFoundError{Name: explicit, Suggestions: s.Projects.Suggest(explicit, 3)}
		}
		return explicit, nil
	}

	c, err := s.Projects.CurrentContext(ctx)
	if err != nil {
		return "", err
	}
	if c.CurrentProject == "" {
		if def := s.Prefs.Get().Search.DefaultProject; def != "" && s.Scanner.ProjectExists(def) {
			return def, nil
		}
		return "", ErrNoProject
	}
	return c.CurrentProject, nil
}

// Request is one search plus its post-processing.
type Request struct {
	Search    search.Options
	Process   results.Options
	Source    string // history.SourceCLI etc.
	Listeners []progress.Listener
}

// Response carries processed results and the run's statistics.
type Response struct {
	Results      []*models.SearchResult `json:"results"`
	TotalMatches int                    `json:"totalMatches"`
	Stats        results.Stats          `json:"stats"`
	Summary      progress.Summary       `json:"-"`
}

// Search runs req with a tracker of its own, so concurrent searches do
// not share progress state, and records it in the history.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	var summary progress.Summary
	listeners := append([]progress.Listener{
		progress.Funcs{Complete: func(sum progress.Summary) { summary = sum }},
	}, req.Listeners...)

	tracker := progress.NewTracker(ProgressInterval, listeners...)
	engine := search.New(s.Scanner, search.WithProgress(tracker))

	found, err := engine.Collect(ctx, req.Search)
	if err != nil {
		return nil, err
	}

	processed := results.Process(found, req.Process)
	processed.Stats.SearchDuration = summary.Duration
	if summary.FilesSearched > 0 {
		processed.Stats.TotalConversationsSearched = summary.FilesSearched
	}

	resp := &Response{
		Results:      processed.Results,
		TotalMatches: processed.TotalMatches,
		Stats:        processed.Stats,
		Summary:      summary,
	}
	s.record(ctx, req, resp)
	return resp, nil
}

func (s *Service) record(ctx context.Context, req Request, resp *Response) {
	if s.History == nil {
		return
	}
	_, err := s.History.Record(ctx, history.Entry{
		Query:       req.Search.Query,
		Project:     req.Search.Project,
		Source:      req.Source,
		ResultCount: len(resp.Results),
		Duration:    resp.Summary.Duration,
	})
	if err != nil {
		log.Warn("failed to record search", "error", err)
	}
}
