package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/format"
	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/project"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/core/timerange"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Projects.CurrentContext(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"projects":       c.AvailableProjects,
		"currentProject": c.CurrentProject,
		"isClaudeCode":   c.IsClaudeCode,
	})
}

func (s *Server) currentProject(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Projects.CurrentContext(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	JSON(w, http.StatusOK, c)
}

type switchRequest struct {
	Project string `json:"project"`
}

func (s *Server) switchProject(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Project == "" {
		Error(w, http.StatusBadRequest, "Project name is required")
		return
	}

	if err := s.svc.Projects.Switch(req.Project); err != nil {
		HandleError(w, err)
		return
	}
	log.Info("switched project", "project", req.Project, "request_id", GetRequestID(r.Context()))
	s.currentProject(w, r)
}

type searchRequest struct {
	Query             string `json:"query"`
	Project           string `json:"project"`
	SearchAllProjects bool   `json:"searchAllProjects"`
	Exhaustive        bool   `json:"exhaustive"`
	TimeRange         string `json:"timeRange"`
	IncludeErrors     bool   `json:"includeErrors"`
	IncludeToolCalls  bool   `json:"includeToolCalls"`
	FilePatterns      string `json:"filePatterns"`
	Format            string `json:"format"`
	MaxResults        int    `json:"maxResults"`
	SortBy            string `json:"sortBy"`
}

type searchMetadata struct {
	TotalSearched int    `json:"totalSearched"`
	TotalMatches  int    `json:"totalMatches"`
	SearchTime    int64  `json:"searchTime"`
	Project       string `json:"project"`
	Exhaustive    bool   `json:"exhaustive"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 20
	}
	if req.Format == "" {
		req.Format = format.JSON
	}

	var tr search.TimeRange
	if req.TimeRange != "" {
		parsed, err := timerange.Parse(req.TimeRange, time.Now())
		if err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		tr = parsed
	}

	if !search.SortField(req.SortBy).Valid() {
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid sortBy %q: use relevance, date or messageCount", req.SortBy))
		return
	}

	proj := ""
	if !req.SearchAllProjects {
		proj = req.Project
		if proj != "" && !s.svc.Scanner.ProjectExists(proj) {
			Error(w, http.StatusBadRequest, (&project.NotFoundError{Name: proj, Suggestions: s.svc.Projects.Suggest(proj, 3)}).Error())
			return
		}
		if proj == "" {
			c, err := s.svc.Projects.CurrentContext(r.Context())
			if err != nil {
				HandleError(w, err)
				return
			}
			proj = c.CurrentProject
		}
	}

	opts := search.Options{
		Query:        req.Query,
		Project:      proj,
		FilePatterns: splitList(req.FilePatterns),
		TimeRange:    tr,
		Exhaustive:   req.Exhaustive,
		Limit:        req.MaxResults,
		SortBy:       search.SortField(req.SortBy),
	}
	if req.IncludeErrors {
		opts.IncludeErrors = search.Bool(true)
	}
	if req.IncludeToolCalls {
		opts.IncludeToolCalls = search.Bool(true)
	}

	resp, err := s.svc.Search(r.Context(), service.Request{
		Search:  opts,
		Process: results.Options{MaxResults: req.MaxResults},
		Source:  history.SourceWeb,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	scope := proj
	if scope == "" {
		scope = "all projects"
	}
	meta := searchMetadata{
		TotalSearched: resp.Stats.TotalConversationsSearched,
		TotalMatches:  resp.TotalMatches,
		SearchTime:    resp.Stats.SearchDuration.Milliseconds(),
		Project:       scope,
		Exhaustive:    req.Exhaustive,
	}

	if req.Format == format.JSON {
		JSON(w, http.StatusOK, map[string]any{"results": resp.Results, "metadata": meta})
		return
	}

	out, err := format.Render(resp.Results, req.Format, format.Options{IncludeStats: true, Stats: &resp.Stats})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"results": out, "metadata": meta})
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	name := r.URL.Query().Get("format")

	switch name {
	case "", format.JSON:
		result, err := s.svc.Engine.ConversationByID(r.Context(), sessionID)
		if err != nil {
			HandleError(w, err)
			return
		}
		JSON(w, http.StatusOK, result)

	case format.Markdown:
		details, err := s.svc.Loader.Load(r.Context(), sessionID)
		if err != nil {
			HandleError(w, err)
			return
		}
		out, err := conversation.Format(details, format.Markdown, conversation.FormatOptions{
			Highlight: r.URL.Query().Get("highlight") != "",
			Terms:     splitList(r.URL.Query().Get("highlight")),
		})
		if err != nil {
			HandleError(w, err)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"format": name, "content": out})

	default:
		if !format.IsValid(name) {
			Error(w, http.StatusBadRequest, fmt.Sprintf("unknown format: %s", name))
			return
		}
		result, err := s.svc.Engine.ConversationByID(r.Context(), sessionID)
		if err != nil {
			HandleError(w, err)
			return
		}
		out, err := format.Render([]*models.SearchResult{result}, name, format.Options{})
		if err != nil {
			HandleError(w, err)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"format": name, "content": out})
	}
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.svc.Prefs.Get())
}

// setPreferences accepts a partial preferences document, e.g.
// {"search": {"maxResults": 50}}.
func (s *Server) setPreferences(w http.ResponseWriter, r *http.Request) {
	var body map[string]map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	values := make(map[string]string)
	for section, fields := range body {
		for key, value := range fields {
			values[section+"."+key] = fmt.Sprint(value)
		}
	}
	if err := s.svc.Prefs.SetAll(values); err != nil {
		HandleError(w, err)
		return
	}
	JSON(w, http.StatusOK, s.svc.Prefs.Get())
}

func (s *Server) formats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"formats": format.Names(),
		"default": s.svc.Prefs.Get().Display.DefaultFormat,
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries := []history.Entry{}
	if s.svc.History != nil {
		recent, err := s.svc.History.Recent(r.Context(), limit)
		if err != nil {
			HandleError(w, err)
			return
		}
		entries = append(entries, recent...)
	}
	JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
