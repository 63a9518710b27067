package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/claude-grep/internal/core/config"
	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/format"
	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/project"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/core/timerange"
	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompMCP)

// Version is reported to MCP clients.
var Version = "dev"

// SearchConversationsArgs defines arguments for the search_conversations tool
type SearchConversationsArgs struct {
	Query             string `json:"query"`
	Format            string `json:"format,omitempty"`
	Exhaustive        *bool  `json:"exhaustive,omitempty"`
	MaxResults        int    `json:"maxResults,omitempty"`
	TimeRange         string `json:"timeRange,omitempty"`
	Project           string `json:"project,omitempty"`
	SearchAllProjects bool   `json:"searchAllProjects,omitempty"`
	IncludeErrors     *bool  `json:"includeErrors,omitempty"`
	IncludeToolCalls  *bool  `json:"includeToolCalls,omitempty"`
	FilePatterns      string `json:"filePatterns,omitempty"`
}

// SearchFilesArgs defines arguments for the search_for_files tool
type SearchFilesArgs struct {
	FilePattern string `json:"filePattern"`
	Format      string `json:"format,omitempty"`
	MaxResults  int    `json:"maxResults,omitempty"`
	TimeRange   string `json:"timeRange,omitempty"`
	Project     string `json:"project,omitempty"`
}

// ConversationDetailsArgs defines arguments for the get_conversation_details tool
type ConversationDetailsArgs struct {
	SessionID        string `json:"sessionId"`
	Format           string `json:"format,omitempty"`
	IncludeContext   int    `json:"includeContext,omitempty"`
	HighlightMatches bool   `json:"highlightMatches,omitempty"`
	SearchTerms      string `json:"searchTerms,omitempty"`
}

// Server exposes claude-grep as MCP tools.
type Server struct {
	svc    *service.Service
	webURL string
	mcp    *server.MCPServer
}

// NewServer registers every tool. open_web_interface is only registered
// when webURL is set.
func NewServer(svc *service.Service, webURL string) *Server {
	s := &Server{
		svc:    svc,
		webURL: webURL,
		mcp: server.NewMCPServer(
			project.ServerName,
			Version,
			server.WithToolCapabilities(false),
			server.WithInstructions("Search and analyze Claude conversation history"),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools over stdin/stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	errLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	return server.ServeStdio(s.mcp, server.WithErrorLogger(errLog))
}

func (s *Server) registerTools() {
	formats := format.Names()

	s.mcp.AddTool(mcp.NewTool("search_conversations",
		mcp.WithDescription("Search Claude conversation history. Returns matches from your conversations with context."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (keywords, phrases, or file names)")),
		mcp.WithString("format",
			mcp.Enum(formats...),
			mcp.Description("Output format (default: table)")),
		mcp.WithBoolean("exhaustive",
			mcp.Description("Use exhaustive search mode (slower but finds all matches)")),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results to return (default: 20)")),
		mcp.WithString("timeRange",
			mcp.Description("Time range filter (e.g., \"24h\", \"7d\", \"1m\", \"1y\", \"last week\")")),
		mcp.WithString("project",
			mcp.Description("Search specific project (overrides current context)")),
		mcp.WithBoolean("searchAllProjects",
			mcp.Description("Search across all projects instead of current one")),
		mcp.WithBoolean("includeErrors",
			mcp.Description("Only show conversations that contain errors")),
		mcp.WithBoolean("includeToolCalls",
			mcp.Description("Only show conversations with tool calls")),
		mcp.WithString("filePatterns",
			mcp.Description("Filter by file patterns (comma-separated, e.g., \"*.ts,*.js\")")),
	), s.handleSearchConversations)

	s.mcp.AddTool(mcp.NewTool("search_for_files",
		mcp.WithDescription("Find conversations that mention specific files or file patterns"),
		mcp.WithString("filePattern",
			mcp.Required(),
			mcp.Description("File name or pattern to search for (e.g., \"package.json\", \"*.test.ts\")")),
		mcp.WithString("format",
			mcp.Enum(formats...),
			mcp.Description("Output format (default: table)")),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results (default: 20)")),
		mcp.WithString("timeRange",
			mcp.Description("Time range filter (e.g., \"24h\", \"7d\", \"1m\")")),
		mcp.WithString("project",
			mcp.Description("Search specific project")),
	), s.handleSearchFiles)

	s.mcp.AddTool(mcp.NewTool("get_conversation_details",
		mcp.WithDescription("Get full details of a specific conversation by session ID"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("Session ID from search results")),
		mcp.WithString("format",
			mcp.Enum("markdown", "json"),
			mcp.Description("Output format (default: markdown)")),
		mcp.WithNumber("includeContext",
			mcp.Description("Number of messages before/after matches to include")),
		mcp.WithBoolean("highlightMatches",
			mcp.Description("Highlight search terms in the output")),
		mcp.WithString("searchTerms",
			mcp.Description("Comma-separated terms to highlight and to center context on")),
	), s.handleConversationDetails)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all available Claude projects with conversation history"),
	), s.handleListProjects)

	s.mcp.AddTool(mcp.NewTool("get_current_project",
		mcp.WithDescription("Get the currently detected project context"),
	), s.handleCurrentProject)

	s.mcp.AddTool(mcp.NewTool("switch_project",
		mcp.WithDescription("Switch the default project for searches"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name to switch to")),
	), s.handleSwitchProject)

	s.mcp.AddTool(mcp.NewTool("get_preferences",
		mcp.WithDescription("Get current Claude Grep preferences"),
	), s.handleGetPreferences)

	prefOpts := []mcp.ToolOption{mcp.WithDescription("Update Claude Grep preferences. Keys are dotted, e.g. search.maxResults")}
	for _, key := range config.Keys() {
		prefOpts = append(prefOpts, mcp.WithString(key, mcp.Description("Preference "+key)))
	}
	s.mcp.AddTool(mcp.NewTool("set_preferences", prefOpts...), s.handleSetPreferences)

	s.mcp.AddTool(mcp.NewTool("reset_preferences",
		mcp.WithDescription("Reset all preferences to defaults"),
	), s.handleResetPreferences)

	if s.webURL != "" {
		s.mcp.AddTool(mcp.NewTool("open_web_interface",
			mcp.WithDescription("Get the URL for the Claude Grep web interface"),
		), s.handleOpenWebInterface)
	}
}

func (s *Server) handleSearchConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SearchConversationsArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	prefs := s.svc.Prefs.Get()
	exhaustive := prefs.Search.Exhaustive
	if args.Exhaustive != nil {
		exhaustive = *args.Exhaustive
	}
	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = prefs.Search.MaxResults
	}

	tr, err := parseTimeRange(args.TimeRange)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.project(ctx, args.Project, args.SearchAllProjects)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.svc.Search(ctx, service.Request{
		Search: search.Options{
			Query:            args.Query,
			Project:          proj,
			FilePatterns:     splitList(args.FilePatterns),
			TimeRange:        tr,
			IncludeErrors:    args.IncludeErrors,
			IncludeToolCalls: args.IncludeToolCalls,
			Exhaustive:       exhaustive,
			Limit:            maxResults,
		},
		Process: results.Options{
			MaxResults:        maxResults,
			HighlightKeywords: search.Keywords(args.Query),
		},
		Source: history.SourceMCP,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return s.render(resp.Results, args.Format, &resp.Stats)
}

func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SearchFilesArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.FilePattern == "" {
		return mcp.NewToolResultError("filePattern is required"), nil
	}

	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = s.svc.Prefs.Get().Search.MaxResults
	}
	tr, err := parseTimeRange(args.TimeRange)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.project(ctx, args.Project, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.svc.Search(ctx, service.Request{
		Search: search.Options{
			Project:      proj,
			FilePatterns: []string{args.FilePattern},
			TimeRange:    tr,
			Limit:        maxResults,
		},
		Process: results.Options{MaxResults: maxResults},
		Source:  history.SourceMCP,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return s.render(resp.Results, args.Format, nil)
}

func (s *Server) handleConversationDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ConversationDetailsArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.SessionID == "" {
		return mcp.NewToolResultError("sessionId is required"), nil
	}

	details, err := s.svc.Loader.Load(ctx, args.SessionID)
	if errors.Is(err, search.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Conversation %s not found.", args.SessionID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error loading conversation: %v", err)), nil
	}

	out, err := conversation.Format(details, args.Format, conversation.FormatOptions{
		Highlight: args.HighlightMatches,
		Terms:     splitList(args.SearchTerms),
		Context:   args.IncludeContext,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.Scanner.ListProjects()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("Available projects:")
	for _, p := range projects {
		b.WriteString("\n- " + p)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleCurrentProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.svc.Projects.CurrentContext(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to detect project: %v", err)), nil
	}

	current := c.CurrentProject
	if current == "" {
		current = "No project detected"
	}
	wd := c.WorkingDirectory
	if wd == "" {
		wd = "Unknown"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Current project: %s\nWorking directory: %s", current, wd)), nil
}

func (s *Server) handleSwitchProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.Projects.Switch(name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Prefs.Set("search.defaultProject", name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Info("switched project", "project", name)
	return mcp.NewToolResultText("Switched to project: " + name), nil
}

func (s *Server) handleGetPreferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.svc.Prefs.Get(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal preferences: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSetPreferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values := make(map[string]string)
	for key, value := range request.GetArguments() {
		values[key] = fmt.Sprint(value)
	}
	if len(values) == 0 {
		return mcp.NewToolResultError("no preferences given"), nil
	}

	if err := s.svc.Prefs.SetAll(values); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Preferences updated successfully"), nil
}

func (s *Server) handleResetPreferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Prefs.Reset(""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Preferences reset to defaults"), nil
}

func (s *Server) handleOpenWebInterface(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf(
		"Claude Grep web interface is available at: %s\n\nYou can open this URL in your browser to access the visual search interface.",
		s.webURL)), nil
}

// project resolves the search scope. Unlike the CLI, a missing project
// falls back to searching everything.
func (s *Server) project(ctx context.Context, explicit string, all bool) (string, error) {
	p, err := s.svc.ResolveProject(ctx, explicit, all)
	if errors.Is(err, service.ErrNoProject) {
		return "", nil
	}
	return p, err
}

func (s *Server) render(rs []*models.SearchResult, name string, stats *results.Stats) (*mcp.CallToolResult, error) {
	prefs := s.svc.Prefs.Get()
	if name == "" {
		name = prefs.Display.DefaultFormat
	}

	out, err := format.Render(rs, name, format.Options{
		IncludeStats:   stats != nil && prefs.Display.IncludeStats,
		Stats:          stats,
		TruncateLength: prefs.Display.MaxPreviewLength,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format results: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func parseTimeRange(s string) (search.TimeRange, error) {
	if s == "" {
		return search.TimeRange{}, nil
	}
	return timerange.Parse(s, time.Now())
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
