package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/format"
	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/progress"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/core/timerange"
)

var (
	searchProject          string
	searchAll              bool
	searchFormat           string
	searchExhaustive       bool
	searchMaxResults       int
	searchTimeRange        string
	searchIncludeErrors    bool
	searchIncludeToolCalls bool
	searchFilePatterns     string
	searchSort             string
	searchMinScore         float64
	searchDedupe           bool
	searchNoProgress       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversations in the current project",
	Long: `Search the conversations of the current project (detected from the
working directory) or of every project with --all.

Keywords shorter than three characters and common stop words are ignored.
A message matches when it contains any keyword.

Examples:
  claude-grep search "database migration"
  claude-grep search "auth" -p billing-api -t 7d
  claude-grep search "panic" --include-errors -f markdown
  claude-grep search "refactor" -a --file-patterns "*.go,*.sql"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "Project to search (default: detected from the working directory)")
	searchCmd.Flags().BoolVarP(&searchAll, "all", "a", false, "Search every project")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "", "Output format: "+strings.Join(format.Names(), ", "))
	searchCmd.Flags().BoolVarP(&searchExhaustive, "exhaustive", "e", false, "Scan every conversation instead of stopping at the result limit")
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "m", 0, "Maximum number of results (default: preferences)")
	searchCmd.Flags().StringVarP(&searchTimeRange, "time-range", "t", "", `Time range: 24h, 7d, 2w, 3m, 1y, "last week", 2025-01-02..2025-01-31`)
	searchCmd.Flags().BoolVar(&searchIncludeErrors, "include-errors", false, "Only match messages that contain errors")
	searchCmd.Flags().BoolVar(&searchIncludeToolCalls, "include-tool-calls", false, "Only match messages with tool calls")
	searchCmd.Flags().StringVar(&searchFilePatterns, "file-patterns", "", "Comma-separated file patterns, * is a wildcard")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "Sort by relevance, date or messageCount")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "Drop results scoring below this")
	searchCmd.Flags().BoolVar(&searchDedupe, "dedupe", false, "Show one result per conversation")
	searchCmd.Flags().BoolVar(&searchNoProgress, "no-progress", false, "Do not draw the progress bar")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := cmd.Context()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	opts, err := searchOptions(ctx, svc, query)
	if err != nil {
		return err
	}

	prefs := svc.Prefs.Get()
	req := service.Request{
		Search: opts,
		Process: results.Options{
			MaxResults:        opts.Limit,
			MinScore:          searchMinScore,
			Deduplicate:       searchDedupe,
			HighlightKeywords: highlightFor(searchFormat, prefs.Display.DefaultFormat, query),
		},
		Source: history.SourceCLI,
	}
	if prefs.Performance.EnableProgressBar && !searchNoProgress {
		req.Listeners = append(req.Listeners, progress.NewConsole(os.Stderr))
	}

	resp, err := svc.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	// Cross-project relevance searches favour the project we are in.
	relevance := opts.SortBy == search.SortRelevance || (opts.SortBy == "" && !opts.Exhaustive)
	if searchAll && relevance {
		if c, err := svc.Projects.CurrentContext(ctx); err == nil && c.CurrentProject != "" {
			resp.Results = results.Rank(resp.Results, results.Context{
				CurrentProject:     c.CurrentProject,
				SearchingForErrors: searchIncludeErrors,
			})
		}
	}

	return printResults(cmd, svc, resp.Results, searchFormat, &resp.Stats)
}

// searchOptions builds search options from the flags and preferences.
func searchOptions(ctx context.Context, svc *service.Service, query string) (search.Options, error) {
	prefs := svc.Prefs.Get()

	proj, err := svc.ResolveProject(ctx, searchProject, searchAll)
	if errors.Is(err, service.ErrNoProject) {
		return search.Options{}, errors.New("no project detected from the current directory; use -p <project> or -a to search all projects")
	}
	if err != nil {
		return search.Options{}, err
	}

	tr, err := timerange.Parse(searchTimeRange, time.Now())
	if err != nil {
		return search.Options{}, err
	}

	if !search.SortField(searchSort).Valid() {
		return search.Options{}, fmt.Errorf("invalid sort %q: use relevance, date or messageCount", searchSort)
	}

	maxResults := searchMaxResults
	if maxResults <= 0 {
		maxResults = prefs.Search.MaxResults
	}

	opts := search.Options{
		Query:        query,
		Project:      proj,
		FilePatterns: splitList(searchFilePatterns),
		TimeRange:    tr,
		Exhaustive:   searchExhaustive || prefs.Search.Exhaustive,
		Limit:        maxResults,
		SortBy:       search.SortField(searchSort),
	}
	if searchIncludeErrors {
		opts.IncludeErrors = search.Bool(true)
	}
	if searchIncludeToolCalls {
		opts.IncludeToolCalls = search.Bool(true)
	}
	return opts, nil
}

// highlightFor returns the keywords to bold. Only markdown renders them.
func highlightFor(name, fallback, query string) []string {
	if name == "" {
		name = fallback
	}
	if name != format.Markdown {
		return nil
	}
	return search.Keywords(query)
}

func printResults(cmd *cobra.Command, svc *service.Service, rs []*models.SearchResult, name string, stats *results.Stats) error {
	prefs := svc.Prefs.Get()
	if name == "" {
		name = prefs.Display.DefaultFormat
	}
	if !format.IsValid(name) {
		return fmt.Errorf("unknown format %q: use one of %s", name, strings.Join(format.Names(), ", "))
	}

	out, err := format.Render(rs, name, format.Options{
		IncludeStats:   stats != nil && prefs.Display.IncludeStats,
		Stats:          stats,
		TruncateLength: prefs.Display.MaxPreviewLength,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
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
