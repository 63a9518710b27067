package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/core/timerange"
)

var (
	filesProject    string
	filesAll        bool
	filesFormat     string
	filesMaxResults int
	filesTimeRange  string
)

var filesCmd = &cobra.Command{
	Use:   "files <pattern>",
	Short: "Find conversations that mention files matching a pattern",
	Long: `Find conversations in which a file matching the pattern was mentioned.

Examples:
  claude-grep files "*.go"
  claude-grep files "docker-compose*" -a
  claude-grep files "src/auth/*" -t 2w`,
	Args: cobra.ExactArgs(1),
	RunE: runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)

	filesCmd.Flags().StringVarP(&filesProject, "project", "p", "", "Project to search (default: detected)")
	filesCmd.Flags().BoolVarP(&filesAll, "all", "a", false, "Search every project")
	filesCmd.Flags().StringVarP(&filesFormat, "format", "f", "", "Output format")
	filesCmd.Flags().IntVarP(&filesMaxResults, "max-results", "m", 0, "Maximum number of results (default: preferences)")
	filesCmd.Flags().StringVarP(&filesTimeRange, "time-range", "t", "", "Time range, e.g. 7d or \"last month\"")
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	proj, err := svc.ResolveProject(ctx, filesProject, filesAll)
	if err != nil && !errors.Is(err, service.ErrNoProject) {
		return err
	}

	tr, err := timerange.Parse(filesTimeRange, time.Now())
	if err != nil {
		return err
	}

	maxResults := filesMaxResults
	if maxResults <= 0 {
		maxResults = svc.Prefs.Get().Search.MaxResults
	}

	resp, err := svc.Search(ctx, service.Request{
		Search: search.Options{
			Project:      proj,
			FilePatterns: []string{args[0]},
			TimeRange:    tr,
			Limit:        maxResults,
		},
		Process: results.Options{MaxResults: maxResults},
		Source:  history.SourceCLI,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return printResults(cmd, svc, resp.Results, filesFormat, nil)
}
