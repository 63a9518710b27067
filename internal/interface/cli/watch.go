package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/scanner"
	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/internal/core/service"
)

var (
	watchProject  string
	watchAll      bool
	watchFormat   string
	watchInterval time.Duration
	watchTop      int
)

var watchCmd = &cobra.Command{
	Use:   "watch <query>",
	Short: "Re-run a search whenever conversations change",
	Long: `Watch the projects directory and re-run the search when a conversation
is written, printing results that were not shown before.

Examples:
  claude-grep watch "deploy failed"
  claude-grep watch "TODO" -a --interval 10s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "Project to watch (default: detected)")
	watchCmd.Flags().BoolVarP(&watchAll, "all", "a", false, "Watch every project")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "list", "Output format")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Minimum time between searches")
	watchCmd.Flags().IntVar(&watchTop, "top", 5, "Number of top results to consider")
}

func runWatch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := cmd.Context()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	proj, err := svc.ResolveProject(ctx, watchProject, watchAll)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	run := func() error {
		resp, err := svc.Search(ctx, service.Request{
			Search:  search.Options{Query: query, Project: proj, Limit: watchTop},
			Process: results.Options{MaxResults: watchTop, Deduplicate: true},
			Source:  history.SourceCLI,
		})
		if err != nil {
			return err
		}

		var fresh []*models.SearchResult
		for _, r := range resp.Results {
			key := r.SessionID + "@" + r.Timestamp.String()
			if !seen[key] {
				seen[key] = true
				fresh = append(fresh, r)
			}
		}
		if len(fresh) == 0 {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n[%s] %d new result(s) for %q\n", time.Now().Format("15:04:05"), len(fresh), query)
		return printResults(cmd, svc, fresh, watchFormat, nil)
	}

	if err := run(); err != nil {
		return err
	}
	scope := proj
	if scope == "" {
		scope = "all projects"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for %q (Ctrl+C to stop)\n", scope, query)

	err = svc.Scanner.Watch(ctx, scanner.WatchOptions{Project: proj, MinInterval: watchInterval}, func(paths []string) {
		log.Debug("conversations changed", "files", len(paths))
		if err := run(); err != nil {
			log.Warn("watch search failed", "error", err)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
