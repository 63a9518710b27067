package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of searches to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the search history")
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	if svc.History == nil {
		return errors.New("search history is unavailable (see logs)")
	}
	out := cmd.OutOrStdout()

	if historyClear {
		n, err := svc.History.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d searches.\n", n)
		return nil
	}

	entries, err := svc.History.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No searches yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSOURCE\tPROJECT\tRESULTS\tQUERY")
	for _, e := range entries {
		project := e.Project
		if project == "" {
			project = "(all)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", humanize.Time(e.CreatedAt), e.Source, project, e.ResultCount, e.Query)
	}
	return w.Flush()
}
