package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/conversation"
	"github.com/neilberkman/claude-grep/internal/core/search"
)

var (
	showFormat    string
	showContext   int
	showHighlight string
	showCopy      bool
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a whole conversation",
	Long: `Print a conversation as markdown or JSON.

With --highlight and --context, only messages near a mention of the
highlighted terms are printed.

Examples:
  claude-grep show 3f2a9c1e-...
  claude-grep show 3f2a9c1e-... --highlight "migration" -c 2
  claude-grep show 3f2a9c1e-... -f json --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showFormat, "format", "f", "markdown", "Output format: markdown or json")
	showCmd.Flags().IntVarP(&showContext, "context", "c", 0, "Messages of context around highlighted terms (0 prints everything)")
	showCmd.Flags().StringVar(&showHighlight, "highlight", "", "Comma-separated terms to highlight")
	showCmd.Flags().BoolVar(&showCopy, "copy", false, "Copy the output to the clipboard")
}

func runShow(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	details, err := svc.Loader.Load(cmd.Context(), sessionID)
	if errors.Is(err, search.ErrNotFound) {
		return fmt.Errorf("conversation %s not found", sessionID)
	}
	if err != nil {
		return err
	}

	terms := splitList(showHighlight)
	out, err := conversation.Format(details, showFormat, conversation.FormatOptions{
		Highlight: len(terms) > 0,
		Terms:     terms,
		Context:   showContext,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)

	if showCopy {
		if err := clipboard.WriteAll(out); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Copied to clipboard.")
	}
	return nil
}
