package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/interface/web"
)

var (
	webPort   int
	webNoOpen bool
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the web interface",
	RunE:  runWeb,
}

func init() {
	rootCmd.AddCommand(webCmd)

	webCmd.Flags().IntVar(&webPort, "port", 0, "Port to listen on (default: $CLAUDE_GREP_PORT or 3000)")
	webCmd.Flags().BoolVar(&webNoOpen, "no-open", false, "Do not open a browser")
}

func runWeb(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	port := webPort
	if port == 0 {
		port = env.Port
	}

	ln, url, err := web.Listen(fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Claude Grep web interface: %s (Ctrl+C to stop)\n", url)
	if !webNoOpen {
		if err := web.OpenBrowser(url); err != nil {
			log.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return web.New(svc).Serve(cmd.Context(), ln)
}
