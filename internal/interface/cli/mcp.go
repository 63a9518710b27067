package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/cmd/claude-grep/mcp"
	"github.com/neilberkman/claude-grep/internal/interface/web"
)

var mcpWithWeb bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio so Claude Code
can search your conversation history.

Register it with Claude Code:
  claude mcp add claude-grep -- claude-grep mcp

Or in a config file:
  {
    "mcpServers": {
      "claude-grep": {
        "command": "claude-grep",
        "args": ["mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWithWeb, "with-web", false, "Also serve the web interface and expose open_web_interface")
}

func runMCP(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	ctx := cmd.Context()
	webURL := ""
	if mcpWithWeb {
		ln, url, err := web.Listen(fmt.Sprintf("localhost:%d", env.Port))
		if err != nil {
			return err
		}
		webURL = url

		srv := web.New(svc)
		go func() {
			if err := srv.Serve(ctx, ln); err != nil {
				log.Error("web server stopped", "error", err)
			}
		}()
	}

	if err := mcp.NewServer(svc, webURL).ServeStdio(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
