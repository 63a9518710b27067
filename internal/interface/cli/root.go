package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/config"
	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompCLI)

var (
	projectsPath string
	debugLogs    bool
	versionInfo  string

	env *config.Env
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "claude-grep",
	Short: "Search Claude Code conversation history",
	Long: `claude-grep - search your Claude Code conversations

Searches the JSONL transcripts under ~/.claude/projects directly, with
relevance ranking, file and error filters, and output for terminals,
scripts and Claude itself (via MCP).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = config.LoadEnv()
		if err != nil {
			return err
		}
		if projectsPath != "" {
			env.ProjectsPath = projectsPath
		}
		if debugLogs {
			env.Debug = true
		}

		logging.Init(logging.Config{
			LogDir: env.LogDir(),
			Level:  env.LogLevel,
			Format: env.LogFormat,
			Debug:  env.Debug,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectsPath, "projects-path", "", "Claude projects directory (default: $CLAUDE_PROJECTS_PATH or ~/.claude/projects)")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Write debug logs to ~/.claude-grep/logs")
}

func openService() (*service.Service, error) {
	svc, err := service.New(env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return svc, nil
}
