package cli

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/service"
	"github.com/neilberkman/claude-grep/internal/interface/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI browser",
	Long:  "Launch an interactive terminal UI for searching and reading Claude Code conversations",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	project, err := svc.ResolveProject(cmd.Context(), "", false)
	if err != nil && !errors.Is(err, service.ErrNoProject) {
		return err
	}

	p := tea.NewProgram(
		tui.New(svc, project),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	// Check if user wants to resume a conversation
	if m, ok := finalModel.(tui.Model); ok && m.LaunchSessionID != "" {
		_ = svc.Close()
		return execClaude(m.LaunchSessionID, m.LaunchProjectPath)
	}

	return nil
}

func execClaude(sessionID, projectPath string) error {
	command := "claude --resume " + sessionID

	fmt.Fprintf(os.Stderr, "[claude-grep] cd %s && %s\n", projectPath, command)

	if projectPath != "" {
		if err := os.Chdir(projectPath); err != nil {
			return fmt.Errorf("failed to cd to %s: %w", projectPath, err)
		}
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}

	// Exec a login shell so version managers (asdf, mise) are loaded
	return syscall.Exec(shell, []string{shell, "-l", "-c", command}, os.Environ())
}
