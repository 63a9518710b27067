package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/claude-grep/internal/core/scanner"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "List, inspect and switch projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with conversations",
	RunE:  runProjectList,
}

var projectCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the project searches run against",
	RunE:  runProjectCurrent,
}

var projectUseCmd = &cobra.Command{
	Use:   "use <project>",
	Short: "Make a project the default when none is detected",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUse,
}

var projectHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently used projects",
	RunE:  runProjectHistory,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectCurrentCmd, projectUseCmd, projectHistoryCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	c, err := svc.Projects.CurrentContext(cmd.Context())
	if err != nil {
		return err
	}
	if len(c.AvailableProjects) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No projects found in %s\n", c.BasePath)
		return nil
	}

	recent, err := svc.Scanner.Scan(cmd.Context(), scanner.Options{})
	if err != nil {
		return err
	}
	latest := make(map[string]int, len(c.AvailableProjects))
	counts := make(map[string]int, len(c.AvailableProjects))
	for i, f := range recent {
		if _, ok := latest[f.ProjectName]; !ok {
			latest[f.ProjectName] = i
		}
		counts[f.ProjectName]++
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Projects in %s:\n\n", c.BasePath)
	for _, name := range c.AvailableProjects {
		marker := "  "
		if name == c.CurrentProject {
			marker = "* "
		}
		activity := "no conversations"
		if i, ok := latest[name]; ok {
			activity = fmt.Sprintf("%s, last active %s",
				pluralize(counts[name], "conversation"), humanize.Time(recent[i].LastModified))
		}
		fmt.Fprintf(out, "%s%s (%s)\n", marker, name, activity)
	}
	return nil
}

func runProjectCurrent(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	c, err := svc.Projects.CurrentContext(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	current := c.CurrentProject
	if current == "" {
		current = "none (use -a or 'claude-grep project use <name>')"
	}
	fmt.Fprintf(out, "Current project:   %s\n", current)
	fmt.Fprintf(out, "Working directory: %s\n", c.WorkingDirectory)
	fmt.Fprintf(out, "Projects path:     %s\n", c.BasePath)
	fmt.Fprintf(out, "Claude Code:       %t\n", c.IsClaudeCode)
	fmt.Fprintf(out, "Projects:          %d\n", len(c.AvailableProjects))
	return nil
}

func runProjectUse(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	if err := svc.Projects.Switch(args[0]); err != nil {
		return err
	}
	if err := svc.Prefs.Set("search.defaultProject", args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Switched to project: %s\n", args[0])
	return nil
}

func runProjectHistory(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	projects := svc.Projects.History()
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No project history yet.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(projects, "\n"))
	return nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
