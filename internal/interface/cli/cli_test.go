package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupProjects(t *testing.T) {
	t.Helper()
	base := t.TempDir()

	sessions := map[string]string{
		"zq/one.jsonl": `{"type":"user","sessionId":"one","timestamp":"2024-06-01T10:00:00Z","message":{"role":"user","content":"the deploy script fails in main.go"}}`,
		"zq/two.jsonl": `{"type":"user","sessionId":"two","timestamp":"2024-06-02T10:00:00Z","message":{"role":"user","content":"unrelated chat"}}`,
		"xw/tri.jsonl": `{"type":"assistant","sessionId":"tri","timestamp":"2024-06-03T10:00:00Z","message":{"role":"assistant","content":"deploy finished"}}`,
	}
	for rel, line := range sessions {
		path := filepath.Join(base, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(line+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("CLAUDE_PROJECTS_PATH", base)
	t.Setenv("CLAUDE_GREP_HOME", t.TempDir())
}

// runCLI executes the root command with fresh flag values.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	searchProject, searchAll, searchFormat = "", false, ""
	searchMaxResults, searchTimeRange, searchSort = 0, "", ""
	searchIncludeErrors, searchIncludeToolCalls, searchNoProgress = false, false, false
	searchFilePatterns, searchExhaustive, searchDedupe, searchMinScore = "", false, false, 0
	filesProject, filesAll, filesFormat = "", false, ""
	showFormat, showContext, showHighlight, showCopy = "markdown", 0, "", false
	historyLimit, historyClear = 20, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "search", "deploy", "-a", "-f", "json", "--no-progress")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	var decoded struct {
		Results []struct {
			SessionID string `json:"sessionId"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(decoded.Results) != 2 {
		t.Errorf("got %d results, want 2:\n%s", len(decoded.Results), out)
	}
}

func TestSearchCommand_Project(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "search", "deploy", "-p", "xw", "-f", "csv", "--no-progress")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if !strings.Contains(out, "\ntri,") || strings.Contains(out, "\none,") {
		t.Errorf("unexpected output:\n%s", out)
	}

	_, err = runCLI(t, "search", "deploy", "-p", "zzz", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown project error = %v", err)
	}
}

func TestSearchCommand_NoProjectDetected(t *testing.T) {
	setupProjects(t)

	_, err := runCLI(t, "search", "deploy", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "no project detected") {
		t.Errorf("error = %v, want no project detected", err)
	}
}

func TestSearchCommand_BadFlags(t *testing.T) {
	setupProjects(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"time range", []string{"-t", "qqq zzz"}, "invalid time range"},
		{"sort", []string{"--sort", "size"}, "invalid sort"},
		{"format", []string{"-f", "yaml"}, "unknown format"},
		{"file pattern", []string{"--file-patterns", "src/("}, "invalid file pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "deploy", "-a", "--no-progress"}, tt.args...)
			_, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFilesCommand(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "files", "*.go", "-a", "-f", "csv")
	if err != nil {
		t.Fatalf("files error = %v", err)
	}
	if !strings.Contains(out, "\none,") || strings.Contains(out, "\ntri,") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestShowCommand(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "show", "one", "--highlight", "deploy")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "# Conversation: one") || !strings.Contains(out, "the **deploy** script") {
		t.Errorf("unexpected output:\n%s", out)
	}

	_, err = runCLI(t, "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing conversation error = %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "config", "set", "search.maxResults", "5")
	if err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if strings.TrimSpace(out) != "search.maxResults = 5" {
		t.Errorf("set output = %q", out)
	}

	out, err = runCLI(t, "config", "get", "search.maxResults")
	if err != nil || strings.TrimSpace(out) != "5" {
		t.Errorf("get = %q, %v", out, err)
	}

	if _, err := runCLI(t, "config", "set", "search.nope", "1"); err == nil {
		t.Error("expected error for unknown key")
	}

	if _, err := runCLI(t, "config", "reset", "search"); err != nil {
		t.Fatal(err)
	}
	out, _ = runCLI(t, "config", "get", "search.maxResults")
	if strings.TrimSpace(out) != "20" {
		t.Errorf("after reset = %q, want 20", out)
	}
}

func TestProjectAndHistoryCommands(t *testing.T) {
	setupProjects(t)

	out, err := runCLI(t, "project", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "xw (1 conversation") || !strings.Contains(out, "zq (2 conversations") {
		t.Errorf("project list:\n%s", out)
	}

	if _, err := runCLI(t, "project", "use", "zq"); err != nil {
		t.Fatal(err)
	}
	out, _ = runCLI(t, "project", "current")
	if !strings.Contains(out, "Current project:   zq") {
		t.Errorf("project current:\n%s", out)
	}

	// The remembered project now scopes searches without -p.
	if _, err := runCLI(t, "search", "deploy", "-f", "json", "--no-progress"); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "deploy") || !strings.Contains(out, "zq") {
		t.Errorf("history:\n%s", out)
	}

	out, _ = runCLI(t, "history", "--clear")
	if !strings.Contains(out, "Deleted 1 searches.") {
		t.Errorf("history --clear: %q", out)
	}
}
