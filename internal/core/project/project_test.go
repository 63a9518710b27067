package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/neilberkman/claude-grep/internal/core/scanner"
)

func setupBase(t *testing.T, projects ...string) *scanner.Scanner {
	t.Helper()
	base := t.TempDir()
	for _, p := range projects {
		if err := os.MkdirAll(filepath.Join(base, p), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return scanner.New(base)
}

func testDetector(s *scanner.Scanner, cwd string) *Detector {
	return &Detector{
		scanner:   s,
		cwd:       cwd,
		getenv:    func(string) string { return "" },
		gitRemote: func(context.Context, string) string { return "" },
	}
}

func TestDetect(t *testing.T) {
	s := setupBase(t, "alpha", "beta-service", "-home-u-work-gamma")

	pkgRoot := t.TempDir()
	pkgDir := filepath.Join(pkgRoot, "repo", "sub")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	pkgJSON := `{"name": "beta-service", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(pkgRoot, "repo", "package.json"), []byte(pkgJSON), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		cwd    string
		home   string
		remote string
		want   string
	}{
		{name: "path segment", cwd: "/x/alpha/src", want: "alpha"},
		{name: "git remote", cwd: "/x/other", remote: "beta-service", want: "beta-service"},
		{name: "package.json", cwd: pkgDir, home: pkgRoot, want: "beta-service"},
		{name: "substring of basename", cwd: "/x/Beta", want: "beta-service"},
		{name: "encoded cwd", cwd: "/home/u/work/gamma", want: "-home-u-work-gamma"},
		{name: "fuzzy", cwd: "/x/bsvc", want: "beta-service"},
		{name: "no match", cwd: "/x/zzz", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDetector(s, tt.cwd)
			d.home = tt.home
			d.gitRemote = func(context.Context, string) string { return tt.remote }

			got, err := d.Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got.CurrentProject != tt.want {
				t.Errorf("CurrentProject = %q, want %q", got.CurrentProject, tt.want)
			}
			if len(got.AvailableProjects) != 3 {
				t.Errorf("AvailableProjects = %v, want 3 projects", got.AvailableProjects)
			}
			if got.BasePath != s.BasePath() {
				t.Errorf("BasePath = %q, want %q", got.BasePath, s.BasePath())
			}
		})
	}
}

func TestIsClaudeCode(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want bool
	}{
		{name: "plain", args: []string{"claude-grep", "search"}, want: false},
		{name: "CLAUDE_CODE set", env: map[string]string{"CLAUDE_CODE": "1"}, want: true},
		{name: "server name", env: map[string]string{"MCP_SERVER_NAME": "claude-grep"}, want: true},
		{name: "other server name", env: map[string]string{"MCP_SERVER_NAME": "other"}, want: false},
		{name: "mcp argument", args: []string{"claude-grep", "mcp"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDetector(nil, "")
			d.getenv = func(k string) string { return tt.env[k] }
			d.args = tt.args
			if got := d.IsClaudeCode(); got != tt.want {
				t.Errorf("IsClaudeCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRepoName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/widgets.git\n": "widgets",
		"git@github.com:acme/widgets.git":       "widgets",
		"https://github.com/acme/tools":         "tools",
		"":                                      "",
	}
	for url, want := range tests {
		if got := RepoName(url); got != want {
			t.Errorf("RepoName(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestEncodePath(t *testing.T) {
	if got := EncodePath("/Users/me/my.app"); got != "-Users-me-my-app" {
		t.Errorf("EncodePath() = %q", got)
	}
}

func TestManagerSwitch(t *testing.T) {
	s := setupBase(t, "alpha", "beta", "gamma")
	statePath := filepath.Join(t.TempDir(), "projects.toml")
	m := NewManager(s, testDetector(s, "/x/zzz"), statePath)

	for _, p := range []string{"alpha", "beta", "alpha", "gamma"} {
		if err := m.Switch(p); err != nil {
			t.Fatalf("Switch(%q) error = %v", p, err)
		}
	}

	want := []string{"gamma", "alpha", "beta"}
	if got := m.History(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("History() = %v, want %v", got, want)
	}
	if m.LastProject() != "gamma" {
		t.Errorf("LastProject() = %q, want gamma", m.LastProject())
	}

	reloaded := NewManager(s, testDetector(s, "/x/zzz"), statePath)
	if got := reloaded.History(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("reloaded History() = %v, want %v", got, want)
	}
}

func TestManagerSwitch_Unknown(t *testing.T) {
	s := setupBase(t, "billing-api", "frontend")
	m := NewManager(s, testDetector(s, ""), filepath.Join(t.TempDir(), "projects.toml"))

	err := m.Switch("billing")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("Switch() error = %v, want ErrProjectNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error is not a *NotFoundError: %T", err)
	}
	if len(nf.Suggestions) == 0 || nf.Suggestions[0] != "billing-api" {
		t.Errorf("Suggestions = %v, want billing-api first", nf.Suggestions)
	}
	if len(m.History()) != 0 {
		t.Errorf("History() = %v, want empty", m.History())
	}
}

func TestManagerHistoryCap(t *testing.T) {
	var names []string
	for i := range MaxHistory + 2 {
		names = append(names, fmt.Sprintf("p%02d", i))
	}
	s := setupBase(t, names...)
	m := NewManager(s, testDetector(s, ""), filepath.Join(t.TempDir(), "projects.toml"))

	for _, n := range names {
		if err := m.Switch(n); err != nil {
			t.Fatal(err)
		}
	}

	history := m.History()
	if len(history) != MaxHistory {
		t.Fatalf("len(History()) = %d, want %d", len(history), MaxHistory)
	}
	if history[0] != "p11" || history[MaxHistory-1] != "p02" {
		t.Errorf("History() = %v", history)
	}
}

func TestManagerCurrentContext(t *testing.T) {
	s := setupBase(t, "alpha", "beta")
	m := NewManager(s, testDetector(s, "/x/zzz"), filepath.Join(t.TempDir(), "projects.toml"))

	c, err := m.CurrentContext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.CurrentProject != "" {
		t.Errorf("CurrentProject = %q, want none", c.CurrentProject)
	}

	if err := m.Remember("beta"); err != nil {
		t.Fatal(err)
	}
	c, err = m.CurrentContext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.CurrentProject != "beta" {
		t.Errorf("CurrentProject = %q, want beta", c.CurrentProject)
	}

	// A remembered project that no longer exists is ignored
	if err := m.Remember("gone"); err != nil {
		t.Fatal(err)
	}
	c, _ = m.CurrentContext(context.Background())
	if c.CurrentProject != "" {
		t.Errorf("CurrentProject = %q, want none", c.CurrentProject)
	}

	// Detection wins over memory
	m.detector.cwd = "/src/alpha"
	if err := m.Remember("beta"); err != nil {
		t.Fatal(err)
	}
	c, _ = m.CurrentContext(context.Background())
	if c.CurrentProject != "alpha" {
		t.Errorf("CurrentProject = %q, want alpha", c.CurrentProject)
	}
}

func TestManagerClear(t *testing.T) {
	s := setupBase(t, "alpha")
	m := NewManager(s, testDetector(s, ""), filepath.Join(t.TempDir(), "projects.toml"))
	if err := m.Switch("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	if m.LastProject() != "" || len(m.History()) != 0 {
		t.Errorf("state not cleared: %q %v", m.LastProject(), m.History())
	}
}
