package project

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/neilberkman/claude-grep/internal/core/scanner"
	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompProject)

// ServerName is the MCP server name Claude Code registers us under.
const ServerName = "claude-grep"

// Context describes where claude-grep is running and which project the
// working directory belongs to.
type Context struct {
	CurrentProject    string   `json:"currentProject,omitempty"`
	AvailableProjects []string `json:"availableProjects"`
	IsClaudeCode      bool     `json:"isClaudeCode"`
	WorkingDirectory  string   `json:"workingDirectory,omitempty"`
	BasePath          string   `json:"conversationBasePath"`
}

// Detector works out the current project from the working directory.
type Detector struct {
	scanner *scanner.Scanner

	cwd       string
	home      string
	getenv    func(string) string
	args      []string
	gitRemote func(ctx context.Context, dir string) string
}

// NewDetector creates a detector for the process's working directory.
func NewDetector(s *scanner.Scanner) *Detector {
	cwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	return &Detector{
		scanner:   s,
		cwd:       cwd,
		home:      home,
		getenv:    os.Getenv,
		args:      os.Args,
		gitRemote: gitRemoteName,
	}
}

// Detect lists the available projects and picks the one matching the
// working directory, if any.
func (d *Detector) Detect(ctx context.Context) (Context, error) {
	projects, err := d.scanner.ListProjects()
	if err != nil {
		return Context{}, err
	}
	if projects == nil {
		projects = []string{}
	}

	return Context{
		CurrentProject:    d.fromDir(ctx, d.cwd, projects),
		AvailableProjects: projects,
		IsClaudeCode:      d.IsClaudeCode(),
		WorkingDirectory:  d.cwd,
		BasePath:          d.scanner.BasePath(),
	}, nil
}

// IsClaudeCode reports whether we were started by Claude Code.
func (d *Detector) IsClaudeCode() bool {
	if d.getenv("CLAUDE_CODE") != "" || d.getenv("MCP_SERVER_NAME") == ServerName {
		return true
	}
	return slices.ContainsFunc(d.args, func(arg string) bool {
		return strings.Contains(arg, "mcp")
	})
}

func (d *Detector) fromDir(ctx context.Context, cwd string, projects []string) string {
	if cwd == "" || len(projects) == 0 {
		return ""
	}

	// A path segment named after a project
	for _, part := range strings.Split(filepath.ToSlash(cwd), "/") {
		if part != "" && slices.Contains(projects, part) {
			return part
		}
	}

	if name := d.gitRemote(ctx, cwd); name != "" && slices.Contains(projects, name) {
		return name
	}

	// Walk up to $HOME looking at directory names and package.json
	for dir := cwd; dir != d.home && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if base := filepath.Base(dir); slices.Contains(projects, base) {
			return base
		}
		if name := packageName(dir); name != "" && slices.Contains(projects, name) {
			return name
		}
	}

	base := strings.ToLower(filepath.Base(cwd))
	for _, p := range projects {
		lp := strings.ToLower(p)
		if strings.Contains(lp, base) || strings.Contains(base, lp) {
			return p
		}
	}

	// Claude Code names project directories after the encoded cwd
	if encoded := EncodePath(cwd); slices.Contains(projects, encoded) {
		return encoded
	}

	if matches := fuzzy.Find(base, projects); len(matches) > 0 {
		log.Debug("fuzzy project match", "cwd", cwd, "project", matches[0].Str, "score", matches[0].Score)
		return matches[0].Str
	}
	return ""
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// EncodePath converts a directory to the form Claude Code uses for its
// project directory names: /Users/me/app becomes -Users-me-app.
func EncodePath(dir string) string {
	return nonAlnum.ReplaceAllString(filepath.ToSlash(dir), "-")
}

func packageName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(data, &pkg) != nil {
		return ""
	}
	return pkg.Name
}

var remoteName = regexp.MustCompile(`[/:]([^/:]+?)(?:\.git)?$`)

func gitRemoteName(ctx context.Context, dir string) string {
	cmd := exec.CommandContext(ctx, "git", "config", "--get", "remote.origin.url")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return RepoName(string(out))
}

// RepoName extracts the repository name from a git remote URL.
func RepoName(url string) string {
	m := remoteName.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return ""
	}
	return m[1]
}
