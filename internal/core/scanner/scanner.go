package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/progress"
	"github.com/neilberkman/claude-grep/internal/logging"
)

// EnvProjectsPath overrides the default transcript location.
const EnvProjectsPath = "CLAUDE_PROJECTS_PATH"

var (
	log           = logging.ForComponent(logging.CompScanner)
	sessionFileRe = regexp.MustCompile(`^(.+?)(?:_conversation)?\.jsonl$`)
)

// Options narrows a scan.
type Options struct {
	Project    string    // exact project directory name; empty means all
	Start      time.Time // zero means unbounded
	End        time.Time
	OnProgress func(progress.Update)
}

// Scanner enumerates transcript files under <base>/<project>/*.jsonl.
type Scanner struct {
	basePath string
}

// New creates a scanner rooted at basePath. An empty basePath falls back to
// $CLAUDE_PROJECTS_PATH and then ~/.claude/projects.
func New(basePath string) *Scanner {
	return &Scanner{basePath: ResolveBasePath(basePath)}
}

// ResolveBasePath applies the base path fallback chain.
func ResolveBasePath(basePath string) string {
	if basePath != "" {
		return basePath
	}
	if env := os.Getenv(EnvProjectsPath); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// BasePath returns the directory being scanned.
func (s *Scanner) BasePath() string {
	return s.basePath
}

// Scan lists conversation files, newest first. A missing or unreadable
// base directory yields no files and no error; an unreadable project
// directory is logged and skipped.
func (s *Scanner) Scan(ctx context.Context, opts Options) ([]models.ConversationFile, error) {
	if _, err := os.Stat(s.basePath); err != nil {
		log.Warn("conversation history directory not found", "path", s.basePath)
		return nil, nil
	}

	projects, err := s.projectDirs()
	if err != nil {
		log.Warn("conversation history directory is not readable", "path", s.basePath, "error", err)
		return nil, nil
	}

	var files []models.ConversationFile
	processed := 0

	for _, name := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Project != "" && name != opts.Project {
			continue
		}

		dir := filepath.Join(s.basePath, name)
		files = append(files, s.scanProject(dir, name, opts)...)

		processed++
		if opts.OnProgress != nil {
			opts.OnProgress(progress.Update{
				FilesProcessed: processed,
				TotalFiles:     len(projects),
				CurrentFile:    dir,
				Stage:          progress.StageScanning,
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified.After(files[j].LastModified)
	})

	return files, nil
}

// RecentConversations returns files modified in the last days days.
func (s *Scanner) RecentConversations(ctx context.Context, days int, project string) ([]models.ConversationFile, error) {
	return s.Scan(ctx, Options{
		Project: project,
		Start:   time.Now().AddDate(0, 0, -days),
	})
}

// ListProjects returns the sorted project directory names, or none when
// the base directory is missing or unreadable.
func (s *Scanner) ListProjects() ([]string, error) {
	if _, err := os.Stat(s.basePath); err != nil {
		return nil, nil
	}
	names, err := s.projectDirs()
	if err != nil {
		log.Warn("conversation history directory is not readable", "path", s.basePath, "error", err)
		return nil, nil
	}
	return names, nil
}

// ProjectExists reports whether name is a project directory.
func (s *Scanner) ProjectExists(name string) bool {
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return false
	}
	info, err := os.Stat(s.ProjectPath(name))
	return err == nil && info.IsDir()
}

// ProjectPath returns the transcript directory of a project.
func (s *Scanner) ProjectPath(name string) string {
	return filepath.Join(s.basePath, name)
}

func (s *Scanner) projectDirs() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Scanner) scanProject(dir, project string, opts Options) []models.ConversationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error("error scanning project directory", "dir", dir, "error", err)
		return nil
	}

	var files []models.ConversationFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warn("failed to stat conversation file", "file", entry.Name(), "error", err)
			continue
		}

		mtime := info.ModTime()
		if !opts.Start.IsZero() && mtime.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && mtime.After(opts.End) {
			continue
		}

		file := models.ConversationFile{
			Path:         filepath.Join(dir, entry.Name()),
			SessionID:    SessionIDFromFilename(entry.Name()),
			LastModified: mtime,
			ProjectName:  project,
		}
		if err := file.Validate(); err != nil {
			log.Debug("skipping conversation file", "file", file.Path, "error", err)
			continue
		}
		files = append(files, file)
	}

	return files
}

// SessionIDFromFilename strips .jsonl and an optional _conversation suffix.
func SessionIDFromFilename(name string) string {
	if m := sessionFileRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return strings.TrimSuffix(name, ".jsonl")
}
