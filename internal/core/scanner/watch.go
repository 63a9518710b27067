package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// WatchOptions controls Watch.
type WatchOptions struct {
	// Project limits events to one project directory.
	Project string

	// Debounce coalesces bursts of writes. Defaults to 500ms.
	Debounce time.Duration

	// MinInterval is the minimum time between two OnChange calls.
	// Defaults to 2s.
	MinInterval time.Duration
}

// Watch blocks until ctx is done, calling onChange with the transcript
// files that were created or written since the previous call.
func (s *Scanner) Watch(ctx context.Context, opts WatchOptions, onChange func(paths []string)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.basePath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.basePath, err)
	}

	projects, err := s.ListProjects()
	if err != nil {
		return err
	}
	for _, name := range projects {
		if opts.Project != "" && name != opts.Project {
			continue
		}
		if err := watcher.Add(s.ProjectPath(name)); err != nil {
			log.Warn("failed to watch project", "project", name, "error", err)
		}
	}
	log.Debug("watching conversations", "path", s.basePath, "projects", len(projects))

	limiter := rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	pending := make(map[string]bool)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			s.handleEvent(watcher, event, opts.Project, pending)
			if len(pending) > 0 && fire == nil {
				fire = time.After(opts.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			log.Warn("watcher error", "error", err)

		case <-fire:
			if !limiter.Allow() {
				fire = time.After(opts.Debounce)
				continue
			}
			fire = nil

			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			onChange(paths)
		}
	}
}

func (s *Scanner) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, project string, pending map[string]bool) {
	dir := filepath.Dir(event.Name)

	// New project directory
	if dir == filepath.Clean(s.basePath) && event.Has(fsnotify.Create) {
		name := filepath.Base(event.Name)
		if (project == "" || name == project) && s.ProjectExists(name) {
			if err := watcher.Add(event.Name); err != nil {
				log.Warn("failed to watch new project", "project", name, "error", err)
			}
		}
		return
	}

	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if project != "" && filepath.Base(dir) != project {
		return
	}
	pending[event.Name] = true
}
