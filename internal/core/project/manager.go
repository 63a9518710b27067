package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sahilm/fuzzy"

	"github.com/neilberkman/claude-grep/internal/core/scanner"
)

// MaxHistory is how many switched-to projects are remembered.
const MaxHistory = 10

var ErrProjectNotFound = errors.New("project not found")

// NotFoundError is returned by Switch for an unknown project. It matches
// ErrProjectNotFound with errors.Is.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("project '%s' not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return ErrProjectNotFound
}

// State is the persisted project memory.
type State struct {
	LastProject string    `toml:"lastProject"`
	History     []string  `toml:"history"`
	LastUpdated time.Time `toml:"lastUpdated"`
}

// Manager remembers which project the user is working in.
type Manager struct {
	scanner  *scanner.Scanner
	detector *Detector
	path     string

	mu    sync.Mutex
	state State
}

// NewManager creates a manager persisting its state at path.
func NewManager(s *scanner.Scanner, d *Detector, path string) *Manager {
	m := &Manager{scanner: s, detector: d, path: path}
	m.load()
	return m
}

func (m *Manager) load() {
	if _, err := toml.DecodeFile(m.path, &m.state); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load project state", "path", m.path, "error", err)
		m.state = State{}
	}
}

func (m *Manager) saveLocked() error {
	m.state.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.state); err != nil {
		return fmt.Errorf("failed to encode project state: %w", err)
	}
	if err := os.WriteFile(m.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write project state: %w", err)
	}
	return nil
}

// CurrentContext detects the project from the working directory, falling
// back to the last remembered project while it still exists.
func (m *Manager) CurrentContext(ctx context.Context) (Context, error) {
	c, err := m.detector.Detect(ctx)
	if err != nil {
		return Context{}, err
	}
	if c.CurrentProject == "" {
		last := m.LastProject()
		if last != "" && m.scanner.ProjectExists(last) {
			c.CurrentProject = last
		}
	}
	return c, nil
}

// Switch makes name the remembered project and moves it to the front of
// the history.
func (m *Manager) Switch(name string) error {
	if !m.scanner.ProjectExists(name) {
		return &NotFoundError{Name: name, Suggestions: m.Suggest(name, 3)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := []string{name}
	for _, p := range m.state.History {
		if p != name {
			history = append(history, p)
		}
	}
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	m.state.History = history
	m.state.LastProject = name
	return m.saveLocked()
}

// Remember records name as the last project without touching history.
func (m *Manager) Remember(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastProject = name
	return m.saveLocked()
}

// LastProject returns the remembered project.
func (m *Manager) LastProject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastProject
}

// History returns previously switched-to projects, most recent first.
func (m *Manager) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.History)
}

// Clear forgets the last project and history.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	return m.saveLocked()
}

// Suggest returns up to n known projects that fuzzily match name.
func (m *Manager) Suggest(name string, n int) []string {
	projects, err := m.scanner.ListProjects()
	if err != nil || len(projects) == 0 {
		return nil
	}

	var out []string
	for _, match := range fuzzy.Find(name, projects) {
		out = append(out, match.Str)
		if len(out) == n {
			break
		}
	}
	return out
}
